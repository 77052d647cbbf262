// Command magicimage serves the image creator page on a local address.
package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"github.com/mhpenta/magicimage"
	"github.com/mhpenta/magicimage/config"
	"github.com/mhpenta/magicimage/metrics"
	"github.com/mhpenta/magicimage/provider/gemini"
	"github.com/mhpenta/magicimage/storage"
	"github.com/mhpenta/magicimage/studio"
	"github.com/mhpenta/magicimage/web"
)

func main() {
	if err := run(); err != nil {
		slog.Error("magicimage stopped", "error", err.Error())
		os.Exit(1)
	}
}

func run() error {
	// .env is optional
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	logger := cfg.NewLogger(os.Stderr)
	slog.SetDefault(logger)

	ctx := context.Background()
	provider, err := gemini.New(ctx, &magicimage.ProviderConfig{
		Provider: magicimage.ProviderGeminiAPI,
		APIKey:   cfg.APIKey,
		BaseURL:  cfg.BaseURL,
	})
	if err != nil {
		return err
	}

	genOpts := []magicimage.Option{
		magicimage.WithLogger(logger),
		magicimage.WithDefaultModel(magicimage.Model(cfg.Model)),
	}
	var collector *metrics.Collector
	if cfg.MetricsEnabled {
		collector = metrics.NewCollector("magicimage")
		genOpts = append(genOpts, magicimage.WithObserver(collector))
	}

	gen, err := magicimage.New(provider, genOpts...)
	if err != nil {
		return err
	}
	defer gen.Close()

	ctrl := studio.New(gen,
		studio.WithLogger(logger),
		studio.WithDownloadPrefix(cfg.DownloadPrefix),
	)

	opts := []web.Option{
		web.WithLogger(logger),
		web.WithAddr(cfg.Addr),
		web.WithTimeouts(cfg.HTTPReadTimeout, cfg.HTTPWriteTimeout, cfg.HTTPIdleTimeout),
	}
	if cfg.DownloadDir != "" {
		store, err := storage.NewFileStore(cfg.DownloadDir)
		if err != nil {
			return err
		}
		opts = append(opts, web.WithStorage(store))
	}

	if collector != nil {
		opts = append(opts, web.WithMetrics(collector))
	}
	opts = append(opts, web.WithPostRateLimit(cfg.PostRateLimit, cfg.PostBurst))

	srv, err := web.New(ctrl, opts...)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(srv.Start)
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTPIdleTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("failed to shutdown server", "error", err.Error())
			return err
		}
		logger.Info("server stopped")
		return nil
	})

	logger.Info("magicimage ready", "addr", cfg.Addr, "model", gen.DefaultModel().String())

	return g.Wait()
}
