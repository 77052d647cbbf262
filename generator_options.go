package magicimage

import (
	"log/slog"

	"github.com/mhpenta/magicimage/ratelimiter"
)

// Option configures the Generator.
type Option func(*Generator)

// WithLogger sets a structured logger for the generator.
func WithLogger(logger *slog.Logger) Option {
	return func(g *Generator) {
		if logger != nil {
			g.logger = logger
		}
	}
}

// WithDefaultModel sets the model used when config.Model is empty. Public
// names registered by the provider are mapped to their API names.
func WithDefaultModel(model Model) Option {
	return func(g *Generator) {
		if model == "" {
			return
		}
		if info, ok := g.modelInfo[model]; ok {
			model = Model(info.APIModelName)
		}
		g.defaultModel = model
	}
}

// WithRateLimiter overrides the limiter of an API model name. A nil limiter
// disables local rate limiting for that model.
func WithRateLimiter(model Model, limiter ratelimiter.Limiter) Option {
	return func(g *Generator) {
		g.SetRateLimiter(model, limiter)
	}
}

// WithTokenEstimator replaces the estimator used for rate limiting.
func WithTokenEstimator(estimator TokenEstimator) Option {
	return func(g *Generator) {
		if estimator != nil {
			g.tokenEstimator = estimator
		}
	}
}

// WithInstructionBuilder replaces the text-only generation template.
//
// Example:
//
//	gen, err := magicimage.New(provider,
//	    magicimage.WithInstructionBuilder(func(p string) string {
//	        return "A watercolor illustration of " + p
//	    }),
//	)
func WithInstructionBuilder(build InstructionBuilder) Option {
	return func(g *Generator) {
		g.instruction = build
	}
}

// WithObserver reports every finished call to observer.
func WithObserver(observer GenerationObserver) Option {
	return func(g *Generator) {
		g.observer = observer
	}
}
