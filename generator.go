package magicimage

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/mhpenta/magicimage/ratelimiter"
)

// tokenBuffer is added to every estimate to cover the response.
const tokenBuffer = 100

var (
	// ErrProviderRequired is returned when no ContentGenerator is supplied.
	ErrProviderRequired = errors.New("content generator is required")
)

// Generator is the generation adapter: it turns a prompt and optional image
// data strings into exactly one remote call and one image or one error.
type Generator struct {
	provider ContentGenerator

	// Default API model used when config.Model is empty
	defaultModel Model

	// Public model name -> model info
	modelInfo map[Model]*ModelInfo

	// Rate limiting (per API model name)
	rateLimiters ratelimiter.Registry

	logger         *slog.Logger
	tokenEstimator TokenEstimator
	instruction    InstructionBuilder
	observer       GenerationObserver

	mu sync.RWMutex
}

// New creates a Generator backed by provider. Rate limiters are created from
// the RateLimits of each model the provider advertises.
func New(provider ContentGenerator, opts ...Option) (*Generator, error) {
	if provider == nil {
		return nil, ErrProviderRequired
	}

	g := &Generator{
		provider:       provider,
		modelInfo:      make(map[Model]*ModelInfo),
		rateLimiters:   ratelimiter.NewRegistry(),
		logger:         slog.Default(),
		tokenEstimator: NewTokenEstimator(),
		instruction:    SquareImageInstruction,
	}

	models := provider.Models()
	for i := range models {
		g.registerModel(&models[i])
	}
	if len(models) > 0 {
		g.defaultModel = Model(models[0].APIModelName)
	}

	for _, opt := range opts {
		opt(g)
	}

	g.logger.Debug("generator ready",
		"default_model", string(g.defaultModel),
		"rate_limited_models", g.rateLimiters.Models(),
	)

	return g, nil
}

// registerModel records info and creates the default in-memory rate limiter.
func (g *Generator) registerModel(info *ModelInfo) {
	g.modelInfo[Model(info.Name)] = info

	if info.RateLimits.TokensPerMinute > 0 || info.RateLimits.RequestsPerMinute > 0 {
		g.rateLimiters.Set(info.APIModelName, ratelimiter.New(
			info.RateLimits.TokensPerMinute,
			info.RateLimits.RequestsPerMinute,
		))
	}
}

// SetRateLimiter sets a custom rate limiter for an API model name.
// A nil limiter disables local rate limiting for that model.
func (g *Generator) SetRateLimiter(model Model, limiter ratelimiter.Limiter) *Generator {
	g.rateLimiters.Set(string(model), limiter)
	return g
}

// DefaultModel returns the API model used when none is requested.
func (g *Generator) DefaultModel() Model {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.defaultModel
}

// Generate produces one image data string from prompt and optional image data
// strings. Failures are always *GenerationError.
func (g *Generator) Generate(ctx context.Context, prompt string, images []string) (string, error) {
	result, err := g.GenerateImage(ctx, prompt, images, nil)
	if err != nil {
		return "", err
	}
	return result.Image.DataURL(), nil
}

// GenerateImage is Generate with per-call options and the full result.
func (g *Generator) GenerateImage(ctx context.Context, prompt string, images []string, config *GenerateConfig) (*GenerateResult, error) {
	if config == nil {
		config = DefaultConfig()
	}

	model := g.resolveModel(config)
	start := time.Now()

	parts, skipped := g.imageParts(images)
	mode := ModeGenerate
	if len(parts) > 0 {
		mode = ModeEdit
		if limit := g.capabilities(model).MaxInputImages; limit > 0 && len(parts) > limit {
			g.logger.Warn("attachments exceed model recommendation",
				"model", string(model),
				"images", len(parts),
				"max_input_images", limit,
			)
		}
	}

	result, err := g.generate(ctx, model, mode, prompt, parts, config, start)

	if g.observer != nil {
		ev := GenerationEvent{
			Model:    string(model),
			Mode:     mode,
			Duration: time.Since(start),
			Skipped:  skipped,
		}
		if err != nil {
			ev.Err = err
		} else {
			ev.Usage = result.UsageMetadata
		}
		g.observer.ObserveGeneration(ev)
	}

	if err != nil {
		return nil, err
	}
	result.SkippedImages = skipped
	return result, nil
}

func (g *Generator) generate(ctx context.Context, model Model, mode Mode, prompt string, parts []Part, config *GenerateConfig, start time.Time) (*GenerateResult, error) {
	g.mu.RLock()
	wrap := g.instruction
	g.mu.RUnlock()

	instruction := buildInstruction(prompt, mode, wrap)
	if err := ValidatePrompt(instruction); err != nil {
		return nil, newGenerationError(err)
	}
	parts = append(parts, TextPart(instruction))

	g.logger.Debug("starting image generation",
		"model", string(model),
		"mode", string(mode),
		"prompt_length", len(prompt),
		"image_count", len(parts)-1,
	)

	if err := g.checkRateLimit(ctx, model, config, parts); err != nil {
		g.logger.Warn("rate limit hit",
			"model", string(model),
			"error", err.Error(),
		)
		return nil, newGenerationError(err)
	}

	req := &ContentRequest{
		Model:          string(model),
		Parts:          parts,
		Modalities:     []Modality{ModalityImage},
		AspectRatio:    config.AspectRatio,
		SafetySettings: config.SafetySettings,
		Temperature:    config.Temperature,
	}

	resp, err := g.provider.GenerateContent(ctx, req)
	duration := time.Since(start)

	if err != nil {
		g.logger.Error("generation failed",
			"model", string(model),
			"duration_ms", duration.Milliseconds(),
			"error", err.Error(),
		)
		if !IsRateLimitError(err) {
			err = &TransportError{Model: string(model), Err: err}
		}
		return nil, newGenerationError(err)
	}

	img, text, ok := firstImage(resp)
	if !ok {
		g.logger.Warn("no image in response",
			"model", string(model),
			"duration_ms", duration.Milliseconds(),
			"response_text", text,
		)
		return nil, newGenerationError(ErrNoImageProduced)
	}
	if img.MIMEType == "" {
		img.MIMEType = g.capabilities(model).OutputMIMEType
	}

	result := &GenerateResult{
		Image:         img,
		Mode:          mode,
		Instruction:   instruction,
		Text:          text,
		UsageMetadata: resp.UsageMetadata,
	}

	logAttrs := []any{
		"model", string(model),
		"mode", string(mode),
		"duration_ms", duration.Milliseconds(),
		"mime_type", img.MIMEType,
		"image_bytes", len(img.Data),
	}
	if result.UsageMetadata != nil {
		logAttrs = append(logAttrs,
			"prompt_tokens", result.UsageMetadata.PromptTokens,
			"response_tokens", result.UsageMetadata.CandidatesTokens,
			"total_tokens", result.UsageMetadata.TotalTokens,
		)
	}
	g.logger.Info("generation completed", logAttrs...)

	return result, nil
}

// Models returns the model definitions of the provider.
func (g *Generator) Models() []ModelInfo {
	return g.provider.Models()
}

// Close releases provider resources.
func (g *Generator) Close() error {
	if err := g.provider.Close(); err != nil {
		return fmt.Errorf("closing provider: %w", err)
	}
	return nil
}

// imageParts parses attachment strings, skipping malformed ones.
func (g *Generator) imageParts(images []string) ([]Part, int) {
	parts := make([]Part, 0, len(images)+1)
	skipped := 0
	for _, p := range ParseDataURLs(images) {
		if p.Skipped() {
			skipped++
			g.logger.Warn("skipping malformed image data",
				"prefix", truncate(p.Raw, 30),
				"error", p.Reason.Error(),
			)
			continue
		}
		parts = append(parts, ImagePart(*p.Image))
	}
	return parts, skipped
}

// firstImage returns the first inline-data part of the first candidate and
// any text found before it.
func firstImage(resp *ContentResponse) (GeneratedImage, string, bool) {
	if resp == nil || len(resp.Candidates) == 0 {
		return GeneratedImage{}, "", false
	}

	var text strings.Builder
	for _, part := range resp.Candidates[0].Parts {
		if part.InlineData != nil && len(part.InlineData.Data) > 0 {
			return GeneratedImage{
				Data:     part.InlineData.Data,
				MIMEType: part.InlineData.MIMEType,
			}, text.String(), true
		}
		if part.Text != "" && !part.Thought {
			text.WriteString(part.Text)
		}
	}
	return GeneratedImage{}, text.String(), false
}

// checkRateLimit checks rate limits for a model and optionally waits.
func (g *Generator) checkRateLimit(ctx context.Context, model Model, config *GenerateConfig, parts []Part) error {
	limiter, ok := g.rateLimiters.Get(string(model))
	if !ok {
		return nil
	}

	estimatedTokens := g.tokenEstimator.EstimateTokens(parts) + tokenBuffer

	if config.WaitOnRateLimit {
		if err := limiter.WaitAndConsume(ctx, estimatedTokens, config.MaxWaitDuration); err != nil {
			return &RateLimitError{
				RetryAfter: limiter.TimeUntilAvailable(estimatedTokens),
				LimitType:  "tokens",
				Model:      string(model),
				Err:        err,
			}
		}
		return nil
	}

	if !limiter.TryConsume(estimatedTokens) {
		return &RateLimitError{
			RetryAfter: limiter.TimeUntilAvailable(estimatedTokens),
			LimitType:  "tokens",
			Model:      string(model),
		}
	}

	return nil
}

// capabilities returns what the provider advertises for an API model name.
// Unknown models report the zero value.
func (g *Generator) capabilities(model Model) ModelCapabilities {
	g.mu.RLock()
	defer g.mu.RUnlock()
	for _, info := range g.modelInfo {
		if info.APIModelName == string(model) {
			return info.Capabilities
		}
	}
	return ModelCapabilities{}
}

// resolveModel maps a public model name to its API name; unknown names pass
// through unchanged.
func (g *Generator) resolveModel(config *GenerateConfig) Model {
	g.mu.RLock()
	defer g.mu.RUnlock()

	if config == nil || config.Model == "" {
		return g.defaultModel
	}
	if info, ok := g.modelInfo[config.Model]; ok {
		return Model(info.APIModelName)
	}
	return config.Model
}
