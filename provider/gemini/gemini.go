// Package gemini provides a ContentGenerator implementation using Google's Gemini API.
//
// This provider uses the Gemini API backend via the official Go SDK:
// https://github.com/googleapis/go-genai
package gemini

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/mhpenta/magicimage"
	"google.golang.org/genai"
)

// Model name constants - the actual API model names.
const (
	// APIModelNanoBanana1 is the actual API name for Gemini 2.5 Flash Image
	APIModelNanoBanana1 = "gemini-2.5-flash-image"

	// APIModelNanoBanana2 is the actual API name for Gemini 3 Pro Image
	APIModelNanoBanana2 = "gemini-3-pro-image-preview"
)

// defaultRetryAfter is used for 429s; the API doesn't reliably provide Retry-After.
const defaultRetryAfter = 60 * time.Second

// GeminiGenerator implements magicimage.ContentGenerator using Google's Gemini API.
type GeminiGenerator struct {
	client         *genai.Client
	safetySettings []*genai.SafetySetting
	mu             sync.RWMutex
}

// Ensure GeminiGenerator implements the interface.
var _ magicimage.ContentGenerator = (*GeminiGenerator)(nil)

// New creates a new GeminiGenerator from a ProviderConfig.
func New(ctx context.Context, config *magicimage.ProviderConfig) (*GeminiGenerator, error) {
	if config == nil {
		config = &magicimage.ProviderConfig{}
	}

	clientCfg := &genai.ClientConfig{
		Backend: genai.BackendGeminiAPI,
	}

	if config.APIKey != "" {
		clientCfg.APIKey = config.APIKey
	}
	// If APIKey is empty, the SDK will try GOOGLE_API_KEY or GEMINI_API_KEY env vars

	if config.BaseURL != "" {
		clientCfg.HTTPOptions = genai.HTTPOptions{BaseURL: config.BaseURL}
	}

	client, err := genai.NewClient(ctx, clientCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	return &GeminiGenerator{
		client: client,
	}, nil
}

// NewWithAPIKey creates a generator with an API key for Gemini API.
func NewWithAPIKey(ctx context.Context, apiKey string) (*GeminiGenerator, error) {
	return New(ctx, &magicimage.ProviderConfig{
		Provider: magicimage.ProviderGeminiAPI,
		APIKey:   apiKey,
	})
}

// SetSafetySettings configures default safety settings for all requests.
// These can be overridden per-request via ContentRequest.SafetySettings.
func (g *GeminiGenerator) SetSafetySettings(settings []magicimage.SafetySetting) *GeminiGenerator {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.safetySettings = convertSafetySettings(settings)
	return g
}

// GenerateContent sends the ordered parts as one user turn.
func (g *GeminiGenerator) GenerateContent(ctx context.Context, req *magicimage.ContentRequest) (*magicimage.ContentResponse, error) {
	if req == nil || len(req.Parts) == 0 {
		return nil, errors.New("request has no parts")
	}

	g.mu.RLock()
	defaults := g.safetySettings
	g.mu.RUnlock()

	contents := buildContents(req.Parts)
	genConfig := buildGenerateContentConfig(req, defaults)

	result, err := g.client.Models.GenerateContent(ctx, req.Model, contents, genConfig)
	if err != nil {
		return nil, checkRateLimitError(err, req.Model)
	}

	return convertResponse(result), nil
}

// Models returns the model definitions supported by this provider.
// The first model (NanoBanana1) is the default.
func (g *GeminiGenerator) Models() []magicimage.ModelInfo {
	return []magicimage.ModelInfo{
		NanoBanana1Info,
		NanoBanana2Info,
	}
}

// Close releases any resources held by the generator.
func (g *GeminiGenerator) Close() error {
	// The genai.Client doesn't require explicit closing in the current SDK
	return nil
}

// buildContents wraps parts, in order, into a single user turn.
func buildContents(parts []magicimage.Part) []*genai.Content {
	out := make([]*genai.Part, 0, len(parts))
	for _, p := range parts {
		if p.InlineData != nil {
			out = append(out, &genai.Part{
				InlineData: &genai.Blob{
					Data:     p.InlineData.Data,
					MIMEType: p.InlineData.MIMEType,
				},
			})
			continue
		}
		out = append(out, &genai.Part{Text: p.Text})
	}
	return []*genai.Content{genai.NewContentFromParts(out, genai.RoleUser)}
}

// buildGenerateContentConfig converts a request to Gemini's GenerateContentConfig format.
func buildGenerateContentConfig(req *magicimage.ContentRequest, defaults []*genai.SafetySetting) *genai.GenerateContentConfig {
	modalities := make([]string, 0, len(req.Modalities))
	for _, m := range req.Modalities {
		modalities = append(modalities, string(m))
	}

	genConfig := &genai.GenerateContentConfig{
		ResponseModalities: modalities,
	}

	if req.AspectRatio != magicimage.AspectRatioAuto {
		genConfig.ImageConfig = &genai.ImageConfig{
			AspectRatio: req.AspectRatio.String(),
		}
	}

	if req.Temperature != nil {
		genConfig.Temperature = genai.Ptr(*req.Temperature)
	}

	// Safety settings: per-request overrides provider defaults
	if len(req.SafetySettings) > 0 {
		genConfig.SafetySettings = convertSafetySettings(req.SafetySettings)
	} else if len(defaults) > 0 {
		genConfig.SafetySettings = defaults
	}

	return genConfig
}

// convertSafetySettings converts our SafetySettings to Gemini's format.
func convertSafetySettings(settings []magicimage.SafetySetting) []*genai.SafetySetting {
	result := make([]*genai.SafetySetting, 0, len(settings))
	for _, s := range settings {
		result = append(result, &genai.SafetySetting{
			Category:  genai.HarmCategory(s.Category),
			Threshold: genai.HarmBlockThreshold(s.Threshold),
		})
	}
	return result
}

// convertResponse maps the Gemini response onto the provider independent shape.
// Candidate order and part order are preserved.
func convertResponse(result *genai.GenerateContentResponse) *magicimage.ContentResponse {
	resp := &magicimage.ContentResponse{}
	if result == nil {
		return resp
	}

	for _, candidate := range result.Candidates {
		var c magicimage.Candidate
		if candidate != nil && candidate.Content != nil {
			for _, part := range candidate.Content.Parts {
				if part == nil {
					continue
				}
				p := magicimage.Part{Text: part.Text, Thought: part.Thought}
				if part.InlineData != nil {
					p.InlineData = &magicimage.Blob{
						MIMEType: part.InlineData.MIMEType,
						Data:     part.InlineData.Data,
					}
				}
				c.Parts = append(c.Parts, p)
			}
		}
		resp.Candidates = append(resp.Candidates, c)
	}

	if result.UsageMetadata != nil {
		resp.UsageMetadata = &magicimage.UsageMetadata{
			PromptTokens:     int(result.UsageMetadata.PromptTokenCount),
			CandidatesTokens: int(result.UsageMetadata.CandidatesTokenCount),
			TotalTokens:      int(result.UsageMetadata.TotalTokenCount),
		}
	}

	return resp
}

// checkRateLimitError checks if an error from the Gemini API is a rate limit error.
// If so, it wraps it in a RateLimitError for standardized handling; otherwise returns the original error.
func checkRateLimitError(err error, model string) error {
	if err == nil {
		return nil
	}

	var apiErr genai.APIError
	if !errors.As(err, &apiErr) {
		return err
	}

	if apiErr.Code != http.StatusTooManyRequests && apiErr.Status != "RESOURCE_EXHAUSTED" {
		return err
	}

	return &magicimage.RateLimitError{
		RetryAfter: defaultRetryAfter,
		LimitType:  "requests",
		Model:      model,
		Err:        err,
	}
}
