package magicimage

// Provider names the backend that serves a model.
type Provider string

const ProviderGeminiAPI Provider = "gemini"

// ProviderConfig is what a provider constructor needs to reach its API.
// An empty BaseURL keeps the SDK default endpoint.
type ProviderConfig struct {
	Provider Provider
	APIKey   string
	BaseURL  string
}

// ModelCapabilities bounds what a model accepts in a single request.
type ModelCapabilities struct {
	// MaxInputImages is the number of attachments the model handles well.
	// Zero means unknown. Larger requests are still sent.
	MaxInputImages int

	// OutputMIMEType is the media type the model usually returns.
	OutputMIMEType string
}

// RateLimits are per-minute quotas used to build the local limiter.
// Zero disables that dimension.
type RateLimits struct {
	TokensPerMinute   int
	RequestsPerMinute int
}

// ModelInfo describes one model a provider advertises. Name is the public
// alias callers may use, APIModelName is sent on the wire.
type ModelInfo struct {
	Name         string
	Provider     Provider
	APIModelName string

	Capabilities ModelCapabilities
	RateLimits   RateLimits
}
