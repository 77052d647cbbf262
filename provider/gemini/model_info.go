package gemini

import "github.com/mhpenta/magicimage"

// NanoBanana1Info describes gemini-2.5-flash-image, the model the studio
// uses unless told otherwise.
var NanoBanana1Info = magicimage.ModelInfo{
	Name:         "nano-banana-1",
	Provider:     magicimage.ProviderGeminiAPI,
	APIModelName: APIModelNanoBanana1,
	Capabilities: magicimage.ModelCapabilities{
		MaxInputImages: 3,
		OutputMIMEType: "image/png",
	},
	RateLimits: magicimage.RateLimits{
		TokensPerMinute:   4_000_000,
		RequestsPerMinute: 500,
	},
}

// NanoBanana2Info describes the Gemini 3 Pro image preview, which takes up
// to 14 reference images.
var NanoBanana2Info = magicimage.ModelInfo{
	Name:         "nano-banana-2",
	Provider:     magicimage.ProviderGeminiAPI,
	APIModelName: APIModelNanoBanana2,
	Capabilities: magicimage.ModelCapabilities{
		MaxInputImages: 14,
		OutputMIMEType: "image/png",
	},
	RateLimits: magicimage.RateLimits{
		TokensPerMinute:   4_000_000,
		RequestsPerMinute: 360,
	},
}
