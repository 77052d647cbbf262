package magicimage

// Mode tells whether a call generated a new image or edited attachments.
type Mode string

const (
	ModeGenerate Mode = "generate"
	ModeEdit     Mode = "edit"
)

// GeneratedImage represents the image extracted from a model response.
type GeneratedImage struct {
	// Data contains the raw image bytes
	Data []byte

	// MIMEType of the generated image
	MIMEType string
}

// DataURL returns the image as data:<mime>;base64,<payload>.
func (g GeneratedImage) DataURL() string {
	return EncodeDataURL(g.MIMEType, g.Data)
}

// GenerateResult holds the complete result of one generation call.
type GenerateResult struct {
	// Image is the first image-bearing part of the first candidate
	Image GeneratedImage

	// Mode is ModeEdit when at least one attachment was usable
	Mode Mode

	// Instruction is the exact text part sent to the model
	Instruction string

	// SkippedImages counts attachment strings that could not be parsed
	SkippedImages int

	// Text contains any text the model returned alongside the image
	Text string

	// UsageMetadata contains token/billing information
	UsageMetadata *UsageMetadata
}

// UsageMetadata contains usage information for billing and monitoring.
type UsageMetadata struct {
	PromptTokens     int
	CandidatesTokens int
	TotalTokens      int
}
