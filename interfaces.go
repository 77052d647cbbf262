package magicimage

import "context"

// ContentGenerator is the remote model boundary: one "generate content" call
// taking ordered parts and a requested output modality.
// Implement this interface to add support for new providers.
//
// The first model returned by Models() is considered the default model.
type ContentGenerator interface {
	// GenerateContent performs exactly one remote call.
	GenerateContent(ctx context.Context, req *ContentRequest) (*ContentResponse, error)

	// Models returns the model definitions supported by this provider.
	Models() []ModelInfo

	// Close releases any resources held by the provider.
	Close() error
}

// Modality is a requested response modality.
type Modality string

const (
	ModalityText  Modality = "TEXT"
	ModalityImage Modality = "IMAGE"
)

// Blob is inline binary data with its MIME type.
type Blob struct {
	MIMEType string
	Data     []byte
}

// Part is either text or inline data.
type Part struct {
	Text       string
	InlineData *Blob

	// Thought marks model reasoning parts in responses
	Thought bool
}

// TextPart returns a text part.
func TextPart(text string) Part {
	return Part{Text: text}
}

// ImagePart returns an inline data part for img.
func ImagePart(img InputImage) Part {
	return Part{InlineData: &Blob{MIMEType: img.MIMEType, Data: img.Data}}
}

// ContentRequest is a single request to the remote model.
type ContentRequest struct {
	Model          string
	Parts          []Part
	Modalities     []Modality
	AspectRatio    AspectRatio
	SafetySettings []SafetySetting
	Temperature    *float32
}

// Candidate is one response candidate.
type Candidate struct {
	Parts []Part
}

// ContentResponse is the provider independent model response.
type ContentResponse struct {
	Candidates    []Candidate
	UsageMetadata *UsageMetadata
}
