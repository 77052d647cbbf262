package magicimage

import (
	"encoding/base64"
	"errors"
	"fmt"
	"regexp"
)

// ErrMalformedDataURL is returned for strings that are not base64 image data URLs.
var ErrMalformedDataURL = errors.New("malformed image data URL")

var dataURLPattern = regexp.MustCompile(`^data:(image/.+);base64,(.+)$`)

// InputImage represents a decoded image attached to a request.
type InputImage struct {
	// Data is the raw image bytes
	Data []byte

	// MIMEType of the image (e.g., "image/jpeg", "image/png")
	MIMEType string
}

// DataURL returns the image as a self-describing data string.
func (img InputImage) DataURL() string {
	return EncodeDataURL(img.MIMEType, img.Data)
}

// EncodeDataURL builds data:<mimeType>;base64,<payload>.
func EncodeDataURL(mimeType string, data []byte) string {
	return "data:" + mimeType + ";base64," + base64.StdEncoding.EncodeToString(data)
}

// ParseDataURL decodes a data:<image mime>;base64,<payload> string.
func ParseDataURL(s string) (InputImage, error) {
	m := dataURLPattern.FindStringSubmatch(s)
	if m == nil {
		return InputImage{}, ErrMalformedDataURL
	}
	data, err := base64.StdEncoding.DecodeString(m[2])
	if err != nil {
		return InputImage{}, fmt.Errorf("%w: invalid base64: %v", ErrMalformedDataURL, err)
	}
	return InputImage{Data: data, MIMEType: m[1]}, nil
}

// ParsedDataURL is the outcome of parsing one attachment string: either
// Image is set, or the raw string was skipped for Reason.
type ParsedDataURL struct {
	Image  *InputImage
	Raw    string
	Reason error
}

// Skipped reports whether the string could not be used.
func (p ParsedDataURL) Skipped() bool {
	return p.Image == nil
}

// ParseDataURLs parses each string independently, preserving order.
func ParseDataURLs(raw []string) []ParsedDataURL {
	out := make([]ParsedDataURL, 0, len(raw))
	for _, s := range raw {
		img, err := ParseDataURL(s)
		if err != nil {
			out = append(out, ParsedDataURL{Raw: s, Reason: err})
			continue
		}
		out = append(out, ParsedDataURL{Image: &img, Raw: s})
	}
	return out
}

// truncate shortens s for log output.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
