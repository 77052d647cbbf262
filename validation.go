package magicimage

import (
	"errors"
	"fmt"
	"strings"
)

// Validation errors
var (
	ErrEmptyPrompt       = errors.New("text prompt cannot be empty")
	ErrEmptyImageData    = errors.New("image data cannot be empty")
	ErrInvalidFileFormat = errors.New("invalid file format, please use PNG, JPEG or WEBP")
	ErrImageTooLarge     = errors.New("image data exceeds maximum size")
)

// MaxImageSize is the maximum allowed attachment size in bytes (20MB).
const MaxImageSize = 20 * 1024 * 1024

// AcceptedMIMETypes are the attachment types the UI accepts.
var AcceptedMIMETypes = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/webp": true,
}

// ValidatePrompt rejects prompts that are empty after trimming.
func ValidatePrompt(prompt string) error {
	if strings.TrimSpace(prompt) == "" {
		return ErrEmptyPrompt
	}
	return nil
}

// ValidateAttachmentType checks a declared media type against AcceptedMIMETypes.
func ValidateAttachmentType(mimeType string) error {
	if !AcceptedMIMETypes[strings.ToLower(strings.TrimSpace(mimeType))] {
		return ErrInvalidFileFormat
	}
	return nil
}

// ValidateInputImage validates a decoded attachment.
func ValidateInputImage(img InputImage) error {
	if len(img.Data) == 0 {
		return ErrEmptyImageData
	}
	if len(img.Data) > MaxImageSize {
		return fmt.Errorf("%w: %d bytes (max %d)", ErrImageTooLarge, len(img.Data), MaxImageSize)
	}
	if err := ValidateAttachmentType(img.MIMEType); err != nil {
		return fmt.Errorf("%w: %s", err, img.MIMEType)
	}
	return nil
}
