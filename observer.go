package magicimage

import "time"

// GenerationEvent describes one finished Generate call.
type GenerationEvent struct {
	Model    string
	Mode     Mode
	Duration time.Duration
	Skipped  int
	Usage    *UsageMetadata

	// Err is nil on success, otherwise the *GenerationError returned
	Err error
}

// GenerationObserver receives an event after every call, including calls
// rejected before reaching the provider.
type GenerationObserver interface {
	ObserveGeneration(GenerationEvent)
}
