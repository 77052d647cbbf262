package magicimage

import (
	"math"
	"unicode/utf8"
)

// TokenEstimator estimates request size for local rate limiting.
type TokenEstimator interface {
	EstimateTokens(parts []Part) int
}

// PromptTokenEstimator charges text by rune count and every attachment a
// flat image cost. Estimates should not fall below the remote count.
type PromptTokenEstimator struct {
	RunesPerToken float64
	SafetyMargin  float64
	ImageTokens   int
}

// NewTokenEstimator returns the estimator the Generator uses by default.
func NewTokenEstimator() *PromptTokenEstimator {
	return &PromptTokenEstimator{
		RunesPerToken: 4,
		SafetyMargin:  1.2,
		ImageTokens:   258,
	}
}

func (e *PromptTokenEstimator) EstimateTokens(parts []Part) int {
	total := 0
	for _, p := range parts {
		switch {
		case p.InlineData != nil:
			total += e.ImageTokens
		case p.Text != "":
			runes := float64(utf8.RuneCountInString(p.Text))
			total += int(math.Ceil(runes/e.RunesPerToken*e.SafetyMargin)) + 3
		}
	}
	return total
}
