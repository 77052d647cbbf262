package magicimage

import "fmt"

// SquareImageTemplate wraps a user phrase when no image is attached.
const SquareImageTemplate = `Generate a creative and engaging image for Instagram, high quality and visually striking, in square format (1:1). The image must be based on the following phrase: "%s"`

// InstructionBuilder turns a user phrase into the text sent for text-only generation.
type InstructionBuilder func(prompt string) string

// SquareImageInstruction applies SquareImageTemplate.
func SquareImageInstruction(prompt string) string {
	return fmt.Sprintf(SquareImageTemplate, prompt)
}

// buildInstruction passes the prompt through verbatim when editing.
func buildInstruction(prompt string, mode Mode, wrap InstructionBuilder) string {
	if mode == ModeEdit {
		return prompt
	}
	if wrap == nil {
		wrap = SquareImageInstruction
	}
	return wrap(prompt)
}
