// Package studio holds the interaction state of the image creator page and
// the transitions between Idle, Loading, Success and Failure.
package studio

import "io"

// Phase is the render-relevant state.
type Phase string

const (
	PhaseIdle    Phase = "idle"
	PhaseLoading Phase = "loading"
	PhaseSuccess Phase = "success"
	PhaseFailure Phase = "failure"
)

// Attachment is the single reference image. It is replaced, never mutated.
type Attachment struct {
	Data string `json:"data"` // data:<mime>;base64,<payload>
	Name string `json:"name"`
}

// State is everything the page renders.
type State struct {
	Prompt  string      `json:"prompt"`
	Image   *Attachment `json:"image,omitempty"`
	Loading bool        `json:"loading"`
	Result  string      `json:"result,omitempty"`
	Error   string      `json:"error,omitempty"`
}

// Snapshot is a copy of State plus the phase to render.
type Snapshot struct {
	State
	Phase Phase `json:"phase"`
}

// phase resolves display priority: loading > error > result > idle.
func (s State) phase() Phase {
	switch {
	case s.Loading:
		return PhaseLoading
	case s.Error != "":
		return PhaseFailure
	case s.Result != "":
		return PhaseSuccess
	default:
		return PhaseIdle
	}
}

// File is a selected file with its declared media type.
type File struct {
	Name     string
	MIMEType string
	Content  io.Reader
}

// Download is a result ready to be saved by the client.
type Download struct {
	Filename string
	MIMEType string
	Data     []byte
}

// KeyEvent is a keystroke in the prompt field.
type KeyEvent struct {
	Key   string
	Shift bool
}
