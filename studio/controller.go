package studio

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/mhpenta/magicimage"
)

// ImageAdapter produces one image data string per call.
// *magicimage.Generator satisfies it.
type ImageAdapter interface {
	Generate(ctx context.Context, prompt string, images []string) (string, error)
}

var _ ImageAdapter = (*magicimage.Generator)(nil)

// InvalidFormatMessage is shown when an attachment has an unsupported type.
var InvalidFormatMessage = magicimage.ErrInvalidFileFormat.Error()

// Controller owns State and mediates between user actions and the adapter.
// It is safe for concurrent use; at most one generation is in flight.
type Controller struct {
	adapter ImageAdapter
	logger  *slog.Logger
	now     func() time.Time
	prefix  string

	mu    sync.Mutex
	state State
}

// New creates a Controller in the Idle phase.
func New(adapter ImageAdapter, opts ...Option) *Controller {
	c := &Controller{
		adapter: adapter,
		logger:  slog.Default(),
		now:     time.Now,
		prefix:  magicimage.DefaultDownloadPrefix,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// SetPrompt replaces the prompt text unconditionally.
func (c *Controller) SetPrompt(text string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state.Prompt = text
}

// ClearPrompt empties the prompt text.
func (c *Controller) ClearPrompt() {
	c.SetPrompt("")
}

// Submit starts a generation. It reports false, without touching state or
// calling the adapter, when the prompt is blank or a call is in flight.
func (c *Controller) Submit(ctx context.Context) bool {
	c.mu.Lock()
	if c.state.Loading || strings.TrimSpace(c.state.Prompt) == "" {
		c.mu.Unlock()
		return false
	}

	c.state.Loading = true
	c.state.Result = ""
	c.state.Error = ""
	prompt := c.state.Prompt
	var images []string
	if c.state.Image != nil {
		images = []string{c.state.Image.Data}
	}
	c.mu.Unlock()

	start := c.now()
	result, err := c.generate(ctx, prompt, images)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.state.Loading = false
	if err != nil {
		c.state.Error = err.Error()
		c.logger.Warn("submit failed",
			"duration_ms", c.now().Sub(start).Milliseconds(),
			"error", err.Error(),
		)
		return true
	}
	c.state.Result = result
	c.logger.Info("submit completed",
		"duration_ms", c.now().Sub(start).Milliseconds(),
		"image_count", len(images),
	)
	return true
}

// generate calls the adapter, turning a panic into an error so Loading
// never stays set.
func (c *Controller) generate(ctx context.Context, prompt string, images []string) (result string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%s: %v", magicimage.UnknownErrorMessage, r)
		}
	}()
	if c.adapter == nil {
		return "", errors.New(magicimage.UnknownErrorMessage)
	}
	result, err = c.adapter.Generate(ctx, prompt, images)
	if err == nil && result == "" {
		err = magicimage.ErrNoImageProduced
	}
	return result, err
}

// AttachImage validates f's media type and stores it as the attachment.
// On any failure Error is set and the current attachment is kept.
func (c *Controller) AttachImage(f File) error {
	if err := magicimage.ValidateAttachmentType(f.MIMEType); err != nil {
		c.fail(InvalidFormatMessage)
		return err
	}
	if f.Content == nil {
		c.fail(magicimage.ErrEmptyImageData.Error())
		return magicimage.ErrEmptyImageData
	}

	data, err := io.ReadAll(io.LimitReader(f.Content, magicimage.MaxImageSize+1))
	if err != nil {
		err = fmt.Errorf("reading %s: %w", f.Name, err)
		c.fail(err.Error())
		return err
	}

	img := magicimage.InputImage{Data: data, MIMEType: strings.ToLower(strings.TrimSpace(f.MIMEType))}
	if err := magicimage.ValidateInputImage(img); err != nil {
		c.fail(err.Error())
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.state.Image = &Attachment{Data: img.DataURL(), Name: f.Name}
	c.state.Error = ""
	c.logger.Debug("image attached", "name", f.Name, "mime_type", img.MIMEType, "bytes", len(data))
	return nil
}

func (c *Controller) fail(msg string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state.Error = msg
}

// RemoveImage clears the attachment.
func (c *Controller) RemoveImage() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state.Image = nil
}

// Reset returns to the initial state. An in-flight generation keeps its
// Loading flag and still delivers its outcome.
func (c *Controller) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state = State{Loading: c.state.Loading}
}

// DownloadResult returns the current result under a timestamped name, or
// false when there is nothing to download.
func (c *Controller) DownloadResult() (*Download, bool) {
	c.mu.Lock()
	result := c.state.Result
	c.mu.Unlock()

	if result == "" {
		return nil, false
	}

	img, err := magicimage.ParseDataURL(result)
	if err != nil {
		c.logger.Error("stored result is not a data url", "error", err.Error())
		return nil, false
	}

	return &Download{
		Filename: magicimage.DownloadFilename(c.prefix, c.now()),
		MIMEType: img.MIMEType,
		Data:     img.Data,
	}, true
}

// HandleKey applies the prompt field keyboard contract. It reports whether
// the default newline insertion must be suppressed.
func (c *Controller) HandleKey(ctx context.Context, ev KeyEvent) bool {
	if ev.Key != "Enter" || ev.Shift {
		return false
	}
	c.Submit(ctx)
	return true
}

// View returns a copy of the state and the phase to render.
func (c *Controller) View() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()

	s := c.state
	if s.Image != nil {
		img := *s.Image
		s.Image = &img
	}
	return Snapshot{State: s, Phase: s.phase()}
}
