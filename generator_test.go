package magicimage

import (
	"context"
	"encoding/base64"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/mhpenta/magicimage/ratelimiter"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestGenerator(t *testing.T, mock *MockContentGenerator, opts ...Option) *Generator {
	t.Helper()
	opts = append([]Option{WithLogger(discardLogger())}, opts...)
	gen, err := New(mock, opts...)
	require.NoError(t, err)
	return gen
}

func jpegDataURL(payload string) string {
	return "data:image/jpeg;base64," + base64.StdEncoding.EncodeToString([]byte(payload))
}

func TestGenerator_Generate_TextOnlyUsesSquareTemplate(t *testing.T) {
	payload := []byte("\x89PNG-cat")
	mock := &MockContentGenerator{
		GenerateContentFunc: func(ctx context.Context, req *ContentRequest) (*ContentResponse, error) {
			return imageResponse("image/png", payload), nil
		},
	}
	gen := newTestGenerator(t, mock)

	got, err := gen.Generate(context.Background(), "a cat astronaut", nil)
	require.NoError(t, err)

	assert.Equal(t, "data:image/png;base64,"+base64.StdEncoding.EncodeToString(payload), got)

	req := mock.LastRequest()
	require.NotNil(t, req)
	require.Len(t, req.Parts, 1)
	assert.Nil(t, req.Parts[0].InlineData)
	assert.Equal(t, SquareImageInstruction("a cat astronaut"), req.Parts[0].Text)
	assert.Contains(t, req.Parts[0].Text, `"a cat astronaut"`)
	assert.Contains(t, req.Parts[0].Text, "1:1")
	assert.Equal(t, []Modality{ModalityImage}, req.Modalities)
	assert.Equal(t, "test-model-api", req.Model)
}

func TestGenerator_Generate_EditPassesPromptVerbatim(t *testing.T) {
	mock := &MockContentGenerator{}
	gen := newTestGenerator(t, mock)

	_, err := gen.Generate(context.Background(), "make the sky purple", []string{jpegDataURL("jpeg-bytes")})
	require.NoError(t, err)

	req := mock.LastRequest()
	require.Len(t, req.Parts, 2)

	require.NotNil(t, req.Parts[0].InlineData, "image part must come first")
	assert.Equal(t, "image/jpeg", req.Parts[0].InlineData.MIMEType)
	assert.Equal(t, []byte("jpeg-bytes"), req.Parts[0].InlineData.Data)

	assert.Nil(t, req.Parts[1].InlineData)
	assert.Equal(t, "make the sky purple", req.Parts[1].Text)
}

func TestGenerator_GenerateImage_SkipsMalformedImages(t *testing.T) {
	tests := []struct {
		name        string
		images      []string
		wantImages  int
		wantSkipped int
		wantMode    Mode
	}{
		{
			name:        "mixed batch keeps valid images in order",
			images:      []string{jpegDataURL("one"), "not a data url", "data:image/png;base64,aGVsbG8=", "data:text/plain;base64,aGk="},
			wantImages:  2,
			wantSkipped: 2,
			wantMode:    ModeEdit,
		},
		{
			name:        "all malformed falls back to generation",
			images:      []string{"garbage", "data:image/png;base64,%%%"},
			wantImages:  0,
			wantSkipped: 2,
			wantMode:    ModeGenerate,
		},
		{
			name:        "no images",
			images:      nil,
			wantImages:  0,
			wantSkipped: 0,
			wantMode:    ModeGenerate,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock := &MockContentGenerator{}
			gen := newTestGenerator(t, mock)

			result, err := gen.GenerateImage(context.Background(), "a lighthouse", tt.images, nil)
			require.NoError(t, err)

			assert.Equal(t, tt.wantMode, result.Mode)
			assert.Equal(t, tt.wantSkipped, result.SkippedImages)

			req := mock.LastRequest()
			require.Len(t, req.Parts, tt.wantImages+1)
			for i := 0; i < tt.wantImages; i++ {
				assert.NotNil(t, req.Parts[i].InlineData, "part %d should be an image", i)
			}
			last := req.Parts[len(req.Parts)-1]
			assert.Nil(t, last.InlineData)
			assert.Equal(t, result.Instruction, last.Text)

			if tt.wantMode == ModeEdit {
				assert.Equal(t, "a lighthouse", last.Text)
				assert.Equal(t, []byte("one"), req.Parts[0].InlineData.Data)
				assert.Equal(t, "image/png", req.Parts[1].InlineData.MIMEType)
			} else {
				assert.Equal(t, SquareImageInstruction("a lighthouse"), last.Text)
			}
		})
	}
}

func TestGenerator_Generate_ResponseParsing(t *testing.T) {
	tests := []struct {
		name     string
		resp     *ContentResponse
		want     string
		wantText string
		wantErr  error
	}{
		{
			name: "first image part wins",
			resp: &ContentResponse{Candidates: []Candidate{{Parts: []Part{
				{Text: "here you go"},
				{InlineData: &Blob{MIMEType: "image/png", Data: []byte("first")}},
				{InlineData: &Blob{MIMEType: "image/jpeg", Data: []byte("second")}},
			}}}},
			want:     EncodeDataURL("image/png", []byte("first")),
			wantText: "here you go",
		},
		{
			name: "only the first candidate is scanned",
			resp: &ContentResponse{Candidates: []Candidate{
				{Parts: []Part{{Text: "sorry"}}},
				{Parts: []Part{{InlineData: &Blob{MIMEType: "image/png", Data: []byte("other")}}}},
			}},
			wantErr: ErrNoImageProduced,
		},
		{
			name:    "text only",
			resp:    &ContentResponse{Candidates: []Candidate{{Parts: []Part{{Text: "just text"}}}}},
			wantErr: ErrNoImageProduced,
		},
		{
			name:    "no candidates",
			resp:    &ContentResponse{},
			wantErr: ErrNoImageProduced,
		},
		{
			name:    "nil response",
			resp:    nil,
			wantErr: ErrNoImageProduced,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock := &MockContentGenerator{
				GenerateContentFunc: func(ctx context.Context, req *ContentRequest) (*ContentResponse, error) {
					return tt.resp, nil
				},
			}
			gen := newTestGenerator(t, mock)

			result, err := gen.GenerateImage(context.Background(), "a fox", nil, nil)
			if tt.wantErr != nil {
				require.Error(t, err)
				assert.ErrorIs(t, err, tt.wantErr)

				var genErr *GenerationError
				require.ErrorAs(t, err, &genErr)
				assert.Equal(t, KindNoImage, genErr.Kind)
				assert.True(t, genErr.Retryable())
				assert.Equal(t, "failed to generate image: no image was produced, try a different prompt", err.Error())
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, result.Image.DataURL())
			assert.Equal(t, tt.wantText, result.Text)
		})
	}
}

func TestGenerator_Generate_TransportError(t *testing.T) {
	cause := errors.New("connection reset by peer")
	mock := &MockContentGenerator{
		GenerateContentFunc: func(ctx context.Context, req *ContentRequest) (*ContentResponse, error) {
			return nil, cause
		},
	}
	gen := newTestGenerator(t, mock)

	_, err := gen.Generate(context.Background(), "a fox", nil)
	require.Error(t, err)

	assert.Equal(t, 1, mock.Calls(), "exactly one attempt")
	assert.ErrorIs(t, err, cause)

	var transportErr *TransportError
	require.ErrorAs(t, err, &transportErr)
	assert.Equal(t, "test-model-api", transportErr.Model)

	var genErr *GenerationError
	require.ErrorAs(t, err, &genErr)
	assert.Equal(t, KindTransport, genErr.Kind)
	assert.Equal(t, "failed to generate image: connection reset by peer", err.Error())
	assert.True(t, IsRetryable(err))
}

func TestGenerator_Generate_UnknownErrorShape(t *testing.T) {
	mock := &MockContentGenerator{
		GenerateContentFunc: func(ctx context.Context, req *ContentRequest) (*ContentResponse, error) {
			return nil, errors.New("")
		},
	}
	gen := newTestGenerator(t, mock)

	_, err := gen.Generate(context.Background(), "a fox", nil)
	require.Error(t, err)
	assert.Equal(t, UnknownErrorMessage, err.Error())
}

func TestGenerator_Generate_EmptyInstruction(t *testing.T) {
	t.Run("blank edit prompt", func(t *testing.T) {
		mock := &MockContentGenerator{}
		gen := newTestGenerator(t, mock)

		_, err := gen.Generate(context.Background(), "  \n\t", []string{jpegDataURL("x")})
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrEmptyPrompt)
		assert.False(t, IsRetryable(err))
		assert.Zero(t, mock.Calls())
	})

	t.Run("misconfigured template", func(t *testing.T) {
		mock := &MockContentGenerator{}
		gen := newTestGenerator(t, mock, WithInstructionBuilder(func(string) string { return " " }))

		_, err := gen.Generate(context.Background(), "a fox", nil)
		assert.ErrorIs(t, err, ErrEmptyPrompt)
		assert.Zero(t, mock.Calls())
	})
}

func TestGenerator_Generate_RateLimit(t *testing.T) {
	mock := &MockContentGenerator{
		ModelsFunc: func() []ModelInfo {
			return []ModelInfo{{
				Name:         "test-model",
				Provider:     "test-provider",
				APIModelName: "test-model-api",
				RateLimits: RateLimits{
					TokensPerMinute:   100, // template alone exceeds this with the buffer
					RequestsPerMinute: 10,
				},
			}}
		},
	}
	gen := newTestGenerator(t, mock)
	ctx := context.Background()

	_, err := gen.Generate(ctx, "test prompt", nil)
	require.Error(t, err)
	assert.True(t, IsRateLimitError(err))
	assert.Zero(t, mock.Calls(), "rejected locally before the remote call")

	var genErr *GenerationError
	require.ErrorAs(t, err, &genErr)
	assert.Equal(t, KindRateLimited, genErr.Kind)

	gen.SetRateLimiter("test-model-api", ratelimiter.New(10_000, 10))
	_, err = gen.Generate(ctx, "test prompt", nil)
	require.NoError(t, err)
	assert.Equal(t, 1, mock.Calls())

	gen.SetRateLimiter("test-model-api", nil)
	_, err = gen.Generate(ctx, strings.Repeat("a", 5000), nil)
	require.NoError(t, err)
}

func TestGenerator_Generate_ProviderRateLimit(t *testing.T) {
	mock := &MockContentGenerator{
		GenerateContentFunc: func(ctx context.Context, req *ContentRequest) (*ContentResponse, error) {
			return nil, &RateLimitError{LimitType: "requests", Model: req.Model}
		},
	}
	gen := newTestGenerator(t, mock)

	_, err := gen.Generate(context.Background(), "a fox", nil)
	var genErr *GenerationError
	require.ErrorAs(t, err, &genErr)
	assert.Equal(t, KindRateLimited, genErr.Kind)
	assert.True(t, IsRateLimitError(err))
}

func TestGenerator_ModelResolution(t *testing.T) {
	mock := &MockContentGenerator{
		ModelsFunc: func() []ModelInfo {
			return []ModelInfo{
				{Name: "fast", APIModelName: "fast-api"},
				{Name: "pro", APIModelName: "pro-api"},
			}
		},
	}

	gen := newTestGenerator(t, mock)
	assert.Equal(t, Model("fast-api"), gen.DefaultModel())

	_, err := gen.GenerateImage(context.Background(), "a fox", nil, (&GenerateConfig{}).WithModel("pro"))
	require.NoError(t, err)
	assert.Equal(t, "pro-api", mock.LastRequest().Model)

	_, err = gen.GenerateImage(context.Background(), "a fox", nil, &GenerateConfig{Model: "custom-api", AspectRatio: AspectRatio1x1})
	require.NoError(t, err)
	assert.Equal(t, "custom-api", mock.LastRequest().Model)
	assert.Equal(t, AspectRatio1x1, mock.LastRequest().AspectRatio)

	gen = newTestGenerator(t, mock, WithDefaultModel("pro"))
	assert.Equal(t, Model("pro-api"), gen.DefaultModel())
}

func TestNew_RequiresProvider(t *testing.T) {
	_, err := New(nil)
	assert.ErrorIs(t, err, ErrProviderRequired)
}

func TestGenerator_InstructionProperties(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		prompt := rapid.StringMatching(`[a-zA-Z0-9 ,.!?]{1,80}`).Draw(rt, "prompt")
		withImage := rapid.Bool().Draw(rt, "withImage")

		mock := &MockContentGenerator{}
		gen, err := New(mock, WithLogger(discardLogger()))
		if err != nil {
			rt.Fatalf("new: %v", err)
		}

		var images []string
		if withImage {
			images = []string{jpegDataURL("img")}
		}

		_, err = gen.Generate(context.Background(), prompt, images)
		if withImage && strings.TrimSpace(prompt) == "" {
			if !errors.Is(err, ErrEmptyPrompt) {
				rt.Fatalf("blank edit prompt should fail with ErrEmptyPrompt, got %v", err)
			}
			return
		}
		if err != nil {
			rt.Fatalf("unexpected error: %v", err)
		}

		req := mock.LastRequest()
		text := req.Parts[len(req.Parts)-1].Text
		if withImage {
			if text != prompt {
				rt.Fatalf("edit text %q != prompt %q", text, prompt)
			}
			if req.Parts[0].InlineData == nil {
				rt.Fatalf("image must precede text")
			}
			return
		}
		if text != SquareImageInstruction(prompt) || !strings.Contains(text, prompt) {
			rt.Fatalf("generation text %q does not wrap %q", text, prompt)
		}
	})
}

type recordingObserver struct {
	events []GenerationEvent
}

func (r *recordingObserver) ObserveGeneration(ev GenerationEvent) {
	r.events = append(r.events, ev)
}

func TestGenerator_Observer(t *testing.T) {
	obs := &recordingObserver{}
	mock := &MockContentGenerator{}
	gen := newTestGenerator(t, mock, WithObserver(obs))

	_, err := gen.Generate(context.Background(), "a fox", []string{jpegDataURL("x"), "bad"})
	require.NoError(t, err)

	_, err = gen.Generate(context.Background(), " ", []string{jpegDataURL("x")})
	require.Error(t, err)

	require.Len(t, obs.events, 2)
	assert.Equal(t, "test-model-api", obs.events[0].Model)
	assert.Equal(t, ModeEdit, obs.events[0].Mode)
	assert.Equal(t, 1, obs.events[0].Skipped)
	assert.NoError(t, obs.events[0].Err)

	assert.ErrorIs(t, obs.events[1].Err, ErrEmptyPrompt)
	assert.Equal(t, 1, mock.Calls(), "rejected call is observed but never sent")
}

func TestGenerator_Capabilities(t *testing.T) {
	mock := &MockContentGenerator{
		ModelsFunc: func() []ModelInfo {
			return []ModelInfo{{
				Name:         "small",
				APIModelName: "small-api",
				Capabilities: ModelCapabilities{MaxInputImages: 1, OutputMIMEType: "image/webp"},
			}}
		},
	}
	gen := newTestGenerator(t, mock)

	assert.Equal(t, 1, gen.capabilities("small-api").MaxInputImages)
	assert.Zero(t, gen.capabilities("unknown"))

	// Exceeding the recommendation only warns.
	_, err := gen.Generate(context.Background(), "merge", []string{jpegDataURL("a"), jpegDataURL("b")})
	require.NoError(t, err)
	require.NotNil(t, mock.LastRequest())
	assert.Len(t, mock.LastRequest().Parts, 3)
}

func TestGenerator_MissingOutputMIMEType(t *testing.T) {
	mock := &MockContentGenerator{
		ModelsFunc: func() []ModelInfo {
			return []ModelInfo{{
				Name:         "small",
				APIModelName: "small-api",
				Capabilities: ModelCapabilities{OutputMIMEType: "image/webp"},
			}}
		},
		GenerateContentFunc: func(ctx context.Context, req *ContentRequest) (*ContentResponse, error) {
			return imageResponse("", []byte("raw")), nil
		},
	}
	gen := newTestGenerator(t, mock)

	got, err := gen.Generate(context.Background(), "a fox", nil)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(got, "data:image/webp;base64,"))
}
