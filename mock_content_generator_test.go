package magicimage

import (
	"context"
	"sync"
)

// MockContentGenerator is a mock implementation of ContentGenerator that
// records every request it receives.
type MockContentGenerator struct {
	GenerateContentFunc func(ctx context.Context, req *ContentRequest) (*ContentResponse, error)
	ModelsFunc          func() []ModelInfo
	CloseFunc           func() error

	mu       sync.Mutex
	Requests []*ContentRequest
}

func (m *MockContentGenerator) GenerateContent(ctx context.Context, req *ContentRequest) (*ContentResponse, error) {
	m.mu.Lock()
	m.Requests = append(m.Requests, req)
	m.mu.Unlock()

	if m.GenerateContentFunc != nil {
		return m.GenerateContentFunc(ctx, req)
	}
	return imageResponse("image/png", []byte("png-bytes")), nil
}

func (m *MockContentGenerator) Models() []ModelInfo {
	if m.ModelsFunc != nil {
		return m.ModelsFunc()
	}
	return []ModelInfo{{
		Name:         "test-model",
		Provider:     "test-provider",
		APIModelName: "test-model-api",
	}}
}

func (m *MockContentGenerator) Close() error {
	if m.CloseFunc != nil {
		return m.CloseFunc()
	}
	return nil
}

func (m *MockContentGenerator) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Requests)
}

func (m *MockContentGenerator) LastRequest() *ContentRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.Requests) == 0 {
		return nil
	}
	return m.Requests[len(m.Requests)-1]
}

func imageResponse(mimeType string, data []byte) *ContentResponse {
	return &ContentResponse{
		Candidates: []Candidate{{
			Parts: []Part{{InlineData: &Blob{MIMEType: mimeType, Data: data}}},
		}},
	}
}
