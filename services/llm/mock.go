package llmsvc

import (
	"context"
	"sync"

	"github.com/darpanintel/darpan/core"
)

// ServiceMock is a core.LLMService whose answers are provided by the test.
type ServiceMock struct {
	CompleteFunc   func(ctx context.Context, req core.ChatRequest) (string, error)
	TranscribeFunc func(ctx context.Context, image []byte, mimeType string) (string, error)

	mu       sync.Mutex
	requests []core.ChatRequest
}

var _ core.LLMService = (*ServiceMock)(nil)

func NewServiceMock(complete func(ctx context.Context, req core.ChatRequest) (string, error)) *ServiceMock {
	return &ServiceMock{CompleteFunc: complete}
}

// NewStaticServiceMock answers every prompt with the same response.
func NewStaticServiceMock(response string, err error) *ServiceMock {
	return NewServiceMock(func(context.Context, core.ChatRequest) (string, error) {
		return response, err
	})
}

func (m *ServiceMock) Complete(ctx context.Context, req core.ChatRequest) (string, error) {
	m.mu.Lock()
	m.requests = append(m.requests, req)
	m.mu.Unlock()

	if m.CompleteFunc == nil {
		return "", core.ErrLLMDisabled
	}
	return m.CompleteFunc(ctx, req)
}

func (m *ServiceMock) Transcribe(ctx context.Context, image []byte, mimeType string) (string, error) {
	if m.TranscribeFunc == nil {
		return "", core.ErrLLMDisabled
	}
	return m.TranscribeFunc(ctx, image, mimeType)
}

// Requests returns the chat requests received so far.
func (m *ServiceMock) Requests() []core.ChatRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	reqs := make([]core.ChatRequest, len(m.requests))
	copy(reqs, m.requests)
	return reqs
}
