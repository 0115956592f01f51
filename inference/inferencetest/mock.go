// Package inferencetest provides an in-memory inference.Bridge for tests,
// the same role archivetest.MockStore plays for archive.Store.
package inferencetest

import (
	"context"
	"sync"

	"github.com/zoobzio/noetic"
	"github.com/zoobzio/noetic/inference"
)

// MockBridge is a deterministic inference.Bridge: Embed derives a vector
// from the text's bytes (stable across calls for the same text, distinct
// for distinct text) instead of calling out to a real model, and Generate
// returns a canned or callback-driven response.
type MockBridge struct {
	mu sync.Mutex

	// Dims is the vector length Embed produces. Defaults to 8.
	Dims int

	// GenerateFunc, if set, is called by Generate instead of the default
	// echo behavior.
	GenerateFunc func(ctx context.Context, model, prompt string, opts inference.GenerateOptions) (string, error)

	// FailNext, if > 0, makes the next N Embed/Generate calls return a
	// Transient error, decrementing on each failure — for exercising
	// caller retry/backoff behavior.
	FailNext int

	calls []string
}

// New creates a MockBridge with 8-dimensional embeddings.
func New() *MockBridge {
	return &MockBridge{Dims: 8}
}

func (b *MockBridge) Embed(_ context.Context, req inference.EmbedRequest) ([]float32, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.calls = append(b.calls, "embed:"+req.Text)

	if b.FailNext > 0 {
		b.FailNext--
		return nil, transientErr("embed")
	}

	dims := b.Dims
	if req.TruncateDim != nil {
		dims = *req.TruncateDim
	}
	vec := make([]float32, dims)
	for i := range vec {
		vec[i] = deterministicComponent(req.Text, i)
	}
	return vec, nil
}

func (b *MockBridge) Generate(ctx context.Context, model, prompt string, opts inference.GenerateOptions) (string, error) {
	b.mu.Lock()
	b.calls = append(b.calls, "generate:"+prompt)
	failing := b.FailNext > 0
	if failing {
		b.FailNext--
	}
	fn := b.GenerateFunc
	b.mu.Unlock()

	if failing {
		return "", transientErr("generate")
	}
	if fn != nil {
		return fn(ctx, model, prompt, opts)
	}
	return "revised: " + prompt, nil
}

// Calls returns every Embed/Generate invocation recorded so far, for test
// assertions.
func (b *MockBridge) Calls() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]string(nil), b.calls...)
}

func deterministicComponent(text string, i int) float32 {
	h := 2166136261
	for _, c := range text {
		h = (h ^ int(c)) * 16777619
	}
	return float32((h>>uint(i%24))&0xFF) / 255.0
}

func transientErr(op string) error {
	return noetic.Transient("inferencetest."+op, "simulated transient failure", nil)
}

var _ inference.Bridge = (*MockBridge)(nil)
