// Package inference is the System's inference bridge: a thin,
// timeout-bounded, retrying client to an external embedding/generation
// service. It generalizes cogito's Embedder interface (embed-only) to
// also cover text generation.
package inference

import (
	"context"
	"fmt"
	"sync"
)

// EmbedRequest is the input to Bridge.Embed.
type EmbedRequest struct {
	Model       string
	Text        string
	TruncateDim *int // Matryoshka-style truncation; Unsupported if model disallows it
}

// GenerateOptions configures Bridge.Generate.
type GenerateOptions struct {
	Temperature float64
	MaxTokens   int
}

// Bridge is the capability interface every component needing inference
// (jobs, search) depends on — this package's equivalent of cogito's
// Embedder, broadened to also cover generation.
type Bridge interface {
	// Embed returns an L2-normalized vector for text, dimensionality equal
	// to the model's native dimension or req.TruncateDim if set. Fails
	// with Unsupported if the model does not permit truncation.
	Embed(ctx context.Context, req EmbedRequest) ([]float32, error)

	// Generate performs a blocking text-generation call.
	Generate(ctx context.Context, model, prompt string, opts GenerateOptions) (string, error)
}

// ErrNoBridge is returned by ResolveBridge when no bridge is configured
// through any tier of the resolution hierarchy.
var ErrNoBridge = fmt.Errorf("no inference bridge configured")

var (
	globalBridge   Bridge
	globalBridgeMu sync.RWMutex
)

// SetBridge installs the process-wide default Bridge.
func SetBridge(b Bridge) {
	globalBridgeMu.Lock()
	defer globalBridgeMu.Unlock()
	globalBridge = b
}

// GetBridge returns the process-wide default Bridge, or nil.
func GetBridge() Bridge {
	globalBridgeMu.RLock()
	defer globalBridgeMu.RUnlock()
	return globalBridge
}

type bridgeKey struct{}

// WithBridge attaches b to ctx, the middle tier of the resolution
// hierarchy (explicit > context > global).
func WithBridge(ctx context.Context, b Bridge) context.Context {
	return context.WithValue(ctx, bridgeKey{}, b)
}

// BridgeFromContext retrieves a Bridge attached via WithBridge.
func BridgeFromContext(ctx context.Context) (Bridge, bool) {
	b, ok := ctx.Value(bridgeKey{}).(Bridge)
	return b, ok
}

// ResolveBridge finds a Bridge using the same three-tier hierarchy
// cogito's ResolveEmbedder uses: explicit argument, then context, then
// global default.
func ResolveBridge(ctx context.Context, explicit Bridge) (Bridge, error) {
	if explicit != nil {
		return explicit, nil
	}
	if b, ok := BridgeFromContext(ctx); ok {
		return b, nil
	}
	if b := GetBridge(); b != nil {
		return b, nil
	}
	return nil, ErrNoBridge
}
