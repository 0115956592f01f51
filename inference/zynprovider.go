package inference

import (
	"context"
	"strings"

	"github.com/zoobzio/zyn"
)

// BridgeProvider adapts a Bridge's Generate method to zyn.Provider's
// Call/Name shape, so a caller holding only a Bridge can still build a
// typed zyn synapse (zyn.Extract, zyn.Binary, zyn.Transform, ...) over it
// instead of hand-parsing raw completion text. Model and MaxTokens are
// fixed per adapter rather than accepted by Call, the same way a concrete
// Provider implementation fixes its model at construction time in cogito
// rather than per call.
type BridgeProvider struct {
	Bridge    Bridge
	Model     string
	MaxTokens int
}

// Name reports the model this provider calls through to.
func (p BridgeProvider) Name() string { return p.Model }

// Call concatenates messages into a single prompt and delegates to
// Bridge.Generate, wrapping the result the way zyn.Provider expects.
func (p BridgeProvider) Call(ctx context.Context, messages []zyn.Message, temperature float32) (*zyn.ProviderResponse, error) {
	var b strings.Builder
	for i, m := range messages {
		if i > 0 {
			b.WriteString("\n\n")
		}
		b.WriteString(m.Content)
	}
	text, err := p.Bridge.Generate(ctx, p.Model, b.String(), GenerateOptions{
		Temperature: float64(temperature),
		MaxTokens:   p.MaxTokens,
	})
	if err != nil {
		return nil, err
	}
	return &zyn.ProviderResponse{Content: text}, nil
}

var _ zyn.Provider = BridgeProvider{}
