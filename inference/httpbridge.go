package inference

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/zoobzio/noetic"
	"github.com/zoobzio/zyn"
)

// HTTPBridge implements Bridge against an OpenAI-compatible HTTP API,
// generalizing cogito's OpenAIEmbedder (embed-only) to also cover
// /chat/completions-style generation.
type HTTPBridge struct {
	apiKey  string
	baseURL string
	client  *http.Client

	embedTimeout time.Duration
	llmTimeout   time.Duration
	maxRetries   uint64
}

// HTTPBridgeOption configures an HTTPBridge.
type HTTPBridgeOption func(*HTTPBridge)

// WithBaseURL sets a custom base URL (for proxies or compatible APIs).
func WithBaseURL(url string) HTTPBridgeOption {
	return func(b *HTTPBridge) { b.baseURL = url }
}

// WithHTTPClient sets a custom HTTP client, letting callers tune
// connection pooling (http.Transport.MaxIdleConnsPerHost) themselves.
func WithHTTPClient(client *http.Client) HTTPBridgeOption {
	return func(b *HTTPBridge) { b.client = client }
}

// WithEmbedTimeout overrides the default 30s embed call timeout.
func WithEmbedTimeout(d time.Duration) HTTPBridgeOption {
	return func(b *HTTPBridge) { b.embedTimeout = d }
}

// WithGenerateTimeout overrides the default 120s generate call timeout.
func WithGenerateTimeout(d time.Duration) HTTPBridgeOption {
	return func(b *HTTPBridge) { b.llmTimeout = d }
}

// WithMaxRetries overrides the default 2-retry degradation policy.
func WithMaxRetries(n uint64) HTTPBridgeOption {
	return func(b *HTTPBridge) { b.maxRetries = n }
}

// defaultTransport bounds per-host idle connections: the API layer and
// workers already share a bounded storage connection pool, and the
// inference bridge gets an analogous bounded pool for its own outbound
// calls.
func defaultTransport() *http.Transport {
	t := http.DefaultTransport.(*http.Transport).Clone()
	t.MaxIdleConnsPerHost = 16
	return t
}

// NewHTTPBridge constructs an HTTPBridge against apiKey.
func NewHTTPBridge(apiKey string, opts ...HTTPBridgeOption) *HTTPBridge {
	b := &HTTPBridge{
		apiKey:       apiKey,
		baseURL:      "https://api.openai.com/v1",
		client:       &http.Client{Transport: defaultTransport()},
		embedTimeout: 30 * time.Second,
		llmTimeout:   120 * time.Second,
		maxRetries:   2,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

type embeddingRequest struct {
	Input string `json:"input"`
	Model string `json:"model"`
}

type embeddingResponse struct {
	Data []struct {
		Embedding []float32 `json:"embedding"`
		Index     int       `json:"index"`
	} `json:"data"`
	Error *apiError `json:"error,omitempty"`
}

type generateRequest struct {
	Model       string    `json:"model"`
	Messages    []chatMsg `json:"messages"`
	Temperature float64   `json:"temperature,omitempty"`
	MaxTokens   int       `json:"max_tokens,omitempty"`
}

type chatMsg struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type generateResponse struct {
	Choices []struct {
		Message chatMsg `json:"message"`
	} `json:"choices"`
	Error *apiError `json:"error,omitempty"`
}

type apiError struct {
	Message string `json:"message"`
	Type    string `json:"type"`
}

func (b *HTTPBridge) Embed(ctx context.Context, req EmbedRequest) ([]float32, error) {
	ctx, cancel := context.WithTimeout(ctx, b.embedTimeout)
	defer cancel()

	body, err := json.Marshal(embeddingRequest{Input: req.Text, Model: req.Model})
	if err != nil {
		return nil, noetic.Internal(errOp("embed"), "failed to marshal request", err)
	}

	var out embeddingResponse
	if err := b.doWithRetry(ctx, "/embeddings", body, &out); err != nil {
		return nil, err
	}
	if len(out.Data) == 0 {
		return nil, noetic.Internal(errOp("embed"), "no embedding returned", nil)
	}

	vec := out.Data[0].Embedding
	if req.TruncateDim != nil {
		if *req.TruncateDim > len(vec) {
			return nil, noetic.Unsupported(errOp("embed"), fmt.Sprintf("model %s does not support truncation to %d dims", req.Model, *req.TruncateDim))
		}
		vec = vec[:*req.TruncateDim]
	}
	return l2Normalize(vec), nil
}

// Generate runs a zyn.Transform synapse over httpProvider, the same
// synapse-mediated shape cogito's Recall/Reflect/Compress use for
// generation rather than posting to /chat/completions directly — here
// httpProvider is the concrete Provider implementation backing the
// synapse, since unlike Embedder cogito never shipped one for Provider
// itself.
func (b *HTTPBridge) Generate(ctx context.Context, model, prompt string, opts GenerateOptions) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, b.llmTimeout)
	defer cancel()

	provider := &httpProvider{bridge: b, model: model, maxTokens: opts.MaxTokens}
	synapse, err := zyn.Transform("Respond to the instructions and content below.", provider)
	if err != nil {
		return "", noetic.Internal(errOp("generate"), "failed to create transform synapse", err)
	}

	result, err := synapse.FireWithInput(ctx, zyn.NewSession(), zyn.TransformInput{
		Text:        prompt,
		Temperature: float32(opts.Temperature),
	})
	if err != nil {
		return "", err
	}
	return result, nil
}

// httpProvider adapts one Generate call's model and token budget to
// zyn.Provider's fixed Call(ctx, messages, temperature) shape, posting
// directly to /chat/completions through the bridge's shared retry policy.
type httpProvider struct {
	bridge    *HTTPBridge
	model     string
	maxTokens int
}

// Name implements zyn.Provider.
func (p *httpProvider) Name() string { return p.model }

// Call implements zyn.Provider.
func (p *httpProvider) Call(ctx context.Context, messages []zyn.Message, temperature float32) (*zyn.ProviderResponse, error) {
	chat := make([]chatMsg, len(messages))
	for i, m := range messages {
		chat[i] = chatMsg{Role: "user", Content: m.Content}
	}
	body, err := json.Marshal(generateRequest{
		Model:       p.model,
		Messages:    chat,
		Temperature: float64(temperature),
		MaxTokens:   p.maxTokens,
	})
	if err != nil {
		return nil, noetic.Internal(errOp("generate"), "failed to marshal request", err)
	}

	var out generateResponse
	if err := p.bridge.doWithRetry(ctx, "/chat/completions", body, &out); err != nil {
		return nil, err
	}
	if len(out.Choices) == 0 {
		return nil, noetic.Internal(errOp("generate"), "no completion returned", nil)
	}
	return &zyn.ProviderResponse{Content: out.Choices[0].Message.Content}, nil
}

var _ zyn.Provider = (*httpProvider)(nil)

// doWithRetry posts body to path, retrying network errors and 5xx
// responses up to maxRetries times with exponential backoff before
// propagating a Transient error. The caller's context, which carries the
// Embed/Generate timeout, bounds all attempts together: a request that
// fails after ctx is done, by timeout or cancellation, returns Cancelled
// without a retry.
func (b *HTTPBridge) doWithRetry(ctx context.Context, path string, body []byte, out any) error {
	policy := backoff.WithMaxRetries(backoff.NewExponentialBackOff(), b.maxRetries)

	op := func() error {
		respBody, status, err := b.post(ctx, path, body)
		if err != nil {
			if ctx.Err() != nil {
				return backoff.Permanent(noetic.Cancelled(errOp("call"), "request cancelled or timed out"))
			}
			return err // network error: retryable
		}
		if status >= 500 {
			return fmt.Errorf("server error: status %d", status)
		}
		if status >= 400 {
			return backoff.Permanent(noetic.InvalidInput(errOp("call"), fmt.Sprintf("request rejected: status %d", status)))
		}
		if err := json.Unmarshal(respBody, out); err != nil {
			return backoff.Permanent(noetic.Internal(errOp("call"), "failed to unmarshal response", err))
		}
		return nil
	}

	if err := backoff.Retry(op, backoff.WithContext(policy, ctx)); err != nil {
		var nErr *noetic.Error
		if errors.As(err, &nErr) {
			return nErr
		}
		return noetic.Transient(errOp("call"), "inference service unavailable after retries", err)
	}
	return nil
}

func (b *HTTPBridge) post(ctx context.Context, path string, body []byte) ([]byte, int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, b.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return nil, 0, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+b.apiKey)

	resp, err := b.client.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, resp.StatusCode, fmt.Errorf("failed to read response: %w", err)
	}
	return respBody, resp.StatusCode, nil
}

func l2Normalize(v []float32) []float32 {
	var sumSq float64
	for _, f := range v {
		sumSq += float64(f) * float64(f)
	}
	if sumSq == 0 {
		return v
	}
	norm := float32(1.0 / math.Sqrt(sumSq))
	out := make([]float32, len(v))
	for i, f := range v {
		out[i] = f * norm
	}
	return out
}

func errOp(op string) string { return "inference." + op }

var _ Bridge = (*HTTPBridge)(nil)
