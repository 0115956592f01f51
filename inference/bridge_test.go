package inference_test

import (
	"context"
	"testing"

	"github.com/zoobzio/noetic/inference"
	"github.com/zoobzio/noetic/inference/inferencetest"
)

func TestResolveBridge_PrefersExplicitOverContextOverGlobal(t *testing.T) {
	ctx := context.Background()
	explicit := inferencetest.New()
	inCtx := inferencetest.New()
	global := inferencetest.New()

	inference.SetBridge(global)
	defer inference.SetBridge(nil)

	ctxWithBridge := inference.WithBridge(ctx, inCtx)

	resolved, err := inference.ResolveBridge(ctxWithBridge, explicit)
	if err != nil {
		t.Fatalf("resolve failed: %v", err)
	}
	if resolved != explicit {
		t.Error("expected explicit bridge to win over context and global")
	}

	resolved, err = inference.ResolveBridge(ctxWithBridge, nil)
	if err != nil {
		t.Fatalf("resolve failed: %v", err)
	}
	if resolved != inCtx {
		t.Error("expected context bridge to win over global when no explicit bridge given")
	}

	resolved, err = inference.ResolveBridge(ctx, nil)
	if err != nil {
		t.Fatalf("resolve failed: %v", err)
	}
	if resolved != global {
		t.Error("expected global bridge as last resort")
	}
}

func TestResolveBridge_ErrorsWhenNoneConfigured(t *testing.T) {
	inference.SetBridge(nil)
	if _, err := inference.ResolveBridge(context.Background(), nil); err != inference.ErrNoBridge {
		t.Errorf("expected ErrNoBridge, got %v", err)
	}
}

func TestMockBridge_EmbedIsDeterministic(t *testing.T) {
	ctx := context.Background()
	bridge := inferencetest.New()

	v1, err := bridge.Embed(ctx, inference.EmbedRequest{Model: "test", Text: "hello world"})
	if err != nil {
		t.Fatalf("embed failed: %v", err)
	}
	v2, err := bridge.Embed(ctx, inference.EmbedRequest{Model: "test", Text: "hello world"})
	if err != nil {
		t.Fatalf("embed failed: %v", err)
	}
	if len(v1) != len(v2) {
		t.Fatalf("expected equal-length vectors, got %d and %d", len(v1), len(v2))
	}
	for i := range v1 {
		if v1[i] != v2[i] {
			t.Fatalf("expected deterministic embedding for the same text, differed at index %d", i)
		}
	}
}

func TestMockBridge_EmbedDiffersForDifferentText(t *testing.T) {
	ctx := context.Background()
	bridge := inferencetest.New()

	v1, _ := bridge.Embed(ctx, inference.EmbedRequest{Model: "test", Text: "hello world"})
	v2, _ := bridge.Embed(ctx, inference.EmbedRequest{Model: "test", Text: "goodbye world"})

	same := true
	for i := range v1 {
		if v1[i] != v2[i] {
			same = false
			break
		}
	}
	if same {
		t.Error("expected distinct text to produce a distinct embedding")
	}
}

func TestMockBridge_FailNextReturnsTransientThenRecovers(t *testing.T) {
	ctx := context.Background()
	bridge := inferencetest.New()
	bridge.FailNext = 1

	if _, err := bridge.Embed(ctx, inference.EmbedRequest{Model: "test", Text: "x"}); err == nil {
		t.Fatal("expected the first call to fail")
	}
	if _, err := bridge.Embed(ctx, inference.EmbedRequest{Model: "test", Text: "x"}); err != nil {
		t.Fatalf("expected the second call to succeed, got %v", err)
	}
}
