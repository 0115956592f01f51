package system_test

import (
	"context"
	"testing"

	"github.com/zoobzio/noetic"
	"github.com/zoobzio/noetic/archive/archivetest"
	"github.com/zoobzio/noetic/inference"
	"github.com/zoobzio/noetic/inference/inferencetest"
	"github.com/zoobzio/noetic/jobs"
	"github.com/zoobzio/noetic/jobs/jobstest"
	"github.com/zoobzio/noetic/skos/skostest"
	"github.com/zoobzio/noetic/system"
)

func TestNew_BuildsEngineWhenNil(t *testing.T) {
	store := archivetest.New()
	graph := skostest.New()
	bridge := inferencetest.New()
	queue := jobstest.New()

	sys := system.New(store, graph, nil, queue, bridge, noetic.DefaultConfig())

	if sys.Search == nil {
		t.Fatal("expected System.New to build an Engine when engine is nil")
	}
	if sys.Archive != store || sys.Skos != graph || sys.Jobs != queue || sys.Bridge != bridge {
		t.Fatal("expected System fields to reference the components passed in")
	}
}

func TestSystem_ResolveBridge_PrefersSystemBridge(t *testing.T) {
	store := archivetest.New()
	graph := skostest.New()
	queue := jobstest.New()
	systemBridge := inferencetest.New()
	contextBridge := inferencetest.New()

	sys := system.New(store, graph, nil, queue, systemBridge, noetic.DefaultConfig())

	ctx := inference.WithBridge(context.Background(), contextBridge)
	resolved, err := sys.ResolveBridge(ctx)
	if err != nil {
		t.Fatalf("ResolveBridge: %v", err)
	}
	if resolved != inference.Bridge(systemBridge) {
		t.Fatal("expected System's own Bridge to take precedence over the context tier")
	}
}

func TestSystem_ResolveBridge_FallsBackToContext(t *testing.T) {
	store := archivetest.New()
	graph := skostest.New()
	queue := jobstest.New()
	contextBridge := inferencetest.New()

	sys := system.New(store, graph, nil, queue, nil, noetic.DefaultConfig())

	ctx := inference.WithBridge(context.Background(), contextBridge)
	resolved, err := sys.ResolveBridge(ctx)
	if err != nil {
		t.Fatalf("ResolveBridge: %v", err)
	}
	if resolved != inference.Bridge(contextBridge) {
		t.Fatal("expected ResolveBridge to fall back to the context tier when System.Bridge is nil")
	}
}

func TestSystem_Handlers_CoversEveryJobType(t *testing.T) {
	store := archivetest.New()
	graph := skostest.New()
	bridge := inferencetest.New()
	queue := jobstest.New()

	sys := system.New(store, graph, nil, queue, bridge, noetic.DefaultConfig())
	handlers := sys.Handlers()

	for _, jobType := range []jobs.Type{
		jobs.TypeEmbedding,
		jobs.TypeSemanticLinkDiscovery,
		jobs.TypeReEmbedAll,
		jobs.TypeReprocessNote,
		jobs.TypeBulkTag,
		jobs.TypeBulkMove,
		jobs.TypeAIRevision,
		jobs.TypePurge,
	} {
		if _, ok := handlers[jobType]; !ok {
			t.Errorf("missing handler for job type %q", jobType)
		}
	}
}

func TestSystem_Worker_UsesSystemQueue(t *testing.T) {
	store := archivetest.New()
	graph := skostest.New()
	bridge := inferencetest.New()
	queue := jobstest.New()

	sys := system.New(store, graph, nil, queue, bridge, noetic.DefaultConfig())
	worker := sys.Worker()

	if worker.Queue != queue {
		t.Fatal("expected Worker to be wired to the System's Queue")
	}
	if len(worker.Handlers) == 0 {
		t.Fatal("expected Worker to receive a non-empty handler table")
	}
}
