// Package system wires one instance of each component into a single
// façade for external collaborators (an HTTP API, a CLI, an MCP server)
// that want one handle rather than five.
//
// It lives outside package noetic itself because every component package
// (archive, skos, search, jobs, inference) already imports noetic for
// the shared error/config/signal vocabulary; a System type living in
// noetic and importing those packages back would be a cyclic import.
// system is the leaf that closes the wiring instead.
package system

import (
	"context"

	"github.com/zoobzio/noetic"
	"github.com/zoobzio/noetic/archive"
	"github.com/zoobzio/noetic/inference"
	"github.com/zoobzio/noetic/jobs"
	"github.com/zoobzio/noetic/search"
	"github.com/zoobzio/noetic/skos"
)

// System binds one archive.Store, one skos.Graph, one search.Engine, one
// jobs.Queue, and one inference.Bridge behind a single handle.
type System struct {
	Archive archive.Store
	Skos    skos.Graph
	Search  *search.Engine
	Jobs    jobs.Queue
	Bridge  inference.Bridge
	Config  noetic.Config
}

// New constructs a System from already-built components. Engine, if nil,
// is built from store, graph, and bridge with no cache and cfg. Bridge
// may be nil; System.ResolveBridge then falls back to
// inference.ResolveBridge's context/global tiers, while the Engine built
// here and the handlers from Handlers receive the nil Bridge as is (the
// Engine then runs no semantic ranking).
func New(store archive.Store, graph skos.Graph, engine *search.Engine, queue jobs.Queue, bridge inference.Bridge, cfg noetic.Config) *System {
	if engine == nil {
		engine = search.NewEngine(store, graph, bridge, nil, cfg)
	}
	return &System{
		Archive: store,
		Skos:    graph,
		Search:  engine,
		Jobs:    queue,
		Bridge:  bridge,
		Config:  cfg,
	}
}

// ResolveBridge finds the Bridge to use for an inference call, preferring
// the System's own Bridge over whatever is attached to ctx or installed
// as the process-wide default — the same explicit>context>global order
// inference.ResolveBridge applies to its own arguments.
func (s *System) ResolveBridge(ctx context.Context) (inference.Bridge, error) {
	return inference.ResolveBridge(ctx, s.Bridge)
}

// Handlers builds the job handler table for this System's components,
// ready to hand to jobs.NewWorker.
func (s *System) Handlers() map[jobs.Type]jobs.Handler {
	return jobs.NewHandlers(s.Archive, s.Bridge, s.Search, s.Jobs, s.Config)
}

// Worker builds a jobs.Worker wired to this System's queue and handler
// table. Concurrency and PollInterval are left at jobs.NewWorker's
// defaults; callers needing different values can adjust the returned
// *jobs.Worker directly before calling Run.
func (s *System) Worker() *jobs.Worker {
	return jobs.NewWorker(s.Jobs, s.Handlers())
}
