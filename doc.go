// Package noetic is the retrieval and knowledge-graph core of a personal,
// self-hosted knowledge base.
//
// noetic stores user notes, enriches them with AI-generated revisions and
// embeddings, and serves hybrid search, linking, and taxonomy operations
// over them. It is a library: the HTTP API, MCP tool bindings, CLI,
// OAuth/auth middleware, backup/restore packaging, configuration loading,
// and metrics shipping are external collaborators that import noetic, not
// part of it.
//
// # Components
//
// The core is five leaf-first components:
//
//   - [github.com/zoobzio/noetic/archive] (C1) — notes, revisions,
//     embeddings, links, tags, concepts persisted in a relational store
//     with vector indexing, under multi-schema "archive" isolation.
//   - [github.com/zoobzio/noetic/skos] (C2) — structured concepts with
//     preferred/alternate/hidden labels, broader/narrower/related
//     relations, scheme scoping.
//   - [github.com/zoobzio/noetic/search] (C3) — parallel BM25-like and
//     dense retrieval, Reciprocal Rank Fusion, strict isolation filtering
//     via SKOS schemes/notations.
//   - [github.com/zoobzio/noetic/jobs] (C4) — typed job queue with
//     retry, progress, cancellation; jobs carry no priority field.
//   - [github.com/zoobzio/noetic/inference] (C5) — adapter to an external
//     embedding/LLM service.
//
// # Wiring
//
// [github.com/zoobzio/noetic/system.System] binds one of each component
// together and is the entry point external collaborators use. It lives
// in its own package rather than here, since every component above
// already imports noetic for the shared vocabulary below and a wiring
// type in this package would import them back:
//
//	sys := system.New(store, graph, nil, queue, bridge, noetic.DefaultConfig())
//	note, err := sys.Archive.CreateNote(ctx, req)
//
// # Observability
//
// noetic emits capitan signals at component boundaries rather than writing
// to a conventional logger. See [signals.go] for the root vocabulary and
// the jobs and search packages for their extensions.
//
// # Errors
//
// Every exported operation returns a [*Error] classified into one of a
// closed set of [Kind] values (NotFound, InvalidInput, Conflict,
// Transient, Unsupported, Cancelled, Internal) so callers — workers
// deciding whether to retry, an API layer mapping to HTTP status — can
// branch on failure class without parsing message text.
package noetic
