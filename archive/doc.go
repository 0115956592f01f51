// Package archive is the System's storage layer (C1): notes with
// dual-track content (immutable original + append-only revision
// history), provenance tracking, embeddings, links, collections,
// templates, tags, and activity logging, all under multi-schema
// "archive" isolation.
//
// [Store] is the capability interface every other component depends on.
// [SoyStore] is the Postgres-backed implementation, built with
// github.com/zoobzio/soy the way cogito's SoyMemory is built:
// one soy.Soy[T] per table, CRUD expressed as query-builder chains.
package archive
