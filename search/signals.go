package search

import "github.com/zoobzio/capitan"

// Signal definitions for this package's events, following the same
// noetic.<entity>.<event> vocabulary the root signals.go establishes.
var (
	SearchExecuted = capitan.NewSignal(
		"noetic.search.executed",
		"A search query ran to completion",
	)
	SearchCacheHit = capitan.NewSignal(
		"noetic.search.cache_hit",
		"A fused result set was served from cache",
	)
	SearchCacheMiss = capitan.NewSignal(
		"noetic.search.cache_miss",
		"No cached result set existed for the query key",
	)
)

// Field keys specific to search.
var (
	FieldQueryText  = capitan.NewStringKey("query_text")
	FieldMode       = capitan.NewStringKey("mode")
	FieldResultCount = capitan.NewIntKey("result_count")
	FieldCacheKey   = capitan.NewStringKey("cache_key")
)
