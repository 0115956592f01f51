package search

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/zoobzio/capitan"
	"github.com/zoobzio/noetic"
	"github.com/zoobzio/noetic/archive"
	"github.com/zoobzio/noetic/inference"
	"github.com/zoobzio/noetic/skos"
)

// errOp namespaces *noetic.Error Op strings for this package.
func errOp(op string) string { return "search." + op }

// CacheTTL is how long a fused result set stays valid in Cache.
const CacheTTL = 5 * time.Minute

// Engine ties persistence (archive.Store), the concept graph (skos.Graph),
// and the inference bridge (inference.Bridge) together into a single
// query contract, generalizing the parallel-fan-out pattern
// theRebelliousNerd-codenerd's semantic_classifier.go uses for
// independent concurrent model calls into the lexical/semantic ranker
// split.
type Engine struct {
	Store  archive.Store
	Graph  skos.Graph
	Bridge inference.Bridge
	Cache  Cache // optional; nil disables caching
	Config noetic.Config
}

// NewEngine constructs an Engine. Cache may be nil.
func NewEngine(store archive.Store, graph skos.Graph, bridge inference.Bridge, cache Cache, cfg noetic.Config) *Engine {
	return &Engine{Store: store, Graph: graph, Bridge: bridge, Cache: cache, Config: cfg}
}

// Search runs the full query pipeline: normalize, expand the isolation
// filter, run the requested ranker(s) in parallel, fuse, truncate, and
// return.
func (e *Engine) Search(ctx context.Context, q Query) (*SearchResponse, error) {
	normalized := q.Normalize()
	if normalized == "" {
		return nil, noetic.InvalidInput(errOp("search"), "query text must not be empty")
	}
	if q.Limit == 0 {
		return &SearchResponse{Results: []Result{}, Total: 0}, nil
	}
	if q.Limit < 0 {
		q.Limit = 10
	}
	if q.Mode == "" {
		q.Mode = ModeHybrid
	}

	cacheKey := CacheKey(q)
	if e.Cache != nil && !q.CacheBypass {
		if resp, hit, err := e.Cache.Get(ctx, cacheKey); err == nil && hit {
			capitan.Emit(ctx, SearchCacheHit, FieldQueryText.Field(normalized), FieldCacheKey.Field(cacheKey))
			return resp, nil
		}
		capitan.Emit(ctx, SearchCacheMiss, FieldQueryText.Field(normalized), FieldCacheKey.Field(cacheKey))
	}

	allowed, err := expandFilter(ctx, e.Store, e.Graph, q.Filter)
	if err != nil {
		return nil, err
	}

	lexicalFetch := q.Limit * 5
	semanticFetch := q.Limit * 5
	if ef := e.Config.EfSearch(q.Limit); ef > semanticFetch {
		semanticFetch = ef
	}

	var lexical, semantic []rankedHit
	switch q.Mode {
	case ModeFTS:
		lexical, err = rankLexical(ctx, e.Store, normalized, lexicalFetch, allowed, e.Config.BM25K1, e.Config.BM25B)
		if err != nil {
			return nil, err
		}
	case ModeSemantic:
		semantic, err = e.runSemantic(ctx, q, normalized, semanticFetch, allowed)
		if err != nil {
			return nil, err
		}
	default:
		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			hits, err := rankLexical(gctx, e.Store, normalized, lexicalFetch, allowed, e.Config.BM25K1, e.Config.BM25B)
			lexical = hits
			return err
		})
		g.Go(func() error {
			hits, err := e.runSemantic(gctx, q, normalized, semanticFetch, allowed)
			semantic = hits
			return err
		})
		if err := g.Wait(); err != nil {
			return nil, err
		}
	}

	fused := fuse(lexical, semantic, e.Config.RRFK)
	if len(fused) > q.Limit {
		fused = fused[:q.Limit]
	}

	resp := &SearchResponse{
		Results: fused,
		Total:   len(fused),
	}
	if q.CacheBypass {
		resp.Diagnostics = &Diagnostics{
			LexicalRanks:  toSourceRanks(lexical),
			SemanticRanks: toSourceRanks(semantic),
		}
	}

	if e.Cache != nil && !q.CacheBypass {
		_ = e.Cache.Set(ctx, cacheKey, resp, CacheTTL)
	}

	capitan.Emit(ctx, SearchExecuted,
		FieldQueryText.Field(normalized), FieldMode.Field(string(q.Mode)), FieldResultCount.Field(len(fused)))

	return resp, nil
}

// runSemantic resolves the embedding config (explicit slug/id, or the
// store's configured default) then runs the semantic ranker.
func (e *Engine) runSemantic(ctx context.Context, q Query, normalized string, fetch int, allowed func(string) bool) ([]rankedHit, error) {
	if e.Bridge == nil {
		return nil, nil
	}
	var cfg *archive.EmbeddingConfig
	var err error
	if q.EmbeddingConfig != "" {
		cfg, err = e.Store.GetEmbeddingConfig(ctx, q.EmbeddingConfig)
	} else {
		cfg, err = e.Store.GetDefaultEmbeddingConfig(ctx)
	}
	if err != nil {
		return nil, err
	}
	return rankSemantic(ctx, e.Store, e.Bridge, *cfg, normalized, fetch, allowed)
}

func toSourceRanks(hits []rankedHit) []SourceRank {
	out := make([]SourceRank, len(hits))
	for i, h := range hits {
		out[i] = SourceRank{NoteID: h.NoteID, Rank: h.Rank, Score: h.Score}
	}
	return out
}
