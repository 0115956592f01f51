package search

import (
	"context"
	"sort"

	"github.com/zoobzio/noetic/archive"
	"github.com/zoobzio/noetic/inference"
)

// rankSemantic embeds the query text via bridge, retrieves the nearest
// embeddings under the resolved config, then converts each hit's raw
// vector distance into the true cosine similarity archive.Vector's
// CosineSimilarity method computes (Store.SearchByVector only orders by
// distance; it does not itself return a similarity score). Multiple
// chunks can belong to the same note, so this keeps only the
// highest-similarity chunk per note, aggregating to one score per note.
func rankSemantic(ctx context.Context, store archive.Store, bridge inference.Bridge, cfg archive.EmbeddingConfig, queryText string, fetch int, allowed func(string) bool) ([]rankedHit, error) {
	vec, err := bridge.Embed(ctx, inference.EmbedRequest{
		Model:       cfg.ModelName,
		Text:        queryText,
		TruncateDim: cfg.TruncateDim,
	})
	if err != nil {
		return nil, err
	}
	query := archive.NewVector(vec)

	hits, err := store.SearchByVector(ctx, query, cfg.ID, fetch, allowed)
	if err != nil {
		return nil, err
	}
	if len(hits) == 0 {
		return nil, nil
	}

	best := make(map[string]float64, len(hits))
	for _, e := range hits {
		sim := query.CosineSimilarity(e.Vector)
		if cur, ok := best[e.NoteID]; !ok || sim > cur {
			best[e.NoteID] = sim
		}
	}

	scored := make([]rankedHit, 0, len(best))
	for noteID, sim := range best {
		scored = append(scored, rankedHit{NoteID: noteID, Score: sim})
	}
	sort.SliceStable(scored, func(i, j int) bool {
		if scored[i].Score != scored[j].Score {
			return scored[i].Score > scored[j].Score
		}
		return scored[i].NoteID < scored[j].NoteID
	})
	return rank(scored), nil
}
