package search

import (
	"context"
	"strings"
	"sync"

	"github.com/zoobzio/noetic/archive"
	"github.com/zoobzio/noetic/skos"
)

// expandFilter turns a StrictFilter into an allowed(noteID) predicate.
// The predicate is handed directly to Store.SearchByVector/SearchLexical
// so isolation is enforced inside each retrieval rather than as a
// post-filter. Memoizes per-note lookups since both rankers evaluate the
// same predicate concurrently against overlapping candidate sets.
func expandFilter(ctx context.Context, store archive.Store, graph skos.Graph, filter StrictFilter) (func(noteID string) bool, error) {
	requiredSchemeIDs, err := resolveSchemeIDs(ctx, graph, filter.RequiredSchemes)
	if err != nil {
		return nil, err
	}
	excludedSchemeIDs, err := resolveSchemeIDs(ctx, graph, filter.ExcludedSchemes)
	if err != nil {
		return nil, err
	}

	requiredTags := normalizeAll(filter.RequiredTags)
	excludedTags := normalizeAll(filter.ExcludedTags)

	if len(requiredSchemeIDs) == 0 && len(excludedSchemeIDs) == 0 &&
		len(requiredTags) == 0 && len(excludedTags) == 0 && filter.CollectionID == nil {
		return func(string) bool { return true }, nil
	}

	var mu sync.Mutex
	cache := map[string]bool{}

	return func(noteID string) bool {
		mu.Lock()
		if v, ok := cache[noteID]; ok {
			mu.Unlock()
			return v
		}
		mu.Unlock()

		v := evalNote(ctx, store, graph, noteID, requiredSchemeIDs, excludedSchemeIDs, requiredTags, excludedTags, filter)

		mu.Lock()
		cache[noteID] = v
		mu.Unlock()
		return v
	}, nil
}

func resolveSchemeIDs(ctx context.Context, graph skos.Graph, notations []string) (map[string]bool, error) {
	if len(notations) == 0 {
		return nil, nil
	}
	ids := make(map[string]bool, len(notations))
	for _, n := range notations {
		scheme, err := graph.GetSchemeByNotation(ctx, n)
		if err != nil {
			return nil, err
		}
		ids[scheme.ID] = true
	}
	return ids, nil
}

func normalizeAll(terms []string) []string {
	if len(terms) == 0 {
		return nil
	}
	out := make([]string, len(terms))
	for i, t := range terms {
		out[i] = strings.ToLower(strings.TrimSpace(t))
	}
	return out
}

func evalNote(
	ctx context.Context,
	store archive.Store,
	graph skos.Graph,
	noteID string,
	requiredSchemeIDs, excludedSchemeIDs map[string]bool,
	requiredTags, excludedTags []string,
	filter StrictFilter,
) bool {
	if filter.CollectionID != nil {
		view, err := store.GetNote(ctx, noteID, archive.GetNoteOptions{})
		if err != nil || view.Note.CollectionID == nil || *view.Note.CollectionID != *filter.CollectionID {
			return false
		}
	}

	conceptIDs, err := store.NoteConceptIDs(ctx, noteID)
	if err != nil {
		return false
	}
	tags, err := store.NoteTags(ctx, noteID)
	if err != nil {
		return false
	}

	noteSchemeIDs := make(map[string]bool, len(conceptIDs))
	conceptTerms := make(map[string]bool, len(conceptIDs))
	for _, cid := range conceptIDs {
		concept, labels, err := graph.GetConcept(ctx, cid)
		if err != nil {
			continue
		}
		noteSchemeIDs[concept.SchemeID] = true
		if concept.Notation != "" {
			conceptTerms[strings.ToLower(concept.Notation)] = true
		}
		for _, l := range labels {
			if l.LabelType == skos.LabelPreferred {
				conceptTerms[strings.ToLower(l.Label)] = true
			}
		}
	}

	if len(requiredSchemeIDs) > 0 {
		for schemeID := range requiredSchemeIDs {
			if !noteSchemeIDs[schemeID] {
				return false
			}
		}
	}

	if len(requiredTags) > 0 {
		tagSet := make(map[string]bool, len(tags))
		for _, t := range tags {
			tagSet[strings.ToLower(t)] = true
		}
		for _, term := range requiredTags {
			if !tagSet[term] && !conceptTerms[term] {
				return false
			}
		}
	}

	untagged := len(conceptIDs) == 0 && len(tags) == 0
	if len(excludedSchemeIDs) > 0 || len(excludedTags) > 0 {
		if untagged {
			return filter.includeUntagged()
		}
		for schemeID := range excludedSchemeIDs {
			if noteSchemeIDs[schemeID] {
				return false
			}
		}
		tagSet := make(map[string]bool, len(tags))
		for _, t := range tags {
			tagSet[strings.ToLower(t)] = true
		}
		for _, term := range excludedTags {
			if tagSet[term] || conceptTerms[term] {
				return false
			}
		}
	}

	return true
}
