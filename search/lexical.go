package search

import (
	"context"
	"math"
	"sort"
	"strings"

	"github.com/zoobzio/noetic"
	"github.com/zoobzio/noetic/archive"
)

// Field weights for a BM25F-style combination across title/content/
// summary/tags fields. This Note model has no separate title/summary
// field (see DESIGN.md), so the two surfaces that exist — current
// content and tags — carry the content and tags weights; the
// title/summary weights fold into the content weight since content is
// this model's only free-text field.
const (
	weightContent = 1.0
	weightTags    = 0.5
)

// lexicalDoc is one candidate's term-frequency surface for BM25F scoring.
type lexicalDoc struct {
	noteID   string
	contentTF map[string]int
	tagsTF    map[string]int
	contentLen int
	tagsLen    int
}

// rankLexical fetches up to limit*5 shortlisted candidates from
// store.SearchLexical, then computes the authoritative BM25F score for
// each over this package's configured k1/b (archive/soystore.go's
// SearchLexical doc comment notes that the ranked BM25 score
// search.Engine computes here is the authoritative one). Corpus
// statistics (avgdl, document frequency) are estimated over the
// shortlisted candidate set itself rather than the full corpus, since
// Store exposes no corpus-wide term-statistics method — a pragmatic
// scope limit for a shortlist that is already the 5x-limit superset the
// final ranking draws from.
func rankLexical(ctx context.Context, store archive.Store, queryText string, fetch int, allowed func(string) bool, k1, b float64) ([]rankedHit, error) {
	candidates, err := store.SearchLexical(ctx, queryText, fetch, allowed)
	if err != nil {
		return nil, noetic.Internal(errOp("rank_lexical"), "lexical shortlist failed", err)
	}
	if len(candidates) == 0 {
		return nil, nil
	}

	terms := tokenize(queryText)
	if len(terms) == 0 {
		return nil, nil
	}

	docs := make([]lexicalDoc, 0, len(candidates))
	var totalContentLen, totalTagsLen int
	for _, c := range candidates {
		view, err := store.GetNote(ctx, c.NoteID, archive.GetNoteOptions{})
		if err != nil {
			continue
		}
		d := lexicalDoc{
			noteID:     c.NoteID,
			contentTF:  termFreq(view.CurrentContent),
			tagsTF:     termFreq(strings.Join(view.Tags, " ")),
			contentLen: len(tokenize(view.CurrentContent)),
			tagsLen:    len(tokenize(strings.Join(view.Tags, " "))),
		}
		docs = append(docs, d)
		totalContentLen += d.contentLen
		totalTagsLen += d.tagsLen
	}
	if len(docs) == 0 {
		return nil, nil
	}

	avgContentLen := float64(totalContentLen) / float64(len(docs))
	avgTagsLen := float64(totalTagsLen) / float64(len(docs))
	if avgContentLen == 0 {
		avgContentLen = 1
	}
	if avgTagsLen == 0 {
		avgTagsLen = 1
	}

	df := make(map[string]int, len(terms))
	for _, term := range terms {
		for _, d := range docs {
			if d.contentTF[term] > 0 || d.tagsTF[term] > 0 {
				df[term]++
			}
		}
	}
	n := float64(len(docs))

	scored := make([]rankedHit, 0, len(docs))
	for _, d := range docs {
		var score float64
		for _, term := range terms {
			idf := math.Log(1 + (n-float64(df[term])+0.5)/(float64(df[term])+0.5))
			tfContent := float64(d.contentTF[term])
			tfTags := float64(d.tagsTF[term])
			weightedTF := weightContent*tfContent/(1-b+b*float64(d.contentLen)/avgContentLen) +
				weightTags*tfTags/(1-b+b*float64(d.tagsLen)/avgTagsLen)
			score += idf * (weightedTF * (k1 + 1)) / (weightedTF + k1)
		}
		if score <= 0 {
			continue
		}
		scored = append(scored, rankedHit{NoteID: d.noteID, Score: score})
	}

	sort.SliceStable(scored, func(i, j int) bool {
		if scored[i].Score != scored[j].Score {
			return scored[i].Score > scored[j].Score
		}
		return scored[i].NoteID < scored[j].NoteID
	})
	return rank(scored), nil
}

func tokenize(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !('a' <= r && r <= 'z' || '0' <= r && r <= '9')
	})
}

func termFreq(text string) map[string]int {
	tf := make(map[string]int)
	for _, t := range tokenize(text) {
		tf[t]++
	}
	return tf
}
