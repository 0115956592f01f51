// Package skostest provides an in-memory skos.Graph for tests, the same
// role archivetest.MockStore plays for archive.Store.
package skostest

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/zoobzio/noetic"
	"github.com/zoobzio/noetic/skos"
)

// MockGraph implements skos.Graph with in-memory maps guarded by a
// single mutex.
type MockGraph struct {
	mu sync.RWMutex

	schemes   map[string]*skos.ConceptScheme
	concepts  map[string]*skos.Concept
	labels    map[string][]skos.ConceptLabel // concept id -> labels
	relations []skos.ConceptRelation
}

// New creates an empty MockGraph.
func New() *MockGraph {
	return &MockGraph{
		schemes:  make(map[string]*skos.ConceptScheme),
		concepts: make(map[string]*skos.Concept),
		labels:   make(map[string][]skos.ConceptLabel),
	}
}

func (g *MockGraph) CreateScheme(_ context.Context, notation, title, description string) (*skos.ConceptScheme, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if !skos.ValidNotation(notation) {
		return nil, noetic.InvalidInput("skostest.create_scheme", "invalid notation: "+notation)
	}
	for _, s := range g.schemes {
		if s.Notation == notation {
			return nil, noetic.Conflict("skostest.create_scheme", "notation already in use: "+notation)
		}
	}
	scheme := &skos.ConceptScheme{ID: noetic.NewID(), Notation: notation, Title: title, Description: description}
	g.schemes[scheme.ID] = scheme
	return scheme, nil
}

func (g *MockGraph) DeleteScheme(_ context.Context, schemeID string) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	for _, c := range g.concepts {
		if c.SchemeID == schemeID {
			return noetic.Conflict("skostest.delete_scheme", "scheme still has concepts assigned")
		}
	}
	delete(g.schemes, schemeID)
	return nil
}

func (g *MockGraph) GetScheme(_ context.Context, schemeID string) (*skos.ConceptScheme, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	s, ok := g.schemes[schemeID]
	if !ok {
		return nil, noetic.NotFound("skostest.get_scheme", "ConceptScheme "+schemeID+" not found")
	}
	return s, nil
}

func (g *MockGraph) GetSchemeByNotation(_ context.Context, notation string) (*skos.ConceptScheme, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	for _, s := range g.schemes {
		if s.Notation == notation {
			return s, nil
		}
	}
	return nil, noetic.NotFound("skostest.get_scheme_by_notation", "ConceptScheme with notation "+notation+" not found")
}

func (g *MockGraph) CreateConcept(_ context.Context, req skos.CreateConceptRequest) (*skos.Concept, error) {
	g.mu.Lock()

	if req.PrefLabel == "" {
		g.mu.Unlock()
		return nil, noetic.InvalidInput("skostest.create_concept", "pref_label is required")
	}
	if req.Status != "" && !skos.ValidConceptStatus(req.Status) {
		g.mu.Unlock()
		return nil, noetic.InvalidInput("skostest.create_concept", "invalid status: "+string(req.Status))
	}
	if !skos.ValidFacetType(req.FacetType) {
		g.mu.Unlock()
		return nil, noetic.InvalidInput("skostest.create_concept", "invalid facet_type: "+string(req.FacetType))
	}
	language := req.Language
	if language == "" {
		language = "en"
	}
	status := req.Status
	if status == "" {
		status = skos.StatusCandidate
	}

	concept := &skos.Concept{ID: noetic.NewID(), SchemeID: req.SchemeID, Notation: req.Notation, Status: status, FacetType: req.FacetType}
	g.concepts[concept.ID] = concept
	g.labels[concept.ID] = append(g.labels[concept.ID], skos.ConceptLabel{
		ID: noetic.NewID(), ConceptID: concept.ID, Label: req.PrefLabel, LabelType: skos.LabelPreferred, Language: language,
	})
	for _, alt := range req.AltLabels {
		g.labels[concept.ID] = append(g.labels[concept.ID], skos.ConceptLabel{
			ID: noetic.NewID(), ConceptID: concept.ID, Label: alt, LabelType: skos.LabelAlternate, Language: language,
		})
	}
	for _, hidden := range req.HiddenLabels {
		g.labels[concept.ID] = append(g.labels[concept.ID], skos.ConceptLabel{
			ID: noetic.NewID(), ConceptID: concept.ID, Label: hidden, LabelType: skos.LabelHidden, Language: language,
		})
	}
	g.mu.Unlock()

	for _, parentID := range req.BroaderIDs {
		if err := g.AddRelation(context.Background(), concept.ID, parentID, skos.RelationBroader); err != nil {
			return nil, err
		}
	}
	return concept, nil
}

func (g *MockGraph) GetConcept(_ context.Context, conceptID string) (*skos.Concept, []skos.ConceptLabel, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	c, ok := g.concepts[conceptID]
	if !ok {
		return nil, nil, noetic.NotFound("skostest.get_concept", "Concept "+conceptID+" not found")
	}
	return c, append([]skos.ConceptLabel(nil), g.labels[conceptID]...), nil
}

func (g *MockGraph) AddLabel(_ context.Context, conceptID string, label skos.ConceptLabel) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if label.LabelType == skos.LabelPreferred {
		for _, l := range g.labels[conceptID] {
			if l.LabelType == skos.LabelPreferred && l.Language == label.Language {
				return noetic.Conflict("skostest.add_label", "concept already has a preferred label for language "+label.Language)
			}
		}
	}
	label.ID = noetic.NewID()
	label.ConceptID = conceptID
	g.labels[conceptID] = append(g.labels[conceptID], label)
	return nil
}

func (g *MockGraph) AddRelation(_ context.Context, from, to string, relType skos.RelationType) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if from == to {
		return noetic.InvalidInput("skostest.add_relation", "self-relations are not allowed")
	}

	if relType == skos.RelationBroader || relType == skos.RelationNarrower {
		start, target := to, from
		if relType == skos.RelationNarrower {
			start, target = from, to
		}
		if g.reachableLocked(start, skos.RelationBroader, 64, target) {
			return noetic.InvalidInput("skostest.add_relation", "relation would create a broader/narrower cycle")
		}
	}

	g.insertRelationLocked(from, to, relType)
	g.insertRelationLocked(to, from, inverseOf(relType))
	return nil
}

func inverseOf(t skos.RelationType) skos.RelationType {
	switch t {
	case skos.RelationBroader:
		return skos.RelationNarrower
	case skos.RelationNarrower:
		return skos.RelationBroader
	default:
		return skos.RelationRelated
	}
}

func (g *MockGraph) insertRelationLocked(from, to string, relType skos.RelationType) {
	for _, r := range g.relations {
		if r.From == from && r.To == to && r.Type == relType {
			return
		}
	}
	g.relations = append(g.relations, skos.ConceptRelation{From: from, To: to, Type: relType})
}

func (g *MockGraph) reachableLocked(start string, direction skos.RelationType, maxDepth int, target string) bool {
	visited := map[string]bool{start: true}
	frontier := []string{start}
	for depth := 0; depth < maxDepth && len(frontier) > 0; depth++ {
		var next []string
		for _, id := range frontier {
			for _, r := range g.relations {
				if r.From != id || r.Type != direction {
					continue
				}
				if r.To == target {
					return true
				}
				if !visited[r.To] {
					visited[r.To] = true
					next = append(next, r.To)
				}
			}
		}
		frontier = next
	}
	return false
}

func (g *MockGraph) RemoveRelation(_ context.Context, from, to string, relType skos.RelationType) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	kept := g.relations[:0]
	inv := inverseOf(relType)
	for _, r := range g.relations {
		if (r.From == from && r.To == to && r.Type == relType) || (r.From == to && r.To == from && r.Type == inv) {
			continue
		}
		kept = append(kept, r)
	}
	g.relations = kept
	return nil
}

func (g *MockGraph) SearchConcepts(_ context.Context, query string, filter skos.SearchFilter) ([]skos.ConceptMatch, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	var matches []skos.ConceptMatch
	prefByConcept := map[string]string{}
	for conceptID, labels := range g.labels {
		concept := g.concepts[conceptID]
		if concept == nil {
			continue
		}
		if filter.SchemeID != "" && concept.SchemeID != filter.SchemeID {
			continue
		}
		if filter.Status != "" && concept.Status != filter.Status {
			continue
		}
		for _, l := range labels {
			if l.LabelType == skos.LabelPreferred {
				prefByConcept[conceptID] = l.Label
			}
			if skos.FuzzyScore(query, l.Label) < skos.FuzzyThreshold {
				continue
			}
			matches = append(matches, skos.ConceptMatch{
				ConceptID: conceptID, SchemeID: concept.SchemeID, Label: l.Label, LabelType: l.LabelType,
			})
		}
	}
	for i := range matches {
		matches[i].PrefLabel = prefByConcept[matches[i].ConceptID]
	}

	sort.SliceStable(matches, func(i, j int) bool {
		a, b := matches[i], matches[j]
		ra, rb := labelRank(a.LabelType), labelRank(b.LabelType)
		if ra != rb {
			return ra < rb
		}
		if a.SchemeID != b.SchemeID {
			return a.SchemeID < b.SchemeID
		}
		return strings.ToLower(a.PrefLabel) < strings.ToLower(b.PrefLabel)
	})
	return matches, nil
}

func labelRank(t skos.LabelType) int {
	switch t {
	case skos.LabelPreferred:
		return 0
	case skos.LabelAlternate:
		return 1
	case skos.LabelHidden:
		return 2
	default:
		return 3
	}
}

func (g *MockGraph) Expand(_ context.Context, conceptID string, direction skos.RelationType, maxDepth int) ([]string, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	if maxDepth <= 0 {
		maxDepth = 10
	}
	visited := map[string]bool{conceptID: true}
	var order []string
	frontier := []string{conceptID}
	for depth := 0; depth < maxDepth && len(frontier) > 0; depth++ {
		var next []string
		for _, id := range frontier {
			for _, r := range g.relations {
				if r.From != id || r.Type != direction {
					continue
				}
				if !visited[r.To] {
					visited[r.To] = true
					order = append(order, r.To)
					next = append(next, r.To)
				}
			}
		}
		frontier = next
	}
	return order, nil
}

func (g *MockGraph) TagNote(_ context.Context, tagText string) (*skos.TagResult, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	normalized := strings.ToLower(strings.TrimSpace(tagText))
	var suggestions []skos.ConceptMatch
	for conceptID, labels := range g.labels {
		concept := g.concepts[conceptID]
		if concept == nil {
			continue
		}
		for _, l := range labels {
			if strings.ToLower(l.Label) == normalized {
				return &skos.TagResult{Outcome: skos.TagAssigned, ConceptID: conceptID}, nil
			}
			if skos.FuzzyScore(tagText, l.Label) >= skos.FuzzyThreshold {
				suggestions = append(suggestions, skos.ConceptMatch{
					ConceptID: conceptID, SchemeID: concept.SchemeID, Label: l.Label, LabelType: l.LabelType,
				})
			}
		}
	}
	if len(suggestions) > 0 {
		return &skos.TagResult{Outcome: skos.TagSuggested, Suggested: suggestions}, nil
	}
	return &skos.TagResult{Outcome: skos.TagUnknown}, nil
}

var _ skos.Graph = (*MockGraph)(nil)
