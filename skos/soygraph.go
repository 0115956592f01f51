package skos

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/zoobzio/astql/postgres"
	"github.com/zoobzio/capitan"
	"github.com/zoobzio/noetic"
	"github.com/zoobzio/soy"
)

// SoyGraph implements Graph using soy, the same shape as
// archive.SoyStore: one soy.Soy[T] per table.
type SoyGraph struct {
	schemes   *soy.Soy[ConceptScheme]
	concepts  *soy.Soy[Concept]
	labels    *soy.Soy[ConceptLabel]
	relations *soy.Soy[ConceptRelation]
}

// NewSoyGraph constructs a SoyGraph against the given database.
func NewSoyGraph(db *sqlx.DB) (*SoyGraph, error) {
	renderer := postgres.New()

	schemes, err := soy.New[ConceptScheme](db, "concept_schemes", renderer)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize concept_schemes table: %w", err)
	}
	concepts, err := soy.New[Concept](db, "concepts", renderer)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize concepts table: %w", err)
	}
	labels, err := soy.New[ConceptLabel](db, "concept_labels", renderer)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize concept_labels table: %w", err)
	}
	relations, err := soy.New[ConceptRelation](db, "concept_relations", renderer)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize concept_relations table: %w", err)
	}

	return &SoyGraph{schemes: schemes, concepts: concepts, labels: labels, relations: relations}, nil
}

func (g *SoyGraph) CreateScheme(ctx context.Context, notation, title, description string) (*ConceptScheme, error) {
	if !ValidNotation(notation) {
		return nil, noetic.InvalidInput(errOp("create_scheme"), "invalid notation: "+notation)
	}

	existing, err := g.schemes.Query().Where("notation", "=", "notation").
		Exec(ctx, map[string]any{"notation": notation})
	if err != nil {
		return nil, noetic.Internal(errOp("create_scheme"), "failed to check notation uniqueness", err)
	}
	if len(existing) > 0 {
		return nil, noetic.Conflict(errOp("create_scheme"), "notation already in use: "+notation)
	}

	scheme := &ConceptScheme{
		ID: noetic.NewID(), Notation: notation, Title: title, Description: description,
	}
	if _, err := g.schemes.Insert().Exec(ctx, scheme); err != nil {
		return nil, noetic.Internal(errOp("create_scheme"), "failed to insert scheme", err)
	}
	return scheme, nil
}

func (g *SoyGraph) DeleteScheme(ctx context.Context, schemeID string) error {
	members, err := g.concepts.Query().Where("scheme_id", "=", "scheme_id").
		Exec(ctx, map[string]any{"scheme_id": schemeID})
	if err != nil {
		return noetic.Internal(errOp("delete_scheme"), "failed to check scheme membership", err)
	}
	if len(members) > 0 {
		return noetic.Conflict(errOp("delete_scheme"), "scheme still has concepts assigned")
	}

	if _, err := g.schemes.Remove().Where("id", "=", "id").Exec(ctx, map[string]any{"id": schemeID}); err != nil {
		return noetic.Internal(errOp("delete_scheme"), "failed to delete scheme", err)
	}
	return nil
}

func (g *SoyGraph) GetScheme(ctx context.Context, schemeID string) (*ConceptScheme, error) {
	scheme, err := g.schemes.Select().Where("id", "=", "id").Exec(ctx, map[string]any{"id": schemeID})
	if err != nil {
		return nil, noetic.NotFound(errOp("get_scheme"), "ConceptScheme "+schemeID+" not found")
	}
	return scheme, nil
}

func (g *SoyGraph) GetSchemeByNotation(ctx context.Context, notation string) (*ConceptScheme, error) {
	rows, err := g.schemes.Query().Where("notation", "=", "notation").
		Exec(ctx, map[string]any{"notation": notation})
	if err != nil {
		return nil, noetic.Internal(errOp("get_scheme_by_notation"), "failed to look up scheme", err)
	}
	if len(rows) == 0 {
		return nil, noetic.NotFound(errOp("get_scheme_by_notation"), "ConceptScheme with notation "+notation+" not found")
	}
	return rows[0], nil
}

func (g *SoyGraph) CreateConcept(ctx context.Context, req CreateConceptRequest) (*Concept, error) {
	if req.PrefLabel == "" {
		return nil, noetic.InvalidInput(errOp("create_concept"), "pref_label is required")
	}
	if req.Status != "" && !ValidConceptStatus(req.Status) {
		return nil, noetic.InvalidInput(errOp("create_concept"), "invalid status: "+string(req.Status))
	}
	if !ValidFacetType(req.FacetType) {
		return nil, noetic.InvalidInput(errOp("create_concept"), "invalid facet_type: "+string(req.FacetType))
	}
	language := req.Language
	if language == "" {
		language = "en"
	}
	status := req.Status
	if status == "" {
		status = StatusCandidate
	}

	concept := &Concept{ID: noetic.NewID(), SchemeID: req.SchemeID, Notation: req.Notation, Status: status, FacetType: req.FacetType}
	if _, err := g.concepts.Insert().Exec(ctx, concept); err != nil {
		return nil, noetic.Internal(errOp("create_concept"), "failed to insert concept", err)
	}

	pref := ConceptLabel{
		ID: noetic.NewID(), ConceptID: concept.ID, Label: req.PrefLabel,
		LabelType: LabelPreferred, Language: language,
	}
	if _, err := g.labels.Insert().Exec(ctx, &pref); err != nil {
		return nil, noetic.Internal(errOp("create_concept"), "failed to insert preferred label", err)
	}

	for _, alt := range req.AltLabels {
		l := ConceptLabel{ID: noetic.NewID(), ConceptID: concept.ID, Label: alt, LabelType: LabelAlternate, Language: language}
		if _, err := g.labels.Insert().Exec(ctx, &l); err != nil {
			return nil, noetic.Internal(errOp("create_concept"), "failed to insert alternate label", err)
		}
	}
	for _, hidden := range req.HiddenLabels {
		l := ConceptLabel{ID: noetic.NewID(), ConceptID: concept.ID, Label: hidden, LabelType: LabelHidden, Language: language}
		if _, err := g.labels.Insert().Exec(ctx, &l); err != nil {
			return nil, noetic.Internal(errOp("create_concept"), "failed to insert hidden label", err)
		}
	}

	for _, parentID := range req.BroaderIDs {
		if err := g.AddRelation(ctx, concept.ID, parentID, RelationBroader); err != nil {
			return nil, err
		}
	}

	capitan.Emit(ctx, noetic.ConceptCreated,
		noetic.FieldConceptID.Field(concept.ID),
		noetic.FieldSchemeID.Field(req.SchemeID),
	)

	return concept, nil
}

func (g *SoyGraph) GetConcept(ctx context.Context, conceptID string) (*Concept, []ConceptLabel, error) {
	concept, err := g.concepts.Select().Where("id", "=", "id").Exec(ctx, map[string]any{"id": conceptID})
	if err != nil {
		return nil, nil, noetic.NotFound(errOp("get_concept"), "Concept "+conceptID+" not found")
	}
	rows, err := g.labels.Query().Where("concept_id", "=", "concept_id").
		Exec(ctx, map[string]any{"concept_id": conceptID})
	if err != nil {
		return nil, nil, noetic.Internal(errOp("get_concept"), "failed to load labels", err)
	}
	labels := make([]ConceptLabel, len(rows))
	for i, l := range rows {
		labels[i] = *l
	}
	return concept, labels, nil
}

func (g *SoyGraph) AddLabel(ctx context.Context, conceptID string, label ConceptLabel) error {
	if label.LabelType == LabelPreferred {
		existing, err := g.labels.Query().
			Where("concept_id", "=", "concept_id").
			Where("label_type", "=", "label_type").
			Where("language", "=", "language").
			Exec(ctx, map[string]any{"concept_id": conceptID, "label_type": LabelPreferred, "language": label.Language})
		if err != nil {
			return noetic.Internal(errOp("add_label"), "failed to check existing preferred label", err)
		}
		if len(existing) > 0 {
			return noetic.Conflict(errOp("add_label"), "concept already has a preferred label for language "+label.Language)
		}
	}

	label.ID = noetic.NewID()
	label.ConceptID = conceptID
	if _, err := g.labels.Insert().Exec(ctx, &label); err != nil {
		return noetic.Internal(errOp("add_label"), "failed to insert label", err)
	}
	return nil
}

func (g *SoyGraph) AddRelation(ctx context.Context, from, to string, relType RelationType) error {
	if from == to {
		return noetic.InvalidInput(errOp("add_relation"), "self-relations are not allowed")
	}

	if relType == RelationBroader || relType == RelationNarrower {
		fromID, toID := from, to
		if relType == RelationNarrower {
			// narrower(from,to) is broader(to,from); normalize before the
			// cycle check, which is always phrased in terms of "broader".
			fromID, toID = to, from
		}
		// broader(fromID,toID) closes a cycle iff fromID is already
		// reachable from toID along broader edges.
		wouldCycle, err := g.reachable(ctx, toID, RelationBroader, 64, fromID)
		if err != nil {
			return err
		}
		if wouldCycle {
			return noetic.InvalidInput(errOp("add_relation"), "relation would create a broader/narrower cycle")
		}
	}

	if err := g.insertRelation(ctx, from, to, relType); err != nil {
		return err
	}
	if err := g.insertRelation(ctx, to, from, relType.inverse()); err != nil {
		return err
	}

	capitan.Emit(ctx, noetic.RelationAdded,
		noetic.FieldConceptID.Field(from),
	)
	return nil
}

func (g *SoyGraph) insertRelation(ctx context.Context, from, to string, relType RelationType) error {
	existing, err := g.relations.Query().
		Where("from_concept", "=", "from_concept").
		Where("to_concept", "=", "to_concept").
		Where("type", "=", "type").
		Exec(ctx, map[string]any{"from_concept": from, "to_concept": to, "type": relType})
	if err != nil {
		return noetic.Internal(errOp("add_relation"), "failed to check existing relation", err)
	}
	if len(existing) > 0 {
		return nil // already present, idempotent
	}
	rel := &ConceptRelation{From: from, To: to, Type: relType}
	if _, err := g.relations.Insert().Exec(ctx, rel); err != nil {
		return noetic.Internal(errOp("add_relation"), "failed to insert relation", err)
	}
	return nil
}

func (g *SoyGraph) RemoveRelation(ctx context.Context, from, to string, relType RelationType) error {
	if _, err := g.relations.Remove().
		Where("from_concept", "=", "from_concept").
		Where("to_concept", "=", "to_concept").
		Where("type", "=", "type").
		Exec(ctx, map[string]any{"from_concept": from, "to_concept": to, "type": relType}); err != nil {
		return noetic.Internal(errOp("remove_relation"), "failed to remove relation", err)
	}
	if _, err := g.relations.Remove().
		Where("from_concept", "=", "from_concept").
		Where("to_concept", "=", "to_concept").
		Where("type", "=", "type").
		Exec(ctx, map[string]any{"from_concept": to, "to_concept": from, "type": relType.inverse()}); err != nil {
		return noetic.Internal(errOp("remove_relation"), "failed to remove inverse relation", err)
	}
	return nil
}

// reachable reports whether target is reachable from start by following
// direction edges within maxDepth hops — used both by AddRelation's
// cycle check and by Expand.
func (g *SoyGraph) reachable(ctx context.Context, start string, direction RelationType, maxDepth int, target string) (bool, error) {
	visited := map[string]bool{start: true}
	frontier := []string{start}
	for depth := 0; depth < maxDepth && len(frontier) > 0; depth++ {
		var next []string
		for _, id := range frontier {
			rows, err := g.relations.Query().
				Where("from_concept", "=", "from_concept").
				Where("type", "=", "type").
				Exec(ctx, map[string]any{"from_concept": id, "type": direction})
			if err != nil {
				return false, noetic.Internal(errOp("expand"), "failed to traverse relations", err)
			}
			for _, r := range rows {
				if r.To == target {
					return true, nil
				}
				if !visited[r.To] {
					visited[r.To] = true
					next = append(next, r.To)
				}
			}
		}
		frontier = next
	}
	return false, nil
}

func (g *SoyGraph) SearchConcepts(ctx context.Context, query string, filter SearchFilter) ([]ConceptMatch, error) {
	rows, err := g.labels.Query().Exec(ctx, map[string]any{})
	if err != nil {
		return nil, noetic.Internal(errOp("search_concepts"), "failed to list labels", err)
	}

	var matches []ConceptMatch
	prefByConcept := map[string]string{}
	schemeByConcept := map[string]string{}

	for _, l := range rows {
		score := FuzzyScore(query, l.Label)
		if score < FuzzyThreshold {
			continue
		}
		concept, err := g.concepts.Select().Where("id", "=", "id").Exec(ctx, map[string]any{"id": l.ConceptID})
		if err != nil {
			continue
		}
		if filter.SchemeID != "" && concept.SchemeID != filter.SchemeID {
			continue
		}
		if filter.Status != "" && concept.Status != filter.Status {
			continue
		}
		schemeByConcept[l.ConceptID] = concept.SchemeID
		if l.LabelType == LabelPreferred {
			prefByConcept[l.ConceptID] = l.Label
		}
		matches = append(matches, ConceptMatch{
			ConceptID: l.ConceptID, SchemeID: concept.SchemeID, Label: l.Label, LabelType: l.LabelType,
		})
	}

	for i := range matches {
		if pref, ok := prefByConcept[matches[i].ConceptID]; ok {
			matches[i].PrefLabel = pref
		}
	}

	sort.SliceStable(matches, func(i, j int) bool {
		a, b := matches[i], matches[j]
		if a.LabelType.rank() != b.LabelType.rank() {
			return a.LabelType.rank() < b.LabelType.rank()
		}
		if a.SchemeID != b.SchemeID {
			return a.SchemeID < b.SchemeID
		}
		return strings.ToLower(a.PrefLabel) < strings.ToLower(b.PrefLabel)
	})

	return matches, nil
}

func (g *SoyGraph) Expand(ctx context.Context, conceptID string, direction RelationType, maxDepth int) ([]string, error) {
	if maxDepth <= 0 {
		maxDepth = 10
	}

	visited := map[string]bool{conceptID: true}
	var order []string
	frontier := []string{conceptID}

	for depth := 0; depth < maxDepth && len(frontier) > 0; depth++ {
		var next []string
		for _, id := range frontier {
			rows, err := g.relations.Query().
				Where("from_concept", "=", "from_concept").
				Where("type", "=", "type").
				Exec(ctx, map[string]any{"from_concept": id, "type": direction})
			if err != nil {
				return nil, noetic.Internal(errOp("expand"), "failed to traverse relations", err)
			}
			for _, r := range rows {
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

func (g *SoyGraph) TagNote(ctx context.Context, tagText string) (*TagResult, error) {
	rows, err := g.labels.Query().Exec(ctx, map[string]any{})
	if err != nil {
		return nil, noetic.Internal(errOp("tag_note"), "failed to list labels", err)
	}

	normalized := strings.ToLower(strings.TrimSpace(tagText))
	var suggestions []ConceptMatch
	for _, l := range rows {
		if strings.ToLower(l.Label) == normalized {
			return &TagResult{Outcome: TagAssigned, ConceptID: l.ConceptID}, nil
		}
		if score := FuzzyScore(tagText, l.Label); score >= FuzzyThreshold {
			concept, err := g.concepts.Select().Where("id", "=", "id").Exec(ctx, map[string]any{"id": l.ConceptID})
			if err != nil {
				continue
			}
			suggestions = append(suggestions, ConceptMatch{
				ConceptID: l.ConceptID, SchemeID: concept.SchemeID, Label: l.Label, LabelType: l.LabelType,
			})
		}
	}

	if len(suggestions) > 0 {
		return &TagResult{Outcome: TagSuggested, Suggested: suggestions}, nil
	}
	return &TagResult{Outcome: TagUnknown}, nil
}

var _ Graph = (*SoyGraph)(nil)
