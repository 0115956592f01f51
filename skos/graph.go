package skos

import (
	"context"
	"regexp"

	"github.com/zoobzio/noetic"
)

// notationPattern mirrors archive.ValidArchiveName's "URL-safe" intent
// for ConceptScheme.Notation.
var notationPattern = regexp.MustCompile(`^[a-z0-9][a-z0-9-]*$`)

// ValidNotation reports whether notation is a URL-safe scheme notation.
func ValidNotation(notation string) bool {
	return notationPattern.MatchString(notation)
}

// CreateConceptRequest is the input to Graph.CreateConcept.
type CreateConceptRequest struct {
	SchemeID     string
	Notation     string // optional
	Status       ConceptStatus // defaults to StatusCandidate
	FacetType    FacetType     // optional
	PrefLabel    string
	AltLabels    []string
	HiddenLabels []string
	Language     string // defaults to "en"
	BroaderIDs   []string
}

// SearchFilter narrows Graph.SearchConcepts.
type SearchFilter struct {
	SchemeID string        // empty means all schemes
	Status   ConceptStatus // empty means all statuses
}

// Graph is the capability interface for the concept graph — this
// package's equivalent of archive.Store.
type Graph interface {
	// CreateScheme inserts a ConceptScheme. Fails with Conflict if notation
	// is already taken.
	CreateScheme(ctx context.Context, notation, title, description string) (*ConceptScheme, error)

	// DeleteScheme removes a scheme. Refuses with Conflict if any concept
	// still belongs to it — the conservative default where scheme deletion
	// is otherwise ambiguous.
	DeleteScheme(ctx context.Context, schemeID string) error

	// GetScheme fetches a ConceptScheme by id.
	GetScheme(ctx context.Context, schemeID string) (*ConceptScheme, error)

	// GetSchemeByNotation resolves a scheme's unique notation to its
	// ConceptScheme, the lookup search's isolation-filter expansion needs
	// to turn a required_schemes notation list into scheme ids.
	GetSchemeByNotation(ctx context.Context, notation string) (*ConceptScheme, error)

	// CreateConcept inserts a Concept with its required preferred label,
	// optional alternate/hidden labels, and optional broader relations
	// (each producing both broader(new,parent) and narrower(parent,new)).
	CreateConcept(ctx context.Context, req CreateConceptRequest) (*Concept, error)

	// GetConcept fetches a Concept and all its labels.
	GetConcept(ctx context.Context, conceptID string) (*Concept, []ConceptLabel, error)

	// AddLabel attaches an additional label to a concept. Fails with
	// Conflict if LabelType is preferred and a preferred label already
	// exists for (concept, language).
	AddLabel(ctx context.Context, conceptID string, label ConceptLabel) error

	// AddRelation inserts from->to (and the mirrored inverse edge per
	// RelationType.inverse), rejecting self-relations and — for
	// broader/narrower — any relation that would close a cycle.
	AddRelation(ctx context.Context, from, to string, relType RelationType) error

	// RemoveRelation removes from->to and its mirrored inverse.
	RemoveRelation(ctx context.Context, from, to string, relType RelationType) error

	// SearchConcepts returns matches ordered preferred > alternate >
	// hidden, then scheme, then preferred-label alphabetical. Hidden
	// labels are matched but never surfaced as the "matched label" for a
	// preferred/alternate hit on the same concept. filter.Status, when
	// set, restricts matches to concepts in that lifecycle stage.
	SearchConcepts(ctx context.Context, query string, filter SearchFilter) ([]ConceptMatch, error)

	// Expand performs a bounded recursive traversal in direction,
	// returning reachable concept ids with duplicates removed and the
	// origin excluded.
	Expand(ctx context.Context, conceptID string, direction RelationType, maxDepth int) ([]string, error)

	// TagNote resolves tagText against concept labels: an exact
	// case-insensitive match assigns the note to that concept; a fuzzy
	// match without an exact one returns suggestions; no match at all
	// returns TagUnknown. The caller (archive.Store) performs the actual
	// note-concept association on TagAssigned.
	TagNote(ctx context.Context, tagText string) (*TagResult, error)
}

func errOp(op string) string { return "skos." + op }
