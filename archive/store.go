package archive

import (
	"context"
	"regexp"

	"github.com/zoobzio/noetic"
)

// archiveNamePattern is the validation rule for archive names:
// "^[A-Za-z0-9_]+$".
var archiveNamePattern = regexp.MustCompile(`^[A-Za-z0-9_]+$`)

// ValidArchiveName reports whether name satisfies the archive naming
// rule.
func ValidArchiveName(name string) bool {
	return archiveNamePattern.MatchString(name)
}

// DefaultArchive is always available.
const DefaultArchive = "default"

// CreateNoteRequest is the input to Store.CreateNote.
type CreateNoteRequest struct {
	Content      string
	Format       string
	Source       string
	CollectionID *string
	Metadata     map[string]string
	Tags         []string
	ConceptIDs   []string
}

// NoteView is the aggregated read model Store.GetNote returns: the Note
// itself plus its current-revised content and aggregated tags/concepts,
// so callers never need a second round trip to render a note.
type NoteView struct {
	Note           Note
	OriginalContent string
	CurrentContent string
	CurrentRevision int
	Tags           []string
	ConceptIDs     []string
}

// StatusUpdate carries the optional flag changes for Store.UpdateStatus.
type StatusUpdate struct {
	Starred  *bool
	Archived *bool
}

// GetNoteOptions controls Store.GetNote visibility.
type GetNoteOptions struct {
	IncludeDeleted bool
}

// Store is the capability interface every other component (skos, search,
// jobs) depends on for persistence — the Memory-equivalent of cogito's
// cogito.Memory interface, generalized from a single Thought/Note pair
// to the System's fuller note/revision/embedding/link model.
type Store interface {
	// CreateNote assigns a time-ordered id, inserts Note, NoteOriginal,
	// initial NoteRevision (#1), current-revised pointer, optional
	// tag/concept associations, and writes an activity row. The writes
	// are issued one after another, not inside one transaction: a failure
	// part-way through leaves the rows already written in place.
	CreateNote(ctx context.Context, req CreateNoteRequest) (*NoteView, error)

	// GetNote fetches a NoteView. Fails with a NotFound *noetic.Error if
	// absent, or soft-deleted and opts.IncludeDeleted is false.
	GetNote(ctx context.Context, id string, opts GetNoteOptions) (*NoteView, error)

	// ListNotes returns notes matching the given filters, newest first.
	ListNotes(ctx context.Context, filter ListFilter) ([]NoteView, error)

	// UpdateOriginal fails with NotFound (checked before any write — the
	// fix for the bug where the activity-log FK raised an opaque 500
	// instead) when the note does not exist. Recomputes the content hash;
	// does not touch revisions. A hash-identical update is a no-op.
	UpdateOriginal(ctx context.Context, id, content string) error

	// UpdateRevised appends a NoteRevision, updates the current-revised
	// pointer, writes an activity row, and — when agent is not
	// noetic/archive.AgentUser — persists the supplied
	// NoteRevisionContext rows in the same call. These writes are not
	// wrapped in one transaction.
	UpdateRevised(ctx context.Context, id, content string, rationale *string, agent RevisionAgent, contextNotes []NoteRevisionContext) (*NoteRevision, error)

	// UpdateStatus applies the same existence check, then updates only
	// the flags present in upd.
	UpdateStatus(ctx context.Context, id string, upd StatusUpdate) error

	// SoftDelete sets deleted-at. Reversible with Restore.
	SoftDelete(ctx context.Context, id string) error

	// Restore clears deleted-at.
	Restore(ctx context.Context, id string) error

	// Purge permanently removes the note, original, revisions,
	// embeddings, link edges, and concept associations, table by table
	// rather than in one transaction. Absorbing: once it has succeeded,
	// any subsequent operation on id yields NotFound.
	Purge(ctx context.Context, id string) error

	// InsertEmbedding upserts on (note_id, chunk_index, config_id).
	InsertEmbedding(ctx context.Context, e Embedding) error

	// GetEmbeddings returns every chunk embedding for a note under the
	// given config.
	GetEmbeddings(ctx context.Context, noteID, configID string) ([]Embedding, error)

	// GetEmbeddingConfig resolves an EmbeddingConfig by id or slug.
	GetEmbeddingConfig(ctx context.Context, idOrSlug string) (*EmbeddingConfig, error)

	// GetDefaultEmbeddingConfig returns the EmbeddingConfig with IsDefault
	// set. Exactly one exists.
	GetDefaultEmbeddingConfig(ctx context.Context) (*EmbeddingConfig, error)

	// SearchByVector returns up to limit embeddings ordered by ascending
	// distance to query, restricted to the given embedding config and to
	// note ids allowed by the predicate (nil predicate means "all live
	// notes"). Used by the semantic search ranker.
	SearchByVector(ctx context.Context, query Vector, configID string, limit int, allowed func(noteID string) bool) ([]Embedding, error)

	// SearchLexical returns up to limit live notes ranked by a term-overlap
	// score (how many query terms appear in the note's original content),
	// restricted to ids allowed by the predicate. Used by the lexical
	// search ranker as its candidate shortlist; the BM25-like score is
	// computed by the ranker, not here.
	SearchLexical(ctx context.Context, queryText string, limit int, allowed func(noteID string) bool) ([]LexicalHit, error)

	// CreateLink inserts a Link. Rejects self-loops with InvalidInput.
	CreateLink(ctx context.Context, l Link) (*Link, error)

	// GetLinks returns links touching noteID in either direction.
	GetLinks(ctx context.Context, noteID string) ([]Link, error)

	// Collections.
	CreateCollection(ctx context.Context, c Collection) (*Collection, error)
	GetCollection(ctx context.Context, id string) (*Collection, error)

	// Templates.
	CreateTemplate(ctx context.Context, t Template) (*Template, error)
	GetTemplate(ctx context.Context, id string) (*Template, error)

	// AssociateConcept records a concept association for a note with the
	// given confidence (1.0 for user-assigned).
	AssociateConcept(ctx context.Context, noteID, conceptID string, confidence float64) error

	// NoteConceptIDs returns the concept ids currently associated with a
	// note.
	NoteConceptIDs(ctx context.Context, noteID string) ([]string, error)

	// NoteTags returns the legacy tag strings currently associated with a
	// note.
	NoteTags(ctx context.Context, noteID string) ([]string, error)

	// AddTags associates the given tag strings with a note, skipping any
	// already present. Used by the bulk_tag job.
	AddTags(ctx context.Context, noteID string, tags []string) error

	// RemoveTags dissociates the given tag strings from a note. Absent
	// tags are a no-op.
	RemoveTags(ctx context.Context, noteID string, tags []string) error

	// SetCollection moves a note into the given collection, or out of any
	// collection when id is nil. Used by the bulk_move job.
	SetCollection(ctx context.Context, noteID string, collectionID *string) error

	// ListVersions returns the full revision history for a note, oldest
	// first.
	ListVersions(ctx context.Context, noteID string) ([]NoteRevision, error)

	// GetProvenance returns the context rows for a specific revision.
	GetProvenance(ctx context.Context, revisionID string) ([]NoteRevisionContext, error)

	// LogActivity writes one ActivityLog row.
	LogActivity(ctx context.Context, a ActivityLog) error

	// ForSchema returns a handle whose subsequent operations run against
	// the named archive's schema. It creates no tables: the archive's
	// tables must already exist. With create true, SoyStore also emits
	// noetic.ArchiveProvisioned for the name.
	ForSchema(ctx context.Context, archiveName string, create bool) (Store, error)

	// ArchiveName reports which archive this Store handle is scoped to.
	ArchiveName() string
}

// ListFilter narrows ListNotes.
type ListFilter struct {
	Limit          int
	Offset         int
	Tags           []string
	CollectionID   *string
	IncludeDeleted bool
}

// LexicalHit is one result from Store.SearchLexical: a note id plus its
// raw term-overlap score.
type LexicalHit struct {
	NoteID string
	Score  float64
}

// errOp namespaces *noetic.Error Op strings for this package.
func errOp(op string) string { return "archive." + op }

// wrapNotFound builds a NotFound error naming the entity kind and id, so
// every concrete-entity lookup failure reads the same way.
func wrapNotFound(op, kind, id string) *noetic.Error {
	return noetic.NotFound(errOp(op), kind+" "+id+" not found")
}
