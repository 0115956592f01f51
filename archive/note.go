package archive

import "time"

// Note is the root entity of the System. It carries identity, lifecycle
// timestamps, a format hint, provenance (source), soft-delete state, an
// optional collection reference, and open metadata — but never content
// directly: content lives in NoteOriginal and the NoteRevision history,
// tagged the way cogito tags Thought/Note for soy (db, type, constraints,
// references, default).
type Note struct {
	ID        string            `db:"id" type:"uuid" constraints:"primarykey"`
	CreatedAt time.Time         `db:"created_at" type:"timestamp" constraints:"notnull"`
	UpdatedAt time.Time         `db:"updated_at" type:"timestamp" constraints:"notnull"`

	// Format is a hint for renderers, e.g. "markdown", "rust", "sql".
	Format string `db:"format" type:"text" constraints:"notnull" default:"'markdown'"`

	// Source records provenance: "user", "import", "self-index".
	Source string `db:"source" type:"text" constraints:"notnull" default:"'user'"`

	// DeletedAt is set by SoftDelete and cleared by Restore. A non-nil
	// value makes the note invisible to GetNote unless include_deleted.
	DeletedAt *time.Time `db:"deleted_at" type:"timestamp"`

	// CollectionID is the note's single optional collection membership.
	CollectionID *string `db:"collection_id" type:"uuid" references:"collections(id)"`

	// Metadata is an open, semantically-opaque map at the edges; anything
	// meaningful to the System itself (provenance, context notes,
	// iteration history) gets its own typed table instead of living in
	// this loosely-typed bag.
	Metadata map[string]string `db:"metadata" type:"jsonb" default:"'{}'"`

	Starred  bool `db:"starred" type:"boolean" constraints:"notnull" default:"false"`
	Archived bool `db:"archived" type:"boolean" constraints:"notnull" default:"false"`
}

// IsDeleted reports whether the note is currently soft-deleted.
func (n Note) IsDeleted() bool {
	return n.DeletedAt != nil
}

// NoteOriginal is the immutable-until-explicit-edit user-authored content
// for a note. One row per note. Content hash lets write paths detect a
// no-op update: a unique-violation on hash is swallowed as a no-op
// rather than surfaced as an error.
type NoteOriginal struct {
	NoteID      string    `db:"note_id" type:"uuid" constraints:"primarykey" references:"notes(id)"`
	Content     string    `db:"content" type:"text" constraints:"notnull"`
	ContentHash string    `db:"content_hash" type:"text" constraints:"notnull"`
	UpdatedAt   time.Time `db:"updated_at" type:"timestamp" constraints:"notnull"`
}

// RevisionAgent identifies who or what generated a NoteRevision.
// "user" for human edits; "ollama:<model>" (or any "<provider>:<model>"
// string) for AI-generated revisions.
type RevisionAgent string

// AgentUser is the sentinel RevisionAgent for human-authored revisions.
const AgentUser RevisionAgent = "user"

// IsAI reports whether the revision was produced by something other than
// the user — the condition under which NoteRevisionContext rows exist at
// all.
func (a RevisionAgent) IsAI() bool {
	return a != AgentUser
}

// NoteRevision is one entry in a note's append-only revision log.
// Ordinal starts at 1 for the initial revision created alongside the
// note. The current-revised pointer (CurrentRevision) always references
// the highest Number for a live note.
type NoteRevision struct {
	ID        string        `db:"id" type:"uuid" constraints:"primarykey"`
	NoteID    string        `db:"note_id" type:"uuid" constraints:"notnull" references:"notes(id)"`
	Number    int           `db:"number" type:"integer" constraints:"notnull"`
	Content   string        `db:"content" type:"text" constraints:"notnull"`
	Rationale *string       `db:"rationale" type:"text"`
	Agent     RevisionAgent `db:"agent" type:"text" constraints:"notnull" default:"'user'"`
	CreatedAt time.Time     `db:"created_at" type:"timestamp" constraints:"notnull"`
}

// CurrentRevision is the per-note O(1) pointer to the latest revision's
// content, kept in its own row (rather than recomputed by MAX(number))
// so readers never pay a scan to render a note.
type CurrentRevision struct {
	NoteID     string `db:"note_id" type:"uuid" constraints:"primarykey" references:"notes(id)"`
	RevisionID string `db:"revision_id" type:"uuid" constraints:"notnull" references:"note_revisions(id)"`
}

// ContextRole classifies how a context note related to an AI-generated
// revision's prompt.
type ContextRole string

const (
	RoleContext      ContextRole = "context"
	RoleCitation     ContextRole = "citation"
	RoleContradiction ContextRole = "contradiction"
)

// NoteRevisionContext records one note used in the LLM prompt's context
// window for an AI-generated revision, with its retrieval similarity
// score. Store.UpdateRevised writes the revision and its context rows in
// one call, as separate writes rather than one transaction.
type NoteRevisionContext struct {
	RevisionID    string      `db:"revision_id" type:"uuid" constraints:"notnull" references:"note_revisions(id)"`
	ContextNoteID string      `db:"context_note_id" type:"uuid" constraints:"notnull" references:"notes(id)"`
	Similarity    float64     `db:"similarity" type:"real" constraints:"notnull"`
	Role          ContextRole `db:"role" type:"text" constraints:"notnull" default:"'context'"`
}
