package archive

import "time"

// LinkKind enumerates how two notes are connected.
type LinkKind string

const (
	LinkExplicit        LinkKind = "explicit"
	LinkSemantic        LinkKind = "semantic"
	LinkBacklinkDerived LinkKind = "backlink-derived"
)

// Link is a directed edge between two notes. Semantic links carry a
// similarity Score and only materialize at or above the configured
// threshold (default 0.70). Self-loops are rejected by the Store at
// insert time.
type Link struct {
	ID        string    `db:"id" type:"uuid" constraints:"primarykey"`
	FromNote  string    `db:"from_note" type:"uuid" constraints:"notnull" references:"notes(id)"`
	ToNote    string    `db:"to_note" type:"uuid" constraints:"notnull" references:"notes(id)"`
	Kind      LinkKind  `db:"kind" type:"text" constraints:"notnull"`
	Score     *float64  `db:"score" type:"real"`
	CreatedAt time.Time `db:"created_at" type:"timestamp" constraints:"notnull"`
}

// Collection is a node in the hierarchical grouping tree of notes.
type Collection struct {
	ID          string  `db:"id" type:"uuid" constraints:"primarykey"`
	ParentID    *string `db:"parent_id" type:"uuid" references:"collections(id)"`
	Name        string  `db:"name" type:"text" constraints:"notnull"`
	Description string  `db:"description" type:"text"`
}

// Template is a parameterized note skeleton. Content may reference
// {{var}} placeholders a caller substitutes when instantiating a note.
type Template struct {
	ID          string   `db:"id" type:"uuid" constraints:"primarykey"`
	Name        string   `db:"name" type:"text" constraints:"notnull,unique"`
	Content     string   `db:"content" type:"text" constraints:"notnull"`
	Description string   `db:"description" type:"text"`
	DefaultTags []string `db:"default_tags" type:"jsonb" default:"'[]'"`
}

// Tag is a simple legacy string association between a note and freeform
// text, distinct from the structured SKOS ConceptAssociation.
type Tag struct {
	NoteID string `db:"note_id" type:"uuid" constraints:"notnull" references:"notes(id)"`
	Text   string `db:"text" type:"text" constraints:"notnull"`
}

// ConceptAssociation links a note to a SKOS concept (defined in package
// skos; referenced here only by ID to avoid an import cycle, since skos
// itself has no need to know about notes). Confidence is 1.0 for a
// user-assigned association, <1.0 for an AI-suggested one.
type ConceptAssociation struct {
	NoteID     string  `db:"note_id" type:"uuid" constraints:"notnull" references:"notes(id)"`
	ConceptID  string  `db:"concept_id" type:"uuid" constraints:"notnull"`
	Confidence float64 `db:"confidence" type:"real" constraints:"notnull" default:"1.0"`
}

// ActivityLog is the provenance and audit trail, W3C PROV-aligned.
// Written only on committed transactions.
type ActivityLog struct {
	ID                 string            `db:"id" type:"uuid" constraints:"primarykey"`
	AtUTC              time.Time         `db:"at_utc" type:"timestamp" constraints:"notnull"`
	Actor              string            `db:"actor" type:"text" constraints:"notnull"`
	Action             string            `db:"action" type:"text" constraints:"notnull"`
	NoteID             *string           `db:"note_id" type:"uuid" references:"notes(id)"`
	ProvActivityID     *string           `db:"prov_activity_id" type:"uuid"`
	GeneratedEntityID  *string           `db:"generated_entity_id" type:"uuid"`
	GeneratedEntityType *string          `db:"generated_entity_type" type:"text"`
	Meta               map[string]string `db:"meta" type:"jsonb" default:"'{}'"`
}
