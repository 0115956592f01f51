// Package jobs is the System's background job orchestrator: a
// persisted work queue with an optimistic claim protocol, bounded-worker
// execution, cooperative cancellation, and progress reporting, following
// the same row-per-entity, soy-backed storage shape archive and skos use
// for their own entities.
package jobs

import "time"

// Type enumerates the recognized job kinds.
type Type string

const (
	TypeEmbedding              Type = "embedding"
	TypeReEmbedAll             Type = "re_embed_all"
	TypeAIRevision             Type = "ai_revision"
	TypeSemanticLinkDiscovery  Type = "semantic_link_discovery"
	TypePurge                  Type = "purge"
	TypeReprocessNote          Type = "reprocess_note"
	TypeBulkTag                Type = "bulk_tag"
	TypeBulkMove               Type = "bulk_move"
)

// Status enumerates a job's lifecycle states.
type Status string

const (
	StatusPending   Status = "pending"
	StatusRunning   Status = "running"
	StatusSucceeded Status = "succeeded"
	StatusFailed    Status = "failed"
	StatusCancelled Status = "cancelled"
)

// Job is one unit of queued work. Payload is a JSON-encoded, type-specific
// request (EmbeddingPayload, AIRevisionPayload, ...); handlers decode it
// by Type.
type Job struct {
	ID              string    `db:"id" type:"uuid" constraints:"primarykey"`
	Type            Type      `db:"type" type:"text" constraints:"notnull"`
	Status          Status    `db:"status" type:"text" constraints:"notnull" default:"'pending'"`
	Payload         string    `db:"payload" type:"jsonb" constraints:"notnull"`
	Attempts        int       `db:"attempts" type:"integer" constraints:"notnull" default:"0"`
	MaxAttempts     int       `db:"max_attempts" type:"integer" constraints:"notnull"`
	Progress        int       `db:"progress" type:"integer" constraints:"notnull" default:"0"`
	ProgressMessage string    `db:"progress_message" type:"text"`
	LastError       string    `db:"last_error" type:"text"`
	CancelRequested bool      `db:"cancel_requested" type:"boolean" constraints:"notnull" default:"false"`
	CreatedAt       time.Time `db:"created_at" type:"timestamp" constraints:"notnull"`
	UpdatedAt       time.Time `db:"updated_at" type:"timestamp" constraints:"notnull"`
	NextAttemptAt   time.Time `db:"next_attempt_at" type:"timestamp" constraints:"notnull"`
}

// Stats is the orchestrator-wide per-status job count Queue.Stats
// returns, for observability.
type Stats struct {
	Pending   int
	Running   int
	Succeeded int
	Failed    int
	Cancelled int
}

// EmbeddingPayload is the Job.Payload shape for TypeEmbedding.
type EmbeddingPayload struct {
	NoteID          string `json:"note_id"`
	EmbeddingConfig string `json:"embedding_config"`
}

// ReEmbedAllPayload is the Job.Payload shape for TypeReEmbedAll.
type ReEmbedAllPayload struct {
	EmbeddingConfig string `json:"embedding_config"`
	Force           bool   `json:"force"`
}

// ReEmbedAllResult is the outcome TypeReEmbedAll reports.
type ReEmbedAllResult struct {
	NotesQueued int `json:"notes_queued"`
	NotesFailed int `json:"notes_failed"`
	TotalNotes  int `json:"total_notes"`
}

// RevisionMode selects how deeply the ai_revision job engages the LLM.
type RevisionMode string

const (
	RevisionFull  RevisionMode = "full"
	RevisionLight RevisionMode = "light"
	RevisionNone  RevisionMode = "none"
)

// SelfRefineOptions configures the ai_revision job's iterate-until-good
// loop, modeled on cogito's Amplify primitive.
type SelfRefineOptions struct {
	Enabled       bool    `json:"enabled"`
	MaxIterations int     `json:"max_iterations"` // 0 means Config.MaxRevisionIterations
	Threshold     float64 `json:"threshold"`       // 0 means the default of 8.0 on the 0-10 quality scale
}

// AIRevisionPayload is the Job.Payload shape for TypeAIRevision. Model
// selects the generation model by name; empty means DefaultGenerationModel.
type AIRevisionPayload struct {
	NoteID       string             `json:"note_id"`
	RevisionMode RevisionMode       `json:"revision_mode"`
	Model        string             `json:"model,omitempty"`
	SelfRefine   *SelfRefineOptions `json:"self_refine,omitempty"`
}

// DefaultGenerationModel is used when a payload leaves Model unset.
const DefaultGenerationModel = "default"

// SemanticLinkDiscoveryPayload is the Job.Payload shape for
// TypeSemanticLinkDiscovery.
type SemanticLinkDiscoveryPayload struct {
	NoteID          string `json:"note_id"`
	EmbeddingConfig string `json:"embedding_config"`
}

// PurgePayload is the Job.Payload shape for TypePurge.
type PurgePayload struct {
	NoteID string `json:"note_id"`
}

// ReprocessNotePayload is the Job.Payload shape for TypeReprocessNote.
type ReprocessNotePayload struct {
	NoteID          string `json:"note_id"`
	EmbeddingConfig string `json:"embedding_config"`
}

// BulkTagPayload is the Job.Payload shape for TypeBulkTag.
type BulkTagPayload struct {
	NoteIDs []string `json:"note_ids"`
	AddTags []string `json:"add_tags"`
	RemoveTags []string `json:"remove_tags"`
}

// BulkMovePayload is the Job.Payload shape for TypeBulkMove.
type BulkMovePayload struct {
	NoteIDs      []string `json:"note_ids"`
	CollectionID *string  `json:"collection_id"`
}

// BulkResult is the best-effort outcome bulk_tag/bulk_move report.
type BulkResult struct {
	Succeeded []string          `json:"succeeded"`
	Failed    map[string]string `json:"failed"` // note id -> error message
}
