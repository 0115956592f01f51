package archive

import "time"

// ChunkingStrategy enumerates the recognized ways an EmbeddingConfig may
// split note content into chunks before embedding.
type ChunkingStrategy string

const (
	ChunkSemantic  ChunkingStrategy = "semantic"
	ChunkSyntactic ChunkingStrategy = "syntactic"
	ChunkFixed     ChunkingStrategy = "fixed"
	ChunkHybrid    ChunkingStrategy = "hybrid"
	ChunkPerSection ChunkingStrategy = "per_section"
	ChunkPerUnit   ChunkingStrategy = "per_unit"
	ChunkWhole     ChunkingStrategy = "whole"
)

// EmbeddingConfig names one recognized embedding model configuration.
// Exactly one row has IsDefault set.
type EmbeddingConfig struct {
	ID               string           `db:"id" type:"uuid" constraints:"primarykey"`
	Slug             string           `db:"slug" type:"text" constraints:"notnull,unique"`
	ModelName        string           `db:"model_name" type:"text" constraints:"notnull"`
	Dimensions       int              `db:"dimensions" type:"integer" constraints:"notnull"`
	TruncateDim      *int             `db:"truncate_dim" type:"integer"`
	ChunkingStrategy ChunkingStrategy `db:"chunking_strategy" type:"text" constraints:"notnull" default:"'semantic'"`
	MaxChunkSize     int              `db:"max_chunk_size" type:"integer" constraints:"notnull"`
	ChunkOverlap     int              `db:"chunk_overlap" type:"integer" constraints:"notnull"`
	IsDefault        bool             `db:"is_default" type:"boolean" constraints:"notnull" default:"false"`
}

// EffectiveDimensions returns TruncateDim if set (Matryoshka-style
// truncation), else the model's native Dimensions.
func (c EmbeddingConfig) EffectiveDimensions() int {
	if c.TruncateDim != nil {
		return *c.TruncateDim
	}
	return c.Dimensions
}

// Embedding is one dense vector for a (note, chunk, embedding config)
// triple. ChunkHash is the hash of the chunk text at embedding time, used
// to detect staleness: re-embedding the same content with the same config
// is a no-op at the chunk level.
type Embedding struct {
	NoteID          string    `db:"note_id" type:"uuid" constraints:"notnull" references:"notes(id)"`
	ChunkIndex      int       `db:"chunk_index" type:"integer" constraints:"notnull"`
	EmbeddingConfigID string  `db:"embedding_config_id" type:"uuid" constraints:"notnull" references:"embedding_configs(id)"`
	Vector          Vector    `db:"vector" type:"vector"`
	ChunkHash       string    `db:"chunk_hash" type:"text" constraints:"notnull"`
	CreatedAt       time.Time `db:"created_at" type:"timestamp" constraints:"notnull"`
}

// EmbeddingSetMode selects how an EmbeddingSet's membership is computed.
type EmbeddingSetMode string

const (
	// SetModeAuto membership is defined by tag/concept criteria and
	// recomputed whenever a note's tags/concepts change.
	SetModeAuto EmbeddingSetMode = "auto"
	// SetModeManual membership is explicit rows in EmbeddingSetMember.
	SetModeManual EmbeddingSetMode = "manual"
)

// EmbeddingSet is a named group of notes that share retrieval isolation.
type EmbeddingSet struct {
	ID       string           `db:"id" type:"uuid" constraints:"primarykey"`
	Name     string           `db:"name" type:"text" constraints:"notnull,unique"`
	Mode     EmbeddingSetMode `db:"mode" type:"text" constraints:"notnull" default:"'manual'"`
	Criteria map[string]string `db:"criteria" type:"jsonb" default:"'{}'"`
}

// EmbeddingSetMember is one explicit membership row for a manual-mode
// EmbeddingSet.
type EmbeddingSetMember struct {
	SetID  string `db:"set_id" type:"uuid" constraints:"notnull" references:"embedding_sets(id)"`
	NoteID string `db:"note_id" type:"uuid" constraints:"notnull" references:"notes(id)"`
}
