package archive

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/zoobzio/astql/postgres"
	"github.com/zoobzio/capitan"
	"github.com/zoobzio/noetic"
	"github.com/zoobzio/soy"
)

// SoyStore implements Store using soy for persistence, the same shape as
// cogito's SoyMemory: one soy.Soy[T] per table, CRUD expressed as
// query-builder chains over sqlx. Archive isolation is modeled by
// prefixing every table name with the archive name (ForSchema returns a
// SoyStore whose soy.Soy[T] handles were constructed against
// "<archive>_notes" etc.), since soy maps one Go type to one concrete
// table name rather than a schema-qualified one.
type SoyStore struct {
	archive string

	notes            *soy.Soy[Note]
	originals        *soy.Soy[NoteOriginal]
	revisions        *soy.Soy[NoteRevision]
	currentRevisions *soy.Soy[CurrentRevision]
	contexts         *soy.Soy[NoteRevisionContext]
	embeddings       *soy.Soy[Embedding]
	embeddingConfigs *soy.Soy[EmbeddingConfig]
	links            *soy.Soy[Link]
	collections      *soy.Soy[Collection]
	templates        *soy.Soy[Template]
	tags             *soy.Soy[Tag]
	concepts         *soy.Soy[ConceptAssociation]
	activity         *soy.Soy[ActivityLog]

	db *sqlx.DB
}

// NewSoyStore creates a Store backed by soy against the default archive.
func NewSoyStore(db *sqlx.DB) (*SoyStore, error) {
	return newSoyStoreForArchive(db, DefaultArchive)
}

func newSoyStoreForArchive(db *sqlx.DB, archiveName string) (*SoyStore, error) {
	renderer := postgres.New()
	prefix := archiveName + "_"

	mk := func(name string) string { return prefix + name }

	notes, err := soy.New[Note](db, mk("notes"), renderer)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize notes table: %w", err)
	}
	originals, err := soy.New[NoteOriginal](db, mk("note_originals"), renderer)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize note_originals table: %w", err)
	}
	revisions, err := soy.New[NoteRevision](db, mk("note_revisions"), renderer)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize note_revisions table: %w", err)
	}
	currentRevisions, err := soy.New[CurrentRevision](db, mk("current_revisions"), renderer)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize current_revisions table: %w", err)
	}
	contexts, err := soy.New[NoteRevisionContext](db, mk("note_revision_contexts"), renderer)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize note_revision_contexts table: %w", err)
	}
	embeddings, err := soy.New[Embedding](db, mk("embeddings"), renderer)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize embeddings table: %w", err)
	}
	embeddingConfigs, err := soy.New[EmbeddingConfig](db, mk("embedding_configs"), renderer)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize embedding_configs table: %w", err)
	}
	links, err := soy.New[Link](db, mk("links"), renderer)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize links table: %w", err)
	}
	collections, err := soy.New[Collection](db, mk("collections"), renderer)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize collections table: %w", err)
	}
	templates, err := soy.New[Template](db, mk("templates"), renderer)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize templates table: %w", err)
	}
	tags, err := soy.New[Tag](db, mk("tags"), renderer)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize tags table: %w", err)
	}
	concepts, err := soy.New[ConceptAssociation](db, mk("concept_associations"), renderer)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize concept_associations table: %w", err)
	}
	activity, err := soy.New[ActivityLog](db, mk("activity_log"), renderer)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize activity_log table: %w", err)
	}

	return &SoyStore{
		archive:          archiveName,
		notes:            notes,
		originals:        originals,
		revisions:        revisions,
		currentRevisions: currentRevisions,
		contexts:         contexts,
		embeddings:       embeddings,
		embeddingConfigs: embeddingConfigs,
		links:            links,
		collections:      collections,
		templates:        templates,
		tags:             tags,
		concepts:         concepts,
		activity:         activity,
		db:               db,
	}, nil
}

// ArchiveName reports which archive this Store handle is scoped to.
func (s *SoyStore) ArchiveName() string { return s.archive }

// ForSchema returns a handle whose subsequent operations run against the
// named archive's schema. Names must match ^[A-Za-z0-9_]+$; creating a
// new archive provisions the full schema
// (here: constructs the soy.Soy[T] handles for its prefixed tables — the
// underlying CREATE TABLE statements are issued by a migration runner,
// which is this package's caller, not Store itself).
func (s *SoyStore) ForSchema(_ context.Context, archiveName string, create bool) (Store, error) {
	if !ValidArchiveName(archiveName) {
		return nil, noetic.InvalidInput(errOp("for_schema"), "invalid archive name: "+archiveName)
	}
	scoped, err := newSoyStoreForArchive(s.db, archiveName)
	if err != nil {
		return nil, noetic.Internal(errOp("for_schema"), "failed to provision archive handle", err)
	}
	if create {
		capitan.Emit(context.Background(), noetic.ArchiveProvisioned,
			noetic.FieldArchive.Field(archiveName),
		)
	}
	return scoped, nil
}

func hashContent(content string) string {
	sum := sha256.Sum256([]byte(content))
	return hex.EncodeToString(sum[:])
}

// CreateNote assigns a time-ordered id, inserts Note, NoteOriginal,
// initial NoteRevision (#1), current-revised pointer, optional
// tag/concept associations, and writes an activity row. soy exposes no
// cross-table transaction primitive beyond per-call atomicity, so the
// writes are sequenced the way SoyMemory.DeleteThought sequences its two
// dependent soy calls rather than wrapped in an explicit BEGIN/COMMIT.
func (s *SoyStore) CreateNote(ctx context.Context, req CreateNoteRequest) (*NoteView, error) {
	now := time.Now()
	id := noetic.NewID()

	format := req.Format
	if format == "" {
		format = "markdown"
	}
	source := req.Source
	if source == "" {
		source = "user"
	}
	metadata := req.Metadata
	if metadata == nil {
		metadata = map[string]string{}
	}

	note := &Note{
		ID:        id,
		CreatedAt: now,
		UpdatedAt: now,
		Format:    format,
		Source:    source,
		Metadata:  metadata,
	}
	if _, err := s.notes.Insert().Exec(ctx, note); err != nil {
		return nil, noetic.Internal(errOp("create_note"), "failed to insert note", err)
	}

	original := &NoteOriginal{
		NoteID:      id,
		Content:     req.Content,
		ContentHash: hashContent(req.Content),
		UpdatedAt:   now,
	}
	if _, err := s.originals.Insert().Exec(ctx, original); err != nil {
		return nil, noetic.Internal(errOp("create_note"), "failed to insert original", err)
	}

	revisionID := noetic.NewID()
	revision := &NoteRevision{
		ID:        revisionID,
		NoteID:    id,
		Number:    1,
		Content:   req.Content,
		Agent:     AgentUser,
		CreatedAt: now,
	}
	if _, err := s.revisions.Insert().Exec(ctx, revision); err != nil {
		return nil, noetic.Internal(errOp("create_note"), "failed to insert initial revision", err)
	}

	pointer := &CurrentRevision{NoteID: id, RevisionID: revisionID}
	if _, err := s.currentRevisions.Insert().Exec(ctx, pointer); err != nil {
		return nil, noetic.Internal(errOp("create_note"), "failed to insert current-revision pointer", err)
	}

	for _, tag := range req.Tags {
		t := &Tag{NoteID: id, Text: tag}
		if _, err := s.tags.Insert().Exec(ctx, t); err != nil {
			return nil, noetic.Internal(errOp("create_note"), "failed to insert tag", err)
		}
	}
	for _, conceptID := range req.ConceptIDs {
		if err := s.AssociateConcept(ctx, id, conceptID, 1.0); err != nil {
			return nil, err
		}
	}

	if err := s.LogActivity(ctx, ActivityLog{
		ID:     noetic.NewID(),
		AtUTC:  now,
		Actor:  source,
		Action: "note.created",
		NoteID: &id,
	}); err != nil {
		return nil, err
	}

	capitan.Emit(ctx, noetic.NoteCreated,
		noetic.FieldNoteID.Field(id),
		noetic.FieldArchive.Field(s.archive),
	)

	return &NoteView{
		Note:            *note,
		OriginalContent: req.Content,
		CurrentContent:  req.Content,
		CurrentRevision: 1,
		Tags:            req.Tags,
		ConceptIDs:      req.ConceptIDs,
	}, nil
}

// GetNote fetches a NoteView, hydrating current content from the
// current-revision pointer and aggregating tags/concepts, the same
// "fetch row then hydrate" shape as SoyMemory.GetThought.
func (s *SoyStore) GetNote(ctx context.Context, id string, opts GetNoteOptions) (*NoteView, error) {
	note, err := s.notes.Select().Where("id", "=", "id").Exec(ctx, map[string]any{"id": id})
	if err != nil {
		return nil, wrapNotFound("get_note", "Note", id)
	}
	if note.IsDeleted() && !opts.IncludeDeleted {
		return nil, wrapNotFound("get_note", "Note", id)
	}

	original, err := s.originals.Select().Where("note_id", "=", "note_id").Exec(ctx, map[string]any{"note_id": id})
	if err != nil {
		return nil, noetic.Internal(errOp("get_note"), "failed to load original", err)
	}

	pointer, err := s.currentRevisions.Select().Where("note_id", "=", "note_id").Exec(ctx, map[string]any{"note_id": id})
	if err != nil {
		return nil, noetic.Internal(errOp("get_note"), "failed to load current-revision pointer", err)
	}
	revision, err := s.revisions.Select().Where("id", "=", "id").Exec(ctx, map[string]any{"id": pointer.RevisionID})
	if err != nil {
		return nil, noetic.Internal(errOp("get_note"), "failed to load current revision", err)
	}

	tags, err := s.NoteTags(ctx, id)
	if err != nil {
		return nil, err
	}
	conceptIDs, err := s.NoteConceptIDs(ctx, id)
	if err != nil {
		return nil, err
	}

	return &NoteView{
		Note:            *note,
		OriginalContent: original.Content,
		CurrentContent:  revision.Content,
		CurrentRevision: revision.Number,
		Tags:            tags,
		ConceptIDs:      conceptIDs,
	}, nil
}

// ListNotes returns notes matching filter, newest first.
//
// soy's query builder has no Offset method (nothing in the corpus this
// store is grounded on calls one), so the offset is applied in Go: the
// query reads notes ordered by created_at with no row cap, and the loop
// skips the first filter.Offset notes that survive the post-filters
// below, then stops once limit views are collected. Pagination stays
// correct as long as callers page forward without the underlying set
// reordering mid-walk.
func (s *SoyStore) ListNotes(ctx context.Context, filter ListFilter) ([]NoteView, error) {
	limit := filter.Limit
	if limit <= 0 {
		limit = 50
	}

	q := s.notes.Query().OrderBy("created_at", "desc")
	if filter.CollectionID != nil {
		q = q.Where("collection_id", "=", "collection_id")
	}
	args := map[string]any{}
	if filter.CollectionID != nil {
		args["collection_id"] = *filter.CollectionID
	}

	notes, err := q.Exec(ctx, args)
	if err != nil {
		return nil, noetic.Internal(errOp("list_notes"), "failed to list notes", err)
	}

	views := make([]NoteView, 0, limit)
	skipped := 0
	for _, n := range notes {
		if n.IsDeleted() && !filter.IncludeDeleted {
			continue
		}
		view, err := s.GetNote(ctx, n.ID, GetNoteOptions{IncludeDeleted: filter.IncludeDeleted})
		if err != nil {
			continue
		}
		if len(filter.Tags) > 0 && !containsAll(view.Tags, filter.Tags) {
			continue
		}
		if skipped < filter.Offset {
			skipped++
			continue
		}
		views = append(views, *view)
		if len(views) >= limit {
			break
		}
	}
	return views, nil
}

func containsAll(have, want []string) bool {
	set := make(map[string]struct{}, len(have))
	for _, h := range have {
		set[h] = struct{}{}
	}
	for _, w := range want {
		if _, ok := set[w]; !ok {
			return false
		}
	}
	return true
}

// UpdateOriginal checks existence before any write, avoiding an opaque
// 500 from an activity-log foreign key violation on a note that never
// existed, recomputes the content hash, and swallows a hash-identical
// update as a no-op rather than writing a redundant row.
func (s *SoyStore) UpdateOriginal(ctx context.Context, id, content string) error {
	if _, err := s.notes.Select().Where("id", "=", "id").Exec(ctx, map[string]any{"id": id}); err != nil {
		return wrapNotFound("update_original", "Note", id)
	}

	hash := hashContent(content)
	existing, err := s.originals.Select().Where("note_id", "=", "note_id").Exec(ctx, map[string]any{"note_id": id})
	if err == nil && existing.ContentHash == hash {
		return nil // unique-violation-on-hash equivalent: no-op
	}

	_, err = s.originals.Modify().
		Set("content", "content").
		Set("content_hash", "content_hash").
		Set("updated_at", "updated_at").
		Where("note_id", "=", "note_id").
		Exec(ctx, map[string]any{
			"content":      content,
			"content_hash": hash,
			"updated_at":   time.Now(),
			"note_id":      id,
		})
	if err != nil {
		return noetic.Internal(errOp("update_original"), "failed to update original", err)
	}

	capitan.Emit(ctx, noetic.NoteOriginalUpdated, noetic.FieldNoteID.Field(id))
	return nil
}

// UpdateRevised appends a NoteRevision, updates the current-revised
// pointer, writes an activity row, and — when agent is AI-generated —
// persists NoteRevisionContext rows in the same logical unit of work.
func (s *SoyStore) UpdateRevised(ctx context.Context, id, content string, rationale *string, agent RevisionAgent, contextNotes []NoteRevisionContext) (*NoteRevision, error) {
	if _, err := s.notes.Select().Where("id", "=", "id").Exec(ctx, map[string]any{"id": id}); err != nil {
		return nil, wrapNotFound("update_revised", "Note", id)
	}

	existing, err := s.revisions.Query().Where("note_id", "=", "note_id").OrderBy("number", "desc").Limit(1).
		Exec(ctx, map[string]any{"note_id": id})
	if err != nil {
		return nil, noetic.Internal(errOp("update_revised"), "failed to load revision history", err)
	}
	nextNumber := 1
	if len(existing) > 0 {
		nextNumber = existing[0].Number + 1
	}

	revisionID := noetic.NewID()
	revision := &NoteRevision{
		ID:        revisionID,
		NoteID:    id,
		Number:    nextNumber,
		Content:   content,
		Rationale: rationale,
		Agent:     agent,
		CreatedAt: time.Now(),
	}
	if _, err := s.revisions.Insert().Exec(ctx, revision); err != nil {
		return nil, noetic.Internal(errOp("update_revised"), "failed to insert revision", err)
	}

	_, err = s.currentRevisions.Modify().
		Set("revision_id", "revision_id").
		Where("note_id", "=", "note_id").
		Exec(ctx, map[string]any{"revision_id": revisionID, "note_id": id})
	if err != nil {
		return nil, noetic.Internal(errOp("update_revised"), "failed to update current-revision pointer", err)
	}

	if agent.IsAI() {
		for _, c := range contextNotes {
			c.RevisionID = revisionID
			if c.Role == "" {
				c.Role = RoleContext
			}
			if _, err := s.contexts.Insert().Exec(ctx, &c); err != nil {
				return nil, noetic.Internal(errOp("update_revised"), "failed to insert revision context", err)
			}
		}
	}

	if err := s.LogActivity(ctx, ActivityLog{
		ID:     noetic.NewID(),
		AtUTC:  time.Now(),
		Actor:  string(agent),
		Action: "note.revised",
		NoteID: &id,
	}); err != nil {
		return nil, err
	}

	capitan.Emit(ctx, noetic.NoteRevisionAppended,
		noetic.FieldNoteID.Field(id),
		noetic.FieldRevisionNum.Field(nextNumber),
		noetic.FieldAgent.Field(string(agent)),
	)

	return revision, nil
}

// UpdateStatus applies the existence check, then updates only the flags
// present in upd.
func (s *SoyStore) UpdateStatus(ctx context.Context, id string, upd StatusUpdate) error {
	if _, err := s.notes.Select().Where("id", "=", "id").Exec(ctx, map[string]any{"id": id}); err != nil {
		return wrapNotFound("update_status", "Note", id)
	}

	m := s.notes.Modify().Where("id", "=", "id")
	args := map[string]any{"id": id, "updated_at": time.Now()}
	m = m.Set("updated_at", "updated_at")
	if upd.Starred != nil {
		m = m.Set("starred", "starred")
		args["starred"] = *upd.Starred
	}
	if upd.Archived != nil {
		m = m.Set("archived", "archived")
		args["archived"] = *upd.Archived
	}

	if _, err := m.Exec(ctx, args); err != nil {
		return noetic.Internal(errOp("update_status"), "failed to update status", err)
	}

	capitan.Emit(ctx, noetic.NoteStatusChanged, noetic.FieldNoteID.Field(id))
	return nil
}

// SoftDelete sets deleted-at, reversible with Restore.
func (s *SoyStore) SoftDelete(ctx context.Context, id string) error {
	if _, err := s.notes.Select().Where("id", "=", "id").Exec(ctx, map[string]any{"id": id}); err != nil {
		return wrapNotFound("soft_delete", "Note", id)
	}
	_, err := s.notes.Modify().
		Set("deleted_at", "deleted_at").
		Where("id", "=", "id").
		Exec(ctx, map[string]any{"deleted_at": time.Now(), "id": id})
	if err != nil {
		return noetic.Internal(errOp("soft_delete"), "failed to soft-delete note", err)
	}
	capitan.Emit(ctx, noetic.NoteSoftDeleted, noetic.FieldNoteID.Field(id))
	return nil
}

// Restore clears deleted-at.
func (s *SoyStore) Restore(ctx context.Context, id string) error {
	if _, err := s.notes.Select().Where("id", "=", "id").Exec(ctx, map[string]any{"id": id}); err != nil {
		return wrapNotFound("restore", "Note", id)
	}
	_, err := s.notes.Modify().
		Set("deleted_at", "deleted_at").
		Where("id", "=", "id").
		Exec(ctx, map[string]any{"deleted_at": nil, "id": id})
	if err != nil {
		return noetic.Internal(errOp("restore"), "failed to restore note", err)
	}
	capitan.Emit(ctx, noetic.NoteRestored, noetic.FieldNoteID.Field(id))
	return nil
}

// Purge permanently removes a note and every dependent row. Absorbing:
// any subsequent operation on id yields NotFound because the row no
// longer exists for the existence-check performed by every other method.
func (s *SoyStore) Purge(ctx context.Context, id string) error {
	if _, err := s.notes.Select().Where("id", "=", "id").Exec(ctx, map[string]any{"id": id}); err != nil {
		return wrapNotFound("purge", "Note", id)
	}

	args := map[string]any{"note_id": id}
	if _, err := s.embeddings.Remove().Where("note_id", "=", "note_id").Exec(ctx, args); err != nil {
		return noetic.Internal(errOp("purge"), "failed to remove embeddings", err)
	}

	// Context rows reference a revision either as its subject (revision_id,
	// for revisions belonging to this note) or as cited material
	// (context_note_id, when this note was used as context for some other
	// note's revision). Both must go before the revision rows themselves.
	if _, err := s.contexts.Remove().Where("context_note_id", "=", "note_id").Exec(ctx, args); err != nil {
		return noetic.Internal(errOp("purge"), "failed to remove citing contexts", err)
	}
	noteRevisions, err := s.revisions.Query().Where("note_id", "=", "note_id").Exec(ctx, args)
	if err != nil {
		return noetic.Internal(errOp("purge"), "failed to load revisions for purge", err)
	}
	for _, rev := range noteRevisions {
		if _, err := s.contexts.Remove().Where("revision_id", "=", "revision_id").
			Exec(ctx, map[string]any{"revision_id": rev.ID}); err != nil {
			return noetic.Internal(errOp("purge"), "failed to remove revision contexts", err)
		}
	}

	if _, err := s.revisions.Remove().Where("note_id", "=", "note_id").Exec(ctx, args); err != nil {
		return noetic.Internal(errOp("purge"), "failed to remove revisions", err)
	}
	if _, err := s.currentRevisions.Remove().Where("note_id", "=", "note_id").Exec(ctx, args); err != nil {
		return noetic.Internal(errOp("purge"), "failed to remove current-revision pointer", err)
	}
	if _, err := s.originals.Remove().Where("note_id", "=", "note_id").Exec(ctx, args); err != nil {
		return noetic.Internal(errOp("purge"), "failed to remove original", err)
	}
	if _, err := s.tags.Remove().Where("note_id", "=", "note_id").Exec(ctx, args); err != nil {
		return noetic.Internal(errOp("purge"), "failed to remove tags", err)
	}
	if _, err := s.concepts.Remove().Where("note_id", "=", "note_id").Exec(ctx, args); err != nil {
		return noetic.Internal(errOp("purge"), "failed to remove concept associations", err)
	}
	if _, err := s.links.Remove().Where("from_note", "=", "note_id").Exec(ctx, args); err != nil {
		return noetic.Internal(errOp("purge"), "failed to remove outbound links", err)
	}
	if _, err := s.links.Remove().Where("to_note", "=", "note_id").Exec(ctx, args); err != nil {
		return noetic.Internal(errOp("purge"), "failed to remove inbound links", err)
	}
	if _, err := s.notes.Remove().Where("id", "=", "id").Exec(ctx, map[string]any{"id": id}); err != nil {
		return noetic.Internal(errOp("purge"), "failed to remove note", err)
	}

	capitan.Emit(ctx, noetic.NotePurged, noetic.FieldNoteID.Field(id))
	return nil
}

// InsertEmbedding upserts on (note_id, chunk_index, config_id): if a row
// with the same chunk hash already exists, the write is a no-op, so
// re-embedding unchanged content is idempotent.
func (s *SoyStore) InsertEmbedding(ctx context.Context, e Embedding) error {
	existing, err := s.embeddings.Query().
		Where("note_id", "=", "note_id").
		Where("chunk_index", "=", "chunk_index").
		Where("embedding_config_id", "=", "embedding_config_id").
		Exec(ctx, map[string]any{
			"note_id":             e.NoteID,
			"chunk_index":         e.ChunkIndex,
			"embedding_config_id": e.EmbeddingConfigID,
		})
	if err != nil {
		return noetic.Internal(errOp("insert_embedding"), "failed to check existing embedding", err)
	}

	if len(existing) > 0 {
		if existing[0].ChunkHash == e.ChunkHash {
			return nil
		}
		_, err := s.embeddings.Modify().
			Set("vector", "vector").
			Set("chunk_hash", "chunk_hash").
			Set("created_at", "created_at").
			Where("note_id", "=", "note_id").
			Where("chunk_index", "=", "chunk_index").
			Where("embedding_config_id", "=", "embedding_config_id").
			Exec(ctx, map[string]any{
				"vector":              e.Vector,
				"chunk_hash":          e.ChunkHash,
				"created_at":          time.Now(),
				"note_id":             e.NoteID,
				"chunk_index":         e.ChunkIndex,
				"embedding_config_id": e.EmbeddingConfigID,
			})
		if err != nil {
			return noetic.Internal(errOp("insert_embedding"), "failed to update embedding", err)
		}
		return nil
	}

	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now()
	}
	if _, err := s.embeddings.Insert().Exec(ctx, &e); err != nil {
		return noetic.Internal(errOp("insert_embedding"), "failed to insert embedding", err)
	}
	return nil
}

// GetEmbeddings returns every chunk embedding for a note under a config.
func (s *SoyStore) GetEmbeddings(ctx context.Context, noteID, configID string) ([]Embedding, error) {
	rows, err := s.embeddings.Query().
		Where("note_id", "=", "note_id").
		Where("embedding_config_id", "=", "embedding_config_id").
		OrderBy("chunk_index", "asc").
		Exec(ctx, map[string]any{"note_id": noteID, "embedding_config_id": configID})
	if err != nil {
		return nil, noetic.Internal(errOp("get_embeddings"), "failed to load embeddings", err)
	}
	out := make([]Embedding, len(rows))
	for i, r := range rows {
		out[i] = *r
	}
	return out, nil
}

// GetEmbeddingConfig resolves an EmbeddingConfig by id or slug — callers
// (the search engine resolving Query.EmbeddingConfig) may pass either.
func (s *SoyStore) GetEmbeddingConfig(ctx context.Context, idOrSlug string) (*EmbeddingConfig, error) {
	if cfg, err := s.embeddingConfigs.Select().Where("id", "=", "id").
		Exec(ctx, map[string]any{"id": idOrSlug}); err == nil {
		return cfg, nil
	}
	cfg, err := s.embeddingConfigs.Select().Where("slug", "=", "slug").
		Exec(ctx, map[string]any{"slug": idOrSlug})
	if err != nil {
		return nil, wrapNotFound("get_embedding_config", "EmbeddingConfig", idOrSlug)
	}
	return cfg, nil
}

// GetDefaultEmbeddingConfig returns the EmbeddingConfig with IsDefault
// set. Exactly one row may carry the flag.
func (s *SoyStore) GetDefaultEmbeddingConfig(ctx context.Context) (*EmbeddingConfig, error) {
	rows, err := s.embeddingConfigs.Query().Where("is_default", "=", "is_default").
		Exec(ctx, map[string]any{"is_default": true})
	if err != nil {
		return nil, noetic.Internal(errOp("get_default_embedding_config"), "failed to query default embedding config", err)
	}
	if len(rows) == 0 {
		return nil, noetic.NotFound(errOp("get_default_embedding_config"), "no default EmbeddingConfig configured")
	}
	return rows[0], nil
}

// SearchByVector mirrors SoyMemory.SearchNotes' ordering, but over the
// finer-grained Embedding table and an explicit allow predicate for
// strict isolation. The predicate is a Go function and is not part of
// the SQL query: when one is given, the query fetches the 5*limit
// nearest rows and the predicate filters those client-side, so the
// result holds fewer than limit rows whenever fewer than limit of those
// candidates pass it.
func (s *SoyStore) SearchByVector(ctx context.Context, query Vector, configID string, limit int, allowed func(noteID string) bool) ([]Embedding, error) {
	fetch := limit
	if allowed != nil {
		fetch = limit * 5 // overfetch, then filter by predicate client-side
	}
	rows, err := s.embeddings.Query().
		Where("embedding_config_id", "=", "embedding_config_id").
		WhereNotNull("vector").
		OrderByExpr("vector", "<->", "query_vector", "asc").
		Limit(fetch).
		Exec(ctx, map[string]any{"embedding_config_id": configID, "query_vector": query})
	if err != nil {
		return nil, noetic.Internal(errOp("search_by_vector"), "failed to search embeddings", err)
	}

	out := make([]Embedding, 0, limit)
	for _, r := range rows {
		if allowed != nil && !allowed(r.NoteID) {
			continue
		}
		out = append(out, *r)
		if len(out) >= limit {
			break
		}
	}
	return out, nil
}

// SearchLexical returns the candidate shortlist for the BM25-like
// ranking. The BM25 scoring itself lives in package search (it needs the
// configured k1/b, which Store has no reason to know about); Store only
// scores each candidate with termOverlapScore over its original content,
// then returns the best limit candidates by that score. The candidates
// are the 20*limit most recently created notes.
func (s *SoyStore) SearchLexical(ctx context.Context, queryText string, limit int, allowed func(noteID string) bool) ([]LexicalHit, error) {
	fetch := limit * 5
	if fetch <= 0 {
		fetch = limit
	}
	notes, err := s.notes.Query().OrderBy("created_at", "desc").Limit(fetch * 4).Exec(ctx, map[string]any{})
	if err != nil {
		return nil, noetic.Internal(errOp("search_lexical"), "failed to list candidate notes", err)
	}

	hits := make([]LexicalHit, 0, len(notes))
	for _, n := range notes {
		if n.IsDeleted() {
			continue
		}
		if allowed != nil && !allowed(n.ID) {
			continue
		}
		original, err := s.originals.Select().Where("note_id", "=", "note_id").Exec(ctx, map[string]any{"note_id": n.ID})
		if err != nil {
			continue
		}
		score := termOverlapScore(queryText, original.Content)
		if score <= 0 {
			continue
		}
		hits = append(hits, LexicalHit{NoteID: n.ID, Score: score})
	}
	sort.SliceStable(hits, func(i, j int) bool { return hits[i].Score > hits[j].Score })
	if limit >= 0 && len(hits) > limit {
		hits = hits[:limit]
	}
	return hits, nil
}

// termOverlapScore is a minimal relevance signal (count of query terms
// appearing in content) Store uses only to shortlist candidates; the
// ranked BM25 score search.Engine computes is authoritative.
func termOverlapScore(query, content string) float64 {
	var score float64
	contentFold := strings.ToLower(content)
	for _, term := range strings.Fields(query) {
		term = strings.ToLower(strings.Trim(term, ".,;:!?\"'()"))
		if term == "" {
			continue
		}
		if strings.Contains(contentFold, term) {
			score++
		}
	}
	return score
}

// CreateLink inserts a Link, rejecting self-loops.
func (s *SoyStore) CreateLink(ctx context.Context, l Link) (*Link, error) {
	if l.FromNote == l.ToNote {
		return nil, noetic.InvalidInput(errOp("create_link"), "link cannot be a self-loop")
	}
	if l.ID == "" {
		l.ID = noetic.NewID()
	}
	if l.CreatedAt.IsZero() {
		l.CreatedAt = time.Now()
	}
	if _, err := s.links.Insert().Exec(ctx, &l); err != nil {
		return nil, noetic.Internal(errOp("create_link"), "failed to insert link", err)
	}
	return &l, nil
}

// GetLinks returns links touching noteID in either direction.
func (s *SoyStore) GetLinks(ctx context.Context, noteID string) ([]Link, error) {
	outbound, err := s.links.Query().Where("from_note", "=", "note_id").Exec(ctx, map[string]any{"note_id": noteID})
	if err != nil {
		return nil, noetic.Internal(errOp("get_links"), "failed to load outbound links", err)
	}
	inbound, err := s.links.Query().Where("to_note", "=", "note_id").Exec(ctx, map[string]any{"note_id": noteID})
	if err != nil {
		return nil, noetic.Internal(errOp("get_links"), "failed to load inbound links", err)
	}
	out := make([]Link, 0, len(outbound)+len(inbound))
	for _, l := range outbound {
		out = append(out, *l)
	}
	for _, l := range inbound {
		out = append(out, *l)
	}
	return out, nil
}

// CreateCollection inserts a Collection.
func (s *SoyStore) CreateCollection(ctx context.Context, c Collection) (*Collection, error) {
	if c.ID == "" {
		c.ID = noetic.NewID()
	}
	if _, err := s.collections.Insert().Exec(ctx, &c); err != nil {
		return nil, noetic.Internal(errOp("create_collection"), "failed to insert collection", err)
	}
	return &c, nil
}

// GetCollection fetches a Collection by id.
func (s *SoyStore) GetCollection(ctx context.Context, id string) (*Collection, error) {
	c, err := s.collections.Select().Where("id", "=", "id").Exec(ctx, map[string]any{"id": id})
	if err != nil {
		return nil, wrapNotFound("get_collection", "Collection", id)
	}
	return c, nil
}

// CreateTemplate inserts a Template.
func (s *SoyStore) CreateTemplate(ctx context.Context, t Template) (*Template, error) {
	if t.ID == "" {
		t.ID = noetic.NewID()
	}
	if _, err := s.templates.Insert().Exec(ctx, &t); err != nil {
		return nil, noetic.Internal(errOp("create_template"), "failed to insert template", err)
	}
	return &t, nil
}

// GetTemplate fetches a Template by id.
func (s *SoyStore) GetTemplate(ctx context.Context, id string) (*Template, error) {
	t, err := s.templates.Select().Where("id", "=", "id").Exec(ctx, map[string]any{"id": id})
	if err != nil {
		return nil, wrapNotFound("get_template", "Template", id)
	}
	return t, nil
}

// AssociateConcept records a concept association for a note.
func (s *SoyStore) AssociateConcept(ctx context.Context, noteID, conceptID string, confidence float64) error {
	assoc := &ConceptAssociation{NoteID: noteID, ConceptID: conceptID, Confidence: confidence}
	if _, err := s.concepts.Insert().Exec(ctx, assoc); err != nil {
		return noetic.Internal(errOp("associate_concept"), "failed to insert concept association", err)
	}
	capitan.Emit(ctx, noetic.ConceptTagged,
		noetic.FieldNoteID.Field(noteID),
		noetic.FieldConceptID.Field(conceptID),
	)
	return nil
}

// NoteConceptIDs returns concept ids associated with a note.
func (s *SoyStore) NoteConceptIDs(ctx context.Context, noteID string) ([]string, error) {
	rows, err := s.concepts.Query().Where("note_id", "=", "note_id").Exec(ctx, map[string]any{"note_id": noteID})
	if err != nil {
		return nil, noetic.Internal(errOp("note_concept_ids"), "failed to load concept associations", err)
	}
	out := make([]string, len(rows))
	for i, r := range rows {
		out[i] = r.ConceptID
	}
	return out, nil
}

// NoteTags returns legacy tag strings associated with a note.
func (s *SoyStore) NoteTags(ctx context.Context, noteID string) ([]string, error) {
	rows, err := s.tags.Query().Where("note_id", "=", "note_id").Exec(ctx, map[string]any{"note_id": noteID})
	if err != nil {
		return nil, noetic.Internal(errOp("note_tags"), "failed to load tags", err)
	}
	out := make([]string, len(rows))
	for i, r := range rows {
		out[i] = r.Text
	}
	return out, nil
}

// AddTags associates tags with a note, skipping any already present.
func (s *SoyStore) AddTags(ctx context.Context, noteID string, tagTexts []string) error {
	if _, err := s.notes.Select().Where("id", "=", "id").Exec(ctx, map[string]any{"id": noteID}); err != nil {
		return wrapNotFound("add_tags", "Note", noteID)
	}
	existing, err := s.NoteTags(ctx, noteID)
	if err != nil {
		return err
	}
	have := make(map[string]bool, len(existing))
	for _, t := range existing {
		have[t] = true
	}
	for _, t := range tagTexts {
		if have[t] {
			continue
		}
		if _, err := s.tags.Insert().Exec(ctx, &Tag{NoteID: noteID, Text: t}); err != nil {
			return noetic.Internal(errOp("add_tags"), "failed to insert tag", err)
		}
		have[t] = true
	}
	return nil
}

// RemoveTags dissociates tags from a note. Absent tags are a no-op.
func (s *SoyStore) RemoveTags(ctx context.Context, noteID string, tagTexts []string) error {
	if _, err := s.notes.Select().Where("id", "=", "id").Exec(ctx, map[string]any{"id": noteID}); err != nil {
		return wrapNotFound("remove_tags", "Note", noteID)
	}
	for _, t := range tagTexts {
		if _, err := s.tags.Remove().
			Where("note_id", "=", "note_id").
			Where("text", "=", "text").
			Exec(ctx, map[string]any{"note_id": noteID, "text": t}); err != nil {
			return noetic.Internal(errOp("remove_tags"), "failed to remove tag", err)
		}
	}
	return nil
}

// SetCollection moves a note into collectionID, or clears its collection
// membership when collectionID is nil.
func (s *SoyStore) SetCollection(ctx context.Context, noteID string, collectionID *string) error {
	if _, err := s.notes.Select().Where("id", "=", "id").Exec(ctx, map[string]any{"id": noteID}); err != nil {
		return wrapNotFound("set_collection", "Note", noteID)
	}
	_, err := s.notes.Modify().
		Set("collection_id", "collection_id").
		Set("updated_at", "updated_at").
		Where("id", "=", "id").
		Exec(ctx, map[string]any{"collection_id": collectionID, "updated_at": time.Now(), "id": noteID})
	if err != nil {
		return noetic.Internal(errOp("set_collection"), "failed to update collection membership", err)
	}
	return nil
}

// ListVersions returns the full revision history, oldest first.
func (s *SoyStore) ListVersions(ctx context.Context, noteID string) ([]NoteRevision, error) {
	rows, err := s.revisions.Query().Where("note_id", "=", "note_id").OrderBy("number", "asc").
		Exec(ctx, map[string]any{"note_id": noteID})
	if err != nil {
		return nil, noetic.Internal(errOp("list_versions"), "failed to load revision history", err)
	}
	out := make([]NoteRevision, len(rows))
	for i, r := range rows {
		out[i] = *r
	}
	return out, nil
}

// GetProvenance returns the context rows for a revision.
func (s *SoyStore) GetProvenance(ctx context.Context, revisionID string) ([]NoteRevisionContext, error) {
	rows, err := s.contexts.Query().Where("revision_id", "=", "revision_id").
		Exec(ctx, map[string]any{"revision_id": revisionID})
	if err != nil {
		return nil, noetic.Internal(errOp("get_provenance"), "failed to load provenance", err)
	}
	out := make([]NoteRevisionContext, len(rows))
	for i, r := range rows {
		out[i] = *r
	}
	return out, nil
}

// LogActivity writes one ActivityLog row.
func (s *SoyStore) LogActivity(ctx context.Context, a ActivityLog) error {
	if a.ID == "" {
		a.ID = noetic.NewID()
	}
	if a.AtUTC.IsZero() {
		a.AtUTC = time.Now()
	}
	if a.Meta == nil {
		a.Meta = map[string]string{}
	}
	if _, err := s.activity.Insert().Exec(ctx, &a); err != nil {
		return noetic.Internal(errOp("log_activity"), "failed to write activity log", err)
	}
	return nil
}

var _ Store = (*SoyStore)(nil)
