// Package archivetest provides an in-memory archive.Store for tests that
// do not need a real Postgres instance, the same role
// cogito/mock_memory_test.go's mockMemory plays for Memory.
package archivetest

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/zoobzio/noetic"
	"github.com/zoobzio/noetic/archive"
)

// MockStore implements archive.Store with in-memory maps guarded by a
// single mutex. It does not enforce schema isolation beyond the name tag
// recorded at construction; ForSchema returns a sibling MockStore sharing
// no state with its parent.
type MockStore struct {
	mu sync.RWMutex

	name string

	notes       map[string]*archive.Note
	originals   map[string]*archive.NoteOriginal
	revisions   map[string][]archive.NoteRevision
	current     map[string]string // note id -> revision id
	contexts    map[string][]archive.NoteRevisionContext
	embeddings  map[string][]archive.Embedding // note id -> chunks
	links       []archive.Link
	collections map[string]*archive.Collection
	templates   map[string]*archive.Template
	tags        map[string][]string
	concepts    map[string][]archive.ConceptAssociation
	activity    []archive.ActivityLog

	embeddingConfigs map[string]*archive.EmbeddingConfig // id or slug -> config
}

// New creates an empty MockStore scoped to archive.DefaultArchive.
func New() *MockStore {
	return newNamed(archive.DefaultArchive)
}

func newNamed(name string) *MockStore {
	return &MockStore{
		name:        name,
		notes:       make(map[string]*archive.Note),
		originals:   make(map[string]*archive.NoteOriginal),
		revisions:   make(map[string][]archive.NoteRevision),
		current:     make(map[string]string),
		contexts:    make(map[string][]archive.NoteRevisionContext),
		embeddings:  make(map[string][]archive.Embedding),
		collections: make(map[string]*archive.Collection),
		templates:   make(map[string]*archive.Template),
		tags:        make(map[string][]string),
		concepts:    make(map[string][]archive.ConceptAssociation),

		embeddingConfigs: make(map[string]*archive.EmbeddingConfig),
	}
}

// AddEmbeddingConfig seeds an EmbeddingConfig for tests, reachable by
// either its ID or its Slug from GetEmbeddingConfig.
func (m *MockStore) AddEmbeddingConfig(cfg archive.EmbeddingConfig) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c := cfg
	m.embeddingConfigs[cfg.ID] = &c
	m.embeddingConfigs[cfg.Slug] = &c
}

func (m *MockStore) ArchiveName() string { return m.name }

func (m *MockStore) ForSchema(_ context.Context, name string, _ bool) (archive.Store, error) {
	if !archive.ValidArchiveName(name) {
		return nil, noetic.InvalidInput("archivetest.for_schema", "invalid archive name: "+name)
	}
	return newNamed(name), nil
}

func (m *MockStore) CreateNote(_ context.Context, req archive.CreateNoteRequest) (*archive.NoteView, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	id := noetic.NewID()
	now := time.Now()

	format := req.Format
	if format == "" {
		format = "markdown"
	}
	source := req.Source
	if source == "" {
		source = "user"
	}

	note := &archive.Note{
		ID: id, CreatedAt: now, UpdatedAt: now,
		Format: format, Source: source,
		CollectionID: req.CollectionID,
		Metadata:     req.Metadata,
	}
	m.notes[id] = note
	m.originals[id] = &archive.NoteOriginal{NoteID: id, Content: req.Content, UpdatedAt: now}

	revisionID := noetic.NewID()
	rev := archive.NoteRevision{
		ID: revisionID, NoteID: id, Number: 1,
		Content: req.Content, Agent: archive.AgentUser, CreatedAt: now,
	}
	m.revisions[id] = []archive.NoteRevision{rev}
	m.current[id] = revisionID
	m.tags[id] = append([]string(nil), req.Tags...)
	for _, c := range req.ConceptIDs {
		m.concepts[id] = append(m.concepts[id], archive.ConceptAssociation{NoteID: id, ConceptID: c, Confidence: 1.0})
	}

	return &archive.NoteView{
		Note: *note, OriginalContent: req.Content, CurrentContent: req.Content,
		CurrentRevision: 1, Tags: req.Tags, ConceptIDs: req.ConceptIDs,
	}, nil
}

func (m *MockStore) GetNote(_ context.Context, id string, opts archive.GetNoteOptions) (*archive.NoteView, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.view(id, opts)
}

func (m *MockStore) view(id string, opts archive.GetNoteOptions) (*archive.NoteView, error) {
	note, ok := m.notes[id]
	if !ok {
		return nil, noetic.NotFound("archivetest.get_note", "Note "+id+" not found")
	}
	if note.IsDeleted() && !opts.IncludeDeleted {
		return nil, noetic.NotFound("archivetest.get_note", "Note "+id+" not found")
	}
	original := m.originals[id]
	revisionID := m.current[id]
	var current archive.NoteRevision
	for _, r := range m.revisions[id] {
		if r.ID == revisionID {
			current = r
			break
		}
	}
	conceptIDs := make([]string, 0, len(m.concepts[id]))
	for _, c := range m.concepts[id] {
		conceptIDs = append(conceptIDs, c.ConceptID)
	}
	return &archive.NoteView{
		Note: *note, OriginalContent: original.Content, CurrentContent: current.Content,
		CurrentRevision: current.Number, Tags: append([]string(nil), m.tags[id]...), ConceptIDs: conceptIDs,
	}, nil
}

func (m *MockStore) ListNotes(_ context.Context, filter archive.ListFilter) ([]archive.NoteView, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	ids := make([]string, 0, len(m.notes))
	for id := range m.notes {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return m.notes[ids[i]].CreatedAt.After(m.notes[ids[j]].CreatedAt) })

	limit := filter.Limit
	if limit <= 0 {
		limit = 50
	}
	skipped := 0
	out := make([]archive.NoteView, 0, limit)
	for _, id := range ids {
		note := m.notes[id]
		if note.IsDeleted() && !filter.IncludeDeleted {
			continue
		}
		if filter.CollectionID != nil && (note.CollectionID == nil || *note.CollectionID != *filter.CollectionID) {
			continue
		}
		view, err := m.view(id, archive.GetNoteOptions{IncludeDeleted: filter.IncludeDeleted})
		if err != nil {
			continue
		}
		if len(filter.Tags) > 0 && !hasAll(view.Tags, filter.Tags) {
			continue
		}
		if skipped < filter.Offset {
			skipped++
			continue
		}
		out = append(out, *view)
		if len(out) >= limit {
			break
		}
	}
	return out, nil
}

func hasAll(have, want []string) bool {
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

func (m *MockStore) UpdateOriginal(_ context.Context, id, content string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.notes[id]; !ok {
		return noetic.NotFound("archivetest.update_original", "Note "+id+" not found")
	}
	if o, ok := m.originals[id]; ok && o.Content == content {
		return nil
	}
	m.originals[id] = &archive.NoteOriginal{NoteID: id, Content: content, UpdatedAt: time.Now()}
	return nil
}

func (m *MockStore) UpdateRevised(_ context.Context, id, content string, rationale *string, agent archive.RevisionAgent, contextNotes []archive.NoteRevisionContext) (*archive.NoteRevision, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.notes[id]; !ok {
		return nil, noetic.NotFound("archivetest.update_revised", "Note "+id+" not found")
	}
	history := m.revisions[id]
	number := 1
	if len(history) > 0 {
		number = history[len(history)-1].Number + 1
	}
	revisionID := noetic.NewID()
	rev := archive.NoteRevision{
		ID: revisionID, NoteID: id, Number: number,
		Content: content, Rationale: rationale, Agent: agent, CreatedAt: time.Now(),
	}
	m.revisions[id] = append(history, rev)
	m.current[id] = revisionID
	if agent.IsAI() {
		for _, c := range contextNotes {
			c.RevisionID = revisionID
			m.contexts[revisionID] = append(m.contexts[revisionID], c)
		}
	}
	return &rev, nil
}

func (m *MockStore) UpdateStatus(_ context.Context, id string, upd archive.StatusUpdate) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	note, ok := m.notes[id]
	if !ok {
		return noetic.NotFound("archivetest.update_status", "Note "+id+" not found")
	}
	if upd.Starred != nil {
		note.Starred = *upd.Starred
	}
	if upd.Archived != nil {
		note.Archived = *upd.Archived
	}
	note.UpdatedAt = time.Now()
	return nil
}

func (m *MockStore) SoftDelete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	note, ok := m.notes[id]
	if !ok {
		return noetic.NotFound("archivetest.soft_delete", "Note "+id+" not found")
	}
	now := time.Now()
	note.DeletedAt = &now
	return nil
}

func (m *MockStore) Restore(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	note, ok := m.notes[id]
	if !ok {
		return noetic.NotFound("archivetest.restore", "Note "+id+" not found")
	}
	note.DeletedAt = nil
	return nil
}

func (m *MockStore) Purge(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.notes[id]; !ok {
		return noetic.NotFound("archivetest.purge", "Note "+id+" not found")
	}
	for _, rev := range m.revisions[id] {
		delete(m.contexts, rev.ID)
	}
	delete(m.notes, id)
	delete(m.originals, id)
	delete(m.revisions, id)
	delete(m.current, id)
	delete(m.embeddings, id)
	delete(m.tags, id)
	delete(m.concepts, id)
	kept := m.links[:0]
	for _, l := range m.links {
		if l.FromNote != id && l.ToNote != id {
			kept = append(kept, l)
		}
	}
	m.links = kept
	return nil
}

func (m *MockStore) InsertEmbedding(_ context.Context, e archive.Embedding) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	chunks := m.embeddings[e.NoteID]
	for i, c := range chunks {
		if c.ChunkIndex == e.ChunkIndex && c.EmbeddingConfigID == e.EmbeddingConfigID {
			if c.ChunkHash == e.ChunkHash {
				return nil
			}
			chunks[i] = e
			return nil
		}
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now()
	}
	m.embeddings[e.NoteID] = append(chunks, e)
	return nil
}

func (m *MockStore) GetEmbeddings(_ context.Context, noteID, configID string) ([]archive.Embedding, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]archive.Embedding, 0)
	for _, e := range m.embeddings[noteID] {
		if e.EmbeddingConfigID == configID {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ChunkIndex < out[j].ChunkIndex })
	return out, nil
}

func (m *MockStore) GetEmbeddingConfig(_ context.Context, idOrSlug string) (*archive.EmbeddingConfig, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if cfg, ok := m.embeddingConfigs[idOrSlug]; ok {
		return cfg, nil
	}
	return nil, noetic.NotFound("archivetest.get_embedding_config", "EmbeddingConfig "+idOrSlug+" not found")
}

func (m *MockStore) GetDefaultEmbeddingConfig(_ context.Context) (*archive.EmbeddingConfig, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	seen := map[string]bool{}
	for _, cfg := range m.embeddingConfigs {
		if seen[cfg.ID] {
			continue
		}
		seen[cfg.ID] = true
		if cfg.IsDefault {
			return cfg, nil
		}
	}
	return nil, noetic.NotFound("archivetest.get_default_embedding_config", "no default EmbeddingConfig configured")
}

func (m *MockStore) SearchByVector(_ context.Context, query archive.Vector, configID string, limit int, allowed func(string) bool) ([]archive.Embedding, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	type scored struct {
		e    archive.Embedding
		dist float64
	}
	var candidates []scored
	for noteID, chunks := range m.embeddings {
		if allowed != nil && !allowed(noteID) {
			continue
		}
		for _, e := range chunks {
			if e.EmbeddingConfigID != configID {
				continue
			}
			sim := e.Vector.CosineSimilarity(query)
			candidates = append(candidates, scored{e: e, dist: 1 - sim})
		}
	}
	sort.Slice(candidates, func(i, j int) bool { return candidates[i].dist < candidates[j].dist })
	if len(candidates) > limit {
		candidates = candidates[:limit]
	}
	out := make([]archive.Embedding, len(candidates))
	for i, c := range candidates {
		out[i] = c.e
	}
	return out, nil
}

func (m *MockStore) SearchLexical(_ context.Context, queryText string, limit int, allowed func(string) bool) ([]archive.LexicalHit, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var hits []archive.LexicalHit
	for id, note := range m.notes {
		if note.IsDeleted() {
			continue
		}
		if allowed != nil && !allowed(id) {
			continue
		}
		original := m.originals[id]
		if original == nil {
			continue
		}
		score := overlapScore(queryText, original.Content)
		if score <= 0 {
			continue
		}
		hits = append(hits, archive.LexicalHit{NoteID: id, Score: score})
	}
	sort.Slice(hits, func(i, j int) bool { return hits[i].Score > hits[j].Score })
	if len(hits) > limit {
		hits = hits[:limit]
	}
	return hits, nil
}

func overlapScore(query, content string) float64 {
	var score float64
	for _, term := range splitFields(query) {
		if containsFold(content, term) {
			score++
		}
	}
	return score
}

func splitFields(s string) []string {
	var fields []string
	var cur []rune
	for _, r := range s {
		if r == ' ' || r == '\t' || r == '\n' {
			if len(cur) > 0 {
				fields = append(fields, string(cur))
				cur = nil
			}
			continue
		}
		cur = append(cur, r)
	}
	if len(cur) > 0 {
		fields = append(fields, string(cur))
	}
	return fields
}

func containsFold(content, term string) bool {
	lc, lt := []rune(content), []rune(term)
	if len(lt) == 0 || len(lt) > len(lc) {
		return false
	}
	lower := func(r rune) rune {
		if r >= 'A' && r <= 'Z' {
			return r + 32
		}
		return r
	}
	for i := 0; i+len(lt) <= len(lc); i++ {
		match := true
		for j := range lt {
			if lower(lc[i+j]) != lower(lt[j]) {
				match = false
				break
			}
		}
		if match {
			return true
		}
	}
	return false
}

func (m *MockStore) CreateLink(_ context.Context, l archive.Link) (*archive.Link, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if l.FromNote == l.ToNote {
		return nil, noetic.InvalidInput("archivetest.create_link", "link cannot be a self-loop")
	}
	if l.ID == "" {
		l.ID = noetic.NewID()
	}
	if l.CreatedAt.IsZero() {
		l.CreatedAt = time.Now()
	}
	m.links = append(m.links, l)
	return &l, nil
}

func (m *MockStore) GetLinks(_ context.Context, noteID string) ([]archive.Link, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []archive.Link
	for _, l := range m.links {
		if l.FromNote == noteID || l.ToNote == noteID {
			out = append(out, l)
		}
	}
	return out, nil
}

func (m *MockStore) CreateCollection(_ context.Context, c archive.Collection) (*archive.Collection, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if c.ID == "" {
		c.ID = noetic.NewID()
	}
	m.collections[c.ID] = &c
	return &c, nil
}

func (m *MockStore) GetCollection(_ context.Context, id string) (*archive.Collection, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	c, ok := m.collections[id]
	if !ok {
		return nil, noetic.NotFound("archivetest.get_collection", "Collection "+id+" not found")
	}
	return c, nil
}

func (m *MockStore) CreateTemplate(_ context.Context, t archive.Template) (*archive.Template, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if t.ID == "" {
		t.ID = noetic.NewID()
	}
	m.templates[t.ID] = &t
	return &t, nil
}

func (m *MockStore) GetTemplate(_ context.Context, id string) (*archive.Template, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	t, ok := m.templates[id]
	if !ok {
		return nil, noetic.NotFound("archivetest.get_template", "Template "+id+" not found")
	}
	return t, nil
}

func (m *MockStore) AssociateConcept(_ context.Context, noteID, conceptID string, confidence float64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.concepts[noteID] = append(m.concepts[noteID], archive.ConceptAssociation{NoteID: noteID, ConceptID: conceptID, Confidence: confidence})
	return nil
}

func (m *MockStore) NoteConceptIDs(_ context.Context, noteID string) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]string, 0, len(m.concepts[noteID]))
	for _, c := range m.concepts[noteID] {
		out = append(out, c.ConceptID)
	}
	return out, nil
}

func (m *MockStore) NoteTags(_ context.Context, noteID string) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]string(nil), m.tags[noteID]...), nil
}

func (m *MockStore) AddTags(_ context.Context, noteID string, tagTexts []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.notes[noteID]; !ok {
		return noetic.NotFound("archivetest.add_tags", "Note "+noteID+" not found")
	}
	have := make(map[string]bool, len(m.tags[noteID]))
	for _, t := range m.tags[noteID] {
		have[t] = true
	}
	for _, t := range tagTexts {
		if have[t] {
			continue
		}
		m.tags[noteID] = append(m.tags[noteID], t)
		have[t] = true
	}
	return nil
}

func (m *MockStore) RemoveTags(_ context.Context, noteID string, tagTexts []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.notes[noteID]; !ok {
		return noetic.NotFound("archivetest.remove_tags", "Note "+noteID+" not found")
	}
	remove := make(map[string]bool, len(tagTexts))
	for _, t := range tagTexts {
		remove[t] = true
	}
	kept := m.tags[noteID][:0]
	for _, t := range m.tags[noteID] {
		if !remove[t] {
			kept = append(kept, t)
		}
	}
	m.tags[noteID] = kept
	return nil
}

func (m *MockStore) SetCollection(_ context.Context, noteID string, collectionID *string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	n, ok := m.notes[noteID]
	if !ok {
		return noetic.NotFound("archivetest.set_collection", "Note "+noteID+" not found")
	}
	n.CollectionID = collectionID
	n.UpdatedAt = time.Now()
	return nil
}

func (m *MockStore) ListVersions(_ context.Context, noteID string) ([]archive.NoteRevision, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]archive.NoteRevision(nil), m.revisions[noteID]...), nil
}

func (m *MockStore) GetProvenance(_ context.Context, revisionID string) ([]archive.NoteRevisionContext, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]archive.NoteRevisionContext(nil), m.contexts[revisionID]...), nil
}

func (m *MockStore) LogActivity(_ context.Context, a archive.ActivityLog) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if a.ID == "" {
		a.ID = noetic.NewID()
	}
	if a.AtUTC.IsZero() {
		a.AtUTC = time.Now()
	}
	m.activity = append(m.activity, a)
	return nil
}

// Activity exposes the recorded log for test assertions.
func (m *MockStore) Activity() []archive.ActivityLog {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]archive.ActivityLog(nil), m.activity...)
}

var _ archive.Store = (*MockStore)(nil)
