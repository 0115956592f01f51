package jobs

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/zoobzio/capitan"
	"github.com/zoobzio/noetic"
	"github.com/zoobzio/noetic/archive"
	"github.com/zoobzio/noetic/inference"
	"github.com/zoobzio/noetic/search"
	"github.com/zoobzio/pipz"
	"github.com/zoobzio/zyn"
)

// pageSize bounds ListNotes pagination in the fan-out handlers.
const pageSize = 100

// qualityScoreEvalTokens bounds the completion length for
// evaluateQuality's extraction call: a JSON-encoded score needs only a
// few tokens.
const qualityScoreEvalTokens = 32

// NewHandlers builds the handler table worker.Worker dispatches by
// Job.Type, closing over the collaborators every handler needs.
func NewHandlers(store archive.Store, bridge inference.Bridge, engine *search.Engine, queue Queue, cfg noetic.Config) map[Type]Handler {
	return map[Type]Handler{
		TypeEmbedding:             embeddingHandler(store, bridge),
		TypeReEmbedAll:            reEmbedAllHandler(store, queue, bridge),
		TypeAIRevision:            aiRevisionHandler(store, bridge, engine, cfg),
		TypeSemanticLinkDiscovery: semanticLinkDiscoveryHandler(store, bridge, cfg),
		TypePurge:                 purgeHandler(store),
		TypeReprocessNote:         reprocessNoteHandler(store, bridge, cfg),
		TypeBulkTag:               bulkTagHandler(store),
		TypeBulkMove:              bulkMoveHandler(store),
	}
}

func chunkHash(chunk string) string {
	sum := sha256.Sum256([]byte(chunk))
	return hex.EncodeToString(sum[:])
}

func resolveEmbeddingConfig(ctx context.Context, store archive.Store, idOrSlug string) (*archive.EmbeddingConfig, error) {
	if idOrSlug != "" {
		return store.GetEmbeddingConfig(ctx, idOrSlug)
	}
	return store.GetDefaultEmbeddingConfig(ctx)
}

// embeddingHandler chunks a note's current content, embeds any chunk
// whose content hash has changed (or is new) via bridge, and upserts it.
// Unchanged chunks are skipped, the hash-keyed idempotence property every
// embedding job (including the per-note fan-out from re_embed_all) relies
// on.
func embeddingHandler(store archive.Store, bridge inference.Bridge) Handler {
	return func(ctx context.Context, job *Job, report func(int, string)) (any, error) {
		var payload EmbeddingPayload
		if err := json.Unmarshal([]byte(job.Payload), &payload); err != nil {
			return nil, fmt.Errorf("embedding: invalid payload: %w", err)
		}
		note, err := store.GetNote(ctx, payload.NoteID, archive.GetNoteOptions{})
		if err != nil {
			return nil, err
		}
		econfig, err := resolveEmbeddingConfig(ctx, store, payload.EmbeddingConfig)
		if err != nil {
			return nil, err
		}

		chunks := chunkText(note.CurrentContent, econfig.MaxChunkSize, econfig.ChunkOverlap)
		if len(chunks) == 0 {
			report(100, "no content to embed")
			return nil, nil
		}

		existing, err := store.GetEmbeddings(ctx, payload.NoteID, econfig.ID)
		if err != nil {
			return nil, err
		}
		existingHash := make(map[int]string, len(existing))
		for _, e := range existing {
			existingHash[e.ChunkIndex] = e.ChunkHash
		}

		for i, chunk := range chunks {
			hash := chunkHash(chunk)
			if existingHash[i] == hash {
				continue
			}
			vec, err := bridge.Embed(ctx, inference.EmbedRequest{
				Model: econfig.ModelName, Text: chunk, TruncateDim: econfig.TruncateDim,
			})
			if err != nil {
				return nil, fmt.Errorf("embedding: chunk %d: %w", i, err)
			}
			if err := store.InsertEmbedding(ctx, archive.Embedding{
				NoteID: payload.NoteID, ChunkIndex: i, EmbeddingConfigID: econfig.ID,
				Vector: archive.NewVector(vec), ChunkHash: hash, CreatedAt: time.Now(),
			}); err != nil {
				return nil, fmt.Errorf("embedding: chunk %d: %w", i, err)
			}
			report(int(float64(i+1)/float64(len(chunks))*100), fmt.Sprintf("embedded chunk %d/%d", i+1, len(chunks)))
		}
		return nil, nil
	}
}

// reEmbedAllHandler fans out a per-note embedding job for every live note,
// skipping notes whose chunks already match their stored hashes unless
// force is set. Under the partial-failure rule fan-out jobs share, the
// job itself succeeds as long as at least one note was queued.
func reEmbedAllHandler(store archive.Store, queue Queue, _ inference.Bridge) Handler {
	return func(ctx context.Context, job *Job, report func(int, string)) (any, error) {
		var payload ReEmbedAllPayload
		if err := json.Unmarshal([]byte(job.Payload), &payload); err != nil {
			return nil, fmt.Errorf("re_embed_all: invalid payload: %w", err)
		}
		econfig, err := resolveEmbeddingConfig(ctx, store, payload.EmbeddingConfig)
		if err != nil {
			return nil, err
		}

		var result ReEmbedAllResult
		offset := 0
		for {
			notes, err := store.ListNotes(ctx, archive.ListFilter{Limit: pageSize, Offset: offset})
			if err != nil {
				return nil, err
			}
			if len(notes) == 0 {
				break
			}
			for _, n := range notes {
				result.TotalNotes++
				if !payload.Force && noteEmbeddingCurrent(ctx, store, n, econfig) {
					continue
				}
				_, err := queue.Enqueue(ctx, TypeEmbedding, EmbeddingPayload{
					NoteID: n.Note.ID, EmbeddingConfig: econfig.Slug,
				}, noetic.DefaultConfig().JobMaxAttempts)
				if err != nil {
					result.NotesFailed++
					continue
				}
				result.NotesQueued++
			}
			offset += pageSize
			report(min(99, offset), fmt.Sprintf("scanned %d notes", result.TotalNotes))
		}

		// Skipping an up-to-date note (Force=false) is success, not
		// failure: the job only fails when every note that needed
		// queuing failed to enqueue.
		if result.NotesQueued == 0 && result.NotesFailed > 0 {
			return result, fmt.Errorf("re_embed_all: no notes could be queued (%d total, %d failed)", result.TotalNotes, result.NotesFailed)
		}
		return result, nil
	}
}

// noteEmbeddingCurrent reports whether every chunk of a note's current
// content already has a matching stored hash under econfig.
func noteEmbeddingCurrent(ctx context.Context, store archive.Store, note archive.NoteView, econfig *archive.EmbeddingConfig) bool {
	chunks := chunkText(note.CurrentContent, econfig.MaxChunkSize, econfig.ChunkOverlap)
	existing, err := store.GetEmbeddings(ctx, note.Note.ID, econfig.ID)
	if err != nil {
		return false
	}
	if len(existing) != len(chunks) {
		return false
	}
	existingHash := make(map[int]string, len(existing))
	for _, e := range existing {
		existingHash[e.ChunkIndex] = e.ChunkHash
	}
	for i, chunk := range chunks {
		if existingHash[i] != chunkHash(chunk) {
			return false
		}
	}
	return true
}

const contextSimilarityThreshold = 0.50
const contextTopK = 5

// aiRevisionHandler runs the seven-step ai_revision algorithm: resolve
// mode and model, optionally gather semantic context, generate a draft,
// optionally wrap it in a self-refine loop modeled on cogito's Amplify
// primitive (iterate generate -> evaluate -> refine, bounded by
// max_iterations, stopping early once quality meets threshold or an
// iteration fails to improve on the last), then commit the revision.
func aiRevisionHandler(store archive.Store, bridge inference.Bridge, engine *search.Engine, cfg noetic.Config) Handler {
	return func(ctx context.Context, job *Job, report func(int, string)) (any, error) {
		var payload AIRevisionPayload
		if err := json.Unmarshal([]byte(job.Payload), &payload); err != nil {
			return nil, fmt.Errorf("ai_revision: invalid payload: %w", err)
		}
		note, err := store.GetNote(ctx, payload.NoteID, archive.GetNoteOptions{})
		if err != nil {
			return nil, err
		}

		if payload.RevisionMode == RevisionNone {
			return nil, store.LogActivity(ctx, archive.ActivityLog{
				ID: noetic.NewID(), AtUTC: time.Now(), Actor: "ai_revision",
				Action: "note.revision_skipped", NoteID: &payload.NoteID,
			})
		}

		model := payload.Model
		if model == "" {
			model = DefaultGenerationModel
		}

		var contextNotes []archive.NoteRevisionContext
		var contextText strings.Builder
		if payload.RevisionMode == RevisionFull && engine != nil {
			resp, err := engine.Search(ctx, search.Query{
				Text: note.CurrentContent, Mode: search.ModeSemantic, Limit: contextTopK, CacheBypass: true,
			})
			if err != nil {
				return nil, fmt.Errorf("ai_revision: context retrieval: %w", err)
			}
			for _, r := range resp.Results {
				if r.NoteID == payload.NoteID || r.SemanticScore < contextSimilarityThreshold {
					continue
				}
				contextNotes = append(contextNotes, archive.NoteRevisionContext{
					ContextNoteID: r.NoteID, Similarity: r.SemanticScore, Role: archive.RoleContext,
				})
				if ctxNote, err := store.GetNote(ctx, r.NoteID, archive.GetNoteOptions{}); err == nil {
					fmt.Fprintf(&contextText, "---\n%s\n", ctxNote.CurrentContent)
				}
			}
		}

		prompt := revisionPrompt(note.CurrentContent, contextText.String(), payload.RevisionMode)

		var draft string
		var iterations int
		if payload.SelfRefine != nil && payload.SelfRefine.Enabled {
			draft, iterations, err = selfRefine(ctx, bridge, model, prompt, *payload.SelfRefine, cfg, job.ID, report)
		} else {
			draft, err = bridge.Generate(ctx, model, prompt, inference.GenerateOptions{Temperature: 0.7, MaxTokens: 2048})
			iterations = 1
		}
		if err != nil {
			return nil, fmt.Errorf("ai_revision: generation: %w", err)
		}
		draft = postProcess(draft)

		rationale := fmt.Sprintf("ai_revision (%s, %d iteration(s))", payload.RevisionMode, iterations)
		rev, err := store.UpdateRevised(ctx, payload.NoteID, draft, &rationale, RevisionAgentFor(model), contextNotes)
		if err != nil {
			return nil, err
		}
		return rev, nil
	}
}

// RevisionAgentFor tags a NoteRevision with the generation model that
// produced it, so IsAI() is true for any non-"user" agent string.
func RevisionAgentFor(model string) archive.RevisionAgent {
	return archive.RevisionAgent("ai:" + model)
}

func revisionPrompt(content, contextText string, mode RevisionMode) string {
	var b strings.Builder
	b.WriteString("Revise the following note for clarity and correctness.\n\n")
	if contextText != "" {
		b.WriteString("Related notes for context:\n")
		b.WriteString(contextText)
		b.WriteString("\n")
	}
	if mode == RevisionLight {
		b.WriteString("Make only minimal, surgical edits.\n\n")
	}
	b.WriteString("Note content:\n")
	b.WriteString(content)
	return b.String()
}

// postProcess strips common LLM response artifacts: markdown code fences
// wrapping the whole response and a leading echo of the prompt.
func postProcess(text string) string {
	text = strings.TrimSpace(text)
	if strings.HasPrefix(text, "```") {
		text = strings.TrimPrefix(text, "```")
		if idx := strings.Index(text, "\n"); idx >= 0 {
			text = text[idx+1:]
		}
		text = strings.TrimSuffix(strings.TrimSpace(text), "```")
	}
	return strings.TrimSpace(text)
}

// selfRefine iterates generate -> evaluate -> refine, mirroring
// cogito.Amplify.Process's loop shape: each pass transforms content, then
// a completion check decides whether to stop. Here the completion check
// is a quality score on a 0-10 scale rather than a binary decision, since
// inference.Bridge has no Binary-style call; early stop fires when the
// score meets threshold or an iteration fails to improve on the last.
func selfRefine(ctx context.Context, bridge inference.Bridge, model, basePrompt string, opts SelfRefineOptions, cfg noetic.Config, jobID string, report func(int, string)) (string, int, error) {
	maxIter := opts.MaxIterations
	if maxIter <= 0 {
		maxIter = cfg.MaxRevisionIterations
	}
	if maxIter < 1 {
		maxIter = 1
	}
	threshold := opts.Threshold
	if threshold <= 0 {
		threshold = 8.0
	}

	content, err := bridge.Generate(ctx, model, basePrompt, inference.GenerateOptions{Temperature: 0.7, MaxTokens: 2048})
	if err != nil {
		return "", 0, err
	}

	lastQuality := -1.0
	iteration := 0
	for iteration < maxIter {
		iteration++
		quality, err := evaluateQuality(ctx, bridge, model, content)
		if err != nil {
			return content, iteration, err
		}
		report(iteration*100/maxIter, fmt.Sprintf("self-refine iteration %d: quality %.1f", iteration, quality))
		capitan.Emit(ctx, SelfRefineIteration, FieldJobID.Field(jobID), FieldIteration.Field(iteration))

		stop := quality >= threshold || quality <= lastQuality
		if stop {
			break
		}
		lastQuality = quality

		refinePrompt := fmt.Sprintf("%s\n\nPrevious draft:\n%s\n\nImprove clarity, remove redundancy, and fix any factual inconsistencies.", basePrompt, content)
		refined, err := bridge.Generate(ctx, model, refinePrompt, inference.GenerateOptions{Temperature: 0.5, MaxTokens: 2048})
		if err != nil {
			return content, iteration, err
		}
		content = refined
	}
	return content, iteration, nil
}

// qualityScore is the zyn.Validator-conforming shape evaluateQuality
// extracts: a single 0-10 score rating a draft's clarity and correctness.
type qualityScore struct {
	Score float64 `json:"score"`
}

// Validate implements zyn.Validator.
func (q qualityScore) Validate() error {
	if q.Score < 0 || q.Score > 10 {
		return fmt.Errorf("score %.1f out of range [0,10]", q.Score)
	}
	return nil
}

// evaluateQuality asks the model to self-score a draft 0-10 via a
// zyn.Extract[qualityScore] synapse, the typed-extraction counterpart to
// cogito's Analyze primitive, rather than parsing free-form completion
// text. Any error from the synapse is returned as is; an extracted score
// outside [0,10] that reaches the range check is reported as 0.
func evaluateQuality(ctx context.Context, bridge inference.Bridge, model, content string) (float64, error) {
	provider := inference.BridgeProvider{Bridge: bridge, Model: model, MaxTokens: qualityScoreEvalTokens}
	extractSynapse, err := zyn.Extract[qualityScore]("a 0-10 score rating the clarity and correctness of the text", provider)
	if err != nil {
		return 0, fmt.Errorf("evaluateQuality: failed to create extract synapse: %w", err)
	}

	extracted, err := extractSynapse.FireWithInput(ctx, zyn.NewSession(), zyn.ExtractionInput{
		Text:        content,
		Temperature: 0,
	})
	if err != nil {
		return 0, err
	}
	if extracted.Score < 0 || extracted.Score > 10 {
		return 0, nil
	}
	return extracted.Score, nil
}

// semanticLinkDiscoveryHandler finds notes whose best-chunk cosine
// similarity to noteID's content clears the configured threshold and
// materializes a LinkSemantic row for each.
func semanticLinkDiscoveryHandler(store archive.Store, bridge inference.Bridge, cfg noetic.Config) Handler {
	return func(ctx context.Context, job *Job, report func(int, string)) (any, error) {
		var payload SemanticLinkDiscoveryPayload
		if err := json.Unmarshal([]byte(job.Payload), &payload); err != nil {
			return nil, fmt.Errorf("semantic_link_discovery: invalid payload: %w", err)
		}
		note, err := store.GetNote(ctx, payload.NoteID, archive.GetNoteOptions{})
		if err != nil {
			return nil, err
		}
		econfig, err := resolveEmbeddingConfig(ctx, store, payload.EmbeddingConfig)
		if err != nil {
			return nil, err
		}
		vec, err := bridge.Embed(ctx, inference.EmbedRequest{
			Model: econfig.ModelName, Text: note.CurrentContent, TruncateDim: econfig.TruncateDim,
		})
		if err != nil {
			return nil, err
		}
		query := archive.NewVector(vec)

		hits, err := store.SearchByVector(ctx, query, econfig.ID, 50, func(id string) bool { return id != payload.NoteID })
		if err != nil {
			return nil, err
		}

		best := make(map[string]float64)
		for _, h := range hits {
			sim := query.CosineSimilarity(h.Vector)
			if sim > best[h.NoteID] {
				best[h.NoteID] = sim
			}
		}

		created := 0
		for id, sim := range best {
			if sim < cfg.SemanticLinkThreshold {
				continue
			}
			score := sim
			if _, err := store.CreateLink(ctx, archive.Link{
				ID: noetic.NewID(), FromNote: payload.NoteID, ToNote: id,
				Kind: archive.LinkSemantic, Score: &score, CreatedAt: time.Now(),
			}); err != nil {
				continue
			}
			created++
		}
		report(100, fmt.Sprintf("discovered %d semantic link(s)", created))
		return created, nil
	}
}

func purgeHandler(store archive.Store) Handler {
	return func(ctx context.Context, job *Job, report func(int, string)) (any, error) {
		var payload PurgePayload
		if err := json.Unmarshal([]byte(job.Payload), &payload); err != nil {
			return nil, fmt.Errorf("purge: invalid payload: %w", err)
		}
		if err := store.Purge(ctx, payload.NoteID); err != nil {
			return nil, err
		}
		report(100, "purged")
		return nil, nil
	}
}

// reprocessState carries a job and its progress sink through the
// reprocess_note pipeline. pipz.Chainable stages all operate on the
// same type, so the job/report pair rides along as one value rather
// than threading two separate arguments through each stage.
type reprocessState struct {
	job    *Job
	report func(int, string)
}

// reprocessNoteHandler re-runs embedding and semantic link discovery for
// a note in sequence, for callers who changed content out of band and
// want both derived artifacts refreshed without enqueuing two jobs. The
// two stages are composed with pipz.NewSequence, the same connector the
// cogito reasoning chains use to wire processors one after another.
func reprocessNoteHandler(store archive.Store, bridge inference.Bridge, cfg noetic.Config) Handler {
	embed := embeddingHandler(store, bridge)
	links := semanticLinkDiscoveryHandler(store, bridge, cfg)

	embedStage := pipz.Apply(pipz.Name("embed"), func(ctx context.Context, s *reprocessState) (*reprocessState, error) {
		var payload ReprocessNotePayload
		if err := json.Unmarshal([]byte(s.job.Payload), &payload); err != nil {
			return s, fmt.Errorf("reprocess_note: invalid payload: %w", err)
		}
		embedPayload, _ := json.Marshal(EmbeddingPayload{NoteID: payload.NoteID, EmbeddingConfig: payload.EmbeddingConfig})
		_, err := embed(ctx, &Job{ID: s.job.ID, Payload: string(embedPayload)}, func(pct int, msg string) { s.report(pct/2, msg) })
		if err != nil {
			return s, fmt.Errorf("reprocess_note: embedding: %w", err)
		}
		return s, nil
	})

	linkStage := pipz.Apply(pipz.Name("link_discovery"), func(ctx context.Context, s *reprocessState) (*reprocessState, error) {
		var payload ReprocessNotePayload
		if err := json.Unmarshal([]byte(s.job.Payload), &payload); err != nil {
			return s, fmt.Errorf("reprocess_note: invalid payload: %w", err)
		}
		linkPayload, _ := json.Marshal(SemanticLinkDiscoveryPayload{NoteID: payload.NoteID, EmbeddingConfig: payload.EmbeddingConfig})
		_, err := links(ctx, &Job{ID: s.job.ID, Payload: string(linkPayload)}, func(pct int, msg string) { s.report(50+pct/2, msg) })
		if err != nil {
			return s, fmt.Errorf("reprocess_note: link discovery: %w", err)
		}
		return s, nil
	})

	pipeline := pipz.NewSequence(pipz.Name("reprocess_note"), embedStage, linkStage)

	return func(ctx context.Context, job *Job, report func(int, string)) (any, error) {
		_, err := pipeline.Process(ctx, &reprocessState{job: job, report: report})
		return nil, err
	}
}

// bulkTagHandler applies add/remove tag mutations per note, best-effort:
// one note's failure doesn't stop the rest. Per the same partial-failure
// rule as re_embed_all, the job succeeds if at least one note succeeded.
func bulkTagHandler(store archive.Store) Handler {
	return func(ctx context.Context, job *Job, report func(int, string)) (any, error) {
		var payload BulkTagPayload
		if err := json.Unmarshal([]byte(job.Payload), &payload); err != nil {
			return nil, fmt.Errorf("bulk_tag: invalid payload: %w", err)
		}
		result := BulkResult{Failed: make(map[string]string)}
		for i, id := range payload.NoteIDs {
			if err := bulkTagOne(ctx, store, id, payload.AddTags, payload.RemoveTags); err != nil {
				result.Failed[id] = err.Error()
			} else {
				result.Succeeded = append(result.Succeeded, id)
			}
			report((i+1)*100/len(payload.NoteIDs), fmt.Sprintf("tagged %d/%d", i+1, len(payload.NoteIDs)))
		}
		if len(result.Succeeded) == 0 && len(payload.NoteIDs) > 0 {
			return result, fmt.Errorf("bulk_tag: all %d note(s) failed", len(payload.NoteIDs))
		}
		return result, nil
	}
}

func bulkTagOne(ctx context.Context, store archive.Store, noteID string, add, remove []string) error {
	if len(add) > 0 {
		if err := store.AddTags(ctx, noteID, add); err != nil {
			return err
		}
	}
	if len(remove) > 0 {
		if err := store.RemoveTags(ctx, noteID, remove); err != nil {
			return err
		}
	}
	return nil
}

// bulkMoveHandler moves notes into (or out of) a collection, best-effort,
// with the same partial-failure rule as bulkTagHandler.
func bulkMoveHandler(store archive.Store) Handler {
	return func(ctx context.Context, job *Job, report func(int, string)) (any, error) {
		var payload BulkMovePayload
		if err := json.Unmarshal([]byte(job.Payload), &payload); err != nil {
			return nil, fmt.Errorf("bulk_move: invalid payload: %w", err)
		}
		result := BulkResult{Failed: make(map[string]string)}
		for i, id := range payload.NoteIDs {
			if err := store.SetCollection(ctx, id, payload.CollectionID); err != nil {
				result.Failed[id] = err.Error()
			} else {
				result.Succeeded = append(result.Succeeded, id)
			}
			report((i+1)*100/len(payload.NoteIDs), fmt.Sprintf("moved %d/%d", i+1, len(payload.NoteIDs)))
		}
		if len(result.Succeeded) == 0 && len(payload.NoteIDs) > 0 {
			return result, fmt.Errorf("bulk_move: all %d note(s) failed", len(payload.NoteIDs))
		}
		return result, nil
	}
}
