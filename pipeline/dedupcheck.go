package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/quarrylabs/quarry/core"
	"github.com/quarrylabs/quarry/dedup"
	"github.com/quarrylabs/quarry/storage"
)

// DefaultCandidateLimit bounds how many existing records a dedup check
// compares against when the payload does not supply candidate sets.
const DefaultCandidateLimit = 1000

// DedupCheckProcessor runs the three-tier duplicate check (content hash,
// near-duplicate vectors, entity identifiers) for one document and records
// the verdict in the document's "dedup" metadata namespace. It only ever
// writes the subject document; flagged duplicates are left untouched for a
// human or a policy layer to resolve.
type DedupCheckProcessor struct {
	docs           storage.DocumentStore
	embs           storage.EmbeddingStore
	candidateLimit int
	nearThreshold  float32
	logger         *slog.Logger
}

var _ Processor = (*DedupCheckProcessor)(nil)

// NewDedupCheckProcessor creates a processor for dedup-check jobs.
func NewDedupCheckProcessor(docs storage.DocumentStore, embs storage.EmbeddingStore, logger *slog.Logger) *DedupCheckProcessor {
	if logger == nil {
		logger = slog.Default()
	}
	return &DedupCheckProcessor{
		docs:           docs,
		embs:           embs,
		candidateLimit: DefaultCandidateLimit,
		nearThreshold:  dedup.DefaultNearThreshold,
		logger:         logger.With("component", "dedup-processor"),
	}
}

func (p *DedupCheckProcessor) Process(ctx context.Context, job *core.Job) error {
	payload := job.Payload.DedupCheck
	if payload == nil {
		return Permanent(core.ErrPayloadMismatch)
	}
	if job.DocumentID == "" {
		return Permanent(fmt.Errorf("dedup-check job %s has no document id", job.ID))
	}

	result := dedup.Result{}

	hashDup, hashMatchID, err := p.checkHash(ctx, job.DocumentID, payload)
	if err != nil {
		return err
	}
	result.HashDuplicate = hashDup

	if payload.ModelID != "" {
		result.Near, err = p.checkNear(ctx, job.DocumentID, payload.ModelID)
		if err != nil {
			return err
		}
	}

	result.Entity, err = p.checkEntity(ctx, job.DocumentID, payload.Candidates)
	if err != nil {
		return err
	}

	fields := map[string]any{
		"duplicate":     result.Duplicate(),
		"hashDuplicate": result.HashDuplicate,
		"checkedAt":     time.Now().UTC().Format(time.RFC3339),
	}
	if hashMatchID != "" {
		fields["hashMatchId"] = hashMatchID
	}
	if result.Near != nil {
		fields["nearDuplicateId"] = result.Near.DocumentID
		fields["nearSimilarity"] = result.Near.Similarity
	}
	if result.Entity != nil {
		fields["entityMatchId"] = result.Entity.DocumentID
		fields["entityField"] = result.Entity.Field
	}

	if err := p.docs.UpdateMetadata(ctx, job.DocumentID, "dedup", fields); err != nil {
		return fmt.Errorf("store dedup verdict for %s: %w", job.DocumentID, err)
	}

	if result.Duplicate() {
		p.logger.Info("duplicate detected", "documentId", job.DocumentID,
			"hash", result.HashDuplicate, "near", result.Near != nil, "entity", result.Entity != nil)
	}
	return nil
}

// checkHash reports whether the subject's content hash is already known and,
// when the match came from the store, which document carries it.
// Caller-supplied hashes carry no document IDs, so a match against them
// reports the bare fact with no attribution.
func (p *DedupCheckProcessor) checkHash(ctx context.Context, documentID string, payload *core.DedupCheckPayload) (bool, string, error) {
	if payload.ContentHash == "" {
		return false, "", nil
	}

	if payload.KnownHashes != nil {
		return dedup.NewHashSet(payload.KnownHashes...).Contains(payload.ContentHash), "", nil
	}

	refs, err := p.docs.ListOtherContentHashes(ctx, documentID, p.candidateLimit)
	if err != nil {
		return false, "", fmt.Errorf("list content hashes: %w", err)
	}
	for _, ref := range refs {
		if ref.ContentHash == payload.ContentHash {
			return true, ref.DocumentID, nil
		}
	}
	return false, "", nil
}

// checkNear compares every chunk of the subject against other documents'
// embeddings under the same model and keeps the best match overall. Absent
// subject embeddings are a retryable condition, not a verdict: the embed job
// for the document may simply not have landed yet.
func (p *DedupCheckProcessor) checkNear(ctx context.Context, documentID, modelID string) (*dedup.NearMatch, error) {
	subject, err := p.embs.GetBySource(ctx, documentID, modelID)
	if err != nil {
		return nil, fmt.Errorf("load subject embeddings: %w", err)
	}
	if len(subject) == 0 {
		return nil, fmt.Errorf("embeddings for document %s under model %s not yet stored", documentID, modelID)
	}

	others, err := p.embs.ListOtherEmbeddings(ctx, modelID, documentID, p.candidateLimit)
	if err != nil {
		return nil, fmt.Errorf("list candidate embeddings: %w", err)
	}
	candidates := make([]core.Embedding, len(others))
	for i, e := range others {
		candidates[i] = *e
	}

	var best *dedup.NearMatch
	for _, emb := range subject {
		match := dedup.FindNearDuplicate(*emb, candidates, p.nearThreshold)
		if match == nil {
			continue
		}
		if best == nil || match.Similarity > best.Similarity {
			best = match
		}
	}
	return best, nil
}

// checkEntity matches the subject's extracted entities against candidate
// identifier records. When the payload supplies no candidates they are
// derived from the enriched metadata of other stored documents.
func (p *DedupCheckProcessor) checkEntity(ctx context.Context, documentID string, candidates []core.EntityCandidate) (*dedup.EntityMatch, error) {
	doc, err := p.docs.Get(ctx, documentID)
	if err != nil {
		return nil, fmt.Errorf("load subject document: %w", err)
	}

	keys := entityKeys(doc)
	if len(keys) == 0 {
		return nil, nil
	}

	if candidates == nil {
		candidates, err = p.collectEntityCandidates(ctx, documentID)
		if err != nil {
			return nil, err
		}
	}

	for _, key := range keys {
		if match := dedup.MatchEntity(key, candidates); match != nil {
			return match, nil
		}
	}
	return nil, nil
}

func (p *DedupCheckProcessor) collectEntityCandidates(ctx context.Context, excludeID string) ([]core.EntityCandidate, error) {
	docs, err := p.docs.List(ctx, p.candidateLimit)
	if err != nil {
		return nil, fmt.Errorf("list candidate documents: %w", err)
	}

	var candidates []core.EntityCandidate
	for _, doc := range docs {
		if doc.ID == excludeID {
			continue
		}
		for _, key := range entityKeys(doc) {
			candidates = append(candidates, core.EntityCandidate{
				DocumentID: doc.ID,
				Email:      key.Email,
				Name:       key.Name,
				Company:    key.Company,
				Domain:     key.Domain,
			})
		}
	}
	return candidates, nil
}

// entityKeys reads the entities recorded by enrichment out of a document's
// metadata. Tolerant of shape drift: anything that is not the expected
// map/list structure is skipped rather than failing the job.
func entityKeys(doc *core.Document) []dedup.EntityKey {
	if doc == nil || doc.Metadata == nil {
		return nil
	}
	enrich, ok := doc.Metadata["enrich"].(map[string]any)
	if !ok {
		return nil
	}
	raw, ok := enrich["entities"].([]any)
	if !ok {
		return nil
	}

	var keys []dedup.EntityKey
	for _, item := range raw {
		entity, ok := item.(map[string]any)
		if !ok {
			continue
		}
		key := dedup.EntityKey{
			Email:   stringField(entity, "email"),
			Name:    stringField(entity, "name"),
			Company: stringField(entity, "company"),
			Domain:  stringField(entity, "domain"),
		}
		if key.Email == "" && key.Name == "" && key.Company == "" && key.Domain == "" {
			continue
		}
		keys = append(keys, key)
	}
	return keys
}

func stringField(m map[string]any, key string) string {
	s, _ := m[key].(string)
	return s
}
