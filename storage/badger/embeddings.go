package badger

import (
	"context"

	"github.com/dgraph-io/badger/v4"
	"github.com/quarrylabs/quarry/core"
	"github.com/quarrylabs/quarry/storage"
)

// EmbeddingStore implements storage.EmbeddingStore for BadgerDB.
type EmbeddingStore struct {
	backend *Backend
}

var _ storage.EmbeddingStore = (*EmbeddingStore)(nil)

// NewEmbeddingStore creates a new EmbeddingStore over the backend.
func NewEmbeddingStore(backend *Backend) *EmbeddingStore {
	return &EmbeddingStore{backend: backend}
}

// Close is a no-op; the shared backend owns the database handle.
func (s *EmbeddingStore) Close() error {
	return nil
}

// Put stores embeddings, overwriting same-coordinate entries.
func (s *EmbeddingStore) Put(ctx context.Context, embeddings ...*core.Embedding) error {
	return s.backend.WithTx(func(tx *badger.Txn) error {
		for _, emb := range embeddings {
			if err := writeEmbedding(tx, emb); err != nil {
				return err
			}
		}
		return tx.Commit()
	}, true)
}

// GetBySource retrieves a document's embeddings under one model, in chunk order.
func (s *EmbeddingStore) GetBySource(ctx context.Context, sourceID, modelID string) ([]*core.Embedding, error) {
	results := []*core.Embedding{}
	err := s.backend.WithTx(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = makeEmbeddingSourceModelPrefix(sourceID, modelID)
		iter := tx.NewIterator(opts)
		defer iter.Close()

		for iter.Rewind(); iter.Valid(); iter.Next() {
			emb, err := readEmbedding(iter.Item())
			if err != nil {
				return err
			}
			results = append(results, emb)
		}
		return nil
	}, false)
	return results, err
}

// DeleteBySource removes all of a document's embeddings across models.
func (s *EmbeddingStore) DeleteBySource(ctx context.Context, sourceID string) error {
	return s.backend.WithTx(func(tx *badger.Txn) error {
		keys, err := collectKeys(tx, makeEmbeddingSourcePrefix(sourceID))
		if err != nil {
			return err
		}
		for _, key := range keys {
			if err := tx.Delete(key); err != nil {
				return err
			}
		}
		return tx.Commit()
	}, true)
}

// ListSourceIDs returns the distinct document IDs embedded under a model.
func (s *EmbeddingStore) ListSourceIDs(ctx context.Context, modelID string) ([]string, error) {
	var ids []string
	seen := make(map[string]struct{})

	err := s.backend.WithTx(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(embeddingPrefix + ":")
		iter := tx.NewIterator(opts)
		defer iter.Close()

		for iter.Rewind(); iter.Valid(); iter.Next() {
			emb, err := readEmbedding(iter.Item())
			if err != nil {
				return err
			}
			if emb.ModelID != modelID {
				continue
			}
			if _, ok := seen[emb.SourceID]; ok {
				continue
			}
			seen[emb.SourceID] = struct{}{}
			ids = append(ids, emb.SourceID)
		}
		return nil
	}, false)
	return ids, err
}

// ListOtherEmbeddings retrieves embeddings under a model, excluding one source.
func (s *EmbeddingStore) ListOtherEmbeddings(ctx context.Context, modelID, excludeID string, limit int) ([]*core.Embedding, error) {
	results := []*core.Embedding{}
	err := s.backend.WithTx(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(embeddingPrefix + ":")
		iter := tx.NewIterator(opts)
		defer iter.Close()

		for iter.Rewind(); iter.Valid(); iter.Next() {
			if limit > 0 && len(results) >= limit {
				break
			}
			emb, err := readEmbedding(iter.Item())
			if err != nil {
				return err
			}
			if emb.ModelID != modelID || emb.SourceID == excludeID {
				continue
			}
			results = append(results, emb)
		}
		return nil
	}, false)
	return results, err
}

// ReplaceModel atomically swaps a document's embeddings from one model
// generation to another. Old entries are deleted and replacements written
// in a single transaction.
func (s *EmbeddingStore) ReplaceModel(ctx context.Context, sourceID, oldModelID string, replacements []*core.Embedding) error {
	return s.backend.WithTx(func(tx *badger.Txn) error {
		keys, err := collectKeys(tx, makeEmbeddingSourceModelPrefix(sourceID, oldModelID))
		if err != nil {
			return err
		}
		for _, key := range keys {
			if err := tx.Delete(key); err != nil {
				return err
			}
		}
		for _, emb := range replacements {
			if err := writeEmbedding(tx, emb); err != nil {
				return err
			}
		}
		return tx.Commit()
	}, true)
}

func writeEmbedding(tx *badger.Txn, emb *core.Embedding) error {
	value, err := storage.MarshalEmbedding(emb)
	if err != nil {
		return err
	}
	return tx.Set(makeEmbeddingKey(emb.SourceID, emb.ModelID, emb.Chunk), value)
}

func readEmbedding(item *badger.Item) (*core.Embedding, error) {
	var emb *core.Embedding
	err := item.Value(func(val []byte) error {
		var err error
		emb, err = storage.UnmarshalEmbedding(val)
		return err
	})
	return emb, err
}

// collectKeys copies all keys under a prefix so they can be deleted after
// the iterator is closed.
func collectKeys(tx *badger.Txn, prefix []byte) ([][]byte, error) {
	opts := badger.DefaultIteratorOptions
	opts.Prefix = prefix
	opts.PrefetchValues = false
	iter := tx.NewIterator(opts)
	defer iter.Close()

	var keys [][]byte
	for iter.Rewind(); iter.Valid(); iter.Next() {
		keys = append(keys, iter.Item().KeyCopy(nil))
	}
	return keys, nil
}
