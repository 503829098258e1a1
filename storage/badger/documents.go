package badger

import (
	"context"
	"strings"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/quarrylabs/quarry/core"
	"github.com/quarrylabs/quarry/storage"
)

// DocumentStore implements storage.DocumentStore for BadgerDB.
type DocumentStore struct {
	backend *Backend
}

var _ storage.DocumentStore = (*DocumentStore)(nil)

// NewDocumentStore creates a new DocumentStore over the backend.
func NewDocumentStore(backend *Backend) *DocumentStore {
	return &DocumentStore{backend: backend}
}

// Close is a no-op; the shared backend owns the database handle.
func (s *DocumentStore) Close() error {
	return nil
}

// Add stores a new document and its content-hash index entry.
func (s *DocumentStore) Add(ctx context.Context, doc *core.Document) error {
	return s.backend.WithTx(func(tx *badger.Txn) error {
		key := makeDocumentKey(doc.ID)

		existing, err := s.readDocument(tx, key)
		if err != nil {
			return err
		}
		if existing != nil {
			return storage.ErrDuplicateKey
		}

		if doc.IngestedAt == nil {
			now := time.Now().UTC()
			doc.IngestedAt = &now
		}

		value, err := storage.MarshalDocument(doc)
		if err != nil {
			return err
		}
		if err := tx.Set(key, value); err != nil {
			return err
		}

		// The hash index keeps its first owner: a later document with the
		// same content hash must still see the original as a duplicate.
		if doc.ContentHash != "" {
			hashKey := makeHashKey(doc.ContentHash)
			_, err := tx.Get(hashKey)
			if err == badger.ErrKeyNotFound {
				if err := tx.Set(hashKey, []byte(doc.ID)); err != nil {
					return err
				}
			} else if err != nil {
				return err
			}
		}

		return tx.Commit()
	}, true)
}

// Get retrieves a document by ID.
func (s *DocumentStore) Get(ctx context.Context, id string) (*core.Document, error) {
	var result *core.Document
	err := s.backend.WithTx(func(tx *badger.Txn) error {
		var err error
		result, err = s.readDocument(tx, makeDocumentKey(id))
		if err != nil {
			return err
		}
		if result == nil {
			return storage.ErrNotFound
		}
		return nil
	}, false)
	return result, err
}

// Delete removes a document and its content-hash index entry.
func (s *DocumentStore) Delete(ctx context.Context, id string) error {
	return s.backend.WithTx(func(tx *badger.Txn) error {
		key := makeDocumentKey(id)

		doc, err := s.readDocument(tx, key)
		if err != nil {
			return err
		}
		if doc == nil {
			return storage.ErrNotFound
		}

		// Only drop the hash index entry if this document owns it; another
		// document sharing the hash keeps its claim.
		if doc.ContentHash != "" {
			hashKey := makeHashKey(doc.ContentHash)
			if item, err := tx.Get(hashKey); err == nil {
				var owner string
				if err := item.Value(func(val []byte) error {
					owner = string(val)
					return nil
				}); err != nil {
					return err
				}
				if owner == id {
					if err := tx.Delete(hashKey); err != nil {
						return err
					}
				}
			} else if err != badger.ErrKeyNotFound {
				return err
			}
		}
		if err := tx.Delete(key); err != nil {
			return err
		}

		return tx.Commit()
	}, true)
}

// List retrieves up to limit documents.
func (s *DocumentStore) List(ctx context.Context, limit int) ([]*core.Document, error) {
	var results []*core.Document
	err := s.backend.WithTx(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(documentPrefix + ":")
		iter := tx.NewIterator(opts)
		defer iter.Close()

		for iter.Rewind(); iter.Valid(); iter.Next() {
			if limit > 0 && len(results) >= limit {
				break
			}
			var doc *core.Document
			err := iter.Item().Value(func(val []byte) error {
				var err error
				doc, err = storage.UnmarshalDocument(val)
				return err
			})
			if err != nil {
				return err
			}
			results = append(results, doc)
		}
		return nil
	}, false)
	return results, err
}

// UpdateMetadata merges fields into one namespace of the document's metadata.
func (s *DocumentStore) UpdateMetadata(ctx context.Context, id, namespace string, fields map[string]any) error {
	return s.backend.WithTx(func(tx *badger.Txn) error {
		key := makeDocumentKey(id)

		doc, err := s.readDocument(tx, key)
		if err != nil {
			return err
		}
		if doc == nil {
			return storage.ErrNotFound
		}

		if doc.Metadata == nil {
			doc.Metadata = make(map[string]any)
		}
		ns, _ := doc.Metadata[namespace].(map[string]any)
		if ns == nil {
			ns = make(map[string]any, len(fields))
		}
		for k, v := range fields {
			ns[k] = v
		}
		doc.Metadata[namespace] = ns

		value, err := storage.MarshalDocument(doc)
		if err != nil {
			return err
		}
		if err := tx.Set(key, value); err != nil {
			return err
		}

		return tx.Commit()
	}, true)
}

// SetEnrichmentStatus updates the document's enrichment status.
func (s *DocumentStore) SetEnrichmentStatus(ctx context.Context, id string, status core.EnrichmentStatus) error {
	return s.backend.WithTx(func(tx *badger.Txn) error {
		key := makeDocumentKey(id)

		doc, err := s.readDocument(tx, key)
		if err != nil {
			return err
		}
		if doc == nil {
			return storage.ErrNotFound
		}

		doc.EnrichmentStatus = status

		value, err := storage.MarshalDocument(doc)
		if err != nil {
			return err
		}
		if err := tx.Set(key, value); err != nil {
			return err
		}

		return tx.Commit()
	}, true)
}

// FindByContentHash returns the ID of the document carrying the given hash.
func (s *DocumentStore) FindByContentHash(ctx context.Context, hash string) (string, error) {
	var id string
	err := s.backend.WithTx(func(tx *badger.Txn) error {
		item, err := tx.Get(makeHashKey(hash))
		if err == badger.ErrKeyNotFound {
			return storage.ErrNotFound
		}
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			id = string(val)
			return nil
		})
	}, false)
	return id, err
}

// ListOtherContentHashes returns hashes of documents other than excludeID.
func (s *DocumentStore) ListOtherContentHashes(ctx context.Context, excludeID string, limit int) ([]storage.HashRef, error) {
	prefix := documentHashPrefix + ":"

	var refs []storage.HashRef
	err := s.backend.WithTx(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(prefix)
		iter := tx.NewIterator(opts)
		defer iter.Close()

		for iter.Rewind(); iter.Valid(); iter.Next() {
			if limit > 0 && len(refs) >= limit {
				break
			}
			item := iter.Item()
			hash := strings.TrimPrefix(string(item.Key()), prefix)

			var docID string
			err := item.Value(func(val []byte) error {
				docID = string(val)
				return nil
			})
			if err != nil {
				return err
			}
			if docID == excludeID {
				continue
			}
			refs = append(refs, storage.HashRef{DocumentID: docID, ContentHash: hash})
		}
		return nil
	}, false)
	return refs, err
}

// readDocument reads and unmarshals a document, returning nil if absent.
func (s *DocumentStore) readDocument(tx *badger.Txn, key []byte) (*core.Document, error) {
	item, err := tx.Get(key)
	if err == badger.ErrKeyNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var doc *core.Document
	err = item.Value(func(val []byte) error {
		var err error
		doc, err = storage.UnmarshalDocument(val)
		return err
	})
	return doc, err
}
