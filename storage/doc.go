// Copyright 2025 Quarry Labs
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


// Package storage provides the storage abstraction layer for Quarry.
//
// This package defines store interfaces that decouple storage implementation
// from the ingestion pipeline. It allows different storage backends (BadgerDB,
// in-memory, etc.) to be used interchangeably.
//
// # Constructor Return Type Pattern
//
// This package follows a strict "return interface" pattern for all public
// constructors to enforce abstraction and enable multiple storage backend
// implementations:
//
//	docs, err := badger.NewDocumentStore(backend)  // returns storage.DocumentStore
//
// This design decision prioritizes:
//   - Abstraction: Prevents accidental coupling to BadgerDB specifics
//   - Swappability: Easy to add alternative backends (PostgreSQL, in-memory, etc.)
//   - Testing: Consumers can use test implementations without modification
//
// Internal package constructors may return concrete types since they're only
// used within the implementation package.
//
// # Architecture
//
// The storage layer splits persistence into three stores:
//
//   - DocumentStore: Ingested documents, their metadata, and the content-hash index
//   - EmbeddingStore: Per-chunk embedding vectors, keyed by (source, model, chunk)
//   - JobStore: Durable pipeline jobs with a run-time index for the scheduler
//
// # Usage
//
// Create stores over a shared backend:
//
//	backend, err := badger.OpenBackend("/path/to/db", false)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer backend.Close()
//	docs := badger.NewDocumentStore(backend)
//
// Use in tests with in-memory storage:
//
//	docs, embs, jobs, backend, err := badger.NewMemoryStores()
//
// # Thread Safety
//
// All store implementations must be thread-safe and support concurrent access
// from multiple goroutines.
//
// # Context Support
//
// All store methods accept context.Context for cancellation and timeout
// support. Pass context.Background() for operations without specific timeout
// requirements.
package storage
