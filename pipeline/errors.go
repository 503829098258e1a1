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


package pipeline

import (
	"errors"
	"fmt"
)

var (
	// ErrDocumentStoreRequired is returned when a document store is not provided.
	ErrDocumentStoreRequired = errors.New("document store required")

	// ErrEmbeddingStoreRequired is returned when an embedding store is not provided.
	ErrEmbeddingStoreRequired = errors.New("embedding store required")

	// ErrJobStoreRequired is returned when a job store is not provided.
	ErrJobStoreRequired = errors.New("job store required")

	// ErrQueueRequired is returned when a queue is not provided.
	ErrQueueRequired = errors.New("queue required")

	// ErrRegistryRequired is returned when an adapter registry is not provided.
	ErrRegistryRequired = errors.New("adapter registry required")

	// ErrProviderRequired is returned when an AI provider is not provided.
	ErrProviderRequired = errors.New("AI provider required")

	// ErrUnknownJobType indicates a job type no processor exists for.
	ErrUnknownJobType = errors.New("unknown job type")

	// ErrInvalidMaxAttempts is returned for a non-positive attempt budget.
	ErrInvalidMaxAttempts = errors.New("max attempts must be positive")

	// ErrPermanent marks a job failure that must not be retried. Wrap with
	// Permanent; the queue fails such jobs immediately regardless of the
	// remaining attempt budget.
	ErrPermanent = errors.New("permanent job failure")
)

// Permanent wraps err so the queue fails the job without further retries.
func Permanent(err error) error {
	return fmt.Errorf("%w: %w", ErrPermanent, err)
}

// IsPermanent reports whether err carries the permanent-failure marker.
func IsPermanent(err error) bool {
	return errors.Is(err, ErrPermanent)
}
