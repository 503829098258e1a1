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


package core

import "errors"

// Domain validation errors
var (
	// ErrEmptyText indicates an IngestResult or Document carries no text.
	ErrEmptyText = errors.New("text cannot be empty")

	// ErrMissingContentHash indicates the content hash was never computed.
	ErrMissingContentHash = errors.New("content hash is required")

	// ErrHashMismatch indicates the content hash does not match the text,
	// which means the hash was mutated after being computed.
	ErrHashMismatch = errors.New("content hash does not match text")

	// ErrInvalidSourceType indicates an unknown SourceType value.
	ErrInvalidSourceType = errors.New("invalid source type")

	// ErrInvalidJobType indicates an unknown JobType value.
	ErrInvalidJobType = errors.New("invalid job type")

	// ErrPayloadMismatch indicates a job payload whose populated arm does not
	// match the job's declared type.
	ErrPayloadMismatch = errors.New("job payload does not match job type")

	// ErrModelMismatch indicates an attempt to compare embeddings produced by
	// different model IDs.
	ErrModelMismatch = errors.New("embeddings from different models are not comparable")
)
