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


package storage

import (
	"encoding/json"
	"fmt"

	"github.com/quarrylabs/quarry/core"
)

// Stored values are JSON. Document metadata is an open map[string]any, so a
// schema-bound binary codec can't represent it without losing information.

// MarshalDocument serializes a Document to bytes.
func MarshalDocument(doc *core.Document) ([]byte, error) {
	data, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("%w: document %s: %v", ErrSerializationFailed, doc.ID, err)
	}
	return data, nil
}

// UnmarshalDocument deserializes a Document from bytes.
func UnmarshalDocument(data []byte) (*core.Document, error) {
	var doc core.Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: document: %v", ErrSerializationFailed, err)
	}
	return &doc, nil
}

// MarshalEmbedding serializes an Embedding to bytes.
func MarshalEmbedding(emb *core.Embedding) ([]byte, error) {
	data, err := json.Marshal(emb)
	if err != nil {
		return nil, fmt.Errorf("%w: embedding %s/%s: %v", ErrSerializationFailed, emb.SourceID, emb.ModelID, err)
	}
	return data, nil
}

// UnmarshalEmbedding deserializes an Embedding from bytes.
func UnmarshalEmbedding(data []byte) (*core.Embedding, error) {
	var emb core.Embedding
	if err := json.Unmarshal(data, &emb); err != nil {
		return nil, fmt.Errorf("%w: embedding: %v", ErrSerializationFailed, err)
	}
	return &emb, nil
}

// MarshalJob serializes a Job to bytes.
func MarshalJob(job *core.Job) ([]byte, error) {
	data, err := json.Marshal(job)
	if err != nil {
		return nil, fmt.Errorf("%w: job %s: %v", ErrSerializationFailed, job.ID, err)
	}
	return data, nil
}

// UnmarshalJob deserializes a Job from bytes.
func UnmarshalJob(data []byte) (*core.Job, error) {
	var job core.Job
	if err := json.Unmarshal(data, &job); err != nil {
		return nil, fmt.Errorf("%w: job: %v", ErrSerializationFailed, err)
	}
	return &job, nil
}
