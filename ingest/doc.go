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


// Package ingest normalizes heterogeneous inputs into plain text.
//
// Each modality (documents, audio, images, web pages, CSV, API feeds) has an
// Adapter; a Registry dispatches raw bytes to the first adapter accepting the
// input's MIME type. Adapters fail open: backend trouble yields a nil result
// rather than an error, so a flaky transcription service can never wedge the
// pipeline. An unsupported MIME type is the one typed outcome
// (ErrUnsupportedMIME).
//
// Adapters are registered at startup, most specific first:
//
//	reg := ingest.NewRegistry()
//	reg.Register(ingest.NewCSVAdapter())
//	reg.Register(ingest.NewAPIFeedAdapter())
//	reg.Register(ingest.NewWebAdapter("http://localhost:8011"))
//	reg.Register(ingest.NewDocumentAdapter())
//
//	result, err := reg.Ingest(ctx, data, "application/pdf", nil)
package ingest
