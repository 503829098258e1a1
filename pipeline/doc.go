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


// Package pipeline runs the asynchronous half of ingestion: a durable job
// queue plus the processors that embed, enrich, deduplicate, re-embed,
// freshness-score and scrape documents.
//
// Jobs are persisted before execution and survive restarts. A failing job is
// retried with exponential backoff until its attempt budget is exhausted,
// then parked as failed with its last error; processors are written to be
// idempotent so a crash between execution and bookkeeping cannot corrupt
// state, only repeat work.
package pipeline
