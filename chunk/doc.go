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


// Package chunk splits normalized text into retrieval-sized units.
//
// Four interchangeable strategies sit behind one selection function, Split:
//
//   - StrategyFixed: character windows of ChunkSize with an explicit Overlap
//     repeated at each boundary.
//   - StrategySliding: same shape, overlap derived as 20% of the window size.
//   - StrategyEntity: one logical record per chunk, split on a delimiter.
//   - StrategySemantic: sentence-level segmentation with boundaries placed
//     where embedding similarity between consecutive windows drops.
//
// Fixed, sliding and entity chunking are deterministic. Semantic chunking is
// deterministic given a deterministic embedding function, and falls back to
// the fixed strategy (fail-open) when no embeddings can be obtained.
//
// All strategies perform no I/O other than the injected embedding function
// and never block.
package chunk
