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


package ingest

import "errors"

var (
	// ErrUnsupportedMIME indicates no registered adapter handles the MIME type.
	// This is a typed outcome, not a processing failure.
	ErrUnsupportedMIME = errors.New("unsupported MIME type")

	// ErrEmptyInput indicates the input carried no bytes at all.
	ErrEmptyInput = errors.New("empty input")
)
