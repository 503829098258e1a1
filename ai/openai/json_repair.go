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


package openai

// repairJSON attempts to fix common JSON formatting issues in LLM responses.
// It specifically handles missing opening quotes before keys in JSON objects,
// e.g. `, summary":` becomes `, "summary":`.
func repairJSON(s string) string {
	src := []rune(s)
	fixed := make([]rune, 0, len(src)+16)

	i := 0
	for i < len(src) {
		ch := src[i]

		// Keys can only start after { or ,
		if ch != '{' && ch != ',' {
			fixed = append(fixed, ch)
			i++
			continue
		}

		fixed = append(fixed, ch)
		i++

		for i < len(src) && (src[i] == ' ' || src[i] == '\n' || src[i] == '\t') {
			fixed = append(fixed, src[i])
			i++
		}

		// An unquoted key starts with a letter rather than a quote
		if i >= len(src) || src[i] == '"' || !isLetter(src[i]) {
			continue
		}

		keyStart := i
		for i < len(src) && (isLetter(src[i]) || src[i] == '_' || src[i] == ' ') {
			i++
		}

		if i+1 < len(src) && src[i] == '"' && src[i+1] == ':' {
			// The closing quote is present, so only the opening one is missing.
			fixed = append(fixed, '"')
			fixed = append(fixed, src[keyStart:i]...)
		} else {
			// Not a key after all; copy what was skipped unchanged.
			fixed = append(fixed, src[keyStart:i]...)
		}
	}

	return string(fixed)
}

// isLetter returns true if the rune is an ASCII letter.
func isLetter(r rune) bool {
	return (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z')
}
