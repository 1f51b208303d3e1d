// Copyright 2025 Poiesic Systems
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

import (
	"regexp"
	"strings"
)

// unquotedKey matches a key that lost its opening quote, e.g. `, label":`.
var unquotedKey = regexp.MustCompile(`([{,]\s*)([A-Za-z_][A-Za-z_ ]*?)":`)

// trailingComma matches a comma directly before a closing bracket.
var trailingComma = regexp.MustCompile(`,(\s*[}\]])`)

// repairJSON fixes the JSON mistakes small models make most often:
// keys missing their opening quote and trailing commas.
func repairJSON(s string) string {
	s = unquotedKey.ReplaceAllStringFunc(s, func(m string) string {
		parts := unquotedKey.FindStringSubmatch(m)
		return parts[1] + `"` + strings.TrimSpace(parts[2]) + `":`
	})
	return trailingComma.ReplaceAllString(s, "$1")
}

// stripCodeFence removes a markdown code fence wrapped around a model response.
func stripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}
