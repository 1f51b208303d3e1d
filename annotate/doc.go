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


// Package annotate turns raw text into entity and date annotations.
//
// Two independent extractors do the work:
//
//   - EntityExtractor calls an ai.EntityTagger and merges its word-piece
//     IOB tags into whole-word spans.
//   - DateExtractor calls a DateSearcher (go-dateparser in production) and
//     trims each match down to the date itself.
//
// Annotator runs both on the same text, one after the other, and merges the
// results into a core.Summary.
//
// The default tagging model (dslim/bert-base-NER) knows PER, ORG, LOC and
// MISC. It has no DATE category, which is why dates come from a separate
// extractor; the entity output is reported as the model produced it.
//
// Neither extractor returns an error. A failing service, an open circuit
// breaker or blank input yields an empty result and a logged warning.
package annotate
