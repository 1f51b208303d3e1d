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


// Package ai provides abstractions for the external AI services used by ragprep.
//
// Two services are modelled, both behind narrow interfaces so the pipelines
// never depend on a concrete provider:
//
//   - Embedder: turns text into vectors for the vector store
//   - EntityTagger: returns token-level named-entity tags for text
//
// AIProvider bundles both for convenient initialization and lifecycle
// management.
//
// # Implementation Packages
//
//   - ai/openai: OpenAI-compatible embeddings and a chat-model entity tagger
//   - ai/huggingface: Hugging Face Inference token classification
//   - ai/mock: Test doubles for unit testing without external dependencies
//
// # Constructor Return Type Pattern
//
// Public constructors (openai.NewProvider, openai.NewEmbedder,
// huggingface.NewTagger) return INTERFACE types to enforce abstraction.
// Mock constructors (mock.NewMockEmbedder, mock.NewMockEntityTagger) return
// CONCRETE types so tests can inject behavior and assert on call counts.
//
//	mockEmbed := mock.NewMockEmbedder()  // returns *mock.MockEmbedder
//	mockEmbed.EmbedTextsFunc = ...       // needs concrete type
//	count := mockEmbed.CallCount()       // test assertion
//
// # Tags
//
// Taggers speak IOB: "B-PER" opens an entity, "I-PER" continues it and "O"
// marks tokens outside any entity. Word-piece models also split long words
// into "##" continuation pieces. The default model knows PER, ORG, LOC and
// MISC only; dates are not an entity category.
//
// # Errors
//
// Service errors are classified as *llms.Error values from langchaingo.
// IsPermanent separates failures retrying cannot fix (authentication,
// invalid request, quota) from transient ones (rate limits, timeouts,
// unavailable providers).
package ai
