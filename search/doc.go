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

// Package search answers queries against a persisted vector store collection.
//
// A Retriever embeds the query text with the same embedding service used at
// ingestion time and returns the k stored chunks with the highest cosine
// similarity. Results can optionally be boosted when a chunk contains every
// significant query word. Retrievers also adapt to langchaingo's
// schema.Retriever so they can back a retrieval chain.
package search
