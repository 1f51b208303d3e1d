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


// Package storage provides the vector store abstraction for ragprep.
//
// A Collection is a named set of embedded chunks with a fixed vector
// dimension, searched by cosine similarity. Two backends implement it:
//
//   - storage/badger: BadgerDB key-value store with MUS-encoded records (default)
//   - storage/chromem: chromem-go embedded vector database
//
// # Constructor Return Type Pattern
//
// Public backend constructors return the storage.Collection interface:
//
//	coll, err := badger.OpenCollection("db/chroma_db", "documents")
//
// Tests use in-memory storage:
//
//	coll, err := badger.NewMemoryCollection("documents")
//	if err != nil {
//	    t.Fatal(err)
//	}
//	defer coll.Close()
//
// # Similarity
//
// The distance metric is always cosine. Backends normalize vectors on write
// so that similarity reduces to a dot product at query time.
//
// # langchaingo
//
// VectorStore adapts any Collection to vectorstores.VectorStore so that the
// collection can be used with langchaingo chains and retrievers.
//
// # Thread Safety
//
// Collections support concurrent readers. Writes to one collection are
// expected to come from a single writer.
package storage
