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


package core

import (
	"fmt"
	"strings"
)

// ValidateChunk checks that a chunk carries content and provenance.
func ValidateChunk(chunk *Chunk) error {
	if chunk == nil {
		return fmt.Errorf("%w: chunk is nil", ErrInvalidChunk)
	}

	if chunk.Content == "" {
		return fmt.Errorf("%w: %w", ErrInvalidChunk, ErrEmptyContent)
	}

	if chunk.Source == "" {
		return fmt.Errorf("%w: %w", ErrInvalidChunk, ErrEmptySource)
	}

	if chunk.Index < 0 || chunk.Offset < 0 {
		return fmt.Errorf("%w: negative position (index %d, offset %d)", ErrInvalidChunk, chunk.Index, chunk.Offset)
	}

	return nil
}

// ValidateEmbeddedChunk checks the chunk and its vector.
func ValidateEmbeddedChunk(ec *EmbeddedChunk) error {
	if ec == nil {
		return fmt.Errorf("%w: embedded chunk is nil", ErrInvalidEmbeddedChunk)
	}

	if err := ValidateChunk(&ec.Chunk); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidEmbeddedChunk, err)
	}

	if len(ec.Vector) == 0 {
		return fmt.Errorf("%w: %w", ErrInvalidEmbeddedChunk, ErrEmptyVector)
	}

	return nil
}

// ValidateCollectionName rejects names that cannot be used as a key namespace.
func ValidateCollectionName(name string) error {
	if strings.TrimSpace(name) == "" {
		return fmt.Errorf("%w: name is empty", ErrInvalidCollectionName)
	}
	if strings.ContainsAny(name, ":/\\\x00") {
		return fmt.Errorf("%w: %q contains a reserved character", ErrInvalidCollectionName, name)
	}
	return nil
}
