package badger

import (
	"fmt"

	"github.com/poiesic/ragprep/core"
)

// Key prefixes for different data types
const (
	collectionPrefix = "colmeta"
	chunkPrefix      = "chunk"
)

// makeCollectionKey generates the key holding a collection's metadata.
func makeCollectionKey(name string) []byte {
	return []byte(fmt.Sprintf("%s:%s", collectionPrefix, name))
}

// makeChunkPrefix generates the iteration prefix for a collection's chunks.
// Format: prefix:collection:
func makeChunkPrefix(collection string) []byte {
	return []byte(fmt.Sprintf("%s:%s:", chunkPrefix, collection))
}

// makeChunkKey generates a key for an embedded chunk by ID.
// Format: prefix:collection:id
func makeChunkKey(collection string, id core.ID) []byte {
	return []byte(fmt.Sprintf("%s:%s:%d", chunkPrefix, collection, id))
}
