package core

import (
	"encoding/binary"
	"strconv"
	"time"

	"github.com/go-crypt/x/blake2b"
)

// ID is a unique identifier for stored chunks.
// It is generated using content-based hashing.
type ID uint64

// IDFromContent generates a deterministic ID from text content using BLAKE2b hashing.
// This ensures that identical content produces identical IDs.
func IDFromContent(text string) ID {
	h, _ := blake2b.New(8, nil) // 8 bytes = 64 bits
	h.Write([]byte(text))
	sum := h.Sum(nil)
	return ID(binary.LittleEndian.Uint64(sum))
}

// String returns the decimal form of the ID.
func (id ID) String() string {
	return strconv.FormatUint(uint64(id), 10)
}

// ParseID parses the decimal form produced by ID.String.
func ParseID(s string) (ID, error) {
	v, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0, err
	}
	return ID(v), nil
}

// EntityAnnotation is a labeled span of the input text.
// Start and End are byte offsets into the annotated string.
type EntityAnnotation struct {
	Label string  `json:"label"`
	Text  string  `json:"text"`
	Score float64 `json:"score"`
	Start int     `json:"start"`
	End   int     `json:"end"`
}

// DateAnnotation is a date mention found in the input text.
// Parsed holds an RFC 3339 timestamp; when the date could not be resolved
// Parsed is empty and Raw carries the service's unparsed value.
type DateAnnotation struct {
	Text   string `json:"matched_text"`
	Parsed string `json:"parsed_datetime,omitempty"`
	Raw    string `json:"raw,omitempty"`
}

// Value returns the parsed timestamp, or the raw fallback.
func (d DateAnnotation) Value() string {
	if d.Parsed != "" {
		return d.Parsed
	}
	return d.Raw
}

// Summary merges the entity and date annotations of one text.
type Summary struct {
	Entities []EntityAnnotation `json:"entities"`
	Dates    []DateAnnotation   `json:"dates"`
}

// Document is a loaded source file.
type Document struct {
	Source  string
	Content string
}

// Metadata keys attached to chunks.
const (
	MetadataSource = "source"
	MetadataIndex  = "chunk_index"
	MetadataOffset = "chunk_offset"
)

// Chunk is a bounded slice of a Document.
// Offset is the rune offset of the chunk within its source document.
type Chunk struct {
	Source  string
	Index   int
	Offset  int
	Content string
}

// ID derives the chunk's identity from its source, position and content.
func (c *Chunk) ID() ID {
	return IDFromContent(c.Source + "\x00" + strconv.Itoa(c.Index) + "\x00" + c.Content)
}

// Metadata returns the chunk's provenance as string pairs.
func (c *Chunk) Metadata() map[string]string {
	return map[string]string{
		MetadataSource: c.Source,
		MetadataIndex:  strconv.Itoa(c.Index),
		MetadataOffset: strconv.Itoa(c.Offset),
	}
}

// EmbeddedChunk is a chunk paired with its embedding vector.
type EmbeddedChunk struct {
	Id         ID
	Chunk      Chunk
	Vector     []float32
	InsertedAt time.Time
}

// DistanceCosine is the only distance metric collections support.
const DistanceCosine = "cosine"

// CollectionInfo describes a named vector store collection.
type CollectionInfo struct {
	Name      string
	Metric    string
	Dimension int
	Count     int
	UpdatedAt time.Time
}

// ChunkMatch is a retrieval hit.
type ChunkMatch struct {
	Chunk *EmbeddedChunk
	Score float32
}
