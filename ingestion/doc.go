// Package ingestion turns a directory of text files into a persisted vector
// store collection.
//
// The work is split into stages that can be used on their own:
//   - Loader reads *.txt files, detecting and decoding their text encoding
//   - CharacterSplitter cuts documents into overlapping rune windows
//   - Sink embeds chunks in batches, retrying transient failures, then writes
//     every vector to the collection in one batch and persists it
//
// Pipeline runs the three stages in order and prints progress lines.
// A run either stores every chunk or, on failure, writes nothing.
package ingestion
