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


package storage

import (
	"fmt"
	"time"

	"github.com/mus-format/mus-go/ord"
	"github.com/mus-format/mus-go/raw"
	"github.com/mus-format/mus-go/varint"
	"github.com/poiesic/ragprep/core"
)

// EmbeddedChunkMUS is the MUS serializer for core.EmbeddedChunk.
// Field order: Id, Source, Index, Offset, Content, Vector, InsertedAt (unix micro).
var EmbeddedChunkMUS = embeddedChunkMUS{}

// CollectionInfoMUS is the MUS serializer for core.CollectionInfo.
// Count is derived from the stored records and is not serialized.
var CollectionInfoMUS = collectionInfoMUS{}

type embeddedChunkMUS struct{}

func (embeddedChunkMUS) Size(v core.EmbeddedChunk) (size int) {
	size = varint.Uint64.Size(uint64(v.Id))
	size += ord.String.Size(v.Chunk.Source)
	size += varint.PositiveInt.Size(v.Chunk.Index)
	size += varint.PositiveInt.Size(v.Chunk.Offset)
	size += ord.String.Size(v.Chunk.Content)
	size += vectorSize(v.Vector)
	return size + varint.Int64.Size(timeToMicro(v.InsertedAt))
}

func (embeddedChunkMUS) Marshal(v core.EmbeddedChunk, bs []byte) (n int) {
	n = varint.Uint64.Marshal(uint64(v.Id), bs)
	n += ord.String.Marshal(v.Chunk.Source, bs[n:])
	n += varint.PositiveInt.Marshal(v.Chunk.Index, bs[n:])
	n += varint.PositiveInt.Marshal(v.Chunk.Offset, bs[n:])
	n += ord.String.Marshal(v.Chunk.Content, bs[n:])
	n += marshalVector(v.Vector, bs[n:])
	return n + varint.Int64.Marshal(timeToMicro(v.InsertedAt), bs[n:])
}

func (embeddedChunkMUS) Unmarshal(bs []byte) (v core.EmbeddedChunk, n int, err error) {
	id, n, err := varint.Uint64.Unmarshal(bs)
	if err != nil {
		return
	}
	v.Id = core.ID(id)
	var n1 int
	v.Chunk.Source, n1, err = ord.String.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	v.Chunk.Index, n1, err = varint.PositiveInt.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	v.Chunk.Offset, n1, err = varint.PositiveInt.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	v.Chunk.Content, n1, err = ord.String.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	v.Vector, n1, err = unmarshalVector(bs[n:])
	n += n1
	if err != nil {
		return
	}
	micro, n1, err := varint.Int64.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	v.InsertedAt = microToTime(micro)
	return
}

type collectionInfoMUS struct{}

func (collectionInfoMUS) Size(v core.CollectionInfo) (size int) {
	size = ord.String.Size(v.Name)
	size += ord.String.Size(v.Metric)
	size += varint.PositiveInt.Size(v.Dimension)
	return size + varint.Int64.Size(timeToMicro(v.UpdatedAt))
}

func (collectionInfoMUS) Marshal(v core.CollectionInfo, bs []byte) (n int) {
	n = ord.String.Marshal(v.Name, bs)
	n += ord.String.Marshal(v.Metric, bs[n:])
	n += varint.PositiveInt.Marshal(v.Dimension, bs[n:])
	return n + varint.Int64.Marshal(timeToMicro(v.UpdatedAt), bs[n:])
}

func (collectionInfoMUS) Unmarshal(bs []byte) (v core.CollectionInfo, n int, err error) {
	v.Name, n, err = ord.String.Unmarshal(bs)
	if err != nil {
		return
	}
	var n1 int
	v.Metric, n1, err = ord.String.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	v.Dimension, n1, err = varint.PositiveInt.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	micro, n1, err := varint.Int64.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	v.UpdatedAt = microToTime(micro)
	return
}

func vectorSize(vec []float32) (size int) {
	size = varint.PositiveInt.Size(len(vec))
	for _, f := range vec {
		size += raw.Float32.Size(f)
	}
	return size
}

func marshalVector(vec []float32, bs []byte) (n int) {
	n = varint.PositiveInt.Marshal(len(vec), bs)
	for _, f := range vec {
		n += raw.Float32.Marshal(f, bs[n:])
	}
	return n
}

func unmarshalVector(bs []byte) (vec []float32, n int, err error) {
	length, n, err := varint.PositiveInt.Unmarshal(bs)
	if err != nil {
		return
	}
	// Each float32 occupies four bytes on the wire.
	if length < 0 || length*4 > len(bs)-n {
		err = ErrTruncatedData
		return
	}
	vec = make([]float32, length)
	var n1 int
	for i := range vec {
		vec[i], n1, err = raw.Float32.Unmarshal(bs[n:])
		n += n1
		if err != nil {
			return
		}
	}
	return
}

func timeToMicro(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UnixMicro()
}

func microToTime(micro int64) time.Time {
	if micro == 0 {
		return time.Time{}
	}
	return time.UnixMicro(micro).UTC()
}

// MarshalEmbeddedChunk serializes an EmbeddedChunk to bytes.
func MarshalEmbeddedChunk(chunk *core.EmbeddedChunk) []byte {
	buf := make([]byte, EmbeddedChunkMUS.Size(*chunk))
	EmbeddedChunkMUS.Marshal(*chunk, buf)
	return buf
}

// UnmarshalEmbeddedChunk deserializes an EmbeddedChunk from bytes.
func UnmarshalEmbeddedChunk(data []byte) (*core.EmbeddedChunk, error) {
	chunk, _, err := EmbeddedChunkMUS.Unmarshal(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSerializationFailed, err)
	}
	return &chunk, nil
}

// MarshalCollectionInfo serializes a CollectionInfo to bytes.
func MarshalCollectionInfo(info *core.CollectionInfo) []byte {
	buf := make([]byte, CollectionInfoMUS.Size(*info))
	CollectionInfoMUS.Marshal(*info, buf)
	return buf
}

// UnmarshalCollectionInfo deserializes a CollectionInfo from bytes.
func UnmarshalCollectionInfo(data []byte) (*core.CollectionInfo, error) {
	info, _, err := CollectionInfoMUS.Unmarshal(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSerializationFailed, err)
	}
	return &info, nil
}
