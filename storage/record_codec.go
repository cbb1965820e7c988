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
	"slices"
	"time"

	"github.com/mus-format/mus-go/ord"
	"github.com/mus-format/mus-go/raw"
	"github.com/mus-format/mus-go/varint"
	"github.com/poiesic/docindex/core"
)

// recordFormat leads every encoded record.
const recordFormat = 1

// Record layout, in order:
//
//	format, id, inserted-at (unix nanos), content, source, sequence, kind,
//	attribute count, attribute key/value pairs (sorted by key),
//	vector length, vector components (raw float32)

// MarshalRecord serializes a Record to bytes.
func MarshalRecord(record *core.Record) ([]byte, error) {
	if record == nil {
		return nil, fmt.Errorf("%w: nil record", ErrSerializationFailed)
	}
	chunk := &record.Chunk
	attrs := chunk.Extra()
	keys := make([]string, 0, len(attrs))
	for k := range attrs {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	insertedAt := record.InsertedAt.UnixNano()

	size := varint.Uint64.Size(recordFormat) +
		varint.Uint64.Size(uint64(record.Id)) +
		varint.Int64.Size(insertedAt) +
		ord.String.Size(chunk.Content) +
		ord.String.Size(chunk.Source) +
		varint.Int64.Size(int64(chunk.Sequence)) +
		ord.String.Size(string(chunk.Kind())) +
		varint.Uint64.Size(uint64(len(keys))) +
		varint.Uint64.Size(uint64(len(record.Vector)))
	for _, k := range keys {
		size += ord.String.Size(k) + ord.String.Size(attrs[k])
	}
	for _, f := range record.Vector {
		size += raw.Float32.Size(f)
	}

	w := &musWriter{bs: make([]byte, size)}
	write(w, varint.Uint64.Marshal, recordFormat)
	write(w, varint.Uint64.Marshal, uint64(record.Id))
	write(w, varint.Int64.Marshal, insertedAt)
	write(w, ord.String.Marshal, chunk.Content)
	write(w, ord.String.Marshal, chunk.Source)
	write(w, varint.Int64.Marshal, int64(chunk.Sequence))
	write(w, ord.String.Marshal, string(chunk.Kind()))
	write(w, varint.Uint64.Marshal, uint64(len(keys)))
	for _, k := range keys {
		write(w, ord.String.Marshal, k)
		write(w, ord.String.Marshal, attrs[k])
	}
	write(w, varint.Uint64.Marshal, uint64(len(record.Vector)))
	for _, f := range record.Vector {
		write(w, raw.Float32.Marshal, f)
	}
	return w.bs[:w.n], nil
}

// UnmarshalRecord deserializes a Record from bytes.
func UnmarshalRecord(data []byte) (*core.Record, error) {
	r := &musReader{bs: data}
	if format := read(r, varint.Uint64.Unmarshal); r.err == nil && format != recordFormat {
		return nil, fmt.Errorf("%w: unknown record format %d", ErrSerializationFailed, format)
	}
	id := read(r, varint.Uint64.Unmarshal)
	insertedAt := read(r, varint.Int64.Unmarshal)
	content := read(r, ord.String.Unmarshal)
	source := read(r, ord.String.Unmarshal)
	sequence := read(r, varint.Int64.Unmarshal)
	kind := read(r, ord.String.Unmarshal)

	attrCount := r.length(read(r, varint.Uint64.Unmarshal))
	attrs := make(map[string]string, attrCount)
	for range attrCount {
		k := read(r, ord.String.Unmarshal)
		attrs[k] = read(r, ord.String.Unmarshal)
	}

	vector := make([]float32, r.length(read(r, varint.Uint64.Unmarshal)))
	for i := range vector {
		vector[i] = read(r, raw.Float32.Unmarshal)
	}
	if r.err == nil && len(r.bs) > 0 {
		r.err = fmt.Errorf("%d trailing bytes", len(r.bs))
	}
	if r.err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSerializationFailed, r.err)
	}

	prov, err := core.ProvenanceFromAttributes(core.Kind(kind), attrs)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSerializationFailed, err)
	}
	return &core.Record{
		Id:     core.ID(id),
		Vector: vector,
		Chunk: core.Chunk{
			Content:    content,
			Source:     source,
			Sequence:   int(sequence),
			Provenance: prov,
		},
		InsertedAt: time.Unix(0, insertedAt),
	}, nil
}

type musWriter struct {
	bs []byte
	n  int
}

func write[T any](w *musWriter, marshal func(T, []byte) int, v T) {
	w.n += marshal(v, w.bs[w.n:])
}

// musReader decodes fields in order. After the first error every read
// returns the zero value.
type musReader struct {
	bs  []byte
	err error
}

func read[T any](r *musReader, unmarshal func([]byte) (T, int, error)) T {
	var zero T
	if r.err != nil {
		return zero
	}
	v, n, err := unmarshal(r.bs)
	if err != nil {
		r.err = err
		return zero
	}
	r.bs = r.bs[n:]
	return v
}

// length checks a decoded element count against the bytes left, so corrupt
// input can't force a huge allocation. Every element takes at least one byte.
func (r *musReader) length(n uint64) int {
	if r.err != nil {
		return 0
	}
	if n > uint64(len(r.bs)) {
		r.err = ErrTruncatedData
		return 0
	}
	return int(n)
}
