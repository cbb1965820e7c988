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


package badger

import (
	"github.com/poiesic/docindex/core"
	"github.com/poiesic/docindex/storage"
)

// Key suffixes within a collection namespace
const (
	recordSegment   = "rec:"
	sourceSegment   = "src:"
	manifestSegment = "man:"
	metaSegment     = "meta"
	sequenceSegment = "seq"
)

// keyspace builds keys for one collection. Every key starts with "<collection>:".
type keyspace struct {
	prefix string
}

func newKeyspace(collection string) keyspace {
	return keyspace{prefix: collection + ":"}
}

func (k keyspace) build(segment string, rest ...[]byte) []byte {
	size := len(k.prefix) + len(segment)
	for _, r := range rest {
		size += len(r)
	}
	buf := make([]byte, 0, size)
	buf = append(buf, k.prefix...)
	buf = append(buf, segment...)
	for _, r := range rest {
		buf = append(buf, r...)
	}
	return buf
}

// record generates the key for a record by ID.
// Format: <c>:rec:<id as 8 big-endian bytes>
func (k keyspace) record(id core.ID) []byte {
	return k.build(recordSegment, storage.MarshalID(id))
}

func (k keyspace) recordPrefix() []byte {
	return k.build(recordSegment)
}

// sourceEntry generates a composite key for the source index.
// Format: <c>:src:<source>\x00<id>
func (k keyspace) sourceEntry(source string, id core.ID) []byte {
	return k.build(sourceSegment, []byte(source), []byte{0}, storage.MarshalID(id))
}

// sourcePrefix generates a partial key matching every entry of one source.
func (k keyspace) sourcePrefix(source string) []byte {
	return k.build(sourceSegment, []byte(source), []byte{0})
}

func (k keyspace) allSourcesPrefix() []byte {
	return k.build(sourceSegment)
}

func (k keyspace) manifest(source string) []byte {
	return k.build(manifestSegment, []byte(source))
}

func (k keyspace) manifestPrefix() []byte {
	return k.build(manifestSegment)
}

func (k keyspace) meta() []byte {
	return k.build(metaSegment)
}

func (k keyspace) sequence() []byte {
	return k.build(sequenceSegment)
}
