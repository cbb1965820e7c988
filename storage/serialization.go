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
	"encoding/binary"
	"fmt"
	"time"

	"github.com/fxamacker/cbor/v2"
	"github.com/poiesic/docindex/core"
)

// IDSize is the encoded width of an ID in keys.
const IDSize = 8

// encMode encodes manifests and collection specs. Records use the denser
// mus codec in record_codec.go.
var encMode cbor.EncMode

func init() {
	var err error
	encMode, err = cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		panic(err)
	}
}

// MarshalID serializes an ID to fixed-width big-endian bytes so that
// lexicographic key order matches numeric order.
func MarshalID(id core.ID) []byte {
	buf := make([]byte, IDSize)
	binary.BigEndian.PutUint64(buf, uint64(id))
	return buf
}

// UnmarshalID deserializes an ID from bytes.
func UnmarshalID(data []byte) (core.ID, error) {
	if len(data) < IDSize {
		return 0, ErrTruncatedData
	}
	return core.ID(binary.BigEndian.Uint64(data)), nil
}

type storedManifest struct {
	Source     string `cbor:"1,keyasint"`
	Digest     string `cbor:"2,keyasint"`
	Chunks     int    `cbor:"3,keyasint"`
	IngestedAt int64  `cbor:"4,keyasint"`
}

// MarshalManifest serializes a SourceManifest to bytes.
func MarshalManifest(manifest *core.SourceManifest) ([]byte, error) {
	data, err := encMode.Marshal(storedManifest{
		Source:     manifest.Source,
		Digest:     manifest.Digest,
		Chunks:     manifest.Chunks,
		IngestedAt: manifest.IngestedAt.UnixNano(),
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSerializationFailed, err)
	}
	return data, nil
}

// UnmarshalManifest deserializes a SourceManifest from bytes.
func UnmarshalManifest(data []byte) (*core.SourceManifest, error) {
	var stored storedManifest
	if err := cbor.Unmarshal(data, &stored); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSerializationFailed, err)
	}
	return &core.SourceManifest{
		Source:     stored.Source,
		Digest:     stored.Digest,
		Chunks:     stored.Chunks,
		IngestedAt: time.Unix(0, stored.IngestedAt),
	}, nil
}

type storedSpec struct {
	Model     string `cbor:"1,keyasint"`
	Dimension int    `cbor:"2,keyasint"`
	Metric    string `cbor:"3,keyasint"`
}

// MarshalSpec serializes an IndexSpec to bytes.
func MarshalSpec(spec core.IndexSpec) ([]byte, error) {
	data, err := encMode.Marshal(storedSpec(spec))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSerializationFailed, err)
	}
	return data, nil
}

// UnmarshalSpec deserializes an IndexSpec from bytes.
func UnmarshalSpec(data []byte) (core.IndexSpec, error) {
	var stored storedSpec
	if err := cbor.Unmarshal(data, &stored); err != nil {
		return core.IndexSpec{}, fmt.Errorf("%w: %w", ErrSerializationFailed, err)
	}
	return core.IndexSpec(stored), nil
}
