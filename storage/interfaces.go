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
	"context"

	"github.com/poiesic/docindex/core"
)

// State is the lifecycle state of an Index.
type State int

const (
	StateUninitialized State = iota
	StateReady
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateReady:
		return "ready"
	case StateClosed:
		return "closed"
	}
	return "unknown"
}

// Index stores embedding records for one collection and answers
// nearest-neighbor queries over them.
// Implementations must be thread-safe.
type Index interface {
	// Initialize opens or creates the collection and validates its spec.
	// Calling it again on a ready index is a no-op.
	// Returns core.ErrModelMismatch or core.ErrDimensionMismatch when the
	// stored collection was built under a different embedding space.
	Initialize(ctx context.Context) error

	// State returns the current lifecycle state.
	State() State

	// Spec returns the collection's embedding spec. Dimension is 0 until
	// the first insert fixes it.
	Spec() core.IndexSpec

	// Insert assigns IDs and InsertedAt to the records and stores them as
	// one batch. Either every record is stored or none is.
	Insert(ctx context.Context, records ...*core.Record) ([]core.ID, error)

	// Replace removes every record of source and its manifest and stores
	// records in their place, as one all-or-nothing change. Every record
	// must belong to source. Returns the new IDs and how many records were
	// removed.
	Replace(ctx context.Context, source string, records ...*core.Record) ([]core.ID, int, error)

	// Search returns up to k records closest to vector, ordered by
	// ascending distance with ties broken by ID. An empty collection
	// yields an empty result. Returns core.ErrInvalidK when k < 1.
	Search(ctx context.Context, vector []float32, k int) ([]core.SearchHit, error)

	// Get retrieves a record by ID.
	// Returns ErrNotFound if the record doesn't exist.
	Get(ctx context.Context, id core.ID) (*core.Record, error)

	// Records returns up to limit records with IDs greater than after, in ID
	// order, and the cursor for the next page. The cursor is 0 when no
	// records remain.
	Records(ctx context.Context, after core.ID, limit int) ([]*core.Record, core.ID, error)

	// Delete removes records by ID and returns how many existed.
	// Missing IDs are ignored.
	Delete(ctx context.Context, ids ...core.ID) (int, error)

	// DeleteBySource removes every record from source and its manifest.
	// Returns the number of records removed; 0 is not an error.
	DeleteBySource(ctx context.Context, source string) (int, error)

	// Clear removes all records and manifests. The collection spec and ID
	// sequence are kept so IDs are never reused.
	Clear(ctx context.Context) error

	// Stats returns the record count and distinct sources.
	Stats(ctx context.Context) (*core.Stats, error)

	// PutManifest records what was ingested for a source.
	PutManifest(ctx context.Context, manifest *core.SourceManifest) error

	// Manifest returns the manifest for source.
	// Returns ErrNotFound if none exists.
	Manifest(ctx context.Context, source string) (*core.SourceManifest, error)

	// Close releases the index. The underlying store is owned by the caller.
	Close() error
}
