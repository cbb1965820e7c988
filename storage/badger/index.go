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
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"slices"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/poiesic/docindex/core"
	"github.com/poiesic/docindex/storage"
)

const defaultPageSize = 100

// entry is the in-memory view of a stored record. unit is the normalized
// vector used for distance computation.
type entry struct {
	record *core.Record
	unit   []float32
}

// Index implements storage.Index for BadgerDB.
//
// Records are persisted in Badger and mirrored in memory for exact search.
// All writes hold the write lock for the whole transaction and mirror update,
// so readers observe each record either fully present or absent.
type Index struct {
	backend    *Backend
	collection string
	keys       keyspace
	logger     *slog.Logger

	mu      sync.RWMutex
	state   storage.State
	spec    core.IndexSpec
	idSeq   *badger.Sequence
	entries []entry // ordered by ID
	sources map[string]int
}

var _ storage.Index = (*Index)(nil)

// NewIndex creates an uninitialized index for collection. spec names the
// embedding model and, if known, its dimension; a zero Dimension is fixed by
// the first insert.
func NewIndex(backend *Backend, collection string, spec core.IndexSpec) (storage.Index, error) {
	return newIndex(backend, collection, spec)
}

func newIndex(backend *Backend, collection string, spec core.IndexSpec) (*Index, error) {
	if backend == nil {
		return nil, errors.New("backend required")
	}
	if err := ValidateCollection(collection); err != nil {
		return nil, err
	}
	if spec.Metric == "" {
		spec.Metric = core.MetricCosine
	}
	if spec.Metric != core.MetricCosine {
		return nil, fmt.Errorf("unsupported metric %q", spec.Metric)
	}
	return &Index{
		backend:    backend,
		collection: collection,
		keys:       newKeyspace(collection),
		logger:     backend.logger.With("component", "index", "collection", collection),
		spec:       spec,
		sources:    make(map[string]int),
	}, nil
}

// ValidateCollection checks that name can be used as a collection name.
func ValidateCollection(name string) error {
	if name == "" {
		return fmt.Errorf("%w: empty name", storage.ErrInvalidCollection)
	}
	if strings.ContainsAny(name, ":\x00") {
		return fmt.Errorf("%w: %q contains a reserved character", storage.ErrInvalidCollection, name)
	}
	return nil
}

// Initialize opens or creates the collection. It is a no-op on a ready index.
func (idx *Index) Initialize(ctx context.Context) error {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	switch idx.state {
	case storage.StateReady:
		return nil
	case storage.StateClosed:
		return fmt.Errorf("%w: index closed", core.ErrIndexUnavailable)
	}
	if idx.backend.IsClosed() {
		return fmt.Errorf("%w: storage closed", core.ErrIndexUnavailable)
	}

	spec, err := idx.reconcileSpec()
	if err != nil {
		return err
	}

	idSeq, err := idx.backend.GetSequence(idx.keys.sequence())
	if err != nil {
		return fmt.Errorf("%w: %w", core.ErrIndexUnavailable, err)
	}

	entries, sources, err := idx.loadEntries()
	if err != nil {
		_ = idSeq.Release()
		return err
	}

	idx.spec = spec
	idx.idSeq = idSeq
	idx.entries = entries
	idx.sources = sources
	idx.state = storage.StateReady

	idx.logger.Info("index ready", "model", spec.Model, "dimension", spec.Dimension, "count", len(entries))
	return nil
}

// reconcileSpec reads the stored collection spec, creating it when absent and
// validating it against the configured spec when present.
func (idx *Index) reconcileSpec() (core.IndexSpec, error) {
	var spec core.IndexSpec
	err := idx.backend.WithTx(func(tx *badger.Txn) error {
		stored, found, err := idx.readSpec(tx)
		if err != nil {
			return err
		}

		if !found {
			spec = idx.spec
			return idx.writeSpec(tx, spec)
		}

		if stored.Metric != "" && stored.Metric != idx.spec.Metric {
			return fmt.Errorf("%w: collection uses metric %q", core.ErrModelMismatch, stored.Metric)
		}
		if idx.spec.Model != "" && stored.Model != "" && stored.Model != idx.spec.Model {
			return fmt.Errorf("%w: collection %q was built with %q, configured %q",
				core.ErrModelMismatch, idx.collection, stored.Model, idx.spec.Model)
		}
		if idx.spec.Dimension > 0 && stored.Dimension > 0 && stored.Dimension != idx.spec.Dimension {
			return fmt.Errorf("%w: collection %q has dimension %d, configured %d",
				core.ErrDimensionMismatch, idx.collection, stored.Dimension, idx.spec.Dimension)
		}

		spec = stored
		changed := false
		if spec.Model == "" && idx.spec.Model != "" {
			spec.Model = idx.spec.Model
			changed = true
		}
		if spec.Dimension == 0 && idx.spec.Dimension > 0 {
			spec.Dimension = idx.spec.Dimension
			changed = true
		}
		if spec.Metric == "" {
			spec.Metric = idx.spec.Metric
			changed = true
		}
		if !changed {
			return nil
		}
		return idx.writeSpec(tx, spec)
	}, true)
	return spec, err
}

func (idx *Index) readSpec(tx *badger.Txn) (core.IndexSpec, bool, error) {
	item, err := tx.Get(idx.keys.meta())
	if errors.Is(err, badger.ErrKeyNotFound) {
		return core.IndexSpec{}, false, nil
	}
	if err != nil {
		return core.IndexSpec{}, false, fmt.Errorf("%w: %w", core.ErrIndexUnavailable, err)
	}
	var spec core.IndexSpec
	err = item.Value(func(val []byte) error {
		var err error
		spec, err = storage.UnmarshalSpec(val)
		return err
	})
	return spec, err == nil, err
}

// writeSpec stores spec and commits tx.
func (idx *Index) writeSpec(tx *badger.Txn, spec core.IndexSpec) error {
	value, err := storage.MarshalSpec(spec)
	if err != nil {
		return err
	}
	if err := tx.Set(idx.keys.meta(), value); err != nil {
		return err
	}
	return tx.Commit()
}

func (idx *Index) loadEntries() ([]entry, map[string]int, error) {
	var entries []entry
	sources := make(map[string]int)
	err := idx.backend.WithTx(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = idx.keys.recordPrefix()
		iter := tx.NewIterator(opts)
		defer iter.Close()

		for iter.Rewind(); iter.Valid(); iter.Next() {
			var record *core.Record
			err := iter.Item().Value(func(val []byte) error {
				var err error
				record, err = storage.UnmarshalRecord(val)
				return err
			})
			if err != nil {
				return err
			}
			entries = append(entries, newEntry(record))
			sources[record.Chunk.Source]++
		}
		return nil
	}, false)
	if err != nil {
		return nil, nil, err
	}
	return entries, sources, nil
}

func newEntry(record *core.Record) entry {
	return entry{record: record, unit: core.NormalizeVector(record.Vector)}
}

// State returns the current lifecycle state.
func (idx *Index) State() storage.State {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return idx.state
}

// Spec returns the collection spec.
func (idx *Index) Spec() core.IndexSpec {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return idx.spec
}

// ready must be called with mu held.
func (idx *Index) ready() error {
	if idx.state != storage.StateReady {
		return fmt.Errorf("%w: index %s", core.ErrIndexUnavailable, idx.state)
	}
	return nil
}

// Insert stores records and assigns their IDs. Large batches are written in
// several parts; the batch is still all-or-nothing.
func (idx *Index) Insert(ctx context.Context, records ...*core.Record) ([]core.ID, error) {
	if len(records) == 0 {
		return nil, nil
	}

	idx.mu.Lock()
	defer idx.mu.Unlock()
	if err := idx.ready(); err != nil {
		return nil, err
	}

	ids, err := idx.write(ctx, records, "")
	if err != nil {
		return nil, fmt.Errorf("failed to insert %d records: %w", len(records), err)
	}
	idx.logger.Debug("inserted records", "count", len(ids))
	return ids, nil
}

// Replace swaps every record of source, and its manifest, for records. It
// returns the new IDs and how many records were replaced. On failure the
// previous records are left in place.
func (idx *Index) Replace(ctx context.Context, source string, records ...*core.Record) ([]core.ID, int, error) {
	if source == "" {
		return nil, 0, fmt.Errorf("%w: replace requires a source", core.ErrEmptySource)
	}
	for _, record := range records {
		if record != nil && record.Chunk.Source != source {
			return nil, 0, fmt.Errorf("%w: record from %q in replacement of %q",
				core.ErrInvalidRecord, record.Chunk.Source, source)
		}
	}

	idx.mu.Lock()
	defer idx.mu.Unlock()
	if err := idx.ready(); err != nil {
		return nil, 0, err
	}

	replaced := idx.sources[source]
	ids, err := idx.write(ctx, records, source)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to replace source %s: %w", source, err)
	}
	idx.logger.Info("replaced source", "source", source, "removed", replaced, "inserted", len(ids))
	return ids, replaced, nil
}

// write stores records and, when source is set, removes the previous records
// of source and its manifest. Writes are split into parts as Badger's
// transaction limit requires. If a part fails, the parts already committed
// are undone and the mirror is left untouched. mu must be held.
func (idx *Index) write(ctx context.Context, records []*core.Record, source string) ([]core.ID, error) {
	dimension := idx.spec.Dimension
	if dimension == 0 && len(records) > 0 && records[0] != nil {
		dimension = len(records[0].Vector)
	}
	for _, record := range records {
		if err := core.ValidateRecord(record, dimension); err != nil {
			return nil, err
		}
		if strings.ContainsRune(record.Chunk.Source, 0) {
			return nil, fmt.Errorf("%w: source contains NUL", core.ErrInvalidRecord)
		}
	}

	var previous []*core.Record
	var manifest []byte
	if source != "" {
		for _, e := range idx.entries {
			if e.record.Chunk.Source == source {
				previous = append(previous, e.record)
			}
		}
		var err error
		if manifest, err = idx.manifestValue(source); err != nil {
			return nil, err
		}
	}

	spec := idx.spec
	if len(records) > 0 {
		spec.Dimension = dimension
	}
	now := time.Now().UTC()
	stored := make([]*core.Record, 0, len(records))

	w := idx.backend.newPartWriter(ctx)
	err := func() error {
		for _, record := range records {
			id, err := idx.nextID()
			if err != nil {
				return err
			}
			rec := &core.Record{
				Id:         id,
				Vector:     slices.Clone(record.Vector),
				Chunk:      record.Chunk,
				InsertedAt: now,
			}
			value, err := storage.MarshalRecord(rec)
			if err != nil {
				return err
			}
			stored = append(stored, rec)
			if err := w.set(idx.keys.record(id), value); err != nil {
				return err
			}
			if err := w.set(idx.keys.sourceEntry(rec.Chunk.Source, id), nil); err != nil {
				return err
			}
		}

		for _, rec := range previous {
			if err := w.delete(idx.keys.record(rec.Id)); err != nil {
				return err
			}
			if err := w.delete(idx.keys.sourceEntry(source, rec.Id)); err != nil {
				return err
			}
		}
		if manifest != nil {
			if err := w.delete(idx.keys.manifest(source)); err != nil {
				return err
			}
		}

		// The spec goes in the last part so a failed write never fixes the dimension.
		if spec.Dimension != idx.spec.Dimension {
			value, err := storage.MarshalSpec(spec)
			if err != nil {
				return err
			}
			if err := w.set(idx.keys.meta(), value); err != nil {
				return err
			}
		}
		return w.commit()
	}()
	if err != nil {
		w.discard()
		if w.committed() > 0 {
			idx.undo(stored, previous, source, manifest, w.committed())
		}
		return nil, err
	}

	idx.spec = spec
	if len(previous) > 0 {
		replaced := make(map[core.ID]bool, len(previous))
		for _, rec := range previous {
			replaced[rec.Id] = true
		}
		idx.removeEntries(func(e entry) bool { return replaced[e.record.Id] })
	}
	ids := make([]core.ID, len(stored))
	for i, rec := range stored {
		records[i].Id = rec.Id
		records[i].InsertedAt = rec.InsertedAt
		ids[i] = rec.Id
		idx.entries = append(idx.entries, newEntry(rec))
		idx.sources[rec.Chunk.Source]++
	}
	return ids, nil
}

// undo reverts the committed parts of a failed write: it removes the records
// written and restores the previous records and manifest of source. If undo
// itself fails the mirror is reloaded so it matches what is stored. mu must be held.
func (idx *Index) undo(written, previous []*core.Record, source string, manifest []byte, parts int) {
	idx.logger.Warn("undoing partial write", "parts", parts, "records", len(written))

	w := idx.backend.newPartWriter(context.Background())
	err := func() error {
		for _, rec := range written {
			if err := w.delete(idx.keys.record(rec.Id)); err != nil {
				return err
			}
			if err := w.delete(idx.keys.sourceEntry(rec.Chunk.Source, rec.Id)); err != nil {
				return err
			}
		}
		for _, rec := range previous {
			value, err := storage.MarshalRecord(rec)
			if err != nil {
				return err
			}
			if err := w.set(idx.keys.record(rec.Id), value); err != nil {
				return err
			}
			if err := w.set(idx.keys.sourceEntry(source, rec.Id), nil); err != nil {
				return err
			}
		}
		if manifest != nil {
			if err := w.set(idx.keys.manifest(source), manifest); err != nil {
				return err
			}
		}
		return w.commit()
	}()
	if err == nil {
		return
	}
	w.discard()
	idx.logger.Error("failed to undo partial write", "err", err)

	entries, sources, loadErr := idx.loadEntries()
	if loadErr != nil {
		idx.logger.Error("failed to reload index", "err", loadErr)
		return
	}
	idx.entries = entries
	idx.sources = sources
}

// manifestValue returns the encoded manifest of source, or nil if it has none.
func (idx *Index) manifestValue(source string) ([]byte, error) {
	var value []byte
	err := idx.backend.WithTx(func(tx *badger.Txn) error {
		item, err := tx.Get(idx.keys.manifest(source))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		value, err = item.ValueCopy(nil)
		return err
	}, false)
	return value, err
}

// nextID returns the next ID from the collection sequence.
func (idx *Index) nextID() (core.ID, error) {
	next, err := idx.idSeq.Next()
	if err != nil {
		return 0, err
	}
	// BadgerDB sequences can return 0 on first call, so we skip it
	if next == 0 {
		next, err = idx.idSeq.Next()
		if err != nil {
			return 0, err
		}
	}
	return core.ID(next), nil
}

// Search performs an exact cosine nearest-neighbor search.
func (idx *Index) Search(ctx context.Context, vector []float32, k int) ([]core.SearchHit, error) {
	if k < 1 {
		return nil, fmt.Errorf("%w: got %d", core.ErrInvalidK, k)
	}

	idx.mu.RLock()
	defer idx.mu.RUnlock()
	if err := idx.ready(); err != nil {
		return nil, err
	}
	if len(idx.entries) == 0 {
		return []core.SearchHit{}, nil
	}
	if len(vector) != idx.spec.Dimension {
		return nil, fmt.Errorf("%w: query has %d, collection has %d",
			core.ErrDimensionMismatch, len(vector), idx.spec.Dimension)
	}

	query := core.NormalizeVector(vector)
	top := newTopK(min(k, len(idx.entries)))
	for i, e := range idx.entries {
		if i%1024 == 0 && ctx.Err() != nil {
			return nil, ctx.Err()
		}
		top.offer(core.SearchHit{Record: e.record, Distance: core.CosineDistance(query, e.unit)})
	}
	return top.sorted(), nil
}

// Get retrieves a record by ID.
func (idx *Index) Get(ctx context.Context, id core.ID) (*core.Record, error) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	if err := idx.ready(); err != nil {
		return nil, err
	}

	var record *core.Record
	err := idx.backend.WithTx(func(tx *badger.Txn) error {
		var err error
		record, err = idx.readRecord(tx, id)
		return err
	}, false)
	if err != nil {
		return nil, err
	}
	if record == nil {
		return nil, storage.ErrNotFound
	}
	return record, nil
}

// readRecord returns nil, nil when the record doesn't exist.
func (idx *Index) readRecord(tx *badger.Txn, id core.ID) (*core.Record, error) {
	item, err := tx.Get(idx.keys.record(id))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var record *core.Record
	err = item.Value(func(val []byte) error {
		var err error
		record, err = storage.UnmarshalRecord(val)
		return err
	})
	return record, err
}

// Records returns a page of records with IDs greater than after.
func (idx *Index) Records(ctx context.Context, after core.ID, limit int) ([]*core.Record, core.ID, error) {
	if limit < 1 {
		limit = defaultPageSize
	}
	if after == math.MaxUint64 {
		return nil, 0, nil
	}

	idx.mu.RLock()
	defer idx.mu.RUnlock()
	if err := idx.ready(); err != nil {
		return nil, 0, err
	}

	var records []*core.Record
	var next core.ID
	err := idx.backend.WithTx(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = idx.keys.recordPrefix()
		iter := tx.NewIterator(opts)
		defer iter.Close()

		for iter.Seek(idx.keys.record(after + 1)); iter.Valid(); iter.Next() {
			if len(records) == limit {
				next = records[len(records)-1].Id
				break
			}
			var record *core.Record
			err := iter.Item().Value(func(val []byte) error {
				var err error
				record, err = storage.UnmarshalRecord(val)
				return err
			})
			if err != nil {
				return err
			}
			records = append(records, record)
		}
		return nil
	}, false)
	if err != nil {
		return nil, 0, err
	}
	return records, next, nil
}

// Delete removes records by ID. Missing IDs are ignored.
func (idx *Index) Delete(ctx context.Context, ids ...core.ID) (int, error) {
	if len(ids) == 0 {
		return 0, nil
	}

	idx.mu.Lock()
	defer idx.mu.Unlock()
	if err := idx.ready(); err != nil {
		return 0, err
	}

	removed := make(map[core.ID]string)
	err := idx.backend.WithTx(func(tx *badger.Txn) error {
		for _, id := range ids {
			if _, seen := removed[id]; seen {
				continue
			}
			record, err := idx.readRecord(tx, id)
			if err != nil {
				return err
			}
			if record == nil {
				continue
			}
			if err := tx.Delete(idx.keys.record(id)); err != nil {
				return err
			}
			if err := tx.Delete(idx.keys.sourceEntry(record.Chunk.Source, id)); err != nil {
				return err
			}
			removed[id] = record.Chunk.Source
		}
		if len(removed) == 0 {
			return nil
		}

		// A source left without records loses its manifest.
		remaining := make(map[string]int)
		for _, source := range removed {
			if _, ok := remaining[source]; !ok {
				remaining[source] = idx.sources[source]
			}
			remaining[source]--
		}
		for source, n := range remaining {
			if n <= 0 {
				if err := tx.Delete(idx.keys.manifest(source)); err != nil {
					return err
				}
			}
		}
		return tx.Commit()
	}, true)
	if err != nil {
		return 0, fmt.Errorf("failed to delete records: %w", err)
	}

	idx.removeEntries(func(e entry) bool {
		_, ok := removed[e.record.Id]
		return ok
	})
	return len(removed), nil
}

// DeleteBySource removes every record from source along with its manifest.
func (idx *Index) DeleteBySource(ctx context.Context, source string) (int, error) {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	if err := idx.ready(); err != nil {
		return 0, err
	}

	prefix := idx.keys.sourcePrefix(source)
	removed := make(map[core.ID]bool)
	err := idx.backend.WithTx(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = prefix
		opts.PrefetchValues = false
		iter := tx.NewIterator(opts)
		var keys [][]byte
		for iter.Rewind(); iter.Valid(); iter.Next() {
			keys = append(keys, iter.Item().KeyCopy(nil))
		}
		iter.Close()

		for _, key := range keys {
			id, err := storage.UnmarshalID(key[len(prefix):])
			if err != nil {
				return err
			}
			if err := tx.Delete(key); err != nil {
				return err
			}
			if err := tx.Delete(idx.keys.record(id)); err != nil {
				return err
			}
			removed[id] = true
		}
		if err := tx.Delete(idx.keys.manifest(source)); err != nil {
			return err
		}
		return tx.Commit()
	}, true)
	if err != nil {
		return 0, fmt.Errorf("failed to delete source %s: %w", source, err)
	}

	idx.removeEntries(func(e entry) bool { return removed[e.record.Id] })
	if len(removed) > 0 {
		idx.logger.Info("deleted source", "source", source, "count", len(removed))
	}
	return len(removed), nil
}

// removeEntries drops matching entries from the mirror. mu must be held.
func (idx *Index) removeEntries(match func(entry) bool) {
	idx.entries = slices.DeleteFunc(idx.entries, func(e entry) bool {
		if !match(e) {
			return false
		}
		source := e.record.Chunk.Source
		if idx.sources[source]--; idx.sources[source] <= 0 {
			delete(idx.sources, source)
		}
		return true
	})
}

// Clear removes all records and manifests. The spec and ID sequence survive.
func (idx *Index) Clear(ctx context.Context) error {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	if err := idx.ready(); err != nil {
		return err
	}

	n, err := idx.backend.DeletePrefixes(
		idx.keys.recordPrefix(),
		idx.keys.allSourcesPrefix(),
		idx.keys.manifestPrefix(),
	)
	if err != nil {
		return fmt.Errorf("failed to clear collection %s: %w", idx.collection, err)
	}

	idx.entries = nil
	idx.sources = make(map[string]int)
	idx.logger.Info("cleared collection", "count", n)
	return nil
}

// Stats returns the record count and sorted distinct sources.
func (idx *Index) Stats(ctx context.Context) (*core.Stats, error) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	if err := idx.ready(); err != nil {
		return nil, err
	}

	sources := make([]string, 0, len(idx.sources))
	for source := range idx.sources {
		sources = append(sources, source)
	}
	sort.Strings(sources)
	return &core.Stats{TotalChunks: len(idx.entries), Sources: sources}, nil
}

// PutManifest stores the manifest for its source, replacing any previous one.
func (idx *Index) PutManifest(ctx context.Context, manifest *core.SourceManifest) error {
	if manifest == nil || manifest.Source == "" {
		return fmt.Errorf("%w: manifest requires a source", core.ErrEmptySource)
	}

	idx.mu.Lock()
	defer idx.mu.Unlock()
	if err := idx.ready(); err != nil {
		return err
	}

	if manifest.IngestedAt.IsZero() {
		manifest.IngestedAt = time.Now().UTC()
	}
	value, err := storage.MarshalManifest(manifest)
	if err != nil {
		return err
	}
	return idx.backend.WithTx(func(tx *badger.Txn) error {
		if err := tx.Set(idx.keys.manifest(manifest.Source), value); err != nil {
			return err
		}
		return tx.Commit()
	}, true)
}

// Manifest returns the manifest for source.
func (idx *Index) Manifest(ctx context.Context, source string) (*core.SourceManifest, error) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	if err := idx.ready(); err != nil {
		return nil, err
	}

	var manifest *core.SourceManifest
	err := idx.backend.WithTx(func(tx *badger.Txn) error {
		item, err := tx.Get(idx.keys.manifest(source))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return storage.ErrNotFound
		}
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			manifest, err = storage.UnmarshalManifest(val)
			return err
		})
	}, false)
	if err != nil {
		return nil, err
	}
	return manifest, nil
}

// Close releases the ID sequence and drops the mirror.
// The backend stays open; it is owned by the caller.
func (idx *Index) Close() error {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	if idx.state == storage.StateClosed {
		return nil
	}
	var err error
	if idx.idSeq != nil {
		err = idx.idSeq.Release()
		idx.idSeq = nil
	}
	idx.state = storage.StateClosed
	idx.entries = nil
	idx.sources = nil
	return err
}
