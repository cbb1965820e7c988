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

	"github.com/dgraph-io/badger/v4"
)

// partWriter writes through a chain of transactions. When a write would push
// the current transaction past Badger's size limit, the transaction is
// committed as one part and a new one is started.
//
// Parts are committed independently; callers that need all-or-nothing
// behavior must undo committed parts themselves.
type partWriter struct {
	ctx   context.Context
	db    *badger.DB
	txn   *badger.Txn
	parts int
}

// newPartWriter starts a part writer. ctx is checked before each new part.
func (b *Backend) newPartWriter(ctx context.Context) *partWriter {
	return &partWriter{ctx: ctx, db: b.db, txn: b.db.NewTransaction(true)}
}

func (w *partWriter) set(key, value []byte) error {
	return w.apply(func(txn *badger.Txn) error { return txn.Set(key, value) })
}

func (w *partWriter) delete(key []byte) error {
	return w.apply(func(txn *badger.Txn) error { return txn.Delete(key) })
}

func (w *partWriter) apply(op func(*badger.Txn) error) error {
	err := op(w.txn)
	if !errors.Is(err, badger.ErrTxnTooBig) {
		return err
	}
	if err := w.commit(); err != nil {
		return err
	}
	if err := w.ctx.Err(); err != nil {
		return err
	}
	w.txn = w.db.NewTransaction(true)
	return op(w.txn)
}

// commit commits the current part. The writer is unusable afterwards unless
// apply starts a new part.
func (w *partWriter) commit() error {
	txn := w.txn
	w.txn = nil
	if err := txn.Commit(); err != nil {
		return err
	}
	w.parts++
	return nil
}

// committed reports how many parts reached the store.
func (w *partWriter) committed() int {
	return w.parts
}

// discard drops the uncommitted part, if any.
func (w *partWriter) discard() {
	if w.txn != nil {
		w.txn.Discard()
		w.txn = nil
	}
}
