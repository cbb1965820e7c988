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


// Package storage defines the vector index abstraction for docindex.
//
// The Index interface decouples the retrieval orchestrator from the storage
// engine. Records are grouped into named collections; each collection has a
// fixed embedding model and dimension recorded in its IndexSpec, and every
// record in it must match that dimension.
//
// # Constructor Return Type Pattern
//
// Public constructors in implementation packages return the interface:
//
//	index, err := badger.NewIndex(backend, "docs", spec)  // returns storage.Index
//
// # Lifecycle
//
// An index starts Uninitialized. Initialize opens or creates the collection
// and is safe to call more than once. Every other operation fails with
// core.ErrIndexUnavailable until Initialize succeeds, and again after Close.
//
// # Serialization
//
// Records, manifests and index specs are encoded with CBOR. IDs used in keys
// are fixed-width big-endian so that key order matches ID order.
//
// # Thread Safety
//
// Implementations must be safe for concurrent use. A search running
// concurrently with an insert sees each record either fully present or absent.
package storage
