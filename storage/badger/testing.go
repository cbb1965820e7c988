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

	"github.com/poiesic/docindex/core"
	"github.com/poiesic/docindex/storage"
)

// NewMemoryIndex creates and initializes an in-memory index for testing.
// Caller must close both the index and the backend when done.
func NewMemoryIndex(collection string, spec core.IndexSpec) (storage.Index, *Backend, error) {
	backend, err := OpenBackend("", true)
	if err != nil {
		return nil, nil, err
	}

	index, err := NewIndex(backend, collection, spec)
	if err != nil {
		backend.Close()
		return nil, nil, err
	}

	if err := index.Initialize(context.Background()); err != nil {
		backend.Close()
		return nil, nil, err
	}

	return index, backend, nil
}
