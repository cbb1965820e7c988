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


package ingestion

import "sync"

// sourceLocks serializes work on the same source. Locks for sources no one
// holds are dropped.
type sourceLocks struct {
	mu    sync.Mutex
	locks map[string]*sourceLock
}

type sourceLock struct {
	mu   sync.Mutex
	refs int
}

// lock blocks until source is free and returns the function that frees it.
func (s *sourceLocks) lock(source string) func() {
	s.mu.Lock()
	if s.locks == nil {
		s.locks = make(map[string]*sourceLock)
	}
	l, ok := s.locks[source]
	if !ok {
		l = &sourceLock{}
		s.locks[source] = l
	}
	l.refs++
	s.mu.Unlock()

	l.mu.Lock()
	return func() {
		l.mu.Unlock()

		s.mu.Lock()
		if l.refs--; l.refs == 0 {
			delete(s.locks, source)
		}
		s.mu.Unlock()
	}
}
