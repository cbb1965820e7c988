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


package core

import (
	"fmt"
	"strings"
)

// ValidateChunk validates a Chunk according to domain rules.
//
// Validation rules:
//   - Content must not be empty or whitespace only
//   - Source must not be empty
//   - Sequence must not be negative
//   - Provenance, when set, must have a known kind
func ValidateChunk(chunk *Chunk) error {
	if chunk == nil {
		return fmt.Errorf("%w: chunk is nil", ErrInvalidChunk)
	}

	if strings.TrimSpace(chunk.Content) == "" {
		return fmt.Errorf("%w: %w", ErrInvalidChunk, ErrEmptyContent)
	}

	if chunk.Source == "" {
		return fmt.Errorf("%w: %w", ErrInvalidChunk, ErrEmptySource)
	}

	if chunk.Sequence < 0 {
		return fmt.Errorf("%w: negative sequence %d", ErrInvalidChunk, chunk.Sequence)
	}

	if !chunk.Kind().IsValid() {
		return fmt.Errorf("%w: unknown kind %q", ErrInvalidChunk, chunk.Kind())
	}

	return nil
}

// ValidateRecord validates a Record before insertion.
// A dimension of 0 skips the vector length check.
//
// NOT validated (assigned by the index):
//   - ID
//   - InsertedAt
func ValidateRecord(record *Record, dimension int) error {
	if record == nil {
		return fmt.Errorf("%w: record is nil", ErrInvalidRecord)
	}

	if err := ValidateChunk(&record.Chunk); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidRecord, err)
	}

	if len(record.Vector) == 0 {
		return fmt.Errorf("%w: empty vector", ErrInvalidRecord)
	}

	if dimension > 0 && len(record.Vector) != dimension {
		return fmt.Errorf("%w: got %d, want %d", ErrDimensionMismatch, len(record.Vector), dimension)
	}

	return nil
}
