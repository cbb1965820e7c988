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
	"errors"
	"fmt"
)

// Ingest and retrieval failures
var (
	// ErrUnsupportedFormat indicates the file type is not recognized.
	ErrUnsupportedFormat = errors.New("unsupported document format")

	// ErrEmptyDocument indicates the document decoded but held no usable content.
	ErrEmptyDocument = errors.New("document has no extractable content")

	// ErrDecoding indicates no supported text encoding could decode the document.
	ErrDecoding = errors.New("document could not be decoded")

	// ErrEmbedding indicates the embedding model failed or returned malformed output.
	ErrEmbedding = errors.New("embedding failed")

	// ErrIndexUnavailable indicates the index is closed or not yet initialized.
	ErrIndexUnavailable = errors.New("index unavailable")

	// ErrDimensionMismatch indicates a vector does not match the collection dimension.
	ErrDimensionMismatch = errors.New("vector dimension mismatch")

	// ErrModelMismatch indicates the collection was built with a different embedding model.
	ErrModelMismatch = errors.New("embedding model mismatch")

	// ErrInvalidK indicates a search was requested with k < 1.
	ErrInvalidK = errors.New("k must be at least 1")
)

// Domain validation errors
var (
	// ErrInvalidChunk indicates a Chunk failed validation.
	ErrInvalidChunk = errors.New("invalid chunk")

	// ErrInvalidRecord indicates a Record failed validation.
	ErrInvalidRecord = errors.New("invalid record")

	// ErrEmptyContent indicates the Content field is empty.
	ErrEmptyContent = errors.New("content cannot be empty")

	// ErrEmptySource indicates the Source field is empty.
	ErrEmptySource = errors.New("source cannot be empty")
)

// IngestError reports a failure to ingest a single document.
type IngestError struct {
	Source string
	Err    error
}

func (e *IngestError) Error() string {
	return fmt.Sprintf("ingest %s: %v", e.Source, e.Err)
}

func (e *IngestError) Unwrap() error {
	return e.Err
}
