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


// Package ingestion provides the write path of the retrieval engine.
//
// The Pipeline type turns uploaded documents into indexed records:
//   - Decoding the raw bytes by file extension (see package loader)
//   - Splitting the decoded document into chunks (see package chunking)
//   - Embedding every chunk in batches, with retry
//   - Inserting all records of the document in a single atomic batch
//
// Work is dispatched to a bounded worker pool. A caller that stops waiting
// does not cancel work already dispatched, so a document is either fully
// indexed or not indexed at all.
package ingestion
