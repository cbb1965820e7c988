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


// Package core defines the domain model shared by the chunking, storage and
// retrieval packages: decoded documents, chunks and their provenance, stored
// records, search hits, and the error taxonomy surfaced to callers.
//
// Chunk provenance is a closed sum type. Narrative, TabularHeader and
// TabularRows are the only implementations of Provenance, and each flattens to
// string attributes for storage via Attributes.
package core
