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


// Package reembed migrates a collection to a new embedding model.
//
// Vectors from two different models cannot share a collection, so a model
// change is carried out by copying every record of the source collection into
// a fresh target collection whose spec names the new model, re-embedding the
// stored chunk content on the way. Source records are never modified.
//
// This package supports batch processing, progress tracking and retry logic
// with exponential backoff.
package reembed
