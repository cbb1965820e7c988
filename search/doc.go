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


// Package search provides the read path of the retrieval engine.
//
// The Searcher type embeds a free-text query and runs an exact nearest-neighbor
// search over a storage.Index. Results are ordered closest first and may be
// filtered by a maximum cosine distance. An empty index or a query with no
// sufficiently close chunk yields an empty result, not an error.
//
// A SearchMonitor can observe each stage of a retrieval.
package search
