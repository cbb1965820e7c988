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


// Package answer connects retrieval to an answer-generation service.
//
// A Responder retrieves the chunks closest to a question and hands them to an
// ai.Generator. Generation failures never reach the caller: the Responder
// falls back to the raw retrieved context and marks the Response degraded.
// Retrieval failures, in contrast, are returned as errors.
package answer
