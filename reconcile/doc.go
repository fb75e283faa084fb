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


// Package reconcile turns per-source raw results into one ranked,
// deduplicated list of unified records.
//
// Each raw record yields a normalized business key through a chain of
// best-effort extraction heuristics; records with no extractable key
// are dropped, not rejected. Records are then deduplicated by key with
// the higher-scoring candidate replacing the lower, scored
// deterministically from source trust and field completeness, sorted by
// descending score, and truncated to a hard cap. Output order depends
// only on computed scores and tie-break rules, never on the order in
// which sources answered.
package reconcile
