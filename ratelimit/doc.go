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


// Package ratelimit provides per-key admission control: a two-window
// rate limiter scaled by caller tier and recent error rate, wrapping a
// circuit breaker that ejects a key from service after repeated
// failures.
//
// Each Check runs, in order: the circuit gate, adaptive scaling of the
// tier's ceilings, the burst window (short, higher ceiling), then the
// main window. Windows reset by wholesale replacement when their reset
// time passes, never by decay. Adaptation changes only the effective
// ceilings; the underlying counters are untouched.
//
// Callers report request outcomes back through ReportSuccess and
// ReportFailure, which drive both the breaker state machine and the
// error-rate history used for adaptation.
package ratelimit
