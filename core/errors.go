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

import "errors"

// Domain validation errors
var (
	// ErrInvalidBusinessKey indicates an identifier that is not a
	// fixed-length digits-only registry key.
	ErrInvalidBusinessKey = errors.New("invalid business key")

	// ErrInvalidRecord indicates a RegistryRecord failed validation.
	ErrInvalidRecord = errors.New("invalid registry record")

	// ErrEmptySource indicates the Source field is empty.
	ErrEmptySource = errors.New("source cannot be empty")

	// ErrEmptyName indicates the Name field is empty.
	ErrEmptyName = errors.New("name cannot be empty")

	// ErrUnknownTier indicates a tier name that is not recognized.
	ErrUnknownTier = errors.New("unknown tier")

	// ErrEmptyTerm indicates an empty search term.
	ErrEmptyTerm = errors.New("search term cannot be empty")
)
