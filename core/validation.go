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

// ValidateBusinessKey validates a normalized registry identifier.
//
// Validation rules:
//   - Must be exactly BusinessKeyLength characters
//   - Must be digits only
func ValidateBusinessKey(key string) error {
	if len(key) != BusinessKeyLength {
		return fmt.Errorf("%w: want %d characters, got %d", ErrInvalidBusinessKey, BusinessKeyLength, len(key))
	}
	for _, r := range key {
		if r < '0' || r > '9' {
			return fmt.Errorf("%w: non-digit character %q", ErrInvalidBusinessKey, r)
		}
	}
	return nil
}

// ValidateRegistryRecord validates a raw record according to domain rules.
//
// Validation rules:
//   - Source must not be empty
//   - Name must not be empty
//
// NOT validated:
//   - Ident (extraction is best-effort, unparseable records are dropped
//     during reconciliation rather than rejected here)
//   - Address, LegalForm, ActivityCode, Status (optional, affect scoring only)
func ValidateRegistryRecord(record *RegistryRecord) error {
	if record == nil {
		return fmt.Errorf("%w: record is nil", ErrInvalidRecord)
	}

	if record.Source == "" {
		return fmt.Errorf("%w: %w", ErrInvalidRecord, ErrEmptySource)
	}

	if record.Name == "" {
		return fmt.Errorf("%w: %w", ErrInvalidRecord, ErrEmptyName)
	}

	return nil
}

// ParseTier maps a tier name to its Tier value. Matching is
// case-insensitive; the empty string maps to TierDefault.
func ParseTier(name string) (Tier, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "default":
		return TierDefault, nil
	case "premium":
		return TierPremium, nil
	case "enterprise":
		return TierEnterprise, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnknownTier, name)
	}
}

// IsActiveStatus reports whether a raw status value denotes an active
// business. Sources spell this differently, so matching is loose.
func IsActiveStatus(status string) bool {
	switch strings.ToLower(strings.TrimSpace(status)) {
	case "active", "actif", "a":
		return true
	}
	return false
}
