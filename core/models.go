package core

import (
	"encoding/hex"
	"time"

	"github.com/go-crypt/x/blake2b"
)

// BusinessKeyLength is the length of a normalized registry identifier.
// Registry identifiers are fixed-length, digits-only strings.
const BusinessKeyLength = 9

// KeyFromTerm generates a deterministic cache key from a search term using
// BLAKE2b hashing. This ensures that identical terms produce identical keys.
func KeyFromTerm(term string) string {
	h, _ := blake2b.New(8, nil) // 8 bytes = 64 bits
	h.Write([]byte(term))
	return "search:" + hex.EncodeToString(h.Sum(nil))
}

// Tier identifies the admission-control class of a caller.
type Tier int

const (
	// TierDefault is the baseline tier for unauthenticated callers.
	TierDefault Tier = iota + 1
	// TierPremium is the tier for paying callers.
	TierPremium
	// TierEnterprise is the highest tier with the largest quotas.
	TierEnterprise
)

// String returns the tier name as used in configuration and API parameters.
func (t Tier) String() string {
	switch t {
	case TierPremium:
		return "premium"
	case TierEnterprise:
		return "enterprise"
	default:
		return "default"
	}
}

// RegistryRecord is a raw record as returned by a source. The identifier
// encoding varies by source: a clean digits-only field, a comma-joined
// composite, or embedded inside a longer string. Extraction happens during
// reconciliation.
type RegistryRecord struct {
	Ident        string `json:"ident"`
	Name         string `json:"name"`
	Address      string `json:"address"`
	LegalForm    string `json:"legalForm"`
	ActivityCode string `json:"activityCode"`
	Status       string `json:"status"`
	Source       string `json:"source"`
}

// UnifiedRecord is a reconciled record with a normalized business key.
// The final merged list contains at most one UnifiedRecord per business key.
type UnifiedRecord struct {
	BusinessKey  string  `json:"businessKey"`
	Name         string  `json:"name"`
	Address      string  `json:"address"`
	LegalForm    string  `json:"legalForm"`
	ActivityCode string  `json:"activityCode"`
	Status       string  `json:"status"`
	Source       string  `json:"source"`
	Score        float32 `json:"score"`
}

// SourceResult is the outcome of querying a single source. Exactly one is
// produced per requested source: either Records or Err is populated, a
// source is never dropped silently.
type SourceResult struct {
	Source  string
	Records []RegistryRecord
	Err     error
}

// SourceError describes a failed source in an API response.
type SourceError struct {
	Source  string `json:"source"`
	Message string `json:"message"`
}

// RateLimitInfo carries admission-control feedback for a response.
type RateLimitInfo struct {
	Remaining int       `json:"remaining"`
	ResetTime time.Time `json:"resetTime"`
}

// SearchResponse is the aggregate answer for one search request.
// A degraded response still carries Results from the sources that
// succeeded, with the failed ones listed in Errors.
type SearchResponse struct {
	Results      []UnifiedRecord `json:"results"`
	SourceCounts map[string]int  `json:"sources"`
	Errors       []SourceError   `json:"errors,omitempty"`
	RateLimit    RateLimitInfo   `json:"rateLimit"`
	FromCache    bool            `json:"fromCache"`
	UsedFallback bool            `json:"usedFallback"`
}
