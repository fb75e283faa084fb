package reconcile

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/poiesic/regsearch/core"
)

// digitRun matches the first run of exactly BusinessKeyLength digits.
var digitRun = regexp.MustCompile(fmt.Sprintf(`[0-9]{%d}`, core.BusinessKeyLength))

// ExtractBusinessKey normalizes a raw record's identifier. Sources
// encode it differently, so extraction tries, in order:
//
//  1. the identifier field taken directly
//  2. the second segment of a comma-joined composite, if it has the
//     expected length and is all digits
//  3. the first run of digits of the expected length anywhere in the
//     identifier
//
// Extraction is deliberately best-effort: a record whose identifier
// matches none of these is dropped rather than guessed at.
func ExtractBusinessKey(record core.RegistryRecord) (string, error) {
	ident := strings.TrimSpace(record.Ident)

	if core.ValidateBusinessKey(ident) == nil {
		return ident, nil
	}

	if parts := strings.Split(ident, ","); len(parts) >= 2 {
		second := strings.TrimSpace(parts[1])
		if core.ValidateBusinessKey(second) == nil {
			return second, nil
		}
	}

	if run := digitRun.FindString(ident); run != "" {
		return run, nil
	}

	return "", fmt.Errorf("%w: %q", ErrNoBusinessKey, record.Ident)
}
