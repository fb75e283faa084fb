package reconcile

import "errors"

var (
	// ErrNoBusinessKey indicates no heuristic could extract a business
	// key from a record. The record is dropped from the merge.
	ErrNoBusinessKey = errors.New("no extractable business key")
)
