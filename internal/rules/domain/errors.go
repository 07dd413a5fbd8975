package rules

import "errors"

var (
	// ErrNotFound indicates a rule or alert does not exist.
	ErrNotFound = errors.New("rules: not found")
)
