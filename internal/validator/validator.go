// Package validator checks a pipeline result against the expectations of
// its prompt bundle: required fields, numeric plausibility and an optional
// JSON schema.
package validator

import "encoding/json"

// Options are the per-document inputs of a validation run.
type Options struct {
	RequiredFields      []string
	VerificationEnabled bool
	OutputSchema        json.RawMessage
}

// Rule is one built-in validation rule. Check receives the data view of the
// result and returns human-readable problems.
type Rule interface {
	RuleKey() string
	Applies(opts Options) bool
	Check(data map[string]any, opts Options) []string
}
