package audit

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
)

// FilterAction is applied to a matched metadata key.
type FilterAction string

const (
	FilterActionRemove FilterAction = "remove"
	FilterActionHash   FilterAction = "hash"
	FilterActionMask   FilterAction = "mask"
)

// Second-factor material that must never reach the audit trail.
var defaultRules = map[string]FilterAction{
	"secret":       FilterActionRemove,
	"seed":         FilterActionRemove,
	"code":         FilterActionRemove,
	"otp":          FilterActionRemove,
	"backup_code":  FilterActionRemove,
	"backup_codes": FilterActionRemove,
	"master_key":   FilterActionRemove,
	"password":     FilterActionRemove,
	"token":        FilterActionRemove,
	"api_key":      FilterActionRemove,
	"email":        FilterActionHash,
	"phone":        FilterActionMask,
}

// MetadataFilter removes, hashes or masks sensitive metadata fields.
// Keys are matched case-insensitively.
type MetadataFilter struct {
	rules map[string]FilterAction
}

// FilterOption configures a MetadataFilter.
type FilterOption func(*MetadataFilter)

// WithFieldRule sets the action for a metadata key, overriding the defaults.
func WithFieldRule(field string, action FilterAction) FilterOption {
	return func(f *MetadataFilter) { f.rules[strings.ToLower(field)] = action }
}

// WithAllowedField lets a default-filtered field through untouched.
func WithAllowedField(field string) FilterOption {
	return func(f *MetadataFilter) { delete(f.rules, strings.ToLower(field)) }
}

// NewMetadataFilter starts from the default sensitive field rules.
func NewMetadataFilter(opts ...FilterOption) *MetadataFilter {
	f := &MetadataFilter{rules: make(map[string]FilterAction, len(defaultRules))}
	for k, v := range defaultRules {
		f.rules[k] = v
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Filter returns a filtered copy of metadata.
func (f *MetadataFilter) Filter(metadata map[string]any) map[string]any {
	if metadata == nil {
		return nil
	}

	out := make(map[string]any, len(metadata))
	for key, value := range metadata {
		action, ok := f.rules[strings.ToLower(key)]
		if !ok {
			out[key] = value
			continue
		}
		switch action {
		case FilterActionHash:
			sum := sha256.Sum256(fmt.Appendf(nil, "%v", value))
			out[key] = hex.EncodeToString(sum[:])
		case FilterActionMask:
			out[key] = maskValue(fmt.Sprintf("%v", value))
		case FilterActionRemove:
		}
	}
	return out
}

func maskValue(s string) string {
	if len(s) <= 4 {
		return strings.Repeat("*", len(s))
	}
	return strings.Repeat("*", len(s)-4) + s[len(s)-4:]
}
