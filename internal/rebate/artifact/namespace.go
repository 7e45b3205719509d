package artifact

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"

	"github.com/gosimple/slug"
)

// AppliedFilter is one dashboard filter in effect when a plan is loaded.
type AppliedFilter struct {
	FieldLabel string `json:"field_label"`
	Value      string `json:"value"`
}

// FilteredObject flattens the applied filters into a label keyed map suitable
// for embedding in an encoded artifact value.
func FilteredObject(filters []AppliedFilter) map[string]any {
	out := map[string]any{}
	for _, f := range filters {
		out[f.FieldLabel] = f.Value
	}
	return out
}

// FilterToken builds a stable token from the applied filter values. Values
// are normalized, sorted and joined so ordering of the incoming filters never
// changes the token.
func FilterToken(filters []AppliedFilter) string {
	tokens := make([]string, 0, len(filters))
	for _, f := range filters {
		normalized := strings.ReplaceAll(slug.Make(f.Value), "-", "")
		if normalized == "" {
			continue
		}
		tokens = append(tokens, normalized)
	}
	sort.Strings(tokens)
	return strings.Join(tokens, "_")
}

// Namespace derives the store namespace for one rendered plan. The filter
// token is hashed so arbitrarily long filter sets still produce a bounded
// namespace.
func Namespace(prefix, user, dashboard, element string, filters []AppliedFilter) string {
	sum := sha256.Sum256([]byte(FilterToken(filters)))
	return fmt.Sprintf("%s_%s_%s_%s_%s",
		slug.Make(prefix), slug.Make(user), slug.Make(dashboard), slug.Make(element),
		hex.EncodeToString(sum[:]),
	)
}
