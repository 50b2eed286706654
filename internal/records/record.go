// Package records defines the generic field-value record exchanged between
// the format readers and the source mappers. A Record is what a reader
// produces for one element of a raw directory: every field is keyed by the
// upstream column/tag name, values are whatever the decoder produced
// (string, json.Number, float64, nil, ...).
package records

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Record is one raw record keyed by upstream field name.
type Record map[string]any

// String returns the trimmed string form of field key. Missing and nil values
// yield "". NBSP is replaced by a regular space before trimming, matching the
// cleanup every upstream export needs.
func (r Record) String(key string) string {
	v, ok := r[key]
	if !ok || v == nil {
		return ""
	}
	var s string
	switch t := v.(type) {
	case string:
		s = t
	case json.Number:
		s = t.String()
	case float64:
		s = strconv.FormatFloat(t, 'f', -1, 64)
	case int:
		s = strconv.Itoa(t)
	case int64:
		s = strconv.FormatInt(t, 10)
	case bool:
		s = strconv.FormatBool(t)
	default:
		s = fmt.Sprint(t)
	}
	s = strings.ReplaceAll(s, "\u00a0", " ")
	return strings.TrimSpace(s)
}

// Has reports whether key is present with a non-empty value.
func (r Record) Has(key string) bool {
	return r.String(key) != ""
}

// Int returns field key parsed as a base-10 integer. Decimal JSON numbers are
// truncated.
func (r Record) Int(key string) (int64, bool) {
	switch t := r[key].(type) {
	case float64:
		return int64(t), true
	case int:
		return int64(t), true
	case int64:
		return t, true
	}
	s := r.String(key)
	if s == "" {
		return 0, false
	}
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return n, true
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return int64(f), true
	}
	return 0, false
}
