package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"

	"middleoffice/pkg/oid"
)

// Record field names the lifecycle engine reads or writes. Everything else in
// a document is opaque.
const (
	FieldID                = "_id"
	FieldContext           = "context"
	FieldRequestDate       = "requestDate"
	FieldPolicyStartDate   = "policyStartDate"
	FieldPolicyEndDate     = "policyEndDate"
	FieldIntegrationDate   = "integrationDate"
	FieldPreviousObjectIDs = "previousObjectIds"
)

// DerivedDateFields are copied out of content.context at creation and stored
// as native dates at the top level of the record.
var DerivedDateFields = []string{FieldRequestDate, FieldPolicyStartDate, FieldPolicyEndDate}

// Content is a schema-less JSON object.
type Content map[string]any

// Document is an opaque content value plus an optional store identifier.
// The identifier is never echoed back in JSON responses.
type Document struct {
	ID      string `json:"-"`
	Content any    `json:"content"`
}

// InsertedID renders a freshly assigned identifier the way the create and
// update endpoints return it.
type InsertedID = oid.ObjectID

// DeletionResult reports how many Active records a delete removed.
type DeletionResult struct {
	DeletedCount int64
}

// Query selects Active documents for listing and counting. Date wins over
// Policyholder when both are set.
type Query struct {
	Date         *string
	Policyholder *string
	Page         int64
	Limit        int64
}

// ArchivedRecord is one append-only entry in the History or Deleted partition.
type ArchivedRecord struct {
	ID         string
	OriginalID string
	ArchivedAt time.Time
	Content    Content
}

// DecodeContent parses a request body into a JSON value. Numbers keep their
// integer-ness so stored documents do not drift to float64.
func DecodeContent(data []byte) (any, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, err
	}
	if dec.More() {
		return nil, fmt.Errorf("unexpected data after top-level value")
	}
	return normalizeNumbers(v), nil
}

func normalizeNumbers(v any) any {
	switch t := v.(type) {
	case map[string]any:
		for k, val := range t {
			t[k] = normalizeNumbers(val)
		}
		return t
	case []any:
		for i, val := range t {
			t[i] = normalizeNumbers(val)
		}
		return t
	case json.Number:
		if i, err := t.Int64(); err == nil {
			return i
		}
		if f, err := t.Float64(); err == nil {
			return f
		}
		return t.String()
	default:
		return v
	}
}

// Clone returns a deep copy of c.
func (c Content) Clone() Content {
	if c == nil {
		return nil
	}
	return cloneValue(map[string]any(c)).(map[string]any)
}

// CloneValue deep-copies maps and slices nested in a JSON-like value.
func CloneValue(v any) any {
	return cloneValue(v)
}

func cloneValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, val := range t {
			out[k] = cloneValue(val)
		}
		return out
	case Content:
		out := make(map[string]any, len(t))
		for k, val := range t {
			out[k] = cloneValue(val)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, val := range t {
			out[i] = cloneValue(val)
		}
		return out
	case []string:
		out := make([]string, len(t))
		copy(out, t)
		return out
	default:
		return v
	}
}

// PreviousObjectIDs reads the version chain, newest first. Non-string entries
// are skipped.
func (c Content) PreviousObjectIDs() []string {
	switch raw := c[FieldPreviousObjectIDs].(type) {
	case []string:
		out := make([]string, len(raw))
		copy(out, raw)
		return out
	case []any:
		out := make([]string, 0, len(raw))
		for _, item := range raw {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	default:
		return nil
	}
}

// ContextValue returns content.context.<field> as a string.
func (c Content) ContextValue(field string) (string, bool) {
	ctx, ok := c[FieldContext].(map[string]any)
	if !ok {
		return "", false
	}
	s, ok := ctx[field].(string)
	return s, ok
}
