package memory

import (
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"

	"middleoffice/internal/document/models"
)

// matches evaluates the subset of the Mongo query language produced by the
// filter package: implicit equality and $eq/$ne/$gt/$gte/$lt/$lte on dotted
// paths.
func matches(record models.Content, predicate bson.D) bool {
	for _, e := range predicate {
		value, found := lookup(map[string]any(record), strings.Split(e.Key, "."))
		ops, isOps := operators(e.Value)
		if !isOps {
			if !found || compare(value, e.Value) != 0 {
				return false
			}
			continue
		}
		for _, op := range ops {
			if !apply(op.Key, value, found, op.Value) {
				return false
			}
		}
	}
	return true
}

func operators(v any) (bson.D, bool) {
	d, ok := v.(bson.D)
	if !ok || len(d) == 0 {
		return nil, false
	}
	for _, e := range d {
		if !strings.HasPrefix(e.Key, "$") {
			return nil, false
		}
	}
	return d, true
}

func apply(op string, value any, found bool, operand any) bool {
	if op == "$ne" {
		return !found || compare(value, operand) != 0
	}
	if !found {
		return false
	}
	c := compare(value, operand)
	switch op {
	case "$eq":
		return c == 0
	case "$gt":
		return c == 1
	case "$gte":
		return c == 0 || c == 1
	case "$lt":
		return c == -1
	case "$lte":
		return c == 0 || c == -1
	default:
		return false
	}
}

func lookup(m map[string]any, path []string) (any, bool) {
	v, ok := m[path[0]]
	if !ok {
		return nil, false
	}
	if len(path) == 1 {
		return v, true
	}
	child, ok := v.(map[string]any)
	if !ok {
		return nil, false
	}
	return lookup(child, path[1:])
}

// incomparable is returned when two values have different kinds.
const incomparable = 2

func compare(a, b any) int {
	if ta, ok := asTime(a); ok {
		tb, ok := asTime(b)
		if !ok {
			return incomparable
		}
		switch {
		case ta.Before(tb):
			return -1
		case ta.After(tb):
			return 1
		default:
			return 0
		}
	}
	if fa, ok := asFloat(a); ok {
		fb, ok := asFloat(b)
		if !ok {
			return incomparable
		}
		switch {
		case fa < fb:
			return -1
		case fa > fb:
			return 1
		default:
			return 0
		}
	}
	sa, okA := a.(string)
	sb, okB := b.(string)
	if okA && okB {
		return strings.Compare(sa, sb)
	}
	if a == nil && b == nil {
		return 0
	}
	ba, okA := a.(bool)
	bb, okB := b.(bool)
	if okA && okB && ba == bb {
		return 0
	}
	return incomparable
}

func asTime(v any) (time.Time, bool) {
	switch t := v.(type) {
	case time.Time:
		return t, true
	case bson.DateTime:
		return t.Time(), true
	default:
		return time.Time{}, false
	}
}

func asFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case float64:
		return n, true
	default:
		return 0, false
	}
}
