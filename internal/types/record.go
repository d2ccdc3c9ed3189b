// =============================================================================
// CSV Document Loader - Nested Record Builder
// =============================================================================
//
// Header names are dot-separated field paths. Set walks a path through an
// ordered document, creating intermediate documents as needed, and assigns
// the value at the last segment.
//
// CONFLICTING PATHS:
//   Last write wins. If an intermediate segment already holds a scalar, the
//   scalar is replaced by a fresh document in the same position:
//
//     a=1, a.b=2     -> {a: {b: 2}}
//     a.b=2, a=1     -> {a: 1}
//
// =============================================================================

package types

import (
	"strings"

	"go.mongodb.org/mongo-driver/bson"
)

// SplitPath splits a field path into its segments.
func SplitPath(path string) []string {
	return strings.Split(path, ".")
}

// Set assigns value at path inside doc.
func Set(doc *Record, path string, value interface{}) {
	setSegments(doc, SplitPath(path), value)
}

func setSegments(doc *Record, segments []string, value interface{}) {
	key := segments[0]
	idx := indexOf(*doc, key)

	if len(segments) == 1 {
		if idx >= 0 {
			(*doc)[idx].Value = value
		} else {
			*doc = append(*doc, bson.E{Key: key, Value: value})
		}
		return
	}

	var child bson.D
	if idx >= 0 {
		if existing, ok := (*doc)[idx].Value.(bson.D); ok {
			child = existing
		}
	}
	if child == nil {
		child = bson.D{}
	}

	setSegments(&child, segments[1:], value)

	if idx >= 0 {
		(*doc)[idx].Value = child
	} else {
		*doc = append(*doc, bson.E{Key: key, Value: child})
	}
}

// Lookup returns the value stored at path and whether it exists.
func Lookup(doc Record, path string) (interface{}, bool) {
	current := doc
	segments := SplitPath(path)
	for i, key := range segments {
		idx := indexOf(current, key)
		if idx < 0 {
			return nil, false
		}
		value := current[idx].Value
		if i == len(segments)-1 {
			return value, true
		}
		next, ok := value.(bson.D)
		if !ok {
			return nil, false
		}
		current = next
	}
	return nil, false
}

// Delete removes the top-level key from doc and returns the position it
// held, or -1 if it was absent.
func Delete(doc *Record, key string) int {
	idx := indexOf(*doc, key)
	if idx < 0 {
		return -1
	}
	*doc = append((*doc)[:idx], (*doc)[idx+1:]...)
	return idx
}

// Clone returns a copy of doc. Nested documents are copied too; other
// values are shared.
func Clone(doc Record) Record {
	out := make(Record, len(doc))
	for i, e := range doc {
		if child, ok := e.Value.(bson.D); ok {
			e.Value = Clone(child)
		}
		out[i] = e
	}
	return out
}

func indexOf(doc Record, key string) int {
	for i, e := range doc {
		if e.Key == key {
			return i
		}
	}
	return -1
}
