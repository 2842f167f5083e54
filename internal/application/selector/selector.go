// Package selector implements the JSON Selector: resolving a
// dotted/indexed path against an already-parsed JSON value.
package selector

import (
	"strconv"
	"strings"

	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Service resolves paths of the grammar:
//   - optional leading "$" or "$."
//   - segments separated by "."
//   - each segment is a property name, optionally followed by one or more
//     "[i]" index brackets
//
// Navigation is strict: a property miss, an index miss, or indexing a
// scalar all resolve to "absent" (ok=false) rather than an error.
type Service struct{}

// NewService creates a JSON Selector.
func NewService() *Service { return &Service{} }

// Parse unmarshals raw JSON text into the generic value tree Select
// operates on.
func (s *Service) Parse(raw []byte) (interface{}, error) {
	var v interface{}
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil, err
	}
	return v, nil
}

// Select resolves path against root. An empty path (or "$") returns root
// itself.
func (s *Service) Select(root interface{}, path string) (interface{}, bool) {
	path = strings.TrimSpace(path)
	path = strings.TrimPrefix(path, "$.")
	if path == "$" {
		path = ""
	}
	path = strings.TrimPrefix(path, "$")
	path = strings.TrimPrefix(path, ".")

	if path == "" {
		return root, true
	}

	current := root
	for _, segment := range strings.Split(path, ".") {
		if segment == "" {
			continue
		}

		name, indices, ok := splitSegment(segment)
		if !ok {
			return nil, false
		}

		if name != "" {
			obj, ok := current.(map[string]interface{})
			if !ok {
				return nil, false
			}
			value, ok := obj[name]
			if !ok {
				return nil, false
			}
			current = value
		}

		for _, idx := range indices {
			arr, ok := current.([]interface{})
			if !ok {
				return nil, false
			}
			if idx < 0 || idx >= len(arr) {
				return nil, false
			}
			current = arr[idx]
		}
	}

	return current, true
}

// NodeValue returns the scalar primitive carried by node, or the
// canonical JSON-text serialization when node is an object or array.
func (s *Service) NodeValue(node interface{}) interface{} {
	switch node.(type) {
	case string, float64, int64, bool, nil:
		return node
	default:
		bytes, err := json.Marshal(node)
		if err != nil {
			return ""
		}
		return string(bytes)
	}
}

// splitSegment splits "name[0][1]" into ("name", [0,1], true); a
// malformed bracket (non-numeric index, unbalanced brackets) yields
// ok=false.
func splitSegment(segment string) (name string, indices []int, ok bool) {
	open := strings.IndexByte(segment, '[')
	if open == -1 {
		return segment, nil, true
	}

	name = segment[:open]
	rest := segment[open:]

	for len(rest) > 0 {
		if rest[0] != '[' {
			return "", nil, false
		}
		close := strings.IndexByte(rest, ']')
		if close == -1 {
			return "", nil, false
		}
		idxStr := rest[1:close]
		idx, err := strconv.Atoi(idxStr)
		if err != nil {
			return "", nil, false
		}
		indices = append(indices, idx)
		rest = rest[close+1:]
	}

	return name, indices, true
}
