package selector

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const doc = `{"user":{"name":"Ada","tags":["admin","staff"]},"items":[{"id":1},{"id":2}]}`

func TestSelect(t *testing.T) {
	s := NewService()
	root, err := s.Parse([]byte(doc))
	require.NoError(t, err)

	cases := []struct {
		name string
		path string
		want interface{}
		ok   bool
	}{
		{"dotted property", "user.name", "Ada", true},
		{"dollar prefix", "$.user.name", "Ada", true},
		{"array index", "user.tags[0]", "admin", true},
		{"indexed object property", "items[1].id", float64(2), true},
		{"missing property is absent", "user.missing", nil, false},
		{"out of range index is absent", "items[5]", nil, false},
		{"empty path returns root", "", root, true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, ok := s.Select(root, tc.path)
			assert.Equal(t, tc.ok, ok)
			if tc.ok {
				assert.Equal(t, tc.want, got)
			}
		})
	}
}

func TestNodeValue(t *testing.T) {
	s := NewService()
	assert.Equal(t, "x", s.NodeValue("x"))
	assert.Equal(t, float64(3), s.NodeValue(float64(3)))
	assert.Equal(t, `{"a":1}`, s.NodeValue(map[string]interface{}{"a": float64(1)}))
}
