package llmextractor

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractCleanJSONArray(t *testing.T) {
	s := NewService()
	text := `[{"testCaseId":"t1","name":"list users","request":{"method":"GET","path":"/users"}}]`

	got := s.Extract(text)
	require.Len(t, got, 1)
	assert.Equal(t, "t1", got[0].TestCaseID)
	assert.Equal(t, "/users", got[0].Request.Path)
}

func TestExtractCodeFencedJSON(t *testing.T) {
	s := NewService()
	text := "Here are your test cases:\n```json\n" +
		`[{"testCaseId":"t1","name":"get user","request":{"method":"GET","path":"/users/1"}}]` +
		"\n```\nLet me know if you need more."

	got := s.Extract(text)
	require.Len(t, got, 1)
	assert.Equal(t, "t1", got[0].TestCaseID)
}

func TestExtractRepairsTrailingComma(t *testing.T) {
	s := NewService()
	text := `[{"testCaseId":"t1","name":"create order","request":{"method":"POST","path":"/orders",},},]`

	got := s.Extract(text)
	require.Len(t, got, 1)
	assert.Equal(t, "t1", got[0].TestCaseID)
	assert.Equal(t, "/orders", got[0].Request.Path)
}

func TestExtractFallsBackToObjectScanWhenFirstValueDoesNotUnmarshal(t *testing.T) {
	s := NewService()
	// The first top-level value is an object, not an array, so the array
	// parse fails; with no embedded array to retry, extraction falls back
	// to scanning every top-level object independently. The first object
	// has a type-mismatched method field and is dropped, the second
	// survives. The survivor nests two object levels deep (request >
	// headers) to exercise depth-unbounded brace balancing.
	text := `{"testCaseId":"bad","name":"a","request":{"method":123,"path":"/a"}} ` +
		`then {"testCaseId":"t2","name":"b","request":{"method":"GET","path":"/b",` +
		`"headers":{"Accept":"application/json","X-Tenant":"{{tenant}}"}}}`

	got := s.Extract(text)
	require.Len(t, got, 1)
	assert.Equal(t, "t2", got[0].TestCaseID)
	assert.Equal(t, "application/json", got[0].Request.Headers["Accept"])
}

func TestExtractRetriesEmbeddedArrayAfterLeadingObject(t *testing.T) {
	s := NewService()
	// The first balanced JSON value is a summary object, not the test
	// case array, so the initial array parse fails; the embedded-array
	// retry finds the real array later in the text, nested headers and
	// all.
	text := `Summary: {"total":2,"notes":"generated"}` + "\n" +
		`[{"testCaseId":"t1","name":"login","request":{"method":"POST","path":"/login",` +
		`"headers":{"Content-Type":"application/json"}}},` +
		`{"testCaseId":"t2","name":"profile","request":{"method":"GET","path":"/me"}}]`

	got := s.Extract(text)
	require.Len(t, got, 2)
	assert.Equal(t, "t1", got[0].TestCaseID)
	assert.Equal(t, "t2", got[1].TestCaseID)
}

func TestExtractDropsEntriesMissingRequiredFields(t *testing.T) {
	s := NewService()
	text := `[
		{"testCaseId":"t1","name":"valid","request":{"method":"GET","path":"/ok"}},
		{"name":"missing id","request":{"method":"GET","path":"/x"}},
		{"testCaseId":"t3","name":"missing path","request":{"method":"GET"}}
	]`

	got := s.Extract(text)
	require.Len(t, got, 1)
	assert.Equal(t, "t1", got[0].TestCaseID)
}

func TestExtractKeepsEntriesMissingOnlyMethod(t *testing.T) {
	// The validation gate requires a non-empty testCaseId, a non-empty
	// name and a non-empty request.path; request.method is not part of
	// it.
	s := NewService()
	text := `[{"testCaseId":"t1","name":"missing method","request":{"path":"/y"}}]`

	got := s.Extract(text)
	require.Len(t, got, 1)
	assert.Equal(t, "t1", got[0].TestCaseID)
}

func TestExtractReturnsEmptyWhenNoJSONPresent(t *testing.T) {
	s := NewService()
	got := s.Extract("I couldn't come up with any test cases for this prompt.")
	assert.Empty(t, got)
}

func TestExtractSingleObjectNotArray(t *testing.T) {
	s := NewService()
	text := `{"testCaseId":"t1","name":"solo","request":{"method":"DELETE","path":"/items/1"}}`

	got := s.Extract(text)
	require.Len(t, got, 1)
	assert.Equal(t, "t1", got[0].TestCaseID)
}
