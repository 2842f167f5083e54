package models

// ExtractionSource names where a VariableExtractionRule reads its raw
// value from.
type ExtractionSource string

const (
	ExtractFromResponseBody       ExtractionSource = "ResponseBody"
	ExtractFromResponseHeader     ExtractionSource = "ResponseHeader"
	ExtractFromResponseStatusCode ExtractionSource = "ResponseStatusCode"
)

// VariableExtractionRule reads one value out of a successful response and
// binds it to Name for use by dependent tests. When Regex is set, its
// first capture group (or the whole match, if the pattern has no group)
// replaces the raw value; a non-match stores the empty string under Name
// and logs a warning, not an error. Extracted values are strings only,
// so no null is recorded.
type VariableExtractionRule struct {
	Name   string           `json:"name"`
	Source ExtractionSource `json:"source"`

	// Path is a dotted/indexed JSON path for ResponseBody, or a header
	// name for ResponseHeader. Unused for ResponseStatusCode.
	Path string `json:"path,omitempty"`

	Regex string `json:"regex,omitempty"`
}
