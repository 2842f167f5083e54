package models

import (
	"bytes"
	stdjson "encoding/json"
	"fmt"

	jsoniter "github.com/json-iterator/go"
)

var queryParamsJSON = jsoniter.ConfigCompatibleWithStandardLibrary

// QueryParameter is one name/value-template pair in a Request's query
// string.
type QueryParameter struct {
	Name     string
	Template string
}

// QueryParameters is an ordered list of query parameter templates. On the
// wire it still reads and writes as a plain JSON object, the same shape
// a map[string]string would produce, but unlike a map it preserves the
// order its keys appeared in, which the Request Builder needs to honor
// input order when composing a query string.
type QueryParameters []QueryParameter

// MarshalJSON renders QueryParameters as a JSON object, keys in list order.
func (q QueryParameters) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, p := range q {
		if i > 0 {
			buf.WriteByte(',')
		}
		name, err := queryParamsJSON.Marshal(p.Name)
		if err != nil {
			return nil, err
		}
		value, err := queryParamsJSON.Marshal(p.Template)
		if err != nil {
			return nil, err
		}
		buf.Write(name)
		buf.WriteByte(':')
		buf.Write(value)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON reads a JSON object's keys in the order they appear in
// the input. Decoding through a map, as encoding/json and jsoniter do by
// default, would discard that order.
func (q *QueryParameters) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || string(trimmed) == "null" {
		*q = nil
		return nil
	}

	// encoding/json's Decoder is used here for its Token method, which
	// jsoniter's Decoder does not have.
	dec := stdjson.NewDecoder(bytes.NewReader(trimmed))
	if _, err := dec.Token(); err != nil {
		return fmt.Errorf("queryParameters: %w", err)
	}

	var params QueryParameters
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return fmt.Errorf("queryParameters: %w", err)
		}
		key, ok := keyTok.(string)
		if !ok {
			return fmt.Errorf("queryParameters: non-string key %v", keyTok)
		}

		var value string
		if err := dec.Decode(&value); err != nil {
			return fmt.Errorf("queryParameters: value for %q: %w", key, err)
		}

		params = append(params, QueryParameter{Name: key, Template: value})
	}

	*q = params
	return nil
}
