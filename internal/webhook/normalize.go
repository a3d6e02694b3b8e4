package webhook

import (
	"encoding/json"
)

// Result is the normalized view of a webhook response. The zero value means
// no usable result.
type Result struct {
	// Body is the decoded response document as received.
	Body json.RawMessage
	// Fields is the flat object left after unwrapping; nil when the response
	// had no object shape.
	Fields map[string]any
}

// NoResult is returned for failed calls and unusable responses.
var NoResult = Result{}

// Found reports whether the response normalized to a field map.
func (r Result) Found() bool {
	return r.Fields != nil
}

// String returns the field as a non-empty string.
func (r Result) String(field string) (string, bool) {
	if field == "" {
		return "", false
	}
	s, ok := r.Fields[field].(string)
	if !ok || s == "" {
		return "", false
	}
	return s, true
}

// FieldsJSON encodes the normalized field map for the audit log.
func (r Result) FieldsJSON() json.RawMessage {
	if !r.Found() {
		return nil
	}
	b, err := json.Marshal(r.Fields)
	if err != nil {
		return nil
	}
	return b
}

// Normalize turns a JSON response into a flat field map. A non-empty array is
// reduced to its first element, then a set "output" property replaces the
// object. Null, "", false and 0 count as unset. Anything that is not an
// object at the end yields no fields.
func Normalize(raw []byte) (Result, error) {
	var doc any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return NoResult, err
	}
	res := Result{Body: json.RawMessage(append([]byte(nil), raw...))}

	if arr, ok := doc.([]any); ok {
		if len(arr) == 0 {
			return res, nil
		}
		doc = arr[0]
	}

	obj, ok := doc.(map[string]any)
	if !ok {
		return res, nil
	}
	if out := obj["output"]; isSet(out) {
		nested, ok := out.(map[string]any)
		if !ok {
			return res, nil
		}
		obj = nested
	}

	res.Fields = obj
	return res, nil
}

func isSet(v any) bool {
	switch v := v.(type) {
	case nil:
		return false
	case string:
		return v != ""
	case bool:
		return v
	case float64:
		return v != 0
	default:
		return true
	}
}
