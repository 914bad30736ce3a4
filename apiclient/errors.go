package apiclient

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"strings"
)

// FieldError holds the messages the API reported for one field, in body order.
// Field is empty for messages that were not keyed (a bare top-level array).
type FieldError struct {
	Field    string
	Messages []string
}

// Error is the parsed envelope of a non-2xx API response.
type Error struct {
	StatusCode int
	Detail     string       // top-level "detail" message, if any
	Fields     []FieldError // every key of the body, in encounter order (includes "detail")
	Structured bool         // body was a JSON object or array
	Body       string       // raw body, for logs
}

func (e *Error) Error() string {
	if msg := e.Aggregate(); msg != "" {
		return fmt.Sprintf("api error %d: %s", e.StatusCode, strings.ReplaceAll(msg, "\n", "; "))
	}
	return fmt.Sprintf("api error %d", e.StatusCode)
}

// Messages flattens every field's messages in encounter order
func (e *Error) Messages() []string {
	var out []string
	for _, f := range e.Fields {
		out = append(out, f.Messages...)
	}
	return out
}

// Aggregate joins all messages with newlines
func (e *Error) Aggregate() string {
	return strings.Join(e.Messages(), "\n")
}

// parseError builds the envelope for a failed response body
func parseError(statusCode int, body []byte) *Error {
	apiErr := &Error{StatusCode: statusCode, Body: string(body)}

	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 {
		return apiErr
	}

	switch trimmed[0] {
	case '{':
		fields, err := decodeOrderedObject(trimmed)
		if err != nil {
			return apiErr
		}
		apiErr.Structured = true
		apiErr.Fields = fields
		for _, f := range fields {
			if f.Field == "detail" && len(f.Messages) > 0 {
				apiErr.Detail = f.Messages[0]
				break
			}
		}
	case '[':
		var messages []string
		if err := flattenJSON(json.RawMessage(trimmed), &messages); err != nil {
			return apiErr
		}
		apiErr.Structured = true
		apiErr.Fields = []FieldError{{Messages: messages}}
	}
	return apiErr
}

// decodeOrderedObject reads a JSON object keeping its key order, which
// encoding/json's map decoding discards.
func decodeOrderedObject(data []byte) ([]FieldError, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	if _, err := dec.Token(); err != nil {
		return nil, err
	}

	var fields []FieldError
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		key, ok := keyTok.(string)
		if !ok {
			return nil, fmt.Errorf("unexpected key token %v", keyTok)
		}

		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return nil, err
		}

		var messages []string
		if err := flattenJSON(raw, &messages); err != nil {
			return nil, err
		}
		fields = append(fields, FieldError{Field: key, Messages: messages})
	}

	if _, err := dec.Token(); err != nil && err != io.EOF {
		return nil, err
	}
	return fields, nil
}

// flattenJSON appends every leaf of raw to out in document order. Strings are
// appended as-is, null is skipped, other scalars use their JSON text.
func flattenJSON(raw json.RawMessage, out *[]string) error {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return nil
	}

	switch trimmed[0] {
	case '"':
		var s string
		if err := json.Unmarshal(trimmed, &s); err != nil {
			return err
		}
		*out = append(*out, s)
	case '[':
		var items []json.RawMessage
		if err := json.Unmarshal(trimmed, &items); err != nil {
			return err
		}
		for _, item := range items {
			if err := flattenJSON(item, out); err != nil {
				return err
			}
		}
	case '{':
		nested, err := decodeOrderedObject(trimmed)
		if err != nil {
			return err
		}
		for _, f := range nested {
			*out = append(*out, f.Messages...)
		}
	case 'n':
		// null
	default:
		*out = append(*out, string(trimmed))
	}
	return nil
}
