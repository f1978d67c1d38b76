package remote

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

// ErrUnexpectedShape is returned when a response body matches none of the
// envelopes the backend is known to send.
var ErrUnexpectedShape = errors.New("remote: unexpected response shape")

// DecodeList decodes a list response. The backend answers list endpoints with
// one of:
//
//	[...]
//	{"items": [...]}
//	{"data": [...]}
//	{"data": {"items": [...]}}
//
// An empty body or JSON null decodes to an empty, non-nil slice.
func DecodeList[T any](body []byte) ([]T, error) {
	raw, err := unwrapList(bytes.TrimSpace(body))
	if err != nil {
		return nil, err
	}
	out := []T{}
	if raw == nil {
		return out, nil
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("remote: decode list: %w", err)
	}
	if out == nil {
		out = []T{}
	}
	return out, nil
}

func unwrapList(body []byte) (json.RawMessage, error) {
	if len(body) == 0 || bytes.Equal(body, []byte("null")) {
		return nil, nil
	}
	switch body[0] {
	case '[':
		return body, nil
	case '{':
	default:
		return nil, ErrUnexpectedShape
	}

	var envelope map[string]json.RawMessage
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, fmt.Errorf("remote: decode envelope: %w", err)
	}
	if items, ok := envelope["items"]; ok {
		return unwrapList(bytes.TrimSpace(items))
	}
	if data, ok := envelope["data"]; ok {
		return unwrapList(bytes.TrimSpace(data))
	}
	return nil, ErrUnexpectedShape
}

// DecodeOne decodes a single-entity response, either bare or wrapped as
// {"data": {...}}.
func DecodeOne[T any](body []byte) (*T, error) {
	body = bytes.TrimSpace(body)
	if len(body) == 0 || body[0] != '{' {
		return nil, ErrUnexpectedShape
	}

	var envelope map[string]json.RawMessage
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, fmt.Errorf("remote: decode envelope: %w", err)
	}
	if data, ok := envelope["data"]; ok {
		data = bytes.TrimSpace(data)
		if len(data) > 0 && data[0] == '{' {
			body = data
		}
	}

	var out T
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, fmt.Errorf("remote: decode entity: %w", err)
	}
	return &out, nil
}
