// ABOUTME: Response envelope {status, data, message, errors} and its tolerant JSON decoding.
// ABOUTME: Field errors keep the order the backend sent them in so "first error" is well defined.

package backend

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
)

// Envelope is the backend's standard response shape.
type Envelope struct {
	Status  bool            `json:"status"`
	Data    json.RawMessage `json:"data,omitempty"`
	Message string          `json:"message,omitempty"`
	Errors  FieldErrors     `json:"errors,omitempty"`
}

// FieldError holds the messages reported for one form field. Field is empty
// for errors not tied to a field.
type FieldError struct {
	Field    string
	Messages []string
}

// FieldErrors is an ordered list of field errors.
type FieldErrors []FieldError

// UnmarshalJSON accepts an object of field → message or messages, a list of
// messages, a single message string, or null.
func (fe *FieldErrors) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		*fe = nil
		return nil
	}

	switch b[0] {
	case '{':
		return fe.decodeObject(b)
	case '[', '"':
		msgs, err := decodeMessages(b)
		if err != nil {
			return err
		}
		if len(msgs) == 0 {
			*fe = nil
			return nil
		}
		*fe = FieldErrors{{Messages: msgs}}
		return nil
	default:
		return fmt.Errorf("errors: unexpected JSON %q", truncate(b, 32))
	}
}

func (fe *FieldErrors) decodeObject(b []byte) error {
	dec := json.NewDecoder(bytes.NewReader(b))
	if _, err := dec.Token(); err != nil {
		return err
	}

	var out FieldErrors
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		field, ok := tok.(string)
		if !ok {
			return fmt.Errorf("errors: expected field name, got %v", tok)
		}
		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return fmt.Errorf("errors.%s: %w", field, err)
		}
		msgs, err := decodeMessages(raw)
		if err != nil {
			return fmt.Errorf("errors.%s: %w", field, err)
		}
		if len(msgs) > 0 {
			out = append(out, FieldError{Field: field, Messages: msgs})
		}
	}
	if _, err := dec.Token(); err != nil {
		return err
	}
	*fe = out
	return nil
}

// decodeMessages accepts a string, an array of scalars, or null.
func decodeMessages(raw json.RawMessage) ([]string, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return nil, nil
	}
	if raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return nil, err
		}
		return []string{s}, nil
	}

	var items []any
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, err
	}
	msgs := make([]string, 0, len(items))
	for _, it := range items {
		switch v := it.(type) {
		case string:
			msgs = append(msgs, v)
		case nil:
		default:
			msgs = append(msgs, fmt.Sprint(v))
		}
	}
	return msgs, nil
}

// ResourceID is a backend identifier that may arrive as a JSON number or string.
type ResourceID string

func (id *ResourceID) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*id = ""
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*id = ResourceID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("id: %w", err)
	}
	if i, err := n.Int64(); err == nil {
		*id = ResourceID(strconv.FormatInt(i, 10))
		return nil
	}
	*id = ResourceID(n.String())
	return nil
}

func (id ResourceID) String() string { return string(id) }

// TagList is a list of tag names. The backend sends either plain strings or
// objects carrying a name.
type TagList []string

func (tl *TagList) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*tl = nil
		return nil
	}
	var items []json.RawMessage
	if err := json.Unmarshal(b, &items); err != nil {
		return fmt.Errorf("tags: %w", err)
	}
	out := make(TagList, 0, len(items))
	for _, item := range items {
		var s string
		if err := json.Unmarshal(item, &s); err == nil {
			out = append(out, s)
			continue
		}
		var obj struct {
			Name string `json:"name"`
		}
		if err := json.Unmarshal(item, &obj); err != nil {
			return fmt.Errorf("tags: %w", err)
		}
		if obj.Name != "" {
			out = append(out, obj.Name)
		}
	}
	*tl = out
	return nil
}

func truncate(b []byte, n int) string {
	if len(b) > n {
		return string(b[:n]) + "..."
	}
	return string(b)
}
