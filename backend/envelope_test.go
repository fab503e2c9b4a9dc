// ABOUTME: Tests for envelope field-error decoding and tolerant id/tag decoding
// ABOUTME: Field errors must keep the order the backend sent them in

package backend

import (
	"encoding/json"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestFieldErrorsDecoding(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want FieldErrors
	}{
		{"object keeps order", `{"z":["last"],"a":["first","second"]}`, FieldErrors{
			{Field: "z", Messages: []string{"last"}},
			{Field: "a", Messages: []string{"first", "second"}},
		}},
		{"string values", `{"title":"required"}`, FieldErrors{{Field: "title", Messages: []string{"required"}}}},
		{"empty field skipped", `{"title":[],"body":["bad"]}`, FieldErrors{{Field: "body", Messages: []string{"bad"}}}},
		{"array", `["one","two"]`, FieldErrors{{Messages: []string{"one", "two"}}}},
		{"bare string", `"oops"`, FieldErrors{{Messages: []string{"oops"}}}},
		{"null", `null`, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var fe FieldErrors
			if err := json.Unmarshal([]byte(tt.in), &fe); err != nil {
				t.Fatalf("unmarshal: %v", err)
			}
			if diff := cmp.Diff(tt.want, fe); diff != "" {
				t.Fatalf("mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestResourceIDDecoding(t *testing.T) {
	for in, want := range map[string]ResourceID{`12`: "12", `"ab-3"`: "ab-3", `null`: ""} {
		var id ResourceID
		if err := json.Unmarshal([]byte(in), &id); err != nil {
			t.Fatalf("unmarshal %s: %v", in, err)
		}
		if id != want {
			t.Fatalf("unmarshal %s = %q, want %q", in, id, want)
		}
	}
}

func TestDecodeEnvelopeRejectsNonObjects(t *testing.T) {
	for _, body := range []string{"", "   ", "[1,2]", "<html>", "{not json"} {
		if _, err := decodeEnvelope(200, "text/plain", []byte(body)); err == nil {
			t.Fatalf("expected error for body %q", body)
		} else if _, ok := err.(*MalformedResponseError); !ok {
			t.Fatalf("expected MalformedResponseError for %q, got %T", body, err)
		}
	}
}
