package ai

import (
	"errors"
	"math"
	"testing"
)

func TestExtractJSON(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{name: "plain", in: `{"a":1}`, want: `{"a":1}`},
		{name: "json fence", in: "```json\n{\"a\":1}\n```", want: `{"a":1}`},
		{name: "bare fence", in: "```\n[1,2]\n```", want: `[1,2]`},
		{name: "prose around", in: "Here you go: {\"a\":1} hope it helps", want: `{"a":1}`},
		{name: "empty", in: "  ", want: ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ExtractJSON(tt.in); got != tt.want {
				t.Fatalf("want %q, got %q", tt.want, got)
			}
		})
	}
}

func TestDecodeJSON(t *testing.T) {
	var out struct {
		A int `json:"a"`
	}
	if err := DecodeJSON("```json\n{\"a\": 7}\n```", &out); err != nil || out.A != 7 {
		t.Fatalf("unexpected result %v %+v", err, out)
	}
	if err := DecodeJSON("", &out); !errors.Is(err, ErrEmptyResponse) {
		t.Fatalf("expected ErrEmptyResponse, got %v", err)
	}
	if err := DecodeJSON("not json", &out); err == nil {
		t.Fatalf("expected parse error")
	}
}

func TestCoerce(t *testing.T) {
	if got := CoerceFloat(" 85 "); got != 85 {
		t.Fatalf("expected 85, got %v", got)
	}
	if got := CoerceFloat("90%"); got != 90 {
		t.Fatalf("expected 90, got %v", got)
	}
	if got := CoerceFloat("n/a"); !math.IsNaN(got) {
		t.Fatalf("expected NaN, got %v", got)
	}
	if got := CoerceFloat(nil); !math.IsNaN(got) {
		t.Fatalf("expected NaN for nil, got %v", got)
	}
	if got := CoerceString(12.0); got != "12" {
		t.Fatalf("expected 12, got %q", got)
	}
	if got := CoerceString(nil); got != "" {
		t.Fatalf("expected empty, got %q", got)
	}
	if v, ok := FirstOf(map[string]any{"id": "x"}, "job_id", "id"); !ok || v != "x" {
		t.Fatalf("unexpected FirstOf result %v %v", v, ok)
	}
}
