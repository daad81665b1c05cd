package llm

import (
	"errors"
	"testing"
)

func TestExtractJSON(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"bare object", `{"status":"correct"}`, `{"status":"correct"}`},
		{"surrounding whitespace", "\n  {\"a\":1}  \n", `{"a":1}`},
		{"json fence", "```json\n{\"a\":1}\n```", `{"a":1}`},
		{"plain fence", "```\n{\"a\":1}\n```", `{"a":1}`},
		{"prose around", `Here is the result: {"a":{"b":2}} hope it helps`, `{"a":{"b":2}}`},
		{"bengali content", `{"message":"আমি ভাত খাই"}`, `{"message":"আমি ভাত খাই"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ExtractJSON([]byte(tt.in))
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if string(got) != tt.want {
				t.Fatalf("ExtractJSON() = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestExtractJSON_Failures(t *testing.T) {
	for _, in := range []string{"", "   ", "no json here", "{broken", "} backwards {"} {
		_, err := ExtractJSON([]byte(in))
		var inv *ErrInvalidResponse
		if !errors.As(err, &inv) {
			t.Fatalf("ExtractJSON(%q): expected ErrInvalidResponse, got %v", in, err)
		}
	}
}
