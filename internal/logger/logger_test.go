package logger

import "testing"

func TestRedact(t *testing.T) {
	tests := []struct {
		name string
		in   []interface{}
		want []interface{}
	}{
		{"plain", []interface{}{"id", 3}, []interface{}{"id", 3}},
		{"api key", []interface{}{"api_key", "sk-123", "id", 1}, []interface{}{"api_key", "[REDACTED]", "id", 1}},
		{"token", []interface{}{"AuthToken", "abc"}, []interface{}{"AuthToken", "[REDACTED]"}},
		{"odd length", []interface{}{"secret"}, []interface{}{"secret"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := redact(tt.in)
			if len(got) != len(tt.want) {
				t.Fatalf("expected %d values, got %d", len(tt.want), len(got))
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("index %d: expected %v, got %v", i, tt.want[i], got[i])
				}
			}
		})
	}
}

func TestRedactDoesNotMutateInput(t *testing.T) {
	in := []interface{}{"api_key", "sk-123"}
	redact(in)
	if in[1] != "sk-123" {
		t.Error("redact mutated caller slice")
	}
}
