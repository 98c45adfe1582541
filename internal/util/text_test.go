package util

import "testing"

func TestSanitizePostgresText(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{
			name:  "plain utf8",
			input: "Ravi Kumar",
			want:  "Ravi Kumar",
		},
		{
			name:  "contains null byte",
			input: "Ra\x00vi",
			want:  "Ravi",
		},
		{
			name:  "contains invalid utf8",
			input: string([]byte{'a', 0xff, 'b'}),
			want:  "ab",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := SanitizePostgresText(tt.input)
			if got != tt.want {
				t.Fatalf("unexpected sanitized value: got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestTruncate(t *testing.T) {
	if got := Truncate("नमस्ते", 2); got != "नम" {
		t.Fatalf("expected rune-safe cut, got %q", got)
	}
	if got := Truncate("short", 10); got != "short" {
		t.Fatalf("expected unchanged value, got %q", got)
	}
	if got := Truncate("x", 0); got != "" {
		t.Fatalf("expected empty value, got %q", got)
	}
}
