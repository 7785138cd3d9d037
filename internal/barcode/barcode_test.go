package barcode

import "testing"

func TestNormalize(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected Code
	}{
		{
			name:     "hyphenated ISBN with whitespace",
			input:    " 978-0-13-468599-1 ",
			expected: "9780134685991",
		},
		{
			name:     "lowercase check character",
			input:    "080442957x",
			expected: "080442957X",
		},
		{
			name:     "already normalized",
			input:    "9780134685991",
			expected: "9780134685991",
		},
		{
			name:     "letters and punctuation stripped",
			input:    "ISBN: 0-306-40615-2",
			expected: "0306406152",
		},
		{
			name:     "nothing usable",
			input:    "no digits here",
			expected: "",
		},
		{
			name:     "empty input",
			input:    "",
			expected: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Normalize(tt.input)
			if got != tt.expected {
				t.Errorf("Normalize(%q) = %q, want %q", tt.input, got, tt.expected)
			}
		})
	}
}

func TestNormalizeIdempotent(t *testing.T) {
	inputs := []string{" 978-0-13-468599-1 ", "080442957x", "abcXxyz", "", "12 34"}
	for _, in := range inputs {
		once := Normalize(in)
		twice := Normalize(string(once))
		if once != twice {
			t.Errorf("Normalize not idempotent for %q: %q != %q", in, once, twice)
		}
	}
}

func TestCodeIsZero(t *testing.T) {
	if !Normalize("---").IsZero() {
		t.Error("expected stripped-to-empty code to be zero")
	}
	if Normalize("42").IsZero() {
		t.Error("expected non-empty code to not be zero")
	}
}
