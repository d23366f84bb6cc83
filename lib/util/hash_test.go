package util

import "testing"

func TestHashString(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		seed     uint64
		expected uint64
	}{
		// reference values of the FNV-1a 64 specification
		{name: "empty", input: "", seed: 0, expected: 0xcbf29ce484222325},
		{name: "a", input: "a", seed: 0, expected: 0xaf63dc4c8601ec8c},
		{name: "foobar", input: "foobar", seed: 0, expected: 0x85944171f73967e8},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := HashString(tt.input, tt.seed); got != tt.expected {
				t.Errorf("HashString(%q) = %#x, want %#x", tt.input, got, tt.expected)
			}
		})
	}
}

func TestHashStringSeed(t *testing.T) {
	if HashString("hurt", 0) == HashString("hurt", 1) {
		t.Errorf("Different seeds should produce different hashes")
	}
	if HashString("hurt", 7) != HashString("hurt", 7) {
		t.Errorf("Hash must be deterministic")
	}
}
