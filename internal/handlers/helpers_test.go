package handlers

import (
	"testing"
	"time"
)

func TestAtoiDefault(t *testing.T) {
	tests := []struct {
		input    string
		def      int
		expected int
	}{
		{"10", 5, 10},
		{"1", 0, 1},
		{"999", 0, 999},
		{"", 5, 5},
		{"abc", 10, 10},
		{"-1", 5, 5},
		{"0", 5, 5},
		{"12.5", 5, 5},
		{"12abc", 5, 5},
	}

	for _, tt := range tests {
		result := atoiDefault(tt.input, tt.def)
		if result != tt.expected {
			t.Errorf("atoiDefault(%q, %d) = %d, expected %d", tt.input, tt.def, result, tt.expected)
		}
	}
}

func TestParseDate(t *testing.T) {
	got := parseDate("2025-06-15")
	if got.Year() != 2025 || got.Month() != time.June || got.Day() != 15 || got.Hour() != 0 {
		t.Errorf("parseDate = %v", got)
	}

	for _, bad := range []string{"", "15-06-2025", "yesterday"} {
		if !parseDate(bad).IsZero() {
			t.Errorf("parseDate(%q) should be zero", bad)
		}
	}
}
