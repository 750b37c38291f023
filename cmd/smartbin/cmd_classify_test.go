package main

import (
	"bytes"
	"strings"
	"testing"
)

func TestPrintClassification(t *testing.T) {
	tests := []struct {
		rawClass string
		item     string
		expected string
	}{
		{"recyclable", "bottle", "recyclable (matched class keywords: recycl)"},
		{"", "Banana peel", "organic (matched item keywords: banana"},
		{"", "wrapper", "general (no rule matched, fallback)"},
	}

	for _, tt := range tests {
		var buf bytes.Buffer
		printClassification(&buf, tt.rawClass, tt.item)
		if !strings.HasPrefix(buf.String(), tt.expected) {
			t.Errorf("printClassification(%q, %q) = %q, expected prefix %q", tt.rawClass, tt.item, buf.String(), tt.expected)
		}
	}
}

func TestPrintRules(t *testing.T) {
	var buf bytes.Buffer
	printRules(&buf)

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) < 2 {
		t.Fatalf("Expected the rule table, got %q", buf.String())
	}
	if last := lines[len(lines)-1]; !strings.Contains(last, "default") || !strings.HasSuffix(last, "-> general") {
		t.Errorf("Expected fallback rule last, got %q", last)
	}
}
