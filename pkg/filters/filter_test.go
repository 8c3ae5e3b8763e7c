package filters

import "testing"

func TestFilterMatches(t *testing.T) {
	tests := []struct {
		name          string
		filterType    FilterType
		pattern       string
		caseSensitive bool
		content       string
		want          bool
	}{
		{"contains hit", FilterTypeContains, "error", false, "TypeError: x is undefined", true},
		{"contains miss", FilterTypeContains, "error", false, "all good", false},
		{"contains case sensitive miss", FilterTypeContains, "Error", true, "error: boom", false},
		{"exact hit", FilterTypeExact, "navigate", false, "NAVIGATE", true},
		{"exact miss", FilterTypeExact, "navigate", false, "navigated", false},
		{"prefix hit", FilterTypePrefix, "console", false, "consoleError", true},
		{"prefix miss", FilterTypePrefix, "console", false, "my console", false},
		{"regex hit", FilterTypeRegex, "^(click|type)$", false, "Click", true},
		{"regex miss", FilterTypeRegex, "^(click|type)$", false, "clicked", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f, err := NewFilter(tt.name, tt.filterType, tt.pattern, tt.caseSensitive)
			if err != nil {
				t.Fatalf("NewFilter() error = %v", err)
			}
			if got := f.Matches(tt.content); got != tt.want {
				t.Errorf("Matches(%q) = %v, want %v", tt.content, got, tt.want)
			}
		})
	}
}

func TestNewFilterBadRegex(t *testing.T) {
	if _, err := NewFilter("bad", FilterTypeRegex, "(unclosed", false); err == nil {
		t.Error("expected error for invalid regex pattern")
	}
}
