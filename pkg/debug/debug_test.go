package debug

import (
	"log/slog"
	"testing"
)

func TestParseCategories(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  map[string]bool
	}{
		{"empty", "", map[string]bool{}},
		{"single", "client", map[string]bool{"client": true}},
		{"multiple", "client,streaming", map[string]bool{"client": true, "streaming": true}},
		{"all", "all", map[string]bool{"all": true}},
		{"with spaces", " client , streaming ", map[string]bool{"client": true, "streaming": true}},
		{"uppercase normalized", "CLIENT,Streaming", map[string]bool{"client": true, "streaming": true}},
		{"empty segments", "client,,streaming", map[string]bool{"client": true, "streaming": true}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := parseCategories(tt.input)
			for k, v := range tt.want {
				if got[k] != v {
					t.Errorf("got[%q] = %v, want %v", k, got[k], v)
				}
			}
			if len(got) != len(tt.want) {
				t.Errorf("len(got) = %d, want %d", len(got), len(tt.want))
			}
		})
	}
}

func TestEnabled(t *testing.T) {
	orig := categories
	defer func() { categories = orig }()

	categories = parseCategories("client,streaming")

	if !Enabled("client") {
		t.Error("client should be enabled")
	}
	if !Enabled("streaming") {
		t.Error("streaming should be enabled")
	}
	if Enabled("mcp") {
		t.Error("mcp should not be enabled")
	}
}

func TestEnabled_All(t *testing.T) {
	orig := categories
	defer func() { categories = orig }()

	categories = parseCategories("all")

	if !Enabled("client") || !Enabled("mcp") {
		t.Error("all should enable every category")
	}
}

func TestCategories(t *testing.T) {
	orig := categories
	defer func() { categories = orig }()

	categories = parseCategories("client,streaming")

	got := Categories()
	if len(got) != 2 {
		t.Fatalf("Categories() = %v, want 2 entries", got)
	}
	seen := map[string]bool{}
	for _, c := range got {
		seen[c] = true
	}
	if !seen["client"] || !seen["streaming"] {
		t.Errorf("Categories() = %v, want client and streaming", got)
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input string
		want  slog.Level
	}{
		{"TRACE", LevelTrace},
		{"trace", LevelTrace},
		{"DEBUG", slog.LevelDebug},
		{"INFO", slog.LevelInfo},
		{"", slog.LevelInfo},
		{"WARN", slog.LevelWarn},
		{"WARNING", slog.LevelWarn},
		{"ERROR", slog.LevelError},
		{"bogus", slog.LevelInfo},
	}
	for _, tt := range tests {
		if got := ParseLevel(tt.input); got != tt.want {
			t.Errorf("ParseLevel(%q) = %v, want %v", tt.input, got, tt.want)
		}
	}
}

func TestTruncate(t *testing.T) {
	if got := Truncate("hello", 10); got != "hello" {
		t.Errorf("Truncate short = %q", got)
	}
	if got := Truncate("hello world", 5); got != "hello..." {
		t.Errorf("Truncate long = %q", got)
	}
}
