package classifier

import (
	"strings"
	"testing"
)

func TestHostOnly(t *testing.T) {
	tests := []struct {
		url  string
		want string
	}{
		{"https://go.dev/blog/slices-intro?utm=x", "go.dev"},
		{"http://localhost:8080/admin", "localhost"},
		{"not a url", ""},
		{"", ""},
	}
	for _, tt := range tests {
		if got := hostOnly(tt.url); got != tt.want {
			t.Errorf("hostOnly(%q) = %q, want %q", tt.url, got, tt.want)
		}
	}
}

func TestUserPromptOmitsFullURLs(t *testing.T) {
	items := []Item{{ID: "b1", Title: "Secret doc", URL: "https://intranet.example.com/secret/path?token=abc"}}
	prompt := buildUserPrompt(items, testVocab, nil)

	if strings.Contains(prompt, "token=abc") || strings.Contains(prompt, "/secret/path") {
		t.Errorf("prompt leaks URL path or query: %q", prompt)
	}
	if !strings.Contains(prompt, "intranet.example.com") {
		t.Errorf("prompt should carry the host: %q", prompt)
	}
}

func TestUserPromptFolderSizeHint(t *testing.T) {
	prompt := buildUserPrompt(testItems, testVocab, map[string]int{"Tech": 12})
	if !strings.Contains(prompt, "Tech: 12") {
		t.Errorf("expected folder size hint, got %q", prompt)
	}
	if strings.Contains(prompt, "News:") {
		t.Errorf("zero-count categories should be omitted: %q", prompt)
	}
}

func TestStripCodeFence(t *testing.T) {
	want := `[{"index":0,"destination":"Tech"}]`
	tests := []string{
		want,
		"```json\n" + want + "\n```",
		"```\n" + want + "\n```",
		"  " + want + "  ",
	}
	for _, in := range tests {
		if got := stripCodeFence(in); got != want {
			t.Errorf("stripCodeFence(%q) = %q", in, got)
		}
	}
}
