package textutil

import (
	"strings"
	"testing"
)

func TestSanitizeFileNameReplacesForbiddenSet(t *testing.T) {
	got := SanitizeFileName("My Podcast: Episode #1 (Special)!")
	want := "My_Podcast__Episode_#1__Special__"
	if got != want {
		t.Fatalf("SanitizeFileName = %q, want %q", got, want)
	}
	for _, r := range " .,*:!?$@()/\\'" {
		if strings.ContainsRune(got, r) {
			t.Fatalf("result %q still contains %q", got, r)
		}
	}
}

func TestSanitizeFileName(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"", ""},
		{"plain", "plain"},
		{"a/b\\c", "a_b_c"},
		{"v1.2, final", "v1_2__final"},
		{"Q&A: $5 @ noon?", "Q&A___5___noon_"},
		{"it's +1 - ok*", "it_s__1___ok_"},
		{"Café", "Café"},
	}
	for _, tc := range tests {
		if got := SanitizeFileName(tc.in); got != tc.want {
			t.Fatalf("SanitizeFileName(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}
