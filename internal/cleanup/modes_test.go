package cleanup

import (
	"strings"
	"testing"
)

func TestParseModeFallsBackToDefault(t *testing.T) {
	cases := map[string]Mode{
		"email":         ModeEmail,
		" Bullets ":     ModeBullets,
		"MEETING_NOTES": ModeMeetingNotes,
		"unknown":       ModeDefault,
		"":              ModeDefault,
	}
	for in, want := range cases {
		if got := ParseMode(in); got != want {
			t.Errorf("ParseMode(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestModesStableOrder(t *testing.T) {
	modes := Modes()
	if len(modes) != len(modeOrder) {
		t.Fatalf("got %d modes, want %d", len(modes), len(modeOrder))
	}
	if modes[0].ID != ModeDefault {
		t.Fatalf("first mode is %q, want default", modes[0].ID)
	}
	for _, spec := range modes {
		if spec.Name == "" || spec.Description == "" {
			t.Errorf("mode %q missing catalog metadata", spec.ID)
		}
		if !strings.Contains(spec.userTemplate, "{text}") {
			t.Errorf("mode %q user template missing {text} placeholder", spec.ID)
		}
	}
}

func TestPromptInterpolation(t *testing.T) {
	spec := Spec(ModeEmail)
	system := spec.systemPrompt("German")
	if strings.Contains(system, "{language}") {
		t.Fatalf("system prompt kept placeholder: %q", system)
	}
	if !strings.Contains(system, "German") {
		t.Fatalf("system prompt missing language: %q", system)
	}
	user := spec.userPrompt("German", "hallo welt")
	if !strings.Contains(user, "hallo welt") || strings.Contains(user, "{text}") {
		t.Fatalf("user prompt not interpolated: %q", user)
	}
}

func TestLanguageName(t *testing.T) {
	if got := LanguageName("fr"); got != "French" {
		t.Fatalf("LanguageName(fr) = %q", got)
	}
	if got := LanguageName(""); got != "the same language" {
		t.Fatalf("LanguageName(empty) = %q", got)
	}
	if got := LanguageName("xx"); got != "xx" {
		t.Fatalf("LanguageName(unknown) = %q", got)
	}
}
