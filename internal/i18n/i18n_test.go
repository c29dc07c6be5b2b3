package i18n

import (
	"context"
	"testing"
)

func initLang(t *testing.T, lang string) context.Context {
	t.Helper()
	if err := Init("en"); err != nil {
		t.Fatalf("Init: %v", err)
	}
	return WithLocalizer(context.Background(), lang)
}

func TestTranslate(t *testing.T) {
	ctx := initLang(t, "en")

	got := T(ctx, "ask.outside_syllabus")
	if got != "This topic is outside the current syllabus." {
		t.Errorf("T(ask.outside_syllabus) = %q", got)
	}

	got = T(ctx, "feedback.strong")
	if got != "Strong answer" {
		t.Errorf("T(feedback.strong) = %q", got)
	}
}

func TestTranslateWithData(t *testing.T) {
	ctx := initLang(t, "en")

	got := Td(ctx, "ask.from_subject", map[string]any{"Subject": "OS"})
	if got != "[From OS]" {
		t.Errorf("Td(ask.from_subject) = %q", got)
	}
}

func TestMissingIDFallsBackToID(t *testing.T) {
	ctx := initLang(t, "en")

	if got := T(ctx, "no.such.message"); got != "no.such.message" {
		t.Errorf("T(no.such.message) = %q, want the ID itself", got)
	}
}

func TestNoLocalizerInContext(t *testing.T) {
	if err := Init("en"); err != nil {
		t.Fatalf("Init: %v", err)
	}

	// A bare context falls back to the default language localizer.
	got := T(context.Background(), "feedback.weak")
	if got != "Weak answer" {
		t.Errorf("T on bare context = %q", got)
	}
}
