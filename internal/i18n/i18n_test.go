package i18n

import (
	"context"
	"strings"
	"testing"
)

func TestInitAndTranslate(t *testing.T) {
	if err := Init("pt"); err != nil {
		t.Fatalf("Init() error = %v", err)
	}

	t.Run("portuguese", func(t *testing.T) {
		ctx := WithLocalizer(context.Background(), NewLocalizer("pt"))
		got := T(ctx, "ErrorInvalidAccessCode")
		if !strings.Contains(got, "Código") {
			t.Errorf("T() = %q, want Portuguese message", got)
		}
	})

	t.Run("english", func(t *testing.T) {
		ctx := WithLocalizer(context.Background(), NewLocalizer("en"))
		got := T(ctx, "ErrorInvalidAccessCode")
		if !strings.Contains(got, "Invalid access code") {
			t.Errorf("T() = %q, want English message", got)
		}
	})

	t.Run("missing id falls back to id", func(t *testing.T) {
		ctx := WithLocalizer(context.Background(), NewLocalizer("pt"))
		if got := T(ctx, "NoSuchMessage"); got != "NoSuchMessage" {
			t.Errorf("T() = %q, want message ID echoed back", got)
		}
	})

	t.Run("no localizer in context", func(t *testing.T) {
		got := T(context.Background(), "ErrorNotFound")
		if got == "" {
			t.Error("T() without localizer should still produce a message")
		}
	})
}

func TestInitRejectsBadLanguage(t *testing.T) {
	if err := Init("not a language"); err == nil {
		t.Error("Init() with malformed tag should fail")
	}
	// Restore a valid bundle for other tests.
	if err := Init("pt"); err != nil {
		t.Fatalf("Init() error = %v", err)
	}
}
