package common

import (
	"context"
	"testing"
)

func TestResolveUserIDDefaultsToDemo(t *testing.T) {
	if got := ResolveUserID(context.Background()); got != DemoUserID {
		t.Errorf("ResolveUserID = %q, want %q", got, DemoUserID)
	}
}

func TestResolveUserIDFromContext(t *testing.T) {
	ctx := WithUserContext(context.Background(), &UserContext{UserID: "123456789", Username: "ostap"})
	if got := ResolveUserID(ctx); got != "123456789" {
		t.Errorf("ResolveUserID = %q, want 123456789", got)
	}
}

func TestUserContextRoundTrip(t *testing.T) {
	uc := &UserContext{UserID: "42", FirstName: "Olena", LanguageCode: "uk"}
	ctx := WithUserContext(context.Background(), uc)

	got := UserContextFromContext(ctx)
	if got == nil {
		t.Fatal("UserContextFromContext returned nil")
	}
	if got.FirstName != "Olena" || got.LanguageCode != "uk" {
		t.Errorf("unexpected user context: %+v", got)
	}

	if UserContextFromContext(context.Background()) != nil {
		t.Error("expected nil user context on empty context")
	}
}
