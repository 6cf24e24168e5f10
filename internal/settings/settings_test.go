package settings

import (
	"context"
	"testing"

	"github.com/septivank/meter-reading-sync/internal/kvstore"
	"go.uber.org/zap/zaptest"
)

func TestLoad_Defaults(t *testing.T) {
	s := Load(context.Background(), kvstore.NewMemoryStore(), zaptest.NewLogger(t))
	if s.DarkMode {
		t.Error("Expected light mode by default")
	}
}

func TestSaveAndLoad(t *testing.T) {
	ctx := context.Background()
	store := kvstore.NewMemoryStore()

	if err := Save(ctx, store, Settings{DarkMode: true}); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	if value, _, _ := store.Get(ctx, KeyDarkMode); value != "true" {
		t.Errorf("Expected stored value 'true', got %q", value)
	}
	if s := Load(ctx, store, zaptest.NewLogger(t)); !s.DarkMode {
		t.Error("Expected dark mode after save")
	}
}

func TestLoad_InvalidValue(t *testing.T) {
	ctx := context.Background()
	store := kvstore.NewMemoryStore()
	_ = store.Set(ctx, KeyDarkMode, "sometimes")

	if s := Load(ctx, store, zaptest.NewLogger(t)); s.DarkMode {
		t.Error("Expected invalid value to fall back to default")
	}
}
