// Package settings holds operator preferences persisted next to the reading queue.
package settings

import (
	"context"
	"fmt"
	"strconv"

	"github.com/septivank/meter-reading-sync/internal/kvstore"
	"go.uber.org/zap"
)

// KeyDarkMode is the store key of the theme preference
const KeyDarkMode = "isDarkMode"

// Settings are the operator's display preferences
type Settings struct {
	DarkMode bool
}

// Load reads the preferences; a missing or unreadable value falls back to the default
func Load(ctx context.Context, store kvstore.Store, logger *zap.Logger) Settings {
	var s Settings

	value, found, err := store.Get(ctx, KeyDarkMode)
	if err != nil {
		logger.Warn("failed to load theme preference", zap.Error(err))
		return s
	}
	if !found {
		return s
	}

	dark, err := strconv.ParseBool(value)
	if err != nil {
		logger.Warn("ignoring invalid theme preference", zap.String("value", value))
		return s
	}
	s.DarkMode = dark
	return s
}

// Save persists the preferences
func Save(ctx context.Context, store kvstore.Store, s Settings) error {
	if err := store.Set(ctx, KeyDarkMode, strconv.FormatBool(s.DarkMode)); err != nil {
		return fmt.Errorf("failed to save theme preference: %w", err)
	}
	return nil
}
