package main

import (
	"fmt"
	"strings"

	"github.com/septivank/meter-reading-sync/internal/settings"
	"github.com/septivank/meter-reading-sync/tools/timeparser"
	"github.com/spf13/cobra"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show connectivity and queue status",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		pending, err := repo.PendingCount(ctx)
		if err != nil {
			return fmt.Errorf("failed to count pending readings: %w", err)
		}

		lastSync := "never"
		if t, ok, err := repo.LastSyncTime(ctx); err != nil {
			return err
		} else if ok {
			lastSync = fmt.Sprintf("%s (%s)", timeparser.FormatClock(t), timeparser.FormatTimestamp(t))
		}

		connection := "offline"
		if newChecker().CheckOnlineStatus(ctx) {
			connection = "online"
		}

		fmt.Printf("Connection: %s\n", connection)
		fmt.Printf("Pending readings: %d\n", pending)
		fmt.Printf("Last sync: %s\n", lastSync)
		fmt.Printf("Theme: %s\n", themeName(settings.Load(ctx, store, logger)))
		return nil
	},
}

var themeCmd = &cobra.Command{
	Use:       "theme [light|dark]",
	Short:     "Show or set the display theme",
	Args:      cobra.MaximumNArgs(1),
	ValidArgs: []string{"light", "dark"},
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		if len(args) == 0 {
			fmt.Println(themeName(settings.Load(ctx, store, logger)))
			return nil
		}

		var s settings.Settings
		switch strings.ToLower(args[0]) {
		case "dark":
			s.DarkMode = true
		case "light":
		default:
			return fmt.Errorf("unknown theme %q, expected light or dark", args[0])
		}

		if err := settings.Save(ctx, store, s); err != nil {
			return err
		}
		fmt.Printf("Theme set to %s\n", themeName(s))
		return nil
	},
}

func themeName(s settings.Settings) string {
	if s.DarkMode {
		return "dark"
	}
	return "light"
}
