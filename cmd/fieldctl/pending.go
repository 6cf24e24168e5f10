package main

import (
	"errors"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/septivank/meter-reading-sync/internal/db"
	"github.com/spf13/cobra"
)

var (
	showAll    bool
	retryAll   bool
	removeFlag bool
)

var pendingCmd = &cobra.Command{
	Use:   "pending",
	Short: "List queued readings",
	Long:  `List readings waiting for delivery. With --all, delivered and failed readings are listed too.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		readings, err := repo.Readings(cmd.Context())
		if err != nil {
			return fmt.Errorf("failed to load readings: %w", err)
		}

		var shown []db.MeterReading
		for _, reading := range readings {
			if showAll || reading.SyncStatus == db.SyncStatusPending {
				shown = append(shown, reading)
			}
		}

		if len(shown) == 0 {
			fmt.Println("No readings found")
			return nil
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintf(w, "ID\tMeter\tRoute\tValue\tTaken\tStatus\t\n")
		fmt.Fprintf(w, "---\t---\t---\t---\t---\t---\t\n")
		for _, r := range shown {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\t\n", r.ID, r.MeterID, r.RouteID, r.Value, r.Timestamp, r.SyncStatus)
		}
		if err := w.Flush(); err != nil {
			return err
		}

		fmt.Printf("\nPending: %d of %d queued\n", db.CountPending(readings), len(readings))
		return nil
	},
}

var retryCmd = &cobra.Command{
	Use:   "retry [reading-id...]",
	Short: "Put failed readings back into pending",
	Long: `Move readings whose delivery failed back into pending so the next sync tries them
again. With --all every failed reading is retried. With --remove the readings are
dropped from the queue instead.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		ids := args
		if retryAll {
			readings, err := repo.Readings(ctx)
			if err != nil {
				return fmt.Errorf("failed to load readings: %w", err)
			}
			ids = nil
			for _, r := range readings {
				if r.SyncStatus == db.SyncStatusError {
					ids = append(ids, r.ID)
				}
			}
		}
		if len(ids) == 0 {
			fmt.Println("Nothing to retry")
			return nil
		}

		var errs []error
		for _, id := range ids {
			var err error
			if removeFlag {
				err = repo.RemoveReading(ctx, id)
			} else {
				err = repo.RetryReading(ctx, id)
			}
			if err != nil {
				errs = append(errs, err)
				continue
			}
			if removeFlag {
				fmt.Printf("Removed %s\n", id)
			} else {
				fmt.Printf("Retrying %s\n", id)
			}
		}
		return errors.Join(errs...)
	},
}

func init() {
	pendingCmd.Flags().BoolVar(&showAll, "all", false, "include synced and failed readings")
	retryCmd.Flags().BoolVar(&retryAll, "all", false, "retry every failed reading")
	retryCmd.Flags().BoolVar(&removeFlag, "remove", false, "remove the readings instead of retrying them")
}
