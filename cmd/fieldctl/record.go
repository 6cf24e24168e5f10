package main

import (
	"fmt"

	"github.com/septivank/meter-reading-sync/internal/anomaly"
	"github.com/septivank/meter-reading-sync/internal/service"
	"github.com/septivank/meter-reading-sync/internal/validator"
	"github.com/spf13/cobra"
)

var recordReq service.ReadingRequest

var recordCmd = &cobra.Command{
	Use:   "record",
	Short: "Record a meter reading",
	Long: `Validate a meter reading and queue it for sync.

With --previous the reading is checked against the previous reading of the meter;
suspicious consumption is reported as a warning but the reading is still queued.`,
	Example: `  fieldctl record --meter M-1002 --address A-17 --route R-3 --value 12450 --previous 12100`,
	RunE: func(cmd *cobra.Command, args []string) error {
		capture := service.NewCaptureService(
			repo,
			validator.NewValidator(cfg.Validation.RequireMonotonic),
			anomaly.NewDetector(cfg.Anomaly.MaxConsumption, cfg.Anomaly.MaxGrowthFactor),
			logger,
		)

		res, err := capture.RecordReading(cmd.Context(), recordReq)
		if err != nil {
			return err
		}

		for _, warning := range res.Warnings {
			fmt.Printf("warning: %s\n", warning)
		}
		fmt.Printf("Reading %s queued for meter %s\n", res.Reading.ID, res.Reading.MeterID)
		fmt.Printf("Pending readings: %d\n", res.PendingCount)
		return nil
	},
}

func init() {
	flags := recordCmd.Flags()
	flags.StringVar(&recordReq.MeterID, "meter", "", "meter id")
	flags.StringVar(&recordReq.AddressID, "address", "", "address id")
	flags.StringVar(&recordReq.RouteID, "route", "", "route id")
	flags.StringVar(&recordReq.Value, "value", "", "reading value (digits only)")
	flags.StringVar(&recordReq.PreviousValue, "previous", "", "previous reading of the meter")
	flags.StringVar(&recordReq.ImageURI, "image", "", "reference to the captured image")

	_ = recordCmd.MarkFlagRequired("meter")
	_ = recordCmd.MarkFlagRequired("value")
}
