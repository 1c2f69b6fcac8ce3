package main

import (
	"fmt"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/civicworks/parcel-cli/internal/policy"
)

var parkingCmd = &cobra.Command{
	Use:   "parking <source>",
	Short: "Analyze parking-lot underutilization",
	Long: `Filters the roll to parking lots, computes adjusted improvement-to-land
ratios, flags underutilized lots, and estimates the development potential
left on the table. Source is a .csv/.xlsx file or snapshot:<name>.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.Validate("analyze"); err != nil {
			return err
		}

		frame, err := loadFrame(cmd.Context(), args[0])
		if err != nil {
			return err
		}

		identifier, _ := cmd.Flags().GetString("identifier")
		if identifier == "" {
			identifier = cfg.Policy.ParkingIdentifier
		}
		minLand, _ := cmd.Flags().GetFloat64("min-land-value")
		if minLand == 0 {
			minLand = cfg.Policy.MinLandValue
		}
		maxRatio, _ := cmd.Flags().GetFloat64("max-ratio")
		if maxRatio == 0 {
			maxRatio = cfg.Policy.MaxImprovementRatio
		}

		result, err := policy.AnalyzeParkingLots(frame, policy.ParkingLotOptions{
			Values:              valueColumns(),
			PropertyTypeCol:     cfg.Columns.PropertyType,
			ParkingIdentifier:   identifier,
			MinLandValue:        minLand,
			MaxImprovementRatio: maxRatio,
		})
		if err != nil {
			if reportEmptyFilter(err) {
				return nil
			}
			return eris.Wrap(err, "parking")
		}

		if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
			return printJSON(result)
		}
		fmt.Print(policy.FormatParkingSummary(result))
		return nil
	},
}

func init() {
	parkingCmd.Flags().String("identifier", "", "property-type value that marks parking lots (default: from config)")
	parkingCmd.Flags().Float64("min-land-value", 0, "underutilization land-value floor (default: from config)")
	parkingCmd.Flags().Float64("max-ratio", 0, "underutilization improvement-ratio ceiling (default: from config)")
	parkingCmd.Flags().Bool("json", false, "print the raw result as JSON")
	rootCmd.AddCommand(parkingCmd)
}
