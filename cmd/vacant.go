package main

import (
	"fmt"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/civicworks/parcel-cli/internal/policy"
)

var vacantCmd = &cobra.Command{
	Use:   "vacant <source>",
	Short: "Analyze vacant-land concentration",
	Long: `Filters the roll to vacant parcels, adjusts values for exemptions, and
reports totals, neighborhood/zoning breakdowns, top owners, and ownership
concentration. Source is a .csv/.xlsx file or snapshot:<name>.`,
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
			identifier = cfg.Policy.VacantIdentifier
		}

		result, err := policy.AnalyzeVacantLand(frame, policy.VacantLandOptions{
			Values:           valueColumns(),
			PropertyTypeCol:  cfg.Columns.PropertyType,
			VacantIdentifier: identifier,
			NeighborhoodCol:  cfg.Columns.Neighborhood,
			ZoningCol:        cfg.Columns.Zoning,
			OwnerCol:         cfg.Columns.Owner,
		})
		if err != nil {
			if reportEmptyFilter(err) {
				return nil
			}
			return eris.Wrap(err, "vacant")
		}

		if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
			return printJSON(result)
		}
		fmt.Print(policy.FormatVacantSummary(result))
		return nil
	},
}

func init() {
	vacantCmd.Flags().String("identifier", "", "property-type value that marks vacant land (default: from config)")
	vacantCmd.Flags().Bool("json", false, "print the raw result as JSON")
	rootCmd.AddCommand(vacantCmd)
}
