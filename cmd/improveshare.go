package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/civicworks/parcel-cli/internal/policy"
)

var improveshareCmd = &cobra.Command{
	Use:   "improveshare <source>",
	Short: "Bucket parcels by improvement share of total value",
	Long: `Buckets parcels by how much of their raw value sits in improvements
(0%, under 10%, 10-25%, 25-50%) and reports each bucket's share of
non-exempt land value. Source is a .csv/.xlsx file or snapshot:<name>.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.Validate("analyze"); err != nil {
			return err
		}

		frame, err := loadFrame(cmd.Context(), args[0])
		if err != nil {
			return err
		}

		result := policy.AnalyzeImprovementShare(frame, valueColumns())

		if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
			return printJSON(result)
		}
		fmt.Print(policy.FormatImprovementShare(result))
		return nil
	},
}

func init() {
	improveshareCmd.Flags().Bool("json", false, "print the raw result as JSON")
	rootCmd.AddCommand(improveshareCmd)
}
