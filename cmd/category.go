package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/civicworks/parcel-cli/internal/policy"
)

var categoryCmd = &cobra.Command{
	Use:   "category <source>",
	Short: "Tabulate values by property category",
	Long: `Groups the roll by property class and reports raw and non-exempt land
and improvement totals per category. Source is a .csv/.xlsx file or
snapshot:<name>.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.Validate("analyze"); err != nil {
			return err
		}

		frame, err := loadFrame(cmd.Context(), args[0])
		if err != nil {
			return err
		}

		categoryCol, _ := cmd.Flags().GetString("by")
		if categoryCol == "" {
			categoryCol = cfg.Columns.Category
		}

		result := policy.ValuesByCategory(frame, categoryCol, valueColumns())

		if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
			return printJSON(result)
		}
		fmt.Print(policy.FormatCategoryTable(result, "Property values by category"))
		return nil
	},
}

func init() {
	categoryCmd.Flags().String("by", "", "column to group by (default: from config)")
	categoryCmd.Flags().Bool("json", false, "print the raw result as JSON")
	rootCmd.AddCommand(categoryCmd)
}
