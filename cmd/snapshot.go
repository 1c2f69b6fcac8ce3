package main

import (
	"fmt"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/civicworks/parcel-cli/internal/snapshot"
)

var snapshotCmd = &cobra.Command{
	Use:   "snapshot",
	Short: "Manage stored dataset snapshots",
}

var snapshotSaveCmd = &cobra.Command{
	Use:   "save <name> <source>",
	Short: "Save a dataset file as a named snapshot",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		name, source := args[0], args[1]

		frame, err := loadFrame(cmd.Context(), source)
		if err != nil {
			return err
		}

		store, err := openSnapshotStore(cmd.Context())
		if err != nil {
			return err
		}
		defer store.Close()

		meta, err := store.Save(cmd.Context(), name, frame)
		if err != nil {
			return err
		}
		fmt.Printf("Saved snapshot %s (%d rows, %d columns)\n", meta.Name, meta.Rows, len(meta.Columns))
		return nil
	},
}

var snapshotListCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored snapshots",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		store, err := openSnapshotStore(cmd.Context())
		if err != nil {
			return err
		}
		defer store.Close()

		metas, err := store.List(cmd.Context())
		if err != nil {
			return err
		}
		if len(metas) == 0 {
			fmt.Println("No snapshots stored")
			return nil
		}

		fmt.Printf("%-30s %10s %8s %s\n", "Name", "Rows", "Columns", "Created")
		for _, m := range metas {
			fmt.Printf("%-30s %10d %8d %s\n",
				m.Name, m.Rows, len(m.Columns), m.CreatedAt.Format("2006-01-02 15:04"))
		}
		return nil
	},
}

var snapshotDeleteCmd = &cobra.Command{
	Use:   "delete <name>",
	Short: "Delete a stored snapshot",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openSnapshotStore(cmd.Context())
		if err != nil {
			return err
		}
		defer store.Close()

		if err := store.Delete(cmd.Context(), args[0]); err != nil {
			if eris.Is(err, snapshot.ErrNotFound) {
				fmt.Printf("No snapshot named %s\n", args[0])
				return nil
			}
			return err
		}
		fmt.Printf("Deleted snapshot %s\n", args[0])
		return nil
	},
}

func init() {
	snapshotCmd.AddCommand(snapshotSaveCmd)
	snapshotCmd.AddCommand(snapshotListCmd)
	snapshotCmd.AddCommand(snapshotDeleteCmd)
	rootCmd.AddCommand(snapshotCmd)
}
