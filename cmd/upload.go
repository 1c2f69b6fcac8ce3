package main

import (
	"fmt"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/civicworks/parcel-cli/internal/upload"
)

var uploadCmd = &cobra.Command{
	Use:   "upload <name> <source>",
	Short: "Upload a dataset to blob storage",
	Long: `Uploads the dataset as <folder>/<name>_<yyyymmdd>.csv to the configured
blob container, with a data-dictionary sidecar describing its columns.
Source is a .csv/.xlsx file or snapshot:<name>.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.Validate("upload"); err != nil {
			return err
		}
		name, source := args[0], args[1]

		frame, err := loadFrame(cmd.Context(), source)
		if err != nil {
			return err
		}

		uploader, err := upload.NewUploader(upload.Config{
			AccountURL: cfg.Upload.AccountURL,
			Container:  cfg.Upload.Container,
			Folder:     cfg.Upload.Folder,
			SASToken:   cfg.Upload.SASToken,
			Timeout:    time.Duration(cfg.Upload.TimeoutSecs) * time.Second,
			DictFormat: upload.DictFormat(cfg.Upload.DictFormat),
		})
		if err != nil {
			return err
		}

		blob, err := uploader.UploadFrame(cmd.Context(), name, frame)
		if err != nil {
			return eris.Wrap(err, "upload")
		}
		fmt.Printf("Uploaded %s (%d rows)\n", blob, frame.Len())
		return nil
	},
}

func init() {
	rootCmd.AddCommand(uploadCmd)
}
