package main

import (
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/civicworks/parcel-cli/internal/census"
	"github.com/civicworks/parcel-cli/internal/fetcher"
	"github.com/civicworks/parcel-cli/internal/shape"
)

var fetchCensusCmd = &cobra.Command{
	Use:   "census",
	Short: "Fetch ACS block-group demographics for a county",
	Long: `Pulls the ACS 5-year block-group profile (median income, population by
race) for a 5-digit county FIPS and derives minority percentages and
standard GEOIDs.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.Validate("census"); err != nil {
			return err
		}
		fips, _ := cmd.Flags().GetString("fips")

		frame, err := census.BlockGroupProfile(cmd.Context(), newFetcher(), fips, census.ACSOptions{
			Year:    cfg.Census.Year,
			APIKey:  cfg.Census.APIKey,
			BaseURL: cfg.Census.ACSBaseURL,
		})
		if err != nil {
			return eris.Wrap(err, "fetch census")
		}
		return deliverFrame(cmd, frame)
	},
}

var fetchBoundariesCmd = &cobra.Command{
	Use:   "boundaries",
	Short: "Fetch block-group boundaries for a county",
	Long: `Pulls block-group boundary polygons from TIGERweb (or TIGER/Line over
FTP with --tiger) for a 5-digit county FIPS. With --parcels, spatially
joins the block-group GEOIDs onto a parcel shapefile by centroid.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		fips, _ := cmd.Flags().GetString("fips")
		useTiger, _ := cmd.Flags().GetBool("tiger")

		var layer *shape.Layer
		var err error
		if useTiger {
			ftp := fetcher.NewFTPFetcher(fetcher.FTPOptions{})
			layer, err = census.BlockGroupsFromTIGER(cmd.Context(), ftp, fips, census.TIGEROptions{
				Year:    cfg.Tiger.Year,
				WorkDir: cfg.Tiger.WorkDir,
				FTPHost: cfg.Tiger.FTPHost,
			})
		} else {
			layer, err = census.BlockGroupBoundaries(cmd.Context(), newFetcher(), fips, census.BoundaryOptions{
				MaxParallel: cfg.Census.MaxParallel,
			})
		}
		if err != nil {
			return eris.Wrap(err, "fetch boundaries")
		}

		zap.L().Info("boundaries fetched",
			zap.String("fips", fips),
			zap.Int("block_groups", layer.Frame.Len()),
		)

		if parcelsPath, _ := cmd.Flags().GetString("parcels"); parcelsPath != "" {
			parcels, err := shape.Read(parcelsPath)
			if err != nil {
				return eris.Wrap(err, "fetch boundaries: read parcels")
			}
			joined, err := shape.Join(parcels, layer, []string{"std_geoid"})
			if err != nil {
				return eris.Wrap(err, "fetch boundaries: join")
			}
			return deliverFrame(cmd, joined.Frame)
		}

		return deliverFrame(cmd, layer.Frame)
	},
}

func init() {
	for _, c := range []*cobra.Command{fetchCensusCmd, fetchBoundariesCmd} {
		c.Flags().String("fips", "", "5-digit county FIPS (state+county)")
		_ = c.MarkFlagRequired("fips")
		addDeliveryFlags(c)
	}
	fetchBoundariesCmd.Flags().Bool("tiger", false, "use TIGER/Line FTP archives instead of TIGERweb")
	fetchBoundariesCmd.Flags().String("parcels", "", "parcel shapefile to join block-group GEOIDs onto")

	fetchCmd.AddCommand(fetchCensusCmd)
	fetchCmd.AddCommand(fetchBoundariesCmd)
}
