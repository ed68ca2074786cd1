package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/joestump/frequency/internal/catalog"
	"github.com/joestump/frequency/internal/store"
)

func newNearestCmd() *cobra.Command {
	var lat, lon float64
	cmd := &cobra.Command{
		Use:   "nearest",
		Short: "Print the catalog region closest to a coordinate",
		RunE: func(cmd *cobra.Command, args []string) error {
			if lat < -90 || lat > 90 || lon < -180 || lon > 180 {
				return store.ErrInvalidCoord
			}
			cfg, _, err := setup()
			if err != nil {
				return err
			}
			database, err := openDB(cfg)
			if err != nil {
				return err
			}
			defer func() { _ = database.Close() }()

			reader := catalog.NewReader(store.NewCatalogStore(database))
			m, ok, err := reader.NearestRegion(cmd.Context(), lat, lon)
			if err != nil {
				return err
			}
			if !ok {
				return errors.New("no region has coordinates; run `frequency seed` first")
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\t%d km\n", m.Region.ID, m.Region.Name, m.DistanceKm)
			return nil
		},
	}
	cmd.Flags().Float64Var(&lat, "lat", 0, "latitude in degrees")
	cmd.Flags().Float64Var(&lon, "lon", 0, "longitude in degrees")
	_ = cmd.MarkFlagRequired("lat")
	_ = cmd.MarkFlagRequired("lon")
	return cmd
}
