package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/joestump/frequency/internal/catalog"
	"github.com/joestump/frequency/internal/store"
)

func newSeedCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "seed [file]",
		Short: "Load the region catalog from a YAML file, or the bundled one",
		Long: "Seed upserts regions, genres, artists and tracks. Rows are matched by id,\n" +
			"so running it again with an edited file updates the catalog in place.",
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := setup()
			if err != nil {
				return err
			}

			var seed store.CatalogSeed
			source := "bundled catalog"
			if len(args) == 1 {
				source = args[0]
				f, err := os.Open(args[0])
				if err != nil {
					return err
				}
				defer func() { _ = f.Close() }()
				if seed, err = catalog.ParseSeed(f); err != nil {
					return fmt.Errorf("%s: %w", args[0], err)
				}
			} else if seed, err = catalog.DefaultSeed(); err != nil {
				return err
			}

			database, err := openDB(cfg)
			if err != nil {
				return err
			}
			defer func() { _ = database.Close() }()

			if err := catalog.Load(cmd.Context(), store.NewCatalogStore(database), seed); err != nil {
				return err
			}
			logger.Info("catalog seeded",
				"source", source,
				"regions", len(seed.Regions),
				"artists", len(seed.Artists),
				"tracks", len(seed.Tracks),
			)
			return nil
		},
	}
}
