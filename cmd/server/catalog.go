package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/sakif/garden-planner/internal/catalog"
	"github.com/sakif/garden-planner/internal/config"
	sqliteRepo "github.com/sakif/garden-planner/internal/repository/sqlite"
	"github.com/sakif/garden-planner/internal/service"
)

func newCatalogCommand(v *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "catalog",
		Short: "Manage the plant catalog",
	}
	cmd.AddCommand(newCatalogImportCommand(v))
	cmd.AddCommand(newCatalogCheckCommand(v))
	return cmd
}

func newCatalogImportCommand(v *viper.Viper) *cobra.Command {
	return &cobra.Command{
		Use:   "import <file>",
		Short: "Upsert the plants in a catalog YAML file into the database",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			plants, err := catalog.LoadFile(args[0])
			if err != nil {
				return err
			}
			logger, err := config.NewLogger(cmd.ErrOrStderr(), v.GetString("log.level"), v.GetString("log.format"))
			if err != nil {
				return err
			}

			dbPath := v.GetString("database.path")
			if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
				return err
			}
			db, err := sqliteRepo.New(dbPath)
			if err != nil {
				return err
			}
			defer db.Close()

			warnings, err := service.NewCatalogService(db.Catalog(), logger).Import(cmd.Context(), plants)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "imported %d plants into %s (%d warnings)\n", len(plants), dbPath, len(warnings))
			return nil
		},
	}
}

func newCatalogCheckCommand(v *viper.Viper) *cobra.Command {
	var strict bool

	cmd := &cobra.Command{
		Use:   "check [file]",
		Short: "Report catalog rows whose spacing has no exact square footprint",
		Long: `Loads a catalog file (default: catalog.path, else the built-in catalog) and
lists every plant whose spacing is not 1, 4 or 9. Such plants are still
usable; the layout gives them the footprint shown.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := v.GetString("catalog.path")
			if len(args) == 1 {
				path = args[0]
			}
			plants, err := catalog.LoadOrDefault(path)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			warnings := catalog.Check(plants)
			for _, w := range warnings {
				fmt.Fprintln(out, w.String())
			}
			fmt.Fprintf(out, "%d plants, %d warnings\n", len(plants), len(warnings))

			if strict && len(warnings) > 0 {
				return fmt.Errorf("catalog has %d plants with non-standard spacing", len(warnings))
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&strict, "strict", false, "exit non-zero when any warning is reported")
	return cmd
}
