// Command garden-planner runs the garden planner API and its maintenance
// commands.
//
//	garden-planner serve                     start the HTTP server
//	garden-planner catalog import <file>     upsert a plant catalog into the database
//	garden-planner catalog check [file]      report catalog rows the layout cannot model exactly
//
// Settings come from flags, GARDEN_* environment variables and an optional
// --config file; see internal/config for the keys.
package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/sakif/garden-planner/internal/config"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	v := config.NewViper()
	var cfgFile string

	cmd := &cobra.Command{
		Use:           "garden-planner",
		Short:         "Garden planner API server",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return readConfigFile(v, cfgFile)
		},
	}

	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "path to a configuration file (yaml, json or toml)")
	cmd.PersistentFlags().String("database-path", v.GetString("database.path"), "SQLite database path")
	cmd.PersistentFlags().String("log-level", v.GetString("log.level"), "log level (debug, info, warn, error)")
	cmd.PersistentFlags().String("log-format", v.GetString("log.format"), "log format (text, json)")
	cmd.PersistentFlags().String("catalog-path", "", "plant catalog YAML file (default: built-in catalog)")
	bindFlag(v, cmd.PersistentFlags().Lookup("database-path"), "database.path")
	bindFlag(v, cmd.PersistentFlags().Lookup("log-level"), "log.level")
	bindFlag(v, cmd.PersistentFlags().Lookup("log-format"), "log.format")
	bindFlag(v, cmd.PersistentFlags().Lookup("catalog-path"), "catalog.path")

	cmd.AddCommand(newServeCommand(v))
	cmd.AddCommand(newCatalogCommand(v))
	return cmd
}

func readConfigFile(v *viper.Viper, path string) error {
	if path == "" {
		return nil
	}
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			return fmt.Errorf("config file %s not found", path)
		}
		return fmt.Errorf("reading config file %s: %w", path, err)
	}
	return nil
}

func bindFlag(v *viper.Viper, flag *pflag.Flag, key string) {
	if err := v.BindPFlag(key, flag); err != nil {
		panic(err)
	}
}
