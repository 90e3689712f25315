package main

import (
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/sakif/garden-planner/internal/config"
	"github.com/sakif/garden-planner/internal/server"
)

func newServeCommand(v *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(v)
			if err != nil {
				return err
			}
			logger, err := config.NewLogger(cmd.ErrOrStderr(), cfg.LogLevel, cfg.LogFormat)
			if err != nil {
				return err
			}

			if cfg.DatabasePath != ":memory:" {
				if err := os.MkdirAll(filepath.Dir(cfg.DatabasePath), 0o755); err != nil {
					return err
				}
			}

			srv, err := server.New(cmd.Context(), cfg, logger)
			if err != nil {
				return err
			}
			return srv.Start(cmd.Context())
		},
	}

	flags := cmd.Flags()
	flags.Int("port", v.GetInt("http.port"), "HTTP listen port")
	flags.String("jwt-secret", "", "JWT signing secret, at least 16 characters (prefer GARDEN_AUTH_JWT_SECRET)")
	flags.Duration("token-ttl", v.GetDuration("auth.token_ttl"), "access token lifetime")
	flags.Bool("secure-cookies", false, "mark auth cookies Secure (requires HTTPS)")
	flags.StringSlice("cors-origin", nil, "allowed CORS origin; repeatable")
	flags.String("static-dir", "", "directory served at / (the built web client)")
	bindFlag(v, flags.Lookup("port"), "http.port")
	bindFlag(v, flags.Lookup("jwt-secret"), "auth.jwt_secret")
	bindFlag(v, flags.Lookup("token-ttl"), "auth.token_ttl")
	bindFlag(v, flags.Lookup("secure-cookies"), "auth.secure_cookies")
	bindFlag(v, flags.Lookup("cors-origin"), "cors.allowed_origins")
	bindFlag(v, flags.Lookup("static-dir"), "static.dir")
	return cmd
}
