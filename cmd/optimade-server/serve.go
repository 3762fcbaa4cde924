package main

import (
	"net"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	optimade "github.com/hugr-lab/optimade-go"
)

func newServeCmd() *cobra.Command {
	var configPath, listen string
	var index bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the API until interrupted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := optimade.LoadConfig(configPath)
			if err != nil {
				return err
			}
			if listen != "" {
				cfg.Listen = listen
			}
			if index {
				cfg.Index = true
			}
			cfg.Logger = cfg.NewLogger(os.Stderr)

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			srv, err := optimade.NewServer(ctx, cfg)
			if err != nil {
				return err
			}
			defer srv.Close()

			lis, err := net.Listen("tcp", cfg.Listen)
			if err != nil {
				return err
			}
			return srv.Serve(ctx, lis)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "", "configuration file (JSON, YAML or TOML)")
	cmd.Flags().StringVar(&listen, "listen", "", "listen address, overrides the configuration")
	cmd.Flags().BoolVar(&index, "index", false, "serve an index meta-database linking to default_db")
	return cmd
}
