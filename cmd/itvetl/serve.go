package main

import (
	"github.com/spf13/cobra"

	"itvetl/internal/api"
)

func newServeCmd(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Expose loads over HTTP",
		Long:  "Start the HTTP API. POST /api/v1/load runs a load and returns its audit.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := newApp(cmd.Context(), root)
			if err != nil {
				return err
			}
			defer a.Close()

			addr := a.cfg.HTTP.Addr
			if addr == "" {
				addr = ":8080"
			}
			srv := api.NewServer(addr, api.NewHandler(a.service, a.log), a.log)
			return srv.Run(cmd.Context())
		},
	}
}
