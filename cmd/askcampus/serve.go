package main

import (
	srv "github.com/askcampus/askcampus/internal/server"
	"github.com/spf13/cobra"
)

func serveCMD() *cobra.Command {
	var serveAddr string
	var cfgPath string
	var serve = &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return srv.Run(cfgPath, serveAddr)
		},
	}
	serve.Flags().StringVar(&serveAddr, "addr", "", "listen address (overrides general.listen_addr)")
	serve.Flags().StringVarP(&cfgPath, "config", "c", "", "config file (default ./config/askcampus.yaml)")

	return serve
}
