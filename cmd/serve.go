package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"promptgrid/internal/server"
)

const serveLongDesc = `Start the HTTP server.

The server renders the description form at / and exposes the same operations
as JSON under /api. The port defaults to 8080 and can be set in the config
file, through PROMPTGRID_PORT or with --port.

Example:
  promptgrid serve
  promptgrid serve --config promptgrid.yaml --port 9090`

func newServeCmd(g *globalFlags) *cobra.Command {
	var port int

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP server",
		Long:  serveLongDesc,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := g.newApp(cmd)
			if err != nil {
				return err
			}

			if cmd.Flags().Changed("port") {
				if port <= 0 || port > 65535 {
					return fmt.Errorf("port override %d must be a valid TCP port", port)
				}
				a.cfg.Server.Port = port
			}

			srv, err := server.New(a.cfg, a.generator, a.registry, server.WithLogger(a.logger))
			if err != nil {
				return err
			}
			return srv.Run(cmd.Context())
		},
	}

	cmd.Flags().IntVarP(&port, "port", "p", 0, "Override server port from configuration")

	return cmd
}
