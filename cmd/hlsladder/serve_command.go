package main

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/eleven-am/hlsladder/internal/server"
)

func newServeCommand(ctx *commandContext) *cobra.Command {
	var bind string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve rewritten master manifests, playlists and media over HTTP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := ctx.open(cmd.Context())
			if err != nil {
				return err
			}
			defer rt.Close()

			addr := rt.cfg.Server.Bind
			if v := strings.TrimSpace(bind); v != "" {
				addr = v
			}

			srv := server.New(server.Options{
				Manifests: rt.controller,
				OutputDir: rt.cfg.Paths.OutputDir,
				BasePath:  rt.cfg.Server.BasePath,
				Metrics:   rt.recorder.Handler(),
				Logger:    rt.logger,
			})
			return srv.Run(cmd.Context(), addr)
		},
	}

	cmd.Flags().StringVar(&bind, "bind", "", "Listen address (overrides server.bind)")
	return cmd
}
