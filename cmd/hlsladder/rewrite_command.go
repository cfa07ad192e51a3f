package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

func newRewriteCommand(ctx *commandContext) *cobra.Command {
	var base string

	cmd := &cobra.Command{
		Use:   "rewrite <videoId>",
		Short: "Print the master manifest as it would be served under a base path",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := ctx.open(cmd.Context())
			if err != nil {
				return err
			}
			defer rt.Close()

			requestBase := strings.TrimSpace(base)
			if requestBase == "" {
				requestBase = rt.cfg.Server.BasePath + "/" + args[0]
			}

			out, err := rt.controller.Master(cmd.Context(), args[0], requestBase)
			if err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), out)
			return nil
		},
	}

	cmd.Flags().StringVar(&base, "base", "", "Request base path or URL (default {server.base_path}/{videoId})")
	return cmd
}
