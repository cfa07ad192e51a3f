package main

import (
	"fmt"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/eleven-am/hlsladder"
)

func newPlanCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "plan <source>",
		Short: "Probe a source and show the renditions a conversion would encode",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := ctx.open(cmd.Context())
			if err != nil {
				return err
			}
			defer rt.Close()

			meta, renditions, err := rt.controller.Plan(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Source: %dx%d %s, %s, %s\n",
				meta.Width, meta.Height, codecLabel(meta.Codec), formatBitrate(meta.Bitrate),
				(time.Duration(meta.Duration * float64(time.Second))).Round(time.Second))
			fmt.Fprintln(cmd.OutOrStdout(), planTable(rt.controller, meta, renditions))
			return nil
		},
	}
}

func planTable(c *hlsladder.Controller, meta hlsladder.SourceMetadata, renditions []hlsladder.Rendition) string {
	rows := make([][]string, 0, len(renditions))
	for _, r := range renditions {
		rows = append(rows, []string{
			r.Name,
			r.FrameSize,
			formatBitrate(r.TargetBitrate),
			string(c.EncodeMode(r, meta)),
			yesNo(r.IsOriginal),
		})
	}
	return renderTable(
		[]string{"Rendition", "Frame size", "Target bitrate", "Mode", "Original"},
		rows,
		[]columnAlignment{alignLeft, alignRight, alignRight, alignLeft, alignLeft},
	)
}

func formatBitrate(bps int) string {
	if bps <= 0 {
		return "unknown"
	}
	return humanize.SIWithDigits(float64(bps), 1, "bps")
}

func codecLabel(codec string) string {
	if codec == "" {
		return "unknown codec"
	}
	return codec
}
