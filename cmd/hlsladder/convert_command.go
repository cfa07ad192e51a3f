package main

import (
	"errors"
	"fmt"
	"io"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/eleven-am/hlsladder"
	"github.com/eleven-am/hlsladder/internal/config"
)

func newConvertCommand(ctx *commandContext) *cobra.Command {
	var (
		maxParallel int
		hwAccel     string
		noTracks    bool
	)

	cmd := &cobra.Command{
		Use:   "convert <videoId> <source>",
		Short: "Encode a source into its rendition ladder and publish the master manifest",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := ctx.open(cmd.Context(), func(cfg *config.Config) {
				if cmd.Flags().Changed("max-parallel") {
					cfg.Encoding.MaxParallel = maxParallel
				}
				if hwAccel != "" {
					cfg.Encoding.HWAccel = hwAccel
				}
				if noTracks {
					cfg.Tracks.ExtractAudio = false
					cfg.Tracks.ExtractSubtitles = false
				}
			})
			if err != nil {
				return err
			}
			defer rt.Close()

			result, err := rt.controller.Convert(cmd.Context(), args[0], args[1])
			if result != nil {
				printConversion(cmd.OutOrStdout(), result)
			}
			if errors.Is(err, hlsladder.ErrBatchConversionFailed) {
				return fmt.Errorf("conversion of %s not published: %w", args[0], err)
			}
			return err
		},
	}

	cmd.Flags().IntVar(&maxParallel, "max-parallel", 0, "Maximum concurrent encode jobs (0 = all at once)")
	cmd.Flags().StringVar(&hwAccel, "hw-accel", "", "Hardware acceleration (auto, none, cuda, videotoolbox, vaapi, qsv)")
	cmd.Flags().BoolVar(&noTracks, "no-tracks", false, "Skip extraction of embedded audio and subtitle tracks")
	return cmd
}

func printConversion(w io.Writer, result *hlsladder.ConversionResult) {
	rows := make([][]string, 0, len(result.Successes)+len(result.Failures))
	for _, o := range result.Successes {
		rows = append(rows, []string{o.Rendition.Name, "ok", humanize.Comma(int64(o.Bandwidth)), o.VariantPath})
	}
	for _, o := range result.Failures {
		rows = append(rows, []string{o.Rendition.Name, "failed", "", o.Err.Error()})
	}
	fmt.Fprintln(w, renderTable(
		[]string{"Rendition", "Result", "Bandwidth", "Playlist / error"},
		rows,
		[]columnAlignment{alignLeft, alignLeft, alignRight, alignLeft},
	))

	if !result.Published {
		fmt.Fprintf(w, "%s: nothing published (%d of %d renditions failed)\n",
			result.VideoID, len(result.Failures), len(result.Failures)+len(result.Successes))
		return
	}
	fmt.Fprintf(w, "%s: master published with %d audio and %d subtitle track(s)\n",
		result.VideoID, result.AudioTracks, result.SubtitleTracks)
}
