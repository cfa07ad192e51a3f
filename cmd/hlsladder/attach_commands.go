package main

import (
	"context"
	"fmt"
	"path"
	"strings"

	"github.com/spf13/cobra"

	"github.com/eleven-am/hlsladder"
)

func newAttachAudioCommand(ctx *commandContext) *cobra.Command {
	return newAttachCommand(ctx, "attach-audio", "audio",
		func(c *hlsladder.Controller) attachFunc { return c.AttachAudio })
}

func newAttachSubtitlesCommand(ctx *commandContext) *cobra.Command {
	return newAttachCommand(ctx, "attach-subtitles", "subtitle",
		func(c *hlsladder.Controller) attachFunc { return c.AttachSubtitles })
}

type attachFunc func(ctx context.Context, videoID string, tracks []hlsladder.MediaTrack) (int, error)

func newAttachCommand(ctx *commandContext, use, kind string, pick func(*hlsladder.Controller) attachFunc) *cobra.Command {
	var defaultLang string

	cmd := &cobra.Command{
		Use:   use + " <videoId> <lang[:label]=path>...",
		Short: fmt.Sprintf("Attach %s tracks to a published master manifest", kind),
		Long: fmt.Sprintf(`Attach %[1]s tracks to a published master manifest.

Each track is lang[:label]=path. A path ending in .m3u8 is used as the
track's playlist; any other path is a local %[1]s file that is copied
below the video's output directory, with a single segment playlist
generated for it.`, kind),
		Args: cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			tracks, err := parseTrackArgs(kind, args[1:], defaultLang)
			if err != nil {
				return err
			}

			rt, err := ctx.open(cmd.Context())
			if err != nil {
				return err
			}
			defer rt.Close()

			added, err := pick(rt.controller)(cmd.Context(), args[0], tracks)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: %d %s track(s) attached, %d already present\n",
				args[0], added, kind, len(tracks)-added)
			return nil
		},
	}

	cmd.Flags().StringVar(&defaultLang, "default", "", "Language of the track to mark as default")
	return cmd
}

// parseTrackArgs turns lang[:label]=path arguments into tracks.
func parseTrackArgs(kind string, args []string, defaultLang string) ([]hlsladder.MediaTrack, error) {
	tracks := make([]hlsladder.MediaTrack, 0, len(args))
	for i, arg := range args {
		name, target, ok := strings.Cut(arg, "=")
		target = strings.TrimSpace(target)
		if !ok || target == "" {
			return nil, fmt.Errorf("track %q: expected lang[:label]=path", arg)
		}

		lang, label, _ := strings.Cut(name, ":")
		lang = strings.TrimSpace(lang)
		if lang == "" {
			return nil, fmt.Errorf("track %q: language is required", arg)
		}

		track := hlsladder.MediaTrack{
			ID:        fmt.Sprintf("%s-%d", kind, i),
			Language:  lang,
			Label:     strings.TrimSpace(label),
			IsDefault: defaultLang != "" && strings.EqualFold(lang, defaultLang),
		}
		if strings.EqualFold(path.Ext(target), ".m3u8") {
			track.SubManifestURI = target
		} else {
			track.Resource = target
		}
		tracks = append(tracks, track)
	}
	return tracks, nil
}
