package main

import (
	"errors"

	"github.com/spf13/cobra"

	"github.com/MimeLyc/caption-pipeline/internal/service"
)

// errAcquireFailed gives a non-zero exit once the failed Result was printed.
var errAcquireFailed = errors.New("caption acquisition failed")

func newAcquireCommand(ctx *commandContext) *cobra.Command {
	var req service.Request
	var season, episode int

	cmd := &cobra.Command{
		Use:   "acquire",
		Short: "Produce (or reuse) the translated caption for a movie or episode",
		Example: `  ctxcaption acquire --id 603 --type movie
  ctxcaption acquire --id 1399 --type series --season 1 --episode 2`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Flags().Changed("season") {
				req.Season = &season
			}
			if cmd.Flags().Changed("episode") {
				req.Episode = &episode
			}
			return ctx.withApp(func(app *service.App) error {
				res := app.Acquire(cmd.Context(), req)
				if err := writeJSON(cmd, res); err != nil {
					return err
				}
				if !res.Success {
					return errAcquireFailed
				}
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&req.MediaID, "id", "", "Catalog (TMDB) id of the title")
	cmd.Flags().StringVar(&req.MediaType, "type", "movie", "movie or series")
	cmd.Flags().IntVar(&season, "season", 0, "Season number (series only)")
	cmd.Flags().IntVar(&episode, "episode", 0, "Episode number (series only)")
	_ = cmd.MarkFlagRequired("id")
	return cmd
}
