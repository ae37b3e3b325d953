package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/MimeLyc/caption-pipeline/internal/cachestore"
	"github.com/MimeLyc/caption-pipeline/internal/jobs"
	"github.com/MimeLyc/caption-pipeline/internal/service"
)

func newWarmCommand(ctx *commandContext) *cobra.Command {
	var mediaID, mediaType, episodes string
	var season int

	cmd := &cobra.Command{
		Use:   "warm",
		Short: "Pre-produce captions for a movie or a range of episodes",
		Long: "Queues one acquisition per caption and runs them with WARM_WORKERS workers.\n" +
			"Job states are kept in the database, so an interrupted warm-up resumes its pending jobs.",
		Example: `  ctxcaption warm --id 1399 --type series --season 1 --episodes 1-10
  ctxcaption warm --id 603 --type movie`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			keys, err := warmKeys(mediaID, mediaType, season, episodes)
			if err != nil {
				return err
			}
			return ctx.withApp(func(app *service.App) error {
				q := app.NewQueue()
				created, err := service.EnqueueWarm(q, keys)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Queued %d of %d captions\n", created, len(keys))

				q.Start(app.Pipeline.ExecuteJob)
				waitErr := q.WaitIdle(cmd.Context())
				q.Stop()

				failed := printJobs(cmd, q.List())
				if waitErr != nil {
					return waitErr
				}
				if failed > 0 {
					return fmt.Errorf("%d of %d jobs failed", failed, len(q.List()))
				}
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&mediaID, "id", "", "Catalog (TMDB) id of the title")
	cmd.Flags().StringVar(&mediaType, "type", "series", "movie or series")
	cmd.Flags().IntVar(&season, "season", 1, "Season number (series only)")
	cmd.Flags().StringVar(&episodes, "episodes", "", "Episode list, e.g. 1-10,12 (series only)")
	_ = cmd.MarkFlagRequired("id")
	return cmd
}

func warmKeys(mediaID, mediaType string, season int, episodes string) ([]cachestore.Key, error) {
	kind, err := cachestore.ParseMediaType(mediaType)
	if err != nil {
		return nil, err
	}
	if kind == cachestore.Movie {
		if episodes != "" {
			return nil, errors.New("--episodes is only valid for series")
		}
		return []cachestore.Key{cachestore.MovieKey(mediaID)}, nil
	}

	list, err := service.ParseEpisodeRange(episodes)
	if err != nil {
		return nil, fmt.Errorf("--episodes: %w", err)
	}
	keys := make([]cachestore.Key, 0, len(list))
	for _, ep := range list {
		keys = append(keys, cachestore.EpisodeKey(mediaID, season, ep))
	}
	return keys, nil
}

func printJobs(cmd *cobra.Command, list []*jobs.Job) int {
	failed := 0
	rows := make([][]string, 0, len(list))
	for _, job := range list {
		detail := job.Path
		if job.Status == jobs.StatusFailed {
			failed++
			detail = job.Error
		}
		rows = append(rows, []string{job.DedupeKey, string(job.Status), detail})
	}
	fmt.Fprintln(cmd.OutOrStdout(), renderTable([]string{"Caption", "Status", "Result"}, rows))
	return failed
}
