package main

import (
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/MimeLyc/caption-pipeline/internal/persistence"
	"github.com/MimeLyc/caption-pipeline/internal/service"
	"github.com/MimeLyc/caption-pipeline/pkg/file"
)

func newArtifactsCommand(ctx *commandContext) *cobra.Command {
	var mediaID string
	var asJSON, prune bool

	cmd := &cobra.Command{
		Use:   "artifacts",
		Short: "List produced captions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withApp(func(app *service.App) error {
				list, err := app.Store.ListArtifacts(cmd.Context(), mediaID)
				if err != nil {
					return fmt.Errorf("list artifacts: %w", err)
				}

				if prune {
					kept := list[:0]
					for _, a := range list {
						if file.Exists(a.Path) {
							kept = append(kept, a)
							continue
						}
						if err := app.Store.DeleteArtifact(cmd.Context(), a.RelPath); err != nil {
							return fmt.Errorf("delete artifact %s: %w", a.RelPath, err)
						}
						fmt.Fprintf(cmd.OutOrStdout(), "Removed missing %s\n", a.RelPath)
					}
					list = kept
				}

				if asJSON {
					return writeJSON(cmd, list)
				}
				if len(list) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "No captions produced yet")
					return nil
				}
				fmt.Fprintln(cmd.OutOrStdout(), renderArtifacts(list))
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&mediaID, "id", "", "Only list captions of this title")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print JSON instead of a table")
	cmd.Flags().BoolVar(&prune, "prune", false, "Drop index entries whose file no longer exists")
	return cmd
}

func renderArtifacts(list []persistence.Artifact) string {
	rows := make([][]string, 0, len(list))
	for _, a := range list {
		rows = append(rows, []string{
			a.MediaType,
			a.MediaID,
			episodeLabel(a.Season, a.Episode),
			a.SourceLanguage + " → " + a.TargetLanguage,
			humanize.Bytes(uint64(a.SizeBytes)),
			humanize.Time(a.CreatedAt),
			a.RelPath,
		})
	}
	return renderTable(
		[]string{"Type", "ID", "Episode", "Languages", "Size", "Created", "Path"},
		rows,
		4,
	)
}

func episodeLabel(season, episode *int) string {
	if season == nil || episode == nil {
		return "-"
	}
	return fmt.Sprintf("S%02dE%02d", *season, *episode)
}
