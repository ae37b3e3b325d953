package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/spf13/cobra"

	"github.com/MimeLyc/caption-pipeline/internal/service"
	"github.com/MimeLyc/caption-pipeline/pkg/icron"
	"github.com/MimeLyc/caption-pipeline/pkg/log"
)

type scheduler interface {
	Schedule(ctx context.Context) error
}

type cronEngine interface {
	Start()
	Stop() context.Context
}

// cronStopTimeout bounds the wait for a running maintenance job on shutdown.
var cronStopTimeout = 30 * time.Second

func newServeCommand(ctx *commandContext) *cobra.Command {
	var runNow bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run cache maintenance on MAINTENANCE_CRON until interrupted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			sigCtx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			return ctx.withApp(func(app *service.App) error {
				engine := cron.New(cron.WithParser(icron.Parser))
				maintenance := app.NewMaintenance(engine)
				if runNow {
					if _, err := maintenance.RunOnce(sigCtx); err != nil {
						service.HandleError(err)
					}
				}
				if next, err := maintenance.NextRun(time.Now()); err == nil {
					log.Info("Next maintenance at %s", next.Format(time.RFC3339))
				}
				return runServe(sigCtx, maintenance, engine)
			})
		},
	}

	cmd.Flags().BoolVar(&runNow, "run-now", false, "Run maintenance once before waiting for the schedule")
	return cmd
}

// runServe schedules the jobs, starts the cron and blocks until ctx is done.
func runServe(ctx context.Context, s scheduler, engine cronEngine) error {
	if err := s.Schedule(ctx); err != nil {
		return err
	}
	engine.Start()
	log.Info("Maintenance daemon started")

	<-ctx.Done()
	log.Info("Shutting down")

	stopped := engine.Stop()
	select {
	case <-stopped.Done():
	case <-time.After(cronStopTimeout):
		log.Warn("Maintenance job still running after %s", cronStopTimeout)
	}
	return nil
}
