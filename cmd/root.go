package main

import (
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"github.com/MimeLyc/caption-pipeline/internal/config"
	"github.com/MimeLyc/caption-pipeline/internal/service"
	"github.com/MimeLyc/caption-pipeline/pkg/log"
)

type commandContext struct {
	configFlag   string
	logLevelFlag string
	cacheDirFlag string

	configOnce sync.Once
	config     *config.Config
	configErr  error
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		cfg, err := config.Load(
			strings.TrimSpace(c.configFlag),
			config.WithLogLevel(c.logLevelFlag),
			config.WithCacheDir(c.cacheDirFlag),
		)
		if err != nil {
			c.configErr = err
			return
		}
		log.GetLogger().SetLevel(log.ParseLevel(cfg.System.LogLevel))
		c.config = cfg
	})
	return c.config, c.configErr
}

// withApp builds the application for one command and closes it afterwards.
func (c *commandContext) withApp(fn func(*service.App) error) error {
	cfg, err := c.ensureConfig()
	if err != nil {
		return err
	}
	app, err := service.NewApp(*cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := app.Close(); err != nil {
			log.Warn("Failed to close app: %v", err)
		}
	}()
	return fn(app)
}

func newRootCommand() *cobra.Command {
	ctx := &commandContext{}

	rootCmd := &cobra.Command{
		Use:           "ctxcaption",
		Short:         "Fetch, translate and cache WebVTT captions",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			_, err := ctx.ensureConfig()
			return err
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	rootCmd.PersistentFlags().StringVarP(&ctx.configFlag, "config", "c", "", "TOML configuration file (overrides CONFIG_FILE)")
	rootCmd.PersistentFlags().StringVar(&ctx.logLevelFlag, "log-level", "", "Log level: debug, info, warn, error")
	rootCmd.PersistentFlags().StringVar(&ctx.cacheDirFlag, "cache-dir", "", "Caption cache root (overrides CACHE_DIR)")

	rootCmd.AddCommand(newAcquireCommand(ctx))
	rootCmd.AddCommand(newWarmCommand(ctx))
	rootCmd.AddCommand(newArtifactsCommand(ctx))
	rootCmd.AddCommand(newServeCommand(ctx))

	return rootCmd
}
