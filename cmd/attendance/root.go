package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"axiapac.com/attendance/attendance/app"
	"axiapac.com/attendance/config"
	"axiapac.com/attendance/infrastructure/logging"
	"axiapac.com/attendance/utils"
	"github.com/spf13/cobra"
)

type cli struct {
	cfg    *config.Config
	logger *slog.Logger
}

func newRootCmd() *cobra.Command {
	c := &cli{}
	root := &cobra.Command{
		Use:   "attendance",
		Short: "Admin tools for the attendance service",
		Long: `attendance imports, recomputes and exports daily attendance summaries
using the same configuration as the server (attendance.yaml, SSM, environment).`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(cmd.Context())
			if err != nil {
				return err
			}
			c.cfg = cfg
			c.logger = logging.Init(cfg.LogFormat, logging.ParseLevel(cfg.LogLevel))
			return nil
		},
	}

	root.AddCommand(newImportCmd(c))
	root.AddCommand(newRecomputeCmd(c))
	root.AddCommand(newExportCmd(c))
	root.AddCommand(newTokenCmd(c))
	return root
}

// Execute is the entry point called from main.
func Execute() {
	if err := newRootCmd().ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// withApp builds the application for one command and waits for pending
// recomputes before closing it.
func (c *cli) withApp(ctx context.Context, fn func(a *app.App) error) error {
	a, err := app.Build(ctx, c.cfg, c.logger)
	if err != nil {
		return err
	}
	defer a.Close()
	return fn(a)
}

// today in the configured timezone
func (c *cli) today() string {
	return time.Now().In(c.cfg.Location()).Format(utils.DateLayout)
}

// dateRange expands from..to, defaulting both ends to today.
func (c *cli) dateRange(from, to string) ([]string, error) {
	if from == "" {
		from = c.today()
	}
	if to == "" {
		to = from
	}
	start, err := utils.ParseDate(from)
	if err != nil {
		return nil, err
	}
	end, err := utils.ParseDate(to)
	if err != nil {
		return nil, err
	}
	if end.Before(start) {
		return nil, fmt.Errorf("--to %s is before --from %s", to, from)
	}
	return utils.DateRange(start, end), nil
}
