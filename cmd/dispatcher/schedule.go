package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/OFFIS-RIT/case-dispatcher/backend/internal/util"
	"github.com/OFFIS-RIT/case-dispatcher/backend/pkg/leaselock"
	"github.com/OFFIS-RIT/case-dispatcher/backend/pkg/logger"

	"github.com/robfig/cron/v3"
	"github.com/spf13/cobra"
)

type scheduleFlags struct {
	spec string
}

var scheduleOpts scheduleFlags

var scheduleCmd = &cobra.Command{
	Use:   "schedule",
	Short: "Run the dispatch on a cron schedule",
	Long: `Keep running and start a dispatch whenever the cron expression fires.
The expression has a leading seconds field; the default runs daily at noon.
A run that finds another one holding the lease is skipped.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		a, err := openApp(ctx, "cron")
		if err != nil {
			return err
		}
		defer a.Close()

		c := cron.New(cron.WithSeconds())
		_, err = c.AddFunc(scheduleOpts.spec, func() {
			runID, err := util.NewRunID()
			if err != nil {
				logger.Error("[Dispatcher][Schedule] Could not create run id", "err", err)
				return
			}
			res, err := a.dispatcher.Run(ctx, runID, "cron")
			switch {
			case errors.Is(err, leaselock.ErrBusy):
				logger.Warn("[Dispatcher][Schedule] Previous run still in progress, skipping")
				a.logHolder(ctx)
			case err != nil:
				logger.Error("[Dispatcher][Schedule] Dispatch failed", "err", err)
			default:
				logger.Info("[Dispatcher][Schedule] Dispatch complete", "run_id", res.RunID, "duration", res.Duration)
			}
		})
		if err != nil {
			return err
		}

		c.Start()
		logger.Info("[Dispatcher][Schedule] Scheduler started", "spec", scheduleOpts.spec)
		<-ctx.Done()

		logger.Info("[Dispatcher][Schedule] Waiting for running dispatch to finish")
		<-c.Stop().Done()
		return nil
	},
}

func init() {
	scheduleCmd.Flags().StringVar(&scheduleOpts.spec, "cron", util.GetEnvString("DISPATCH_SCHEDULE", "0 0 12 * * *"), "Cron expression with seconds")
	rootCmd.AddCommand(scheduleCmd)
}
