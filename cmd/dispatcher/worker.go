package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/OFFIS-RIT/case-dispatcher/backend/internal/queue"
	"github.com/OFFIS-RIT/case-dispatcher/backend/internal/util"
	"github.com/OFFIS-RIT/case-dispatcher/backend/pkg/leaselock"
	"github.com/OFFIS-RIT/case-dispatcher/backend/pkg/logger"

	"github.com/spf13/cobra"
)

type workerFlags struct {
	maxRetries int
}

var workerOpts workerFlags

var workerCmd = &cobra.Command{
	Use:   "worker",
	Short: "Consume queued dispatch requests",
	Long: `Consume run requests from the dispatch queue, one at a time. Failed
runs are retried through the retry queue and end up in the dead letter
queue once the retries are used up.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		a, err := openApp(ctx, "worker")
		if err != nil {
			return err
		}
		defer a.Close()

		conn := queue.Init()
		defer conn.Close()

		w := &queue.Worker{
			Conn:       conn,
			MaxRetries: workerOpts.maxRetries,
			Handler: func(ctx context.Context, req queue.RunRequest) error {
				d := a.dispatcher
				if req.DryRun {
					d = d.DryRun()
				}
				res, err := d.Run(ctx, req.RunID, req.Trigger)
				if errors.Is(err, leaselock.ErrBusy) {
					a.logHolder(ctx)
				}
				if err != nil {
					return err
				}
				logger.Info("[Dispatcher][Worker] Dispatch complete", "run_id", res.RunID, "duration", res.Duration)
				return nil
			},
		}
		logger.Info("[Dispatcher][Worker] Waiting for run requests", "queue", queue.DispatchQueue)
		return w.Run(ctx)
	},
}

func init() {
	workerCmd.Flags().IntVar(&workerOpts.maxRetries, "max-retries", util.GetEnvInt("QUEUE_MAX_RETRIES", 3), "Retries before a request is dead lettered")
	rootCmd.AddCommand(workerCmd)
}
