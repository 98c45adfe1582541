package main

import (
	"fmt"
	"time"

	"github.com/OFFIS-RIT/case-dispatcher/backend/internal/queue"
	"github.com/OFFIS-RIT/case-dispatcher/backend/internal/util"

	"github.com/spf13/cobra"
)

type enqueueFlags struct {
	dryRun bool
}

var enqueueOpts enqueueFlags

var enqueueCmd = &cobra.Command{
	Use:   "enqueue",
	Short: "Ask the worker for a dispatch run",
	RunE: func(cmd *cobra.Command, args []string) error {
		conn := queue.Init()
		defer conn.Close()

		ch, err := conn.Channel()
		if err != nil {
			return fmt.Errorf("open channel: %w", err)
		}
		defer ch.Close()

		if err := queue.SetupQueues(ch, []string{queue.DispatchQueue}); err != nil {
			return err
		}

		runID, err := util.NewRunID()
		if err != nil {
			return err
		}
		req := queue.RunRequest{
			RunID:       runID,
			Trigger:     "cli",
			RequestedAt: time.Now().UTC(),
			DryRun:      enqueueOpts.dryRun,
		}
		if err := queue.Enqueue(ch, req); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Queued run %s\n", req.RunID)
		return nil
	},
}

func init() {
	enqueueCmd.Flags().BoolVar(&enqueueOpts.dryRun, "dry-run", false, "Request a run that leaves the workbook untouched")
	rootCmd.AddCommand(enqueueCmd)
}
