package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/OFFIS-RIT/case-dispatcher/backend/internal/dispatch"
	"github.com/OFFIS-RIT/case-dispatcher/backend/internal/util"
	"github.com/OFFIS-RIT/case-dispatcher/backend/pkg/leaselock"
	"github.com/OFFIS-RIT/case-dispatcher/backend/pkg/logger"

	"github.com/spf13/cobra"
)

type runFlags struct {
	dryRun bool
}

var runOpts runFlags

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run one dispatch now",
	Long: `Run one full dispatch: extract case records, reconcile them with the
workbook, score suspects, refresh the association graph and write every
sheet back. Exits non-zero when any step fails.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		a, err := openApp(ctx, "manual")
		if err != nil {
			return err
		}
		defer a.Close()

		d := a.dispatcher
		if runOpts.dryRun {
			d = d.DryRun()
		}
		runID, err := util.NewRunID()
		if err != nil {
			return err
		}
		res, err := d.Run(ctx, runID, "manual")
		if errors.Is(err, leaselock.ErrBusy) {
			a.logHolder(ctx)
		}
		if err != nil {
			logger.Error("[Dispatcher][Run] Dispatch failed", "err", err)
			return err
		}
		printResult(cmd, res)
		return nil
	},
}

func printResult(cmd *cobra.Command, res *dispatch.Result) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Run %s\n", res.RunID)
	for _, nt := range res.Sheets {
		fmt.Fprintf(out, "  %-12s %d rows\n", nt.Name, nt.Table.Len())
	}
	fmt.Fprintf(out, "  relationship sheets created: %d\n", res.SheetsCreated)
	fmt.Fprintf(out, "  edges ingested: %d, suspects relinked: %d\n", res.EdgesIngested, res.LinksUpdated)
	if res.BackupKey != "" {
		fmt.Fprintf(out, "  backup: %s\n", res.BackupKey)
	}
	fmt.Fprintf(out, "Dispatch complete in %s\n", res.Duration.Round(time.Millisecond))
}

func init() {
	runCmd.Flags().BoolVar(&runOpts.dryRun, "dry-run", false, "Compute everything but leave the workbook untouched")
	rootCmd.AddCommand(runCmd)
}
