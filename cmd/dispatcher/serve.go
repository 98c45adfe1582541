package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/OFFIS-RIT/case-dispatcher/backend/internal/queue"
	"github.com/OFFIS-RIT/case-dispatcher/backend/internal/server"
	mid "github.com/OFFIS-RIT/case-dispatcher/backend/internal/server/middleware"
	"github.com/OFFIS-RIT/case-dispatcher/backend/internal/util"
	"github.com/OFFIS-RIT/case-dispatcher/backend/pkg/logger"

	"github.com/spf13/cobra"
)

type serveFlags struct {
	port string
}

var serveOpts serveFlags

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the suspect and run API",
	Long: `Serve suspect link statistics and the dispatch run history over HTTP.
POST /api/runs queues a run for the worker.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		a, err := openDatabase(ctx)
		if err != nil {
			return err
		}
		defer a.Close()

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

		apiKey := util.GetEnv("API_KEY")
		if apiKey == "" {
			logger.Warn("[Server][Init] API_KEY not set, runs can not be triggered over HTTP")
		}

		e := server.New(&mid.App{
			Graph:   a.graph,
			Runs:    a.history,
			Queue:   ch,
			APIKey:  apiKey,
			ReadKey: util.GetEnv("API_READ_KEY"),
		})
		return server.Serve(ctx, e, serveOpts.port)
	},
}

func init() {
	serveCmd.Flags().StringVar(&serveOpts.port, "port", util.GetEnvString("PORT", "8080"), "HTTP port")
	rootCmd.AddCommand(serveCmd)
}
