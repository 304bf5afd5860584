package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/wonny/credmon/internal/api"
	"github.com/wonny/credmon/internal/api/handlers"
)

var apiCmd = &cobra.Command{
	Use:   "api",
	Short: "Start the HTTP API server",
	Long: `Starts the REST API and websocket server.

Endpoints:
  GET    /health                         - health check
  GET    /ws                             - alert push stream
  GET    /api/entities                   - tracked entities
  POST   /api/entities/{ticker}/cycle    - run a scoring cycle now
  GET    /api/entities/{ticker}/score    - latest score and attribution
  GET    /api/entities/{ticker}/history  - score history and trend
  GET    /api/entities/{ticker}/alerts   - entity alert log
  DELETE /api/entities/{ticker}          - stop tracking an entity
  GET    /api/alerts                     - recent alerts, all entities
  POST   /api/alerts/{id}/ack            - acknowledge an alert
  GET    /api/leaderboard                - latest composites, best first

Example:
  credmon api --port 8090`,
	RunE: runAPIServer,
}

var apiPort string

func init() {
	rootCmd.AddCommand(apiCmd)
	apiCmd.Flags().StringVar(&apiPort, "port", "", "override the listen port")
}

func runAPIServer(cmd *cobra.Command, args []string) error {
	rt, err := newRuntime()
	if err != nil {
		return err
	}
	defer rt.Close()

	if apiPort != "" {
		rt.cfg.Port = apiPort
	}

	scoreHandler := handlers.NewScoreHandler(rt.runner, rt.entities, rt.snapshots, rt.cache, rt.log)
	alertHandler := handlers.NewAlertHandler(rt.alerts, rt.snapshots, rt.cache, rt.log)
	router := api.NewRouter(scoreHandler, alertHandler, rt.hub, rt.db, rt.log)
	server := api.New(rt.cfg, rt.log, router)

	go func() {
		if err := server.Start(); err != nil {
			rt.log.WithError(err).Fatal("Failed to start server")
		}
	}()

	fmt.Printf("API server running on http://localhost:%s\n", rt.cfg.Port)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}
	return nil
}
