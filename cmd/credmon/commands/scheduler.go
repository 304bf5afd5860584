package commands

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/wonny/credmon/internal/ingest"
)

var schedulerCmd = &cobra.Command{
	Use:   "scheduler",
	Short: "Start the recurring scoring scheduler",
	Long: `Runs the scoring sweep for every active entity on the configured
cadence, plus nightly observation maintenance.

Example:
  credmon scheduler`,
	RunE: runScheduler,
}

var runOnStart bool

func init() {
	rootCmd.AddCommand(schedulerCmd)
	schedulerCmd.Flags().BoolVar(&runOnStart, "run-now", false, "run a scoring sweep immediately on startup")
}

func runScheduler(cmd *cobra.Command, args []string) error {
	rt, err := newRuntime()
	if err != nil {
		return err
	}
	defer rt.Close()

	sched := ingest.NewScheduler(rt.log)

	scoringJob := ingest.NewScoringJob(rt.runner, rt.cfg.Ingest)
	if err := sched.AddJob(scoringJob); err != nil {
		return fmt.Errorf("add scoring job: %w", err)
	}
	if err := sched.AddJob(ingest.NewMaintenanceJob(rt.observations, rt.cfg.Ingest, rt.log)); err != nil {
		return fmt.Errorf("add maintenance job: %w", err)
	}

	sched.Start()
	defer sched.Stop()

	if runOnStart {
		if err := sched.RunJob(scoringJob.Name()); err != nil {
			return fmt.Errorf("trigger initial sweep: %w", err)
		}
	}

	fmt.Printf("Scheduler running, scoring sweep on %q\n", rt.cfg.Ingest.CycleSchedule)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	return nil
}
