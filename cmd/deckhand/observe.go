package main

import (
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/deckhand-sh/deckhand/pkg/health"
	"github.com/deckhand-sh/deckhand/pkg/metrics"
	"github.com/deckhand-sh/deckhand/pkg/status"
	"github.com/deckhand-sh/deckhand/pkg/sysinfo"
)

func init() {
	monitorCmd.Flags().String("metrics-addr", "", "serve Prometheus metrics on this address (e.g. :9090)")

	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(logsCmd)
	rootCmd.AddCommand(monitorCmd)
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show service state, last deploy, and host resources",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		w, err := wire(cmd, cfg)
		if err != nil {
			return err
		}
		defer w.close()

		ctx, cancel := signalContext()
		defer cancel()

		fmt.Printf("Service:  %s\n", cfg.ServiceName)
		fmt.Printf("State:    %s\n", w.controller.State())

		if rs, err := w.rt.Status(ctx, cfg.ServiceName); err == nil {
			fmt.Printf("Runtime:  %s (running=%v)\n", rs.State, rs.Running)
		}

		if run, err := w.journal.LastRun(); err == nil && run != nil {
			fmt.Printf("Last run: %s -> %s (%s)\n",
				run.StartedAt.Format("2006-01-02 15:04:05"), run.FinalState, run.Image)
			if run.Error != "" {
				fmt.Printf("          error: %s\n", run.Error)
			}
		}

		if snap, err := sysinfo.NewHostSampler().Sample(); err == nil {
			fmt.Printf("Memory:   %d/%d MiB available\n",
				snap.AvailableMemory/(1024*1024), snap.TotalMemory/(1024*1024))
			if snap.LoadKnown {
				fmt.Printf("Load:     %.2f (%d cores)\n", snap.Load1, snap.CPUCores)
			} else {
				fmt.Printf("Load:     unknown (%d cores)\n", snap.CPUCores)
			}
		}
		return nil
	},
}

var logsCmd = &cobra.Command{
	Use:   "logs [service]",
	Short: "Print the service container log",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}

		name := cfg.ServiceName
		if len(args) == 1 {
			name = args[0]
		}

		path := filepath.Join(cfg.Paths.LogsDir, name+".log")
		f, err := os.Open(path)
		if err != nil {
			return fmt.Errorf("no logs for %s: %w", name, err)
		}
		defer f.Close()

		_, err = io.Copy(os.Stdout, f)
		return err
	},
}

var monitorCmd = &cobra.Command{
	Use:   "monitor",
	Short: "Continuously display service status until interrupted",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		w, err := wire(cmd, cfg)
		if err != nil {
			return err
		}
		defer w.close()

		ctx, cancel := signalContext()
		defer cancel()

		if addr, _ := cmd.Flags().GetString("metrics-addr"); addr != "" {
			mux := http.NewServeMux()
			mux.Handle("/metrics", metrics.Handler())
			srv := &http.Server{Addr: addr, Handler: mux}
			go func() {
				if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					fmt.Fprintf(os.Stderr, "metrics server error: %v\n", err)
				}
			}()
			defer srv.Close()
		}

		probe := health.NewHTTPProbe(healthURL(cfg))
		reporter := status.NewReporter(cfg.ServiceName, sysinfo.NewHostSampler(), w.rt, probe)

		fmt.Println("Monitoring. Press Ctrl+C to stop.")
		for snap := range reporter.Stream(ctx) {
			healthLabel := "unhealthy"
			if snap.Health.Healthy {
				healthLabel = "healthy"
			}
			fmt.Printf("[%s] runtime=%s health=%s mem=%d/%d MiB\n",
				snap.At.Format("15:04:05"),
				snap.Runtime.State,
				healthLabel,
				snap.Resources.AvailableMemory/(1024*1024),
				snap.Resources.TotalMemory/(1024*1024))
		}
		return nil
	},
}
