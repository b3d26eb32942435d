package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/deckhand-sh/deckhand/pkg/artifact"
	"github.com/deckhand-sh/deckhand/pkg/backup"
	"github.com/deckhand-sh/deckhand/pkg/config"
	"github.com/deckhand-sh/deckhand/pkg/health"
	"github.com/deckhand-sh/deckhand/pkg/lifecycle"
	"github.com/deckhand-sh/deckhand/pkg/log"
	"github.com/deckhand-sh/deckhand/pkg/runtime"
	"github.com/deckhand-sh/deckhand/pkg/storage"
	"github.com/deckhand-sh/deckhand/pkg/sysinfo"
	"github.com/deckhand-sh/deckhand/pkg/types"
)

var (
	// Version information (set via ldflags during build)
	Version   = "dev"
	Commit    = "unknown"
	BuildTime = "unknown"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "deckhand",
	Short: "Deckhand - deployment lifecycle controller for one constrained service",
	Long: `Deckhand deploys and supervises a single containerized service under
fixed CPU and memory ceilings. It gates deployment on host resources,
builds the artifact under a bounded build ceiling, applies a declarative
descriptor to the container runtime, verifies health with a bounded
retry protocol, and keeps retention-bounded backups.`,
	Version: Version,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		level, _ := cmd.Flags().GetString("log-level")
		jsonOut, _ := cmd.Flags().GetBool("log-json")
		log.Init(log.Config{Level: log.Level(level), JSONOutput: jsonOut})
	},
}

func init() {
	rootCmd.SetVersionTemplate(fmt.Sprintf(
		"Deckhand version %s\nCommit: %s\nBuilt: %s\n",
		Version, Commit, BuildTime,
	))

	rootCmd.PersistentFlags().String("config", "", "YAML config file (defaults + env vars otherwise)")
	rootCmd.PersistentFlags().String("socket", runtime.DefaultSocketPath, "containerd socket path")
	rootCmd.PersistentFlags().String("engine", "docker", "container engine binary used for builds")
	rootCmd.PersistentFlags().String("log-level", "info", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().Bool("log-json", false, "emit JSON logs")

	rootCmd.AddCommand(deployCmd)
	rootCmd.AddCommand(stopCmd)
	rootCmd.AddCommand(restartCmd)
	rootCmd.AddCommand(healthCmd)
}

// signalContext is cancelled on SIGINT/SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

func loadConfig(cmd *cobra.Command) (config.DeploymentConfig, error) {
	if path, _ := cmd.Flags().GetString("config"); path != "" {
		return config.LoadFile(path)
	}
	return config.FromEnv()
}

func healthURL(cfg config.DeploymentConfig) string {
	return fmt.Sprintf("http://127.0.0.1:%d%s", cfg.ServicePort, cfg.HealthPath)
}

// wiring bundles the controller with the resources it holds open.
type wiring struct {
	cfg        config.DeploymentConfig
	controller *lifecycle.Controller
	rt         *runtime.ContainerdRuntime
	journal    *storage.Journal
}

func (w *wiring) close() {
	if w.rt != nil {
		w.rt.Close()
	}
	if w.journal != nil {
		w.journal.Close()
	}
}

func wire(cmd *cobra.Command, cfg config.DeploymentConfig) (*wiring, error) {
	socket, _ := cmd.Flags().GetString("socket")
	engine, _ := cmd.Flags().GetString("engine")

	rt, err := runtime.NewContainerdRuntime(socket, cfg.Paths.LogsDir)
	if err != nil {
		return nil, err
	}

	journal, err := storage.Open(cfg.Paths.DataDir)
	if err != nil {
		rt.Close()
		return nil, err
	}

	sampler := sysinfo.NewHostSampler()
	gate := sysinfo.NewGate(sampler)
	builder := artifact.NewBuilder().WithEngine(engine)
	probe := health.NewHTTPProbe(healthURL(cfg))
	monitor := health.NewMonitor(probe, health.DefaultOptions())

	state, err := journal.LoadState()
	if err != nil {
		state = types.StateStopped
	}

	controller := lifecycle.NewController(cfg, gate, builder, rt, monitor).
		WithBackups(backup.NewManager(sampler)).
		WithJournal(journal).
		WithState(state)

	return &wiring{
		cfg:        cfg,
		controller: controller,
		rt:         rt,
		journal:    journal,
	}, nil
}

var deployCmd = &cobra.Command{
	Use:   "deploy [environment]",
	Short: "Deploy the service (gate, build, apply, verify health)",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		if len(args) == 1 {
			env, err := config.ParseEnvironment(args[0])
			if err != nil {
				return err
			}
			cfg.Environment = env
		}

		w, err := wire(cmd, cfg)
		if err != nil {
			return err
		}
		defer w.close()

		ctx, cancel := signalContext()
		defer cancel()

		if err := w.controller.Deploy(ctx); err != nil {
			return err
		}

		fmt.Printf("✓ Deployed %s (%s)\n", cfg.ServiceName, cfg.ImageRef())
		return nil
	},
}

var stopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Stop the service instance",
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

		if err := w.controller.Stop(ctx); err != nil {
			return err
		}
		fmt.Printf("✓ Stopped %s\n", cfg.ServiceName)
		return nil
	},
}

var restartCmd = &cobra.Command{
	Use:   "restart",
	Short: "Stop the service, then deploy it again with the same config",
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

		if err := w.controller.Restart(ctx); err != nil {
			return err
		}
		fmt.Printf("✓ Restarted %s\n", cfg.ServiceName)
		return nil
	},
}

var healthCmd = &cobra.Command{
	Use:   "health",
	Short: "Run a single liveness probe against the service",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}

		ctx, cancel := signalContext()
		defer cancel()

		result := health.NewHTTPProbe(healthURL(cfg)).Check(ctx)
		if !result.Healthy {
			return fmt.Errorf("service unhealthy: %s", result.Message)
		}
		fmt.Printf("✓ Healthy (%s in %v)\n", result.Message, result.Latency)
		return nil
	},
}
