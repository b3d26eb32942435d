package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/deckhand-sh/deckhand/pkg/backup"
	"github.com/deckhand-sh/deckhand/pkg/sysinfo"
)

func init() {
	rootCmd.AddCommand(backupCmd)
	rootCmd.AddCommand(cleanCmd)
}

var backupCmd = &cobra.Command{
	Use:   "backup",
	Short: "Snapshot configuration and logs (production only, opt-in)",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}

		record, err := backup.NewManager(sysinfo.NewHostSampler()).Snapshot(cfg)
		if err != nil {
			return err
		}
		if record == nil {
			fmt.Println("Backups are not active for this configuration (no-op)")
			return nil
		}

		fmt.Printf("✓ Backup written to %s\n", record.Path)
		return nil
	},
}

var cleanCmd = &cobra.Command{
	Use:   "clean",
	Short: "Prune log files older than seven days",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}

		removed := backup.NewManager(sysinfo.NewHostSampler()).
			CleanLogs(cfg.Paths.LogsDir, backup.LogRetention)

		fmt.Printf("✓ Removed %d old log file(s)\n", removed)
		return nil
	},
}
