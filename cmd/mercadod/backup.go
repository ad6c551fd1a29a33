package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"mercado-pos/internal/backup"
	"mercado-pos/internal/config"
)

// backupCmd groups offline backup administration. These commands work on
// the store file directly and must not run while the server is serving.
func backupCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "backup",
		Short: "Manage store backups",
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "create",
			Short: "Take a manual snapshot of the store",
			RunE: func(cmd *cobra.Command, args []string) error {
				info, err := newManager().CreateManual()
				if err != nil {
					return err
				}
				fmt.Printf("created %s (%s)\n", info.Filename, info.SizeFormatted)
				return nil
			},
		},
		&cobra.Command{
			Use:   "list",
			Short: "List snapshots, newest first",
			RunE: func(cmd *cobra.Command, args []string) error {
				backups, err := newManager().List()
				if err != nil {
					return err
				}
				if len(backups) == 0 {
					fmt.Println("no backups found")
					return nil
				}
				for _, b := range backups {
					fmt.Printf("%-45s %-11s %8s  %s\n",
						b.Filename, b.Type, b.SizeFormatted,
						b.CreatedAt.Format("2006-01-02 15:04:05"))
				}
				return nil
			},
		},
		&cobra.Command{
			Use:   "verify [filename]",
			Short: "Check the integrity of the store, or of a snapshot",
			Args:  cobra.MaximumNArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				cfg := config.Load()
				m := newManager()
				path := cfg.DatabasePath
				if len(args) == 1 {
					path = cfg.BackupDir + "/" + args[0]
				}
				if err := m.VerifyIntegrity(path); err != nil {
					return err
				}
				fmt.Println("ok")
				return nil
			},
		},
		&cobra.Command{
			Use:   "restore <filename>",
			Short: "Restore a snapshot over the live store",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				if err := newManager().Restore(args[0]); err != nil {
					return err
				}
				fmt.Printf("restored %s\n", args[0])
				return nil
			},
		},
		&cobra.Command{
			Use:   "delete <filename>",
			Short: "Delete a snapshot (the initial backup is protected)",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				if err := newManager().Delete(args[0]); err != nil {
					return err
				}
				fmt.Printf("deleted %s\n", args[0])
				return nil
			},
		},
	)
	return cmd
}

func newManager() *backup.Manager {
	cfg := config.Load()
	return backup.NewManager(cfg.DatabasePath, cfg.BackupDir, cfg.BackupRetention, zap.NewNop())
}
