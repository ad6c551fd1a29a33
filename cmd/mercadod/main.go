package main

import (
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"mercado-pos/internal/api"
	"mercado-pos/internal/audit"
	"mercado-pos/internal/backup"
	"mercado-pos/internal/config"
	"mercado-pos/internal/database"
	"mercado-pos/internal/ledger"
	"mercado-pos/internal/migrations"
	"mercado-pos/internal/products"
	"mercado-pos/internal/register"
	"mercado-pos/internal/session"
	"mercado-pos/internal/users"
)

func main() {
	root := &cobra.Command{
		Use:   "mercadod",
		Short: "Market point-of-sale server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve()
		},
	}

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the POS server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve()
		},
	}

	root.AddCommand(serveCmd, backupCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func serve() error {
	cfg := config.Load()

	logger, err := zap.NewProduction()
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer logger.Sync()

	auditLog := audit.New(cfg.LogDir, logger)
	defer auditLog.Close()

	// The startup snapshot (and self-heal, if needed) must finish before
	// the store is opened for transactional use.
	manager := backup.NewManager(cfg.DatabasePath, cfg.BackupDir, cfg.BackupRetention, logger)
	report, err := manager.CreateAutomatic()
	if err != nil {
		logger.Error("startup backup failed, refusing to open store", zap.Error(err))
		return err
	}
	if report.Restored {
		logger.Warn("store was corrupted and recovered from backup",
			zap.String("backup_used", report.BackupUsed))
	}

	db, err := database.Connect(cfg.DatabasePath)
	if err != nil {
		return err
	}
	defer db.Close()

	if err := migrations.Run(db); err != nil {
		return err
	}
	created, err := migrations.SeedAdmin(db)
	if err != nil {
		return err
	}
	if created {
		logger.Info("default admin account created")
	}

	guard := session.NewGuard(db, time.Duration(cfg.SessionTimeoutMin)*time.Minute, logger)
	handler := api.New(
		guard,
		ledger.New(db, logger),
		register.New(db, logger),
		manager,
		products.New(db, logger),
		users.New(db, logger),
		auditLog,
		logger,
		cfg.Secret,
	)

	logger.Info("mercado POS server starting", zap.String("port", cfg.HTTPPort))
	return http.ListenAndServe(":"+cfg.HTTPPort, handler.Router())
}
