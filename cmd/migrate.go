package main

import (
	"github.com/spf13/cobra"

	"github.com/yungbote/facility-backend/internal/app"
	"github.com/yungbote/facility-backend/internal/data/db"
	"github.com/yungbote/facility-backend/internal/domain/facility"
	"github.com/yungbote/facility-backend/internal/platform/logger"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create tables and indexes for every registered aggregate type",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		log, err := logger.New(cfg.Log.Mode)
		if err != nil {
			return err
		}
		defer log.Sync()

		svc, err := app.OpenDatabase(log, cfg)
		if err != nil {
			return err
		}
		defer svc.Close()

		if err := db.Migrate(svc.DB(), facility.NewRegistry(), facility.Models()...); err != nil {
			return err
		}
		log.Info("migration complete")
		return nil
	},
}
