package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/medivuno/telehealth-server/internal/logger"
	"github.com/medivuno/telehealth-server/internal/models"
)

func newMigrateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the database schema",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			log := logger.New(cfg.Log)

			db, err := models.InitDB(models.DatabaseConfig{DSN: cfg.Database.DSN})
			if err != nil {
				return fmt.Errorf("connect database: %w", err)
			}
			if err := models.Migrate(db); err != nil {
				return fmt.Errorf("migrate: %w", err)
			}

			log.WithFields(map[string]interface{}{
				"database": cfg.Database.Name,
				"host":     cfg.Database.Host,
			}).Info("Database schema is up to date")
			return nil
		},
	}
}
