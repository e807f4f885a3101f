package main

import (
	"errors"
	"log"

	"orderd/internal/database"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func newMigrateCmd(v *viper.Viper) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the database schema",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(v)
			if err != nil {
				return err
			}
			if cfg.DatabaseDriver == "memory" {
				return errors.New("the memory driver has no schema to migrate")
			}

			db, err := database.Open(cfg)
			if err != nil {
				return err
			}
			defer database.Close(db)

			if err := database.Migrate(db); err != nil {
				return err
			}
			log.Println("Database migrated")
			return nil
		},
	}
}
