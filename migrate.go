package main

import (
	"fmt"

	"github.com/kasuganosora/survivalcamp/config"
	dbadapter "github.com/kasuganosora/survivalcamp/db"
	"github.com/kasuganosora/survivalcamp/model"
	"github.com/spf13/cobra"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or update the database schema",
	RunE:  runMigrate,
}

func runMigrate(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	db, err := dbadapter.Open(cfg.Database)
	if err != nil {
		return fmt.Errorf("db: %w", err)
	}
	if err := model.AutoMigrate(db); err != nil {
		return fmt.Errorf("db migrate: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "schema migrated (%s)\n", cfg.Database.Mode)
	return nil
}
