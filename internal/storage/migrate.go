package storage

import (
	"fmt"
	"log/slog"

	"matchgogo/backend/internal/models"

	"gorm.io/gorm"
)

// AllModels lists every table the service requires.
func AllModels() []any {
	return []any{
		&models.User{},
		&models.Like{},
		&models.SeenProfile{},
		&models.Report{},
		&models.BannedUser{},
		&models.Group{},
		&models.SessionState{},
		&models.RandomChatQueueEntry{},
	}
}

// Reconcile brings the live schema up to the models. Missing tables are
// created; on existing tables each missing column is added. A failed column
// add is logged and skipped so startup proceeds against an older schema.
func Reconcile(db *gorm.DB, log *slog.Logger, tables ...any) error {
	if len(tables) == 0 {
		tables = AllModels()
	}
	m := db.Migrator()

	for _, model := range tables {
		stmt := &gorm.Statement{DB: db}
		if err := stmt.Parse(model); err != nil {
			return fmt.Errorf("parse model %T: %w", model, err)
		}
		table := stmt.Schema.Table

		if !m.HasTable(model) {
			if err := m.CreateTable(model); err != nil {
				return fmt.Errorf("create table %s: %w", table, err)
			}
			log.Info("created table", "table", table)
			continue
		}

		for _, field := range stmt.Schema.Fields {
			if field.DBName == "" || field.IgnoreMigration {
				continue
			}
			if m.HasColumn(model, field.DBName) {
				continue
			}
			if err := m.AddColumn(model, field.Name); err != nil {
				log.Warn("failed to add column", "table", table, "column", field.DBName, "err", err)
				continue
			}
			log.Info("added column", "table", table, "column", field.DBName)
		}
	}
	return nil
}
