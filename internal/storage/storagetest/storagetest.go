// Package storagetest opens throwaway SQLite databases for tests.
package storagetest

import (
	"testing"
	"time"

	"matchgogo/backend/internal/logger"
	"matchgogo/backend/internal/models"
	"matchgogo/backend/internal/storage"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// NewDB returns an in-memory database with the full schema. The pool is
// pinned to one connection so every query sees the same memory database.
func NewDB(t testing.TB) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger:  gormlogger.Default.LogMode(gormlogger.Silent),
		NowFunc: func() time.Time { return time.Now().UTC().Truncate(time.Millisecond) },
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, storage.Reconcile(db, logger.Discard()))
	return db
}

// NewService is NewDB wrapped in a storage.Service.
func NewService(t testing.TB) *storage.Service {
	t.Helper()
	return storage.NewStorageService(NewDB(t))
}

// SeedUser inserts a profile with sane defaults for the zero fields.
func SeedUser(t testing.TB, s *storage.Service, u models.User) *models.User {
	t.Helper()
	if u.Name == "" {
		u.Name = "user"
	}
	if u.Age == 0 {
		u.Age = 25
	}
	if u.Gender == "" {
		u.Gender = models.GenderMale
	}
	if u.Intent == 0 {
		u.Intent = models.IntentDating
	}
	if u.LastActive.IsZero() {
		u.LastActive = time.Now().UTC()
	}
	require.NoError(t, s.DB.Create(&u).Error)
	return &u
}

// Float returns a pointer to f, for coordinate fields.
func Float(f float64) *float64 { return &f }
