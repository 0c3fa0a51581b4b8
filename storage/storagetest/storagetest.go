// Package storagetest stellt einen Store über einer SQLite-In-Memory-Datenbank für Tests bereit.
package storagetest

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"pharma-deck/storage"
)

// New öffnet eine frische, migrierte Datenbank, die nur für diesen Test existiert.
func New(t testing.TB) *storage.Store {
	t.Helper()
	dsn := "file:" + uuid.NewString() + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	store := storage.New(db, zap.NewNop())
	require.NoError(t, store.Migrate())
	return store
}
