package app

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/talkincode/smartstock/config"
	"github.com/talkincode/smartstock/internal/domain"
	"github.com/talkincode/smartstock/internal/store"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newTestApplication(t *testing.T) *Application {
	t.Helper()
	cfg := new(config.AppConfig)
	*cfg = *config.DefaultAppConfig
	cfg.System.Workdir = t.TempDir()

	db, err := gorm.Open(sqlite.Open(filepath.Join(cfg.System.Workdir, "smartstock_test.db")), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	a := NewApplication(cfg)
	a.OverrideDB(db)
	return a
}

func TestMigrateAndDropAll(t *testing.T) {
	a := newTestApplication(t)

	require.NoError(t, a.MigrateDB(false))
	assert.True(t, a.DB().Migrator().HasTable(&domain.Product{}))

	a.DropAll()
	assert.False(t, a.DB().Migrator().HasTable(&domain.Product{}))
}

func TestInitDbResetsData(t *testing.T) {
	a := newTestApplication(t)
	ctx := context.Background()

	require.NoError(t, a.MigrateDB(false))
	s := store.NewProductStore(a.DB())
	p := domain.Product{ID: "p1", Name: "Widget", Price: 9.99, Quantity: 5, Category: "tools"}
	_, err := s.Insert(ctx, &p)
	require.NoError(t, err)

	a.InitDb()

	assert.True(t, a.DB().Migrator().HasTable(&domain.Product{}))
	count, err := s.Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, count)
}
