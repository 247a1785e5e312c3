package biz

import (
	"context"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/kart-io/advisor-x/internal/advisor/store"
	"github.com/kart-io/advisor-x/internal/model"
)

// newTestFactory 返回一个基于内存 SQLite 的存储工厂。
func newTestFactory(t *testing.T) store.Factory {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)

	factory := store.NewFactory(db)
	require.NoError(t, factory.AutoMigrate())
	return factory
}

// newTestVenture 建一个创业项目供测试挂靠。
func newTestVenture(t *testing.T, factory store.Factory, workspaceID, id string) *model.Venture {
	t.Helper()

	venture := &model.Venture{
		ID:          id,
		WorkspaceID: workspaceID,
		Name:        "Acme AI",
		Stage:       "seed",
	}
	require.NoError(t, factory.Ventures().Create(context.Background(), venture))
	return venture
}
