package persistence

import (
	"context"
	"testing"

	"github.com/eta/backend/internal/domain/tenancy"
	"github.com/eta/backend/internal/infrastructure/logger"
	"github.com/eta/backend/internal/infrastructure/persistence/models"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

func setupSQLiteDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{Logger: gormlogger.Discard})
	require.NoError(t, err)

	// a single connection keeps every query on the same in-memory database
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, db.AutoMigrate(
		&models.TenantModel{},
		&models.TenantDomainModel{},
		&models.UserModel{},
		&models.OrderModel{},
		&models.OrderLineModel{},
	))
	return db
}

func tenantContext(t tenancy.Tenant) context.Context {
	ctx := context.Background()
	ctx, _ = logger.WithTenantID(ctx, logger.FromContext(ctx), t.ID.String())
	return ctx
}
