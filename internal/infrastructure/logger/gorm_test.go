package logger

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	gormlogger "gorm.io/gorm/logger"
)

func TestGormLogger_Trace(t *testing.T) {
	sqlFn := func() (string, int64) { return "SELECT 1", 1 }

	t.Run("error is logged with context fields", func(t *testing.T) {
		base, logs := newObserved()
		gl := NewGormLogger(base, gormlogger.Info)
		ctx, _ := WithTenantSchema(context.Background(), base, "acme")
		ctx, _ = WithTaskID(ctx, base, "t-1")

		gl.Trace(ctx, time.Now(), sqlFn, errors.New("relation does not exist"))

		assert.Equal(t, 1, logs.FilterMessage("SQL Error").Len())
		fields := logs.All()[0].ContextMap()
		assert.Equal(t, "acme", fields["tenant_schema"])
		assert.Equal(t, "t-1", fields["task_id"])
	})

	t.Run("record not found ignored", func(t *testing.T) {
		base, logs := newObserved()
		gl := NewGormLogger(base, gormlogger.Info)
		gl.Trace(context.Background(), time.Now(), sqlFn, gormlogger.ErrRecordNotFound)
		assert.Equal(t, 0, logs.Len())
	})

	t.Run("slow query warns", func(t *testing.T) {
		base, logs := newObserved()
		gl := NewGormLogger(base, gormlogger.Warn, WithSlowThreshold(time.Millisecond))
		gl.Trace(context.Background(), time.Now().Add(-time.Second), sqlFn, nil)
		assert.Equal(t, 1, logs.Len())
	})

	t.Run("silent logs nothing", func(t *testing.T) {
		base, logs := newObserved()
		gl := NewGormLogger(base, gormlogger.Silent)
		gl.Trace(context.Background(), time.Now(), sqlFn, errors.New("x"))
		assert.Equal(t, 0, logs.Len())
	})
}

func TestMapGormLogLevel(t *testing.T) {
	assert.Equal(t, gormlogger.Silent, MapGormLogLevel("silent"))
	assert.Equal(t, gormlogger.Error, MapGormLogLevel("error"))
	assert.Equal(t, gormlogger.Warn, MapGormLogLevel("warn"))
	assert.Equal(t, gormlogger.Info, MapGormLogLevel("debug"))
	assert.Equal(t, gormlogger.Warn, MapGormLogLevel("unknown"))
}

func TestGormLoggerImplementsInterface(t *testing.T) {
	base, _ := newObserved()
	var _ gormlogger.Interface = NewGormLogger(base, gormlogger.Warn)
}
