package tenancy

import (
	"context"
	"errors"
	"testing"

	"github.com/eta/backend/internal/domain/shared"
	"github.com/eta/backend/internal/domain/tenancy"
	"github.com/eta/backend/internal/infrastructure/logger"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTenant(schema string) tenancy.Tenant {
	return tenancy.Tenant{ID: uuid.New(), SchemaName: schema, Name: schema}
}

func TestScope_Enter(t *testing.T) {
	scope := NewScope(nil)
	acme := newTenant("acme")

	ctx, guard, err := scope.Enter(context.Background(), acme)
	require.NoError(t, err)
	require.NotNil(t, guard)

	cur, ok := Current(ctx)
	assert.True(t, ok)
	assert.Equal(t, acme.ID, cur.ID)
	assert.Equal(t, acme.ID.String(), logger.GetTenantID(ctx))
	assert.Equal(t, "acme", logger.GetTenantSchema(ctx))

	guard.Exit()
	_, ok = Current(ctx)
	assert.False(t, ok)
}

func TestScope_EnterRejectsEmptySchema(t *testing.T) {
	_, _, err := NewScope(nil).Enter(context.Background(), tenancy.Tenant{})
	assert.ErrorIs(t, err, shared.ErrInvalidInput)
}

func TestScope_NoNesting(t *testing.T) {
	scope := NewScope(nil)
	acme, globex := newTenant("acme"), newTenant("globex")

	outer, guard, err := scope.Enter(context.Background(), acme)
	require.NoError(t, err)
	defer guard.Exit()

	inner, innerGuard, err := scope.Enter(outer, globex)
	assert.ErrorIs(t, err, tenancy.ErrScopeAlreadyActive)
	assert.Nil(t, innerGuard)
	assert.Equal(t, outer, inner)

	cur, ok := Current(outer)
	require.True(t, ok)
	assert.Equal(t, "acme", cur.SchemaName)
	assert.Equal(t, "acme", logger.GetTenantSchema(outer))
}

func TestScope_ReenterAfterExit(t *testing.T) {
	scope := NewScope(nil)

	ctx, guard, err := scope.Enter(context.Background(), newTenant("acme"))
	require.NoError(t, err)
	guard.Exit()

	ctx, guard, err = scope.Enter(ctx, newTenant("globex"))
	require.NoError(t, err)
	defer guard.Exit()
	assert.Equal(t, "globex", logger.GetTenantSchema(ctx))
}

func TestGuard_ExitOnce(t *testing.T) {
	var entered, exited int
	scope := NewScope(nil, Hook{
		Enter: func(context.Context, tenancy.Tenant) { entered++ },
		Exit:  func(context.Context, tenancy.Tenant) { exited++ },
	})

	_, guard, err := scope.Enter(context.Background(), newTenant("acme"))
	require.NoError(t, err)

	guard.Exit()
	guard.Exit()
	guard.Exit()

	assert.Equal(t, 1, entered)
	assert.Equal(t, 1, exited)
	assert.False(t, guard.Active())
}

func TestGuard_NilExit(t *testing.T) {
	var g *Guard
	assert.NotPanics(t, g.Exit)
}

func TestScope_HooksOrder(t *testing.T) {
	var calls []string
	hook := func(name string) Hook {
		return Hook{
			Enter: func(context.Context, tenancy.Tenant) { calls = append(calls, "enter "+name) },
			Exit:  func(context.Context, tenancy.Tenant) { calls = append(calls, "exit "+name) },
		}
	}
	scope := NewScope(nil, hook("a"), hook("b"))

	require.NoError(t, scope.Run(context.Background(), newTenant("acme"), func(context.Context) error { return nil }))

	assert.Equal(t, []string{"enter a", "enter b", "exit b", "exit a"}, calls)
}

func TestScope_Run(t *testing.T) {
	t.Run("exits after success", func(t *testing.T) {
		scope := NewScope(nil)
		var inner context.Context
		err := scope.Run(context.Background(), newTenant("acme"), func(ctx context.Context) error {
			inner = ctx
			_, ok := Current(ctx)
			assert.True(t, ok)
			return nil
		})
		require.NoError(t, err)
		_, ok := Current(inner)
		assert.False(t, ok)
	})

	t.Run("exits after error", func(t *testing.T) {
		scope := NewScope(nil)
		boom := errors.New("boom")
		var inner context.Context
		err := scope.Run(context.Background(), newTenant("acme"), func(ctx context.Context) error {
			inner = ctx
			return boom
		})
		assert.ErrorIs(t, err, boom)
		_, ok := Current(inner)
		assert.False(t, ok)
	})

	t.Run("exits and re-raises after panic", func(t *testing.T) {
		exited := false
		scope := NewScope(nil, Hook{Exit: func(context.Context, tenancy.Tenant) { exited = true }})

		assert.PanicsWithValue(t, "kaboom", func() {
			_ = scope.Run(context.Background(), newTenant("acme"), func(context.Context) error {
				panic("kaboom")
			})
		})
		assert.True(t, exited)
	})

	t.Run("nested run fails and outer continues", func(t *testing.T) {
		scope := NewScope(nil)
		err := scope.Run(context.Background(), newTenant("acme"), func(ctx context.Context) error {
			nestedErr := scope.Run(ctx, newTenant("globex"), func(context.Context) error {
				t.Fatal("nested body must not run")
				return nil
			})
			assert.ErrorIs(t, nestedErr, tenancy.ErrScopeAlreadyActive)
			assert.Equal(t, "acme", logger.GetTenantSchema(ctx))
			return nil
		})
		require.NoError(t, err)
	})
}
