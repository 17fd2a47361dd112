package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/eta/backend/internal/infrastructure/migration"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLookup(t *testing.T) {
	for _, name := range []string{"up", "down", "step", "goto", "status", "force", "create", "list"} {
		cmd, ok := lookup(name)
		require.True(t, ok, name)
		assert.Equal(t, name, cmd.name)
	}

	_, ok := lookup("drop")
	assert.False(t, ok)

	create, _ := lookup("create")
	assert.False(t, create.needsDB)
	list, _ := lookup("list")
	assert.False(t, list.needsDB)
}

func TestVersionArg(t *testing.T) {
	t.Run("timestamp versions fit", func(t *testing.T) {
		v, err := versionArg([]string{"20240301090200"}, 0)
		require.NoError(t, err)
		assert.Equal(t, uint64(20240301090200), v)
	})

	t.Run("missing", func(t *testing.T) {
		_, err := versionArg(nil, 0)
		assert.ErrorIs(t, err, errUsage)
	})

	t.Run("not a number", func(t *testing.T) {
		_, err := versionArg([]string{"latest"}, 0)
		assert.ErrorIs(t, err, errUsage)
	})
}

func TestIntArg(t *testing.T) {
	n, err := intArg([]string{"-1"}, 0)
	require.NoError(t, err)
	assert.Equal(t, -1, n)

	_, err = intArg([]string{"one"}, 0)
	assert.ErrorIs(t, err, errUsage)
}

func TestCreateAndList(t *testing.T) {
	dir := t.TempDir()
	var out bytes.Buffer
	inv := &invocation{args: []string{"Add tenant domains", "map", "hosts"}, dir: dir, out: &out}

	create, _ := lookup("create")
	require.NoError(t, create.run(inv))
	assert.Contains(t, out.String(), "_add_tenant_domains.up.sql")

	matches, err := filepath.Glob(filepath.Join(dir, "*_add_tenant_domains.up.sql"))
	require.NoError(t, err)
	require.Len(t, matches, 1)
	content, err := os.ReadFile(matches[0])
	require.NoError(t, err)
	assert.Contains(t, string(content), "-- Description: map hosts")

	out.Reset()
	list, _ := lookup("list")
	require.NoError(t, list.run(&invocation{dir: dir, out: &out}))
	assert.Contains(t, out.String(), "_add_tenant_domains\n")
}

func TestCreate_RequiresName(t *testing.T) {
	create, _ := lookup("create")
	err := create.run(&invocation{dir: t.TempDir(), out: &bytes.Buffer{}})
	assert.ErrorIs(t, err, errUsage)
}

func TestPrintStatus(t *testing.T) {
	var out bytes.Buffer
	require.NoError(t, printStatus(&out, 20240301090000, true, []migration.Status{
		{Name: "20240301090000_create_tenants", Version: 20240301090000, Applied: true},
		{Name: "20240301090100_create_users", Version: 20240301090100},
	}))

	text := out.String()
	assert.Contains(t, text, "database version: 20240301090000 (dirty)")
	assert.Regexp(t, `applied\s+20240301090000_create_tenants`, text)
	assert.Regexp(t, `pending\s+20240301090100_create_users`, text)
}

func TestUsage_ListsEveryCommand(t *testing.T) {
	var out bytes.Buffer
	usage(&out)
	for _, c := range commands {
		assert.Contains(t, out.String(), "  "+c.name+" ")
	}
	assert.Contains(t, out.String(), "ETA_DATABASE_HOST")
}

func TestResolveDir(t *testing.T) {
	dir := t.TempDir()
	got, err := resolveDir(dir)
	require.NoError(t, err)
	assert.Equal(t, dir, got)
}
