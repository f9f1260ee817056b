package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dvloznov/finance-overview/internal/migrations"
)

func TestSourceEmbedded(t *testing.T) {
	fsys, dir := source("")
	ms, err := migrations.Load(fsys, dir, "p", "d")
	require.NoError(t, err)
	assert.NotEmpty(t, ms)
}

func TestSourceDirectory(t *testing.T) {
	tmp := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(tmp, "0001_only.sql"), []byte("SELECT 1"), 0o644))

	fsys, dir := source(tmp)
	ms, err := migrations.Load(fsys, dir, "p", "d")
	require.NoError(t, err)
	require.Len(t, ms, 1)
	assert.Equal(t, "only", ms[0].Name)
}
