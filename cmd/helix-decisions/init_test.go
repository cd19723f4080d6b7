package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kevinmichaelchen/helix-tools/internal/config"
)

func withFakeHome(t *testing.T) string {
	t.Helper()
	home := t.TempDir()
	t.Setenv("HOME", home)
	return home
}

func TestInit_WritesDefaultConfigAndDirectory(t *testing.T) {
	withFakeHome(t)

	root := NewRootCmd()
	buf := new(bytes.Buffer)
	root.SetOut(buf)
	root.SetArgs([]string{"init"})

	err := root.Execute()
	require.NoError(t, err)

	cfgPath, err := config.DefaultConfigPath()
	require.NoError(t, err)
	assert.FileExists(t, cfgPath)
	assert.Contains(t, buf.String(), "wrote default config to")
	assert.Contains(t, buf.String(), "decisions directory ready at")
}

func TestInit_SecondRunWithoutForceIsANoop(t *testing.T) {
	withFakeHome(t)

	first := NewRootCmd()
	first.SetOut(new(bytes.Buffer))
	first.SetArgs([]string{"init"})
	require.NoError(t, first.Execute())

	cfgPath, err := config.DefaultConfigPath()
	require.NoError(t, err)
	before, err := os.ReadFile(cfgPath)
	require.NoError(t, err)

	second := NewRootCmd()
	buf := new(bytes.Buffer)
	second.SetOut(buf)
	second.SetArgs([]string{"init"})
	require.NoError(t, second.Execute())

	after, err := os.ReadFile(cfgPath)
	require.NoError(t, err)
	assert.Equal(t, before, after)
	assert.Contains(t, buf.String(), "already exists")
}

func TestInit_ForceOverwrites(t *testing.T) {
	home := withFakeHome(t)

	first := NewRootCmd()
	first.SetOut(new(bytes.Buffer))
	first.SetArgs([]string{"init"})
	require.NoError(t, first.Execute())

	cfgPath, err := config.DefaultConfigPath()
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(cfgPath, []byte("index:\n  directory: \""+filepath.Join(home, "custom")+"\"\n"), 0o600))

	second := NewRootCmd()
	buf := new(bytes.Buffer)
	second.SetOut(buf)
	second.SetArgs([]string{"init", "--force"})
	require.NoError(t, second.Execute())

	assert.Contains(t, buf.String(), "wrote default config to")
}
