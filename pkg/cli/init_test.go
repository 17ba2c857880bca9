package cli_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/uepipe/uepipe/pkg/config"
)

func TestInit_NewConfiguration(t *testing.T) {
	h := newHarness(t)

	require.NoError(t, h.run("init"))

	configPath := filepath.Join(h.root, "uepipe.yaml")
	require.FileExists(t, configPath)
	assert.Contains(t, h.stdout.String(), "Created configuration at "+configPath)

	cfg, err := config.NewLoader().Load(configPath, h.root)
	require.NoError(t, err)
	want := config.Defaults()
	assert.Equal(t, want.Plugin, cfg.Plugin)
	assert.Equal(t, want.DemoProject, cfg.DemoProject)
	assert.Equal(t, want.TempFolders, cfg.TempFolders)
	assert.Equal(t, filepath.Join(h.root, config.DefaultStateDir), cfg.StateDir)
}

func TestInit_ExistingConfiguration(t *testing.T) {
	h := newHarness(t)
	configPath := filepath.Join(h.root, "uepipe.yaml")
	existing := "autotestFilter: Custom\n"
	require.NoError(t, os.WriteFile(configPath, []byte(existing), 0644))

	err := h.run("init")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already exists")

	data, err := os.ReadFile(configPath)
	require.NoError(t, err)
	assert.Equal(t, existing, string(data))

	require.NoError(t, h.run("init", "--force"))
	data, err = os.ReadFile(configPath)
	require.NoError(t, err)
	assert.NotEqual(t, existing, string(data))
	assert.Contains(t, string(data), "autotestBranch: qa/autotests")
}
