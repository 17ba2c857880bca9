package validation

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/uepipe/uepipe/pkg/pipeline"
	"github.com/uepipe/uepipe/pkg/types"
)

func validConfig() types.PipelineConfig {
	return types.PipelineConfig{
		DemoProject:    types.RepoConfig{Remote: "git@example.com:demo.git", Branch: "main", Name: "StoreUeSdkTest"},
		Plugin:         types.RepoConfig{Remote: "git@example.com:plugin.git", Name: "Xsolla"},
		AutotestBranch: "qa/autotests",
		TempFolders:    []string{"Binaries", "Saved", ".vs"},
		StateDir:       ".uepipe",
	}
}

func fieldsOf(result *ValidationResult, level ValidationLevel) []string {
	var out []string
	for _, e := range result.Errors {
		if e.Level == level {
			out = append(out, e.Field)
		}
	}
	return out
}

func TestValidateBuildDemo(t *testing.T) {
	tests := []struct {
		name     string
		mutate   func(o *pipeline.BuildDemoOptions)
		valid    bool
		errors   []string
		warnings []string
	}{
		{
			name:   "valid",
			mutate: func(o *pipeline.BuildDemoOptions) {},
			valid:  true,
		},
		{
			name:   "unknown engine",
			mutate: func(o *pipeline.BuildDemoOptions) { o.EngineVersion = "5.1" },
			errors: []string{"engine_version"},
		},
		{
			name:     "unlisted platform",
			mutate:   func(o *pipeline.BuildDemoOptions) { o.Platform = "LinuxArm64" },
			valid:    true,
			warnings: []string{"platform"},
		},
		{
			name:   "missing platform",
			mutate: func(o *pipeline.BuildDemoOptions) { o.Platform = "" },
			errors: []string{"platform"},
		},
		{
			name:     "odd browser flag",
			mutate:   func(o *pipeline.BuildDemoOptions) { o.PlatformBrowser = "yes" },
			valid:    true,
			warnings: []string{"is_platform_browser"},
		},
		{
			name: "missing arguments and remotes",
			mutate: func(o *pipeline.BuildDemoOptions) {
				o.WorkingDir = ""
				o.PluginBranch = ""
				o.Config.Plugin.Remote = ""
			},
			errors: []string{"working_dir", "plugin_branch", "plugin.remote"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts := pipeline.BuildDemoOptions{
				WorkingDir:      "/work",
				PluginBranch:    "develop",
				EngineVersion:   "5.4",
				Platform:        types.PlatformAndroid,
				PlatformBrowser: "False",
				Config:          validConfig(),
			}
			tt.mutate(&opts)

			result := ValidateBuildDemo(opts)
			assert.Equal(t, tt.valid, result.Valid)
			assert.Equal(t, tt.errors, fieldsOf(result, ValidationLevelError))
			assert.Equal(t, tt.warnings, fieldsOf(result, ValidationLevelWarning))
			if tt.valid {
				assert.NoError(t, result.Err())
			} else {
				assert.Error(t, result.Err())
			}
		})
	}
}

func TestValidateCI(t *testing.T) {
	root := t.TempDir()
	demo := filepath.Join(root, "Demo")
	require.NoError(t, os.MkdirAll(demo, 0755))

	opts := pipeline.CIOptions{
		EnginePath:  filepath.Join(root, "missing-engine"),
		DemoPath:    demo,
		DemoName:    "Demo",
		InspectTool: filepath.Join(root, "inspectcode.exe"),
		Host:        types.HostWindows,
		Config:      validConfig(),
	}

	result := ValidateCI(opts)
	assert.True(t, result.Valid)
	assert.Equal(t, []string{"ue_base", "inspect_tool"}, fieldsOf(result, ValidationLevelWarning))
	assert.Len(t, result.Warnings(), 2)

	opts.DemoName = "Demo.uproject"
	opts.Host = types.HostMacOS
	opts.Config.AutotestBranch = ""
	result = ValidateCI(opts)
	assert.False(t, result.Valid)
	assert.Equal(t, []string{"demo_name", "host", "autotestBranch"}, fieldsOf(result, ValidationLevelError))
}

func TestValidateConfig(t *testing.T) {
	cfg := validConfig()
	cfg.TempFolders = []string{"Saved", "../outside", "/abs"}
	cfg.Patches = []types.PatchSpec{
		{Kind: types.PatchKindJSON, File: "Demo.uproject", Key: "EngineAssociation", Value: "5.4"},
		{Kind: types.PatchKindLine, File: "Source/Demo.Target.cs"},
	}
	cfg.StateDir = ""

	result := ValidateConfig(cfg)
	assert.False(t, result.Valid)
	assert.Equal(t, []string{"tempFolders", "tempFolders", "patches[1]"}, fieldsOf(result, ValidationLevelError))
	assert.Equal(t, []string{"stateDir"}, fieldsOf(result, ValidationLevelWarning))
}

func TestValidationError_Error(t *testing.T) {
	e := ValidationError{Subject: "ci", Field: "demo_base", Message: "missing", Level: ValidationLevelError}
	assert.Equal(t, "[error] ci.demo_base: missing", e.Error())
}
