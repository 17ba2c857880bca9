// Package config loads pipeline configuration from file, environment and
// defaults
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/uepipe/uepipe/pkg/pipeline"
	"github.com/uepipe/uepipe/pkg/types"
	"github.com/uepipe/uepipe/pkg/unreal"
)

const (
	// ConfigName is the config file base name searched for (uepipe.yaml, uepipe.json)
	ConfigName = "uepipe"
	// EnvPrefix prefixes environment overrides, e.g. UEPIPE_PLUGIN_REMOTE
	EnvPrefix = "UEPIPE"
	// DefaultStateDir keeps run reports relative to the project root
	DefaultStateDir = ".uepipe"
)

// Defaults returns the configuration used when nothing overrides it
func Defaults() types.PipelineConfig {
	return types.PipelineConfig{
		DemoProject: types.RepoConfig{
			Remote: "git@gitlab.loc:sdk_group/store-ue-sdk-test.git",
			Branch: "feature/SDK-4589",
			Name:   "StoreUeSdkTest",
		},
		Plugin: types.RepoConfig{
			Remote: "git@gitlab.loc:sdk_group/store-ue4-sdk.git",
			Name:   "Xsolla",
		},
		AutotestBranch: "qa/autotests",
		AutotestFilter: unreal.DefaultTestFilter,
		Engine: types.EngineConfig{
			WindowsRoot: unreal.DefaultWindowsRoot,
			MacRoot:     unreal.DefaultMacRoot,
		},
		TempFolders:   append([]string(nil), pipeline.DefaultTempFolders...),
		StateDir:      DefaultStateDir,
		Notifications: types.NotificationConfig{BeepOnFailure: true},
	}
}

// Loader reads configuration with viper
type Loader struct {
	v *viper.Viper
}

// NewLoader creates a Loader with defaults and UEPIPE_* environment
// overrides registered
func NewLoader() *Loader {
	v := viper.New()
	setDefaults(v, Defaults())

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	return &Loader{v: v}
}

func setDefaults(v *viper.Viper, d types.PipelineConfig) {
	v.SetDefault("demoProject.remote", d.DemoProject.Remote)
	v.SetDefault("demoProject.branch", d.DemoProject.Branch)
	v.SetDefault("demoProject.name", d.DemoProject.Name)
	v.SetDefault("plugin.remote", d.Plugin.Remote)
	v.SetDefault("plugin.branch", d.Plugin.Branch)
	v.SetDefault("plugin.name", d.Plugin.Name)
	v.SetDefault("autotestBranch", d.AutotestBranch)
	v.SetDefault("autotestFilter", d.AutotestFilter)
	v.SetDefault("engine.windowsRoot", d.Engine.WindowsRoot)
	v.SetDefault("engine.macRoot", d.Engine.MacRoot)
	v.SetDefault("engine.useRegistry", d.Engine.UseRegistry)
	v.SetDefault("tempFolders", d.TempFolders)
	v.SetDefault("monitorArtifacts", d.MonitorArtifacts)
	v.SetDefault("stateDir", d.StateDir)
	v.SetDefault("logFile", d.LogFile)
	v.SetDefault("notifications.enabled", d.Notifications.Enabled)
	v.SetDefault("notifications.beepOnSuccess", d.Notifications.BeepOnSuccess)
	v.SetDefault("notifications.beepOnFailure", d.Notifications.BeepOnFailure)
}

// Load reads configFile, or searches root and the home directory for
// uepipe.{yaml,yml,json} when configFile is empty. A missing file is not an
// error. Relative stateDir and logFile are resolved against root.
func (l *Loader) Load(configFile, root string) (*types.PipelineConfig, error) {
	if configFile != "" {
		l.v.SetConfigFile(configFile)
	} else {
		l.v.SetConfigName(ConfigName)
		l.v.AddConfigPath(root)
		if home, err := os.UserHomeDir(); err == nil {
			l.v.AddConfigPath(home)
		}
	}

	if err := l.v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var cfg types.PipelineConfig
	if err := l.v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}

	cfg.StateDir = resolve(root, cfg.StateDir)
	cfg.LogFile = resolve(root, cfg.LogFile)
	return &cfg, nil
}

// ConfigFileUsed returns the file read by Load, if any
func (l *Loader) ConfigFileUsed() string {
	return l.v.ConfigFileUsed()
}

func resolve(root, path string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(root, path)
}

// WriteDefault writes the default configuration as YAML. An existing file is
// only replaced when force is set.
func WriteDefault(path string, force bool) error {
	if _, err := os.Stat(path); err == nil && !force {
		return fmt.Errorf("%s already exists (use --force to overwrite)", path)
	}

	data, err := yaml.Marshal(Defaults())
	if err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}
