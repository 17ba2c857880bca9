package unreal

import (
	"fmt"
	"path/filepath"
	"regexp"

	"github.com/uepipe/uepipe/pkg/patch"
	"github.com/uepipe/uepipe/pkg/types"
	"github.com/uepipe/uepipe/pkg/utils"
)

const (
	// AndroidSDKSection holds the Android toolchain paths in DefaultEngine.ini
	AndroidSDKSection = "/Script/AndroidPlatformEditor.AndroidSDKSettings"
	// BrowserSection holds the plugin's project settings
	BrowserSection = "/Script/XsollaSettings.XsollaProjectSettings"
	// BrowserOption toggles the platform browser for payments
	BrowserOption = "UsePlatformBrowser"
)

var (
	buildSettingsLine = regexp.MustCompile(`^\s*DefaultBuildSettings\s*=`)
	includeOrderLine  = regexp.MustCompile(`^\s*IncludeOrderVersion\s*=[^;]*;\s*$`)
)

// ChangeEngineVersionForDemoProject sets EngineAssociation in the project's
// .uproject
func ChangeEngineVersionForDemoProject(project Project, v types.EngineVersion) error {
	return patch.UpdateJSONFile(project.UProject(), "EngineAssociation", string(v))
}

// ChangeEngineVersionForPlugin sets EngineVersion in <pluginDir>/<name>.uplugin
func ChangeEngineVersionForPlugin(pluginDir, pluginName string, v types.EngineVersion) error {
	path := filepath.Join(pluginDir, pluginName+".uplugin")
	return patch.UpdateJSONFile(path, "EngineVersion", string(v))
}

// UpdateTargetFiles rewrites the DefaultBuildSettings line of every
// *.Target.cs below sourceDir with the engine's build settings. The literal
// also sets IncludeOrderVersion, so a separate line doing so is dropped.
// Returns the patched files.
func UpdateTargetFiles(sourceDir string, v types.EngineVersion) ([]string, error) {
	settings, err := Lookup(v)
	if err != nil {
		return nil, err
	}

	files, err := utils.FindFiles(sourceDir, ".Target.cs")
	if err != nil {
		return nil, fmt.Errorf("failed to list target files in %s: %w", sourceDir, err)
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no .Target.cs files found in %s", sourceDir)
	}

	for _, path := range files {
		f, err := patch.LoadTextFile(path)
		if err != nil {
			return nil, err
		}
		n, err := f.ReplaceFirst(buildSettingsLine, settings.BuildSettings)
		if err != nil {
			return nil, err
		}
		f.DeleteMatching(includeOrderLine, n)
		if err := f.Save(); err != nil {
			return nil, err
		}
	}
	return files, nil
}

// UpdateDefaultEngineIni writes the engine's Android toolchain settings into
// <configDir>/DefaultEngine.ini
func UpdateDefaultEngineIni(configDir string, v types.EngineVersion) error {
	settings, err := Lookup(v)
	if err != nil {
		return err
	}

	values := make(map[string]string, 4)
	order := make([]string, 0, 4)
	for _, literal := range settings.AndroidSettings() {
		key, value, err := SplitSetting(literal)
		if err != nil {
			return err
		}
		values[key] = value
		order = append(order, key)
	}

	return patch.UpsertINIValues(filepath.Join(configDir, "DefaultEngine.ini"), AndroidSDKSection, values, order)
}

// ChangeBrowserSettings sets UsePlatformBrowser in the project's
// DefaultEngine.ini. The option must already exist.
func ChangeBrowserSettings(projectDir, flag string) error {
	path := filepath.Join(projectDir, "Config", "DefaultEngine.ini")
	return patch.UpdateINIFile(path, BrowserSection, BrowserOption, flag)
}
