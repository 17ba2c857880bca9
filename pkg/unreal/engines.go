// Package unreal drives Unreal Engine tooling and the project files it reads
package unreal

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/uepipe/uepipe/pkg/types"
)

// ErrUnknownEngineVersion is returned for versions missing from the table
var ErrUnknownEngineVersion = errors.New("unknown engine version")

// EngineSettings holds the literal config lines pinned for one engine
// version. Each Android field is a complete "Key=Value" line.
type EngineSettings struct {
	Version       types.EngineVersion `json:"version" yaml:"version"`
	BuildSettings string              `json:"buildSettings" yaml:"buildSettings"`
	NDKPath       string              `json:"ndkPath" yaml:"ndkPath"`
	JavaPath      string              `json:"javaPath" yaml:"javaPath"`
	SDKAPILevel   string              `json:"sdkApiLevel" yaml:"sdkApiLevel"`
	NDKAPILevel   string              `json:"ndkApiLevel" yaml:"ndkApiLevel"`
}

const (
	includeOrderLatest = " IncludeOrderVersion = EngineIncludeOrderVersion.Latest;"
	ndk25              = `NDKPath=(Path="C:/Users/Runner/AppData/Local/Android/Sdk/ndk/25.1.8937393")`
	ndk27              = `NDKPath=(Path="C:/Users/Runner/AppData/Local/Android/Sdk/ndk/27.2.12479018")`
	jdk8               = `JavaPath=(Path="C:/Program Files/Java/jdk1.8.0_181")`
	jdk17              = `JavaPath=(Path="C:/Program Files/Java/jdk-17")`
)

var engineTable = map[types.EngineVersion]EngineSettings{
	"5.2": {
		BuildSettings: "DefaultBuildSettings = BuildSettingsVersion.V2;" + includeOrderLatest,
		NDKPath:       ndk25,
		JavaPath:      jdk8,
		SDKAPILevel:   "SDKAPILevel=android-31",
		NDKAPILevel:   "NDKAPILevel=android-21",
	},
	"5.3": {
		BuildSettings: "DefaultBuildSettings = BuildSettingsVersion.V4;" + includeOrderLatest,
		NDKPath:       ndk25,
		JavaPath:      jdk17,
		SDKAPILevel:   "SDKAPILevel=android-31",
		NDKAPILevel:   "NDKAPILevel=android-28",
	},
	"5.4": {
		BuildSettings: "DefaultBuildSettings = BuildSettingsVersion.V5;" + includeOrderLatest,
		NDKPath:       ndk25,
		JavaPath:      jdk17,
		SDKAPILevel:   "SDKAPILevel=android-33",
		NDKAPILevel:   "NDKAPILevel=android-28",
	},
	"5.5": {
		BuildSettings: "DefaultBuildSettings = BuildSettingsVersion.V5;" + includeOrderLatest,
		NDKPath:       ndk25,
		JavaPath:      jdk17,
		SDKAPILevel:   "SDKAPILevel=android-34",
		NDKAPILevel:   "NDKAPILevel=android-28",
	},
	"5.6": {
		BuildSettings: "DefaultBuildSettings = BuildSettingsVersion.V5;" + includeOrderLatest,
		NDKPath:       ndk27,
		JavaPath:      jdk17,
		SDKAPILevel:   "SDKAPILevel=android-34",
		NDKAPILevel:   "NDKAPILevel=android-28",
	},
}

// Lookup returns the settings for an exact engine version key
func Lookup(v types.EngineVersion) (EngineSettings, error) {
	s, ok := engineTable[v]
	if !ok {
		return EngineSettings{}, fmt.Errorf("%w: %q (supported: %s)",
			ErrUnknownEngineVersion, v, strings.Join(versionStrings(), ", "))
	}
	s.Version = v
	return s, nil
}

// SupportedVersions lists the table keys in ascending order
func SupportedVersions() []types.EngineVersion {
	out := make([]types.EngineVersion, 0, len(engineTable))
	for v := range engineTable {
		out = append(out, v)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// AllSettings returns every table row in version order
func AllSettings() []EngineSettings {
	versions := SupportedVersions()
	out := make([]EngineSettings, 0, len(versions))
	for _, v := range versions {
		s, _ := Lookup(v)
		out = append(out, s)
	}
	return out
}

func versionStrings() []string {
	versions := SupportedVersions()
	out := make([]string, len(versions))
	for i, v := range versions {
		out[i] = string(v)
	}
	return out
}

// AndroidSettings returns the four Android lines in the order they are
// written to DefaultEngine.ini
func (s EngineSettings) AndroidSettings() []string {
	return []string{s.NDKPath, s.JavaPath, s.SDKAPILevel, s.NDKAPILevel}
}

// SplitSetting splits a "Key=Value" literal at its first '='
func SplitSetting(literal string) (key, value string, err error) {
	key, value, ok := strings.Cut(literal, "=")
	key = strings.TrimSpace(key)
	if !ok || key == "" {
		return "", "", fmt.Errorf("malformed setting %q", literal)
	}
	return key, value, nil
}
