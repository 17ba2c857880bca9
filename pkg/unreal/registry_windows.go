//go:build windows

package unreal

import (
	"strings"

	"golang.org/x/sys/windows/registry"

	"github.com/uepipe/uepipe/pkg/types"
)

const (
	launcherKey = `SOFTWARE\EpicGames\Unreal Engine\`
	buildsKey   = `Software\Epic Games\Unreal Engine\Builds`
)

// lookupInstallDir checks launcher installs first, then source builds
// registered by name under the current user.
func lookupInstallDir(v types.EngineVersion) (string, bool) {
	if k, err := registry.OpenKey(registry.LOCAL_MACHINE, launcherKey+string(v), registry.QUERY_VALUE); err == nil {
		defer k.Close()
		if dir, _, err := k.GetStringValue("InstalledDirectory"); err == nil && dir != "" {
			return dir, true
		}
	}

	k, err := registry.OpenKey(registry.CURRENT_USER, buildsKey, registry.QUERY_VALUE)
	if err != nil {
		return "", false
	}
	defer k.Close()

	names, err := k.ReadValueNames(0)
	if err != nil {
		return "", false
	}
	for _, name := range names {
		if name != string(v) && !strings.HasSuffix(name, ":"+string(v)) {
			continue
		}
		if dir, _, err := k.GetStringValue(name); err == nil && dir != "" {
			return strings.TrimRight(dir, `\/`), true
		}
	}
	return "", false
}
