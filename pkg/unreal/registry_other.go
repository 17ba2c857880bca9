//go:build !windows

package unreal

import "github.com/uepipe/uepipe/pkg/types"

func lookupInstallDir(types.EngineVersion) (string, bool) {
	return "", false
}
