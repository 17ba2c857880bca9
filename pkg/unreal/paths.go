package unreal

import (
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/uepipe/uepipe/pkg/types"
	"github.com/uepipe/uepipe/pkg/utils"
)

const (
	// DefaultWindowsRoot holds the UE_<version> installs on Windows runners
	DefaultWindowsRoot = `C:\EpicGames`
	// DefaultMacRoot holds the UE_<version> installs on macOS runners
	DefaultMacRoot = "/Volumes/External_SSD_256/EpicGames"
)

// ErrToolNotFound indicates an engine binary is missing from an install
var ErrToolNotFound = errors.New("engine tool not found")

// Locator resolves per-version engine installs on build machines
type Locator struct {
	WindowsRoot string
	MacRoot     string
	UseRegistry bool
	Host        types.HostOS

	// lookup finds a registered install directory; nil disables it
	lookup func(types.EngineVersion) (string, bool)
}

// NewLocator creates a Locator for the current host from configuration
func NewLocator(cfg types.EngineConfig) *Locator {
	l := &Locator{
		WindowsRoot: cfg.WindowsRoot,
		MacRoot:     cfg.MacRoot,
		UseRegistry: cfg.UseRegistry,
		Host:        types.CurrentHost(),
	}
	if l.WindowsRoot == "" {
		l.WindowsRoot = DefaultWindowsRoot
	}
	if l.MacRoot == "" {
		l.MacRoot = DefaultMacRoot
	}
	if l.UseRegistry {
		l.lookup = lookupInstallDir
	}
	return l
}

// AutomationToolPath returns the UAT location for v on host using the
// default engine roots
func AutomationToolPath(v types.EngineVersion, host types.HostOS) string {
	l := &Locator{WindowsRoot: DefaultWindowsRoot, MacRoot: DefaultMacRoot, Host: host}
	return l.AutomationToolPath(v)
}

// AutomationToolPath returns the UAT location for v. macOS installs use the
// RunUAT.sh wrapper, everything else the AutomationTool executable.
func (l *Locator) AutomationToolPath(v types.EngineVersion) string {
	if l.Host == types.HostMacOS {
		return path.Join(l.MacRoot, "UE_"+string(v), "Engine", "Build", "BatchFiles", "RunUAT.sh")
	}
	return windowsJoin(l.windowsEngineDir(v),
		"Engine", "Binaries", "DotNET", "AutomationTool", "AutomationTool.exe")
}

func (l *Locator) windowsEngineDir(v types.EngineVersion) string {
	if l.lookup != nil {
		if dir, ok := l.lookup(v); ok {
			return dir
		}
	}
	return windowsJoin(l.WindowsRoot, "UE_"+string(v))
}

// windowsJoin builds backslash paths independent of the host running the
// binary, so Windows layouts can be rendered and tested anywhere
func windowsJoin(elem ...string) string {
	parts := make([]string, 0, len(elem))
	for i, e := range elem {
		if i > 0 {
			e = strings.TrimLeft(e, `\/`)
		}
		if i < len(elem)-1 {
			e = strings.TrimRight(e, `\/`)
		}
		if e != "" {
			parts = append(parts, e)
		}
	}
	return strings.Join(parts, `\`)
}

// Install is an engine installation directory given on the command line
type Install struct {
	Root string
}

// AutomationTool locates UAT in the install. UE5 nests it in its own folder.
func (i Install) AutomationTool() (string, error) {
	return i.locate("Unreal Automation Tool",
		filepath.Join("Engine", "Binaries", "DotNET", "AutomationTool", "AutomationTool.exe"),
		filepath.Join("Engine", "Binaries", "DotNET", "AutomationTool.exe"),
	)
}

// BuildTool locates UnrealBuildTool in the install
func (i Install) BuildTool() (string, error) {
	return i.locate("Unreal Build Tool",
		filepath.Join("Engine", "Binaries", "DotNET", "UnrealBuildTool", "UnrealBuildTool.exe"),
		filepath.Join("Engine", "Binaries", "DotNET", "UnrealBuildTool.exe"),
	)
}

// Editor locates the editor binary, UnrealEditor.exe or UE4Editor.exe
func (i Install) Editor() (string, error) {
	return i.locate("Unreal Engine Editor",
		filepath.Join("Engine", "Binaries", "Win64", "UnrealEditor.exe"),
		filepath.Join("Engine", "Binaries", "Win64", "UE4Editor.exe"),
	)
}

// locate returns the first candidate that exists. The error names the last
// candidate since that is the layout older engines use.
func (i Install) locate(what string, candidates ...string) (string, error) {
	var tried string
	for _, c := range candidates {
		tried = filepath.Join(i.Root, c)
		if utils.FileExists(tried) {
			return tried, nil
		}
	}
	return "", fmt.Errorf("%w: Failed to locate %s at %s", ErrToolNotFound, what, tried)
}

// CustomBatchScriptDir returns %HOMEDRIVE%%HOMEPATH%\.ue4, creating it if
// needed. Outside Windows it falls back to the user's home directory.
func CustomBatchScriptDir() (string, error) {
	home := os.Getenv("HOMEDRIVE") + os.Getenv("HOMEPATH")
	if home == "" {
		var err error
		if home, err = os.UserHomeDir(); err != nil {
			return "", fmt.Errorf("failed to resolve home directory: %w", err)
		}
	}
	dir := filepath.Join(home, ".ue4")
	if err := utils.EnsureDirectory(dir); err != nil {
		return "", err
	}
	return dir, nil
}

// GenerateScriptName is looked up in the custom batch script directory when
// UE4_GENERATE_SCRIPT is unset
const GenerateScriptName = "GenerateProjectFiles.bat"

// GenerationScript returns the project files generation script from
// UE4_GENERATE_SCRIPT, falling back to GenerateProjectFiles.bat in the
// custom batch script directory. Empty when neither is available.
func GenerationScript() string {
	if script := os.Getenv("UE4_GENERATE_SCRIPT"); script != "" {
		return script
	}
	dir, err := CustomBatchScriptDir()
	if err != nil {
		return ""
	}
	if script := filepath.Join(dir, GenerateScriptName); utils.FileExists(script) {
		return script
	}
	return ""
}
