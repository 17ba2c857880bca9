package pipeline

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/uepipe/uepipe/pkg/logger"
	"github.com/uepipe/uepipe/pkg/types"
	"github.com/uepipe/uepipe/pkg/unreal"
	"github.com/uepipe/uepipe/pkg/utils"
	"github.com/uepipe/uepipe/pkg/watch"
)

// DefaultTempFolders are the generated folders removed from the demo project
// before each plugin checkout
var DefaultTempFolders = []string{"Binaries", "Build", "Intermediate", "DerivedDataCache", "Saved", "Plugins", ".vs"}

// CIOptions are the ci command flags. Paths are absolute.
type CIOptions struct {
	EnginePath      string
	DemoPath        string
	DemoName        string
	Branch          string
	OutputDir       string
	InspectTool     string
	InspectArtifact string
	TestArtifact    string
	// GenerateScript defaults to UE4_GENERATE_SCRIPT
	GenerateScript string
	// Host defaults to the running OS
	Host   types.HostOS
	Config types.PipelineConfig
}

// CI assembles the plugin CI run: package the demo project with the plugin
// branch, inspect its code, then rebuild the editor with the autotest
// branch and run the automation tests headless.
func CI(opts CIOptions, deps Deps) *Pipeline {
	cfg := opts.Config
	host := opts.Host
	if host == "" {
		host = types.CurrentHost()
	}
	script := opts.GenerateScript
	if script == "" {
		script = unreal.GenerationScript()
	}
	tempFolders := cfg.TempFolders
	if len(tempFolders) == 0 {
		tempFolders = DefaultTempFolders
	}

	install := unreal.Install{Root: opts.EnginePath}
	project := unreal.Project{Dir: opts.DemoPath, Name: opts.DemoName}
	pluginDir := filepath.Join(opts.DemoPath, "Plugins", cfg.Plugin.Name)
	driver := unreal.NewDriver(deps.Runner, deps.Logger.WithStep("engine"))

	var uat, ubt, editor string

	clean := func(ctx context.Context) error {
		return cleanTempFolders(opts.DemoPath, tempFolders, deps.Logger)
	}

	p := New("ci", deps.Logger)

	p.Add("check-host", func(ctx context.Context) error {
		if host != types.HostWindows {
			return fmt.Errorf("Error: %s is not supported", hostName(host))
		}
		return nil
	})
	p.Add("check-demo", func(ctx context.Context) error {
		if !utils.Exists(opts.DemoPath) {
			return fmt.Errorf("Error: Failed to locate demo project at %s", opts.DemoPath)
		}
		return nil
	})
	p.Add("clean-temp", clean)
	p.Add("clone-plugin", func(ctx context.Context) error {
		return deps.Cloner.Clone(ctx, cfg.Plugin.Remote, pluginDir, opts.Branch)
	})
	p.Add("locate-uat", func(ctx context.Context) (err error) {
		uat, err = install.AutomationTool()
		return err
	})
	p.Add("package", func(ctx context.Context) error {
		pkg := func(ctx context.Context) error {
			return driver.Package(ctx, uat, project, types.PlatformWin64, opts.OutputDir)
		}
		if !cfg.MonitorArtifacts {
			return pkg(ctx)
		}

		monitor, err := watch.NewArtifactMonitor(opts.OutputDir, deps.Logger.WithStep("artifacts"))
		if err != nil {
			return err
		}
		defer monitor.Close()
		return watch.Observe(ctx, monitor, deps.Logger.WithStep("artifacts"), pkg)
	})
	p.Add("generate-project-files", func(ctx context.Context) error {
		return driver.GenerateProjectFiles(ctx, script, project)
	})
	p.Add("inspect", func(ctx context.Context) error {
		return driver.Inspect(ctx, opts.InspectTool, project, opts.InspectArtifact)
	})
	p.Add("clean-temp-autotests", clean)
	p.Add("clone-plugin-autotests", func(ctx context.Context) error {
		return deps.Cloner.Clone(ctx, cfg.Plugin.Remote, pluginDir, cfg.AutotestBranch)
	})
	p.Add("locate-ubt", func(ctx context.Context) (err error) {
		ubt, err = install.BuildTool()
		return err
	})
	p.Add("query-targets", func(ctx context.Context) error {
		return driver.QueryTargets(ctx, ubt, project)
	})
	p.Add("build-editor", func(ctx context.Context) error {
		return driver.BuildEditor(ctx, ubt, project)
	})
	p.Add("locate-editor", func(ctx context.Context) (err error) {
		editor, err = install.Editor()
		return err
	})
	p.Add("autotests", func(ctx context.Context) error {
		return driver.RunAutomationTests(ctx, editor, project, cfg.AutotestFilter, opts.TestArtifact)
	})

	return p
}

func cleanTempFolders(projectDir string, folders []string, log logger.Logger) error {
	for _, folder := range folders {
		path := filepath.Join(projectDir, folder)
		if !utils.Exists(path) {
			continue
		}
		log.Info(fmt.Sprintf("Removing %s", path))
		if err := utils.RemoveReadOnly(path); err != nil {
			return fmt.Errorf("failed to remove %s: %w", path, err)
		}
	}
	return nil
}

func hostName(h types.HostOS) string {
	switch h {
	case types.HostMacOS:
		return "Darwin"
	case types.HostLinux:
		return "Linux"
	}
	return string(h)
}
