package pipeline

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/uepipe/uepipe/pkg/logger"
	"github.com/uepipe/uepipe/pkg/patch"
	"github.com/uepipe/uepipe/pkg/process"
	"github.com/uepipe/uepipe/pkg/repo"
	"github.com/uepipe/uepipe/pkg/types"
	"github.com/uepipe/uepipe/pkg/unreal"
	"github.com/uepipe/uepipe/pkg/watch"
)

const (
	// WorkDirName is the demo project checkout inside the working directory
	WorkDirName = "_WORK_"
	// BuildsDirName receives archived builds inside the working directory
	BuildsDirName = "Builds"
	// PluginDirName is the plugin checkout inside the demo project's Plugins
	PluginDirName = "XsollaSdk"
)

// Deps are the external boundaries shared by the pipeline builders
type Deps struct {
	Runner process.Runner
	Cloner repo.Cloner
	Logger logger.Logger
}

// BuildDemoOptions are the positional build-demo arguments plus config
type BuildDemoOptions struct {
	WorkingDir      string
	PluginBranch    string
	EngineVersion   types.EngineVersion
	Platform        types.Platform
	PlatformBrowser string
	Config          types.PipelineConfig
}

// DemoLayout is the directory layout derived from the working directory
type DemoLayout struct {
	Project   unreal.Project
	SourceDir string
	ConfigDir string
	PluginDir string
	BuildDir  string
}

// Layout derives the checkout and output paths
func (o BuildDemoOptions) Layout() DemoLayout {
	projectDir := filepath.Join(o.WorkingDir, WorkDirName)
	return DemoLayout{
		Project:   unreal.Project{Dir: projectDir, Name: o.Config.DemoProject.Name},
		SourceDir: filepath.Join(projectDir, "Source"),
		ConfigDir: filepath.Join(projectDir, "Config"),
		PluginDir: filepath.Join(projectDir, "Plugins", PluginDirName),
		BuildDir:  filepath.Join(o.WorkingDir, BuildsDirName),
	}
}

// BuildDemo assembles the demo build: check out the demo project and the
// plugin, pin both to the engine version, apply project settings and
// package the project for the target platform.
func BuildDemo(opts BuildDemoOptions, deps Deps) (*Pipeline, error) {
	if _, err := unreal.Lookup(opts.EngineVersion); err != nil {
		return nil, err
	}
	for _, spec := range opts.Config.Patches {
		if err := spec.Validate(); err != nil {
			return nil, err
		}
	}

	cfg := opts.Config
	layout := opts.Layout()
	locator := unreal.NewLocator(cfg.Engine)
	driver := unreal.NewDriver(deps.Runner, deps.Logger.WithStep("build"))

	p := New("build-demo", deps.Logger)

	p.Add("clone-demo", func(ctx context.Context) error {
		return deps.Cloner.Clone(ctx, cfg.DemoProject.Remote, layout.Project.Dir, cfg.DemoProject.Branch)
	})
	p.Add("clone-plugin", func(ctx context.Context) error {
		return deps.Cloner.Clone(ctx, cfg.Plugin.Remote, layout.PluginDir, opts.PluginBranch)
	})
	p.Add("patch-uproject", func(ctx context.Context) error {
		return unreal.ChangeEngineVersionForDemoProject(layout.Project, opts.EngineVersion)
	})
	p.Add("patch-target-files", func(ctx context.Context) error {
		files, err := unreal.UpdateTargetFiles(layout.SourceDir, opts.EngineVersion)
		if err != nil {
			return err
		}
		deps.Logger.Debug(fmt.Sprintf("Patched %d target files", len(files)))
		return nil
	})
	p.Add("patch-default-engine-ini", func(ctx context.Context) error {
		return unreal.UpdateDefaultEngineIni(layout.ConfigDir, opts.EngineVersion)
	})
	p.Add("patch-uplugin", func(ctx context.Context) error {
		return unreal.ChangeEngineVersionForPlugin(layout.PluginDir, cfg.Plugin.Name, opts.EngineVersion)
	})
	p.Add("browser-settings", func(ctx context.Context) error {
		return unreal.ChangeBrowserSettings(layout.Project.Dir, opts.PlatformBrowser)
	})
	if len(cfg.Patches) > 0 {
		p.Add("extra-patches", func(ctx context.Context) error {
			for _, spec := range cfg.Patches {
				if err := patch.Apply(spec, layout.Project.Dir); err != nil {
					return err
				}
			}
			return nil
		})
	}
	p.Add("build", func(ctx context.Context) error {
		uat := locator.AutomationToolPath(opts.EngineVersion)
		build := func(ctx context.Context) error {
			return driver.BuildCookRun(ctx, uat, layout.Project, opts.Platform, layout.BuildDir)
		}
		if !cfg.MonitorArtifacts {
			return build(ctx)
		}

		monitor, err := watch.NewArtifactMonitor(layout.BuildDir, deps.Logger.WithStep("artifacts"))
		if err != nil {
			return err
		}
		defer monitor.Close()
		return watch.Observe(ctx, monitor, deps.Logger.WithStep("artifacts"), build)
	})

	return p, nil
}
