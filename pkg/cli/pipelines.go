package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	pcontext "github.com/uepipe/uepipe/pkg/context"
	"github.com/uepipe/uepipe/pkg/logger"
	"github.com/uepipe/uepipe/pkg/notifier"
	"github.com/uepipe/uepipe/pkg/pipeline"
	"github.com/uepipe/uepipe/pkg/process"
	"github.com/uepipe/uepipe/pkg/state"
	"github.com/uepipe/uepipe/pkg/types"
	"github.com/uepipe/uepipe/pkg/utils"
	"github.com/uepipe/uepipe/pkg/validation"
)

// buildDemoArgs is the positional argument count; the message counts the
// program name too
const buildDemoArgs = 5

func (c *CLI) newBuildDemoCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "build-demo <working_dir> <plugin_branch> <engine_version> <platform> <is_platform_browser>",
		Short: "Clone, patch and package the demo project",
		Long: `Clone the demo project into <working_dir>/_WORK_ and the plugin branch into
its Plugins folder, pin both to <engine_version>, apply the Android toolchain
and browser settings, then package for <platform> into <working_dir>/Builds.`,
		Example: "  uepipe build-demo /ci/work develop 5.4 Android False",
		Args:    cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) < buildDemoArgs {
				return fmt.Errorf("Arguments count error. Expected: %d, actual: %d", buildDemoArgs+1, len(args)+1)
			}

			platform, err := types.ParsePlatform(args[3])
			if err != nil {
				return err
			}
			opts := pipeline.BuildDemoOptions{
				WorkingDir:      utils.AbsPath(args[0]),
				PluginBranch:    args[1],
				EngineVersion:   types.EngineVersion(args[2]),
				Platform:        platform,
				PlatformBrowser: args[4],
				Config:          *c.pipeline,
			}

			if err := c.checkValidation(validation.ValidateBuildDemo(opts)); err != nil {
				return err
			}

			return c.runPipeline(cmd.Context(), func(deps pipeline.Deps) (*pipeline.Pipeline, error) {
				return pipeline.BuildDemo(opts, deps)
			})
		},
	}
}

type ciFlags struct {
	enginePath      string
	demoPath        string
	demoName        string
	branch          string
	outputDir       string
	inspectTool     string
	inspectArtifact string
	testArtifact    string
}

// required returns the first missing flag message
func (f *ciFlags) required() error {
	checks := []struct {
		value   string
		message string
	}{
		{f.enginePath, "Error: Provide a valid path to the UE installation directory"},
		{f.demoPath, "Error: Provide a valid path to the demo project directory"},
		{f.demoName, "Error: Provide a valid demo project name"},
		{f.branch, "Error: Provide a valid branch name"},
		{f.outputDir, "Error: Provide a valid path to the directory where build artifacts will be stored"},
		{f.inspectTool, "Error: Provide a valid path to code inspection tool"},
		{f.inspectArtifact, "Error: Provide a valid path to code inspection artifact"},
		{f.testArtifact, "Error: Provide a valid path to autotests results artifact"},
	}
	for _, check := range checks {
		if check.value == "" {
			return errors.New(check.message)
		}
	}
	return nil
}

func (c *CLI) newCICmd() *cobra.Command {
	flags := &ciFlags{}

	cmd := &cobra.Command{
		Use:   "ci",
		Short: "Package, inspect and autotest the demo project with a plugin branch",
		Long: `Run the plugin CI on a Windows build machine: clean the demo project, check
out the plugin branch, package for Win64, run code inspection, then rebuild the
editor with the autotest branch and run the automation tests.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := flags.required(); err != nil {
				return err
			}

			opts := pipeline.CIOptions{
				EnginePath:      utils.AbsPath(flags.enginePath),
				DemoPath:        utils.AbsPath(flags.demoPath),
				DemoName:        flags.demoName,
				Branch:          flags.branch,
				OutputDir:       utils.AbsPath(flags.outputDir),
				InspectTool:     utils.AbsPath(flags.inspectTool),
				InspectArtifact: utils.AbsPath(flags.inspectArtifact),
				TestArtifact:    utils.AbsPath(flags.testArtifact),
				Config:          *c.pipeline,
			}

			if err := c.checkValidation(validation.ValidateCI(opts)); err != nil {
				return err
			}
			return c.runPipeline(cmd.Context(), func(deps pipeline.Deps) (*pipeline.Pipeline, error) {
				return pipeline.CI(opts, deps), nil
			})
		},
	}

	f := cmd.Flags()
	f.StringVarP(&flags.enginePath, "ue_base", "u", "", "path to the UE installation directory")
	f.StringVarP(&flags.demoPath, "demo_base", "d", "", "path to the demo project directory")
	f.StringVarP(&flags.demoName, "demo_name", "n", "", "demo project name")
	f.StringVarP(&flags.branch, "branch", "b", "", "UE plugin repo branch")
	f.StringVarP(&flags.outputDir, "build_output", "o", "", "path to build artifacts directory")
	f.StringVarP(&flags.inspectTool, "inspect_tool", "i", "", "path to code inspection tool")
	f.StringVarP(&flags.inspectArtifact, "inspect_artifact", "a", "", "path to code inspection artifact")
	f.StringVarP(&flags.testArtifact, "test_artifact", "t", "", "path to autotests artifact")

	return cmd
}

func (c *CLI) deps(runner process.Runner) pipeline.Deps {
	return pipeline.Deps{
		Runner: runner,
		Cloner: c.repoCloner(runner),
		Logger: c.logger,
	}
}

func (c *CLI) checkValidation(result *validation.ValidationResult) error {
	for _, w := range result.Warnings() {
		c.logger.Warn(w.Message, logger.WithField("field", w.Field))
	}
	return result.Err()
}

// runPipeline builds a pipeline and runs it with signal cancellation, a
// per-run tool log under the state directory, run report persistence and
// notifications
func (c *CLI) runPipeline(ctx context.Context, build func(pipeline.Deps) (*pipeline.Pipeline, error)) error {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	runID := pcontext.GenerateRunID()
	ctx = pcontext.WithRunID(ctx, runID)

	runner := c.processRunner()
	if execRunner, ok := runner.(*process.ExecRunner); ok && c.pipeline.StateDir != "" {
		logFile, err := openRunLog(c.pipeline.StateDir, runID)
		if err != nil {
			c.logger.Warn("Failed to create run log", logger.WithField("error", err))
		} else {
			defer logFile.Close()
			execRunner.LogFile = logFile
			c.logger.Info("Tool output is logged", logger.WithField("file", logFile.Name()))
		}
	}

	p, err := build(c.deps(runner))
	if err != nil {
		return err
	}
	if c.pipeline.StateDir != "" {
		p.WithReportStore(state.NewReportStore(c.pipeline.StateDir, c.logger))
	}
	p.WithNotifier(notifier.New(c.pipeline.Notifications, c.logger))

	manager := process.NewManager(c.logger)
	manager.RegisterShutdownHandler(cancel)
	manager.Start(ctx)
	defer manager.Stop()

	_, err = p.Run(ctx)
	return err
}

func openRunLog(stateDir, runID string) (*os.File, error) {
	dir := filepath.Join(stateDir, "logs")
	if err := utils.EnsureDirectory(dir); err != nil {
		return nil, err
	}
	return os.OpenFile(filepath.Join(dir, runID+".log"), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
}
