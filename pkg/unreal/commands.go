package unreal

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/uepipe/uepipe/pkg/logger"
	"github.com/uepipe/uepipe/pkg/process"
	"github.com/uepipe/uepipe/pkg/types"
	"github.com/uepipe/uepipe/pkg/utils"
)

// DefaultTestFilter is the automation test group run by RunAutomationTests
const DefaultTestFilter = "Xsolla"

// BuildError reports a BuildCookRun that exited with a nonzero code
type BuildError struct {
	Code int
	Err  error
}

func (e *BuildError) Error() string {
	return fmt.Sprintf("Failed to build project. Error code: %d", e.Code)
}

func (e *BuildError) Unwrap() error {
	return e.Err
}

// Project identifies a .uproject by directory and name
type Project struct {
	Dir  string
	Name string
}

// UProject returns the path of <Dir>/<Name>.uproject
func (p Project) UProject() string {
	return filepath.Join(p.Dir, p.Name+".uproject")
}

// Solution returns the path of <Dir>/<Name>.sln
func (p Project) Solution() string {
	return filepath.Join(p.Dir, p.Name+".sln")
}

// BuildCookRunCommand builds the packaging invocation used for demo builds
func BuildCookRunCommand(uat string, project Project, platform types.Platform, archiveDir string) process.Command {
	return process.Command{
		Tool: "AutomationTool",
		Path: uat,
		Args: []string{
			"BuildCookRun",
			"-platform=" + string(platform),
			"-project=" + project.UProject(),
			"-archivedirectory=" + archiveDir,
			"-cookflavor=Multi",
			"-nop4", "-cook", "-build", "-stage", "-prereqs", "-package", "-archive",
		},
	}
}

// PackageCommand builds the CI packaging invocation
func PackageCommand(uat string, project Project, platform types.Platform, archiveDir string) process.Command {
	return process.Command{
		Tool: "AutomationTool",
		Path: uat,
		Args: []string{
			"BuildCookRun",
			"-utf8output",
			"-platform=" + string(platform),
			"-project=" + project.UProject(),
			"-noP4", "-cook", "-build", "-stage", "-prereqs",
			"-archivedirectory=" + archiveDir,
			"-archive",
		},
	}
}

// QueryTargetsCommand writes Intermediate/TargetInfo.json for the project
func QueryTargetsCommand(ubt string, project Project) process.Command {
	return process.Command{
		Tool: "UnrealBuildTool",
		Path: ubt,
		Args: []string{
			"-Mode=QueryTargets",
			"-Project=" + project.UProject(),
			"-Output=" + filepath.Join(project.Dir, "Intermediate", "TargetInfo.json"),
		},
	}
}

// BuildEditorCommand compiles the Development Win64 editor target
func BuildEditorCommand(ubt string, project Project) process.Command {
	return process.Command{
		Tool: "UnrealBuildTool",
		Path: ubt,
		Args: []string{
			"Development",
			"Win64",
			"-TargetType=Editor",
			"-Progress",
			"-NoEngineChanges",
			"-Project=" + project.UProject(),
			"-NoHotReloadFromIDE",
		},
	}
}

// GenerateProjectFilesCommand runs the generation script from its own
// directory
func GenerateProjectFilesCommand(script string, project Project) process.Command {
	return process.Command{
		Tool: "GenerateProjectFiles",
		Path: script,
		Args: []string{project.UProject()},
		Dir:  filepath.Dir(script),
	}
}

// InspectCommand runs the code inspection tool against the solution
func InspectCommand(tool string, project Project, outputDir string) process.Command {
	return process.Command{
		Tool: "InspectCode",
		Path: tool,
		Args: []string{
			project.Solution(),
			"-o=" + filepath.Join(outputDir, "InspectResult.xml"),
			"--project=" + project.Name,
		},
	}
}

// AutomationTestsCommand runs an automation test group headless
func AutomationTestsCommand(editor string, project Project, filter, reportDir string) process.Command {
	return process.Command{
		Tool: "UnrealEditor",
		Path: editor,
		Args: []string{
			project.UProject(),
			"-ExecCmds=Automation RunTests " + filter,
			"-nullRHI",
			"-nopause",
			"-unattended",
			"-testexit=Automation Test Queue Empty",
			"-ReportOutputPath=" + reportDir,
		},
	}
}

// Driver runs engine tools through a process.Runner. Every nonzero exit is
// returned as an error.
type Driver struct {
	runner process.Runner
	logger logger.Logger
}

// NewDriver creates a Driver
func NewDriver(runner process.Runner, log logger.Logger) *Driver {
	return &Driver{runner: runner, logger: log}
}

// BuildCookRun packages the project for platform into archiveDir
func (d *Driver) BuildCookRun(ctx context.Context, uat string, project Project, platform types.Platform, archiveDir string) error {
	cmd := BuildCookRunCommand(uat, project, platform, archiveDir)
	d.logger.Info(fmt.Sprintf("Build command: %s", cmd.String()))

	if err := process.RunChecked(ctx, d.runner, cmd); err != nil {
		var exitErr *process.ExitError
		if errors.As(err, &exitErr) {
			buildErr := &BuildError{Code: exitErr.Code, Err: err}
			d.logger.Error(buildErr.Error())
			return buildErr
		}
		return err
	}
	d.logger.Success("Project built", logger.WithField("archive", archiveDir))
	return nil
}

// Package runs the CI variant of BuildCookRun into <outputDir>/Packages,
// which is recreated first
func (d *Driver) Package(ctx context.Context, uat string, project Project, platform types.Platform, outputDir string) error {
	packages := filepath.Join(outputDir, "Packages")
	if err := utils.ResetDirectory(packages); err != nil {
		return err
	}
	return d.run(ctx, PackageCommand(uat, project, platform, packages))
}

// QueryTargets refreshes the project's TargetInfo.json
func (d *Driver) QueryTargets(ctx context.Context, ubt string, project Project) error {
	return d.run(ctx, QueryTargetsCommand(ubt, project))
}

// BuildEditor compiles the editor target
func (d *Driver) BuildEditor(ctx context.Context, ubt string, project Project) error {
	return d.run(ctx, BuildEditorCommand(ubt, project))
}

// GenerateProjectFiles runs the IDE project generation script
func (d *Driver) GenerateProjectFiles(ctx context.Context, script string, project Project) error {
	if script == "" {
		return fmt.Errorf("project files generation script is not set (UE4_GENERATE_SCRIPT)")
	}
	return d.run(ctx, GenerateProjectFilesCommand(script, project))
}

// Inspect clears <artifactDir>/Inspect and runs the inspection tool into it
func (d *Driver) Inspect(ctx context.Context, tool string, project Project, artifactDir string) error {
	out := filepath.Join(artifactDir, "Inspect")
	if err := utils.ResetDirectory(out); err != nil {
		return err
	}
	return d.run(ctx, InspectCommand(tool, project, out))
}

// RunAutomationTests clears <artifactDir>/Autotests and runs the filtered
// automation tests with reports written there
func (d *Driver) RunAutomationTests(ctx context.Context, editor string, project Project, filter, artifactDir string) error {
	if filter == "" {
		filter = DefaultTestFilter
	}
	out := filepath.Join(artifactDir, "Autotests")
	if err := utils.ResetDirectory(out); err != nil {
		return err
	}
	return d.run(ctx, AutomationTestsCommand(editor, project, filter, out))
}

func (d *Driver) run(ctx context.Context, cmd process.Command) error {
	d.logger.Info(fmt.Sprintf("Running %s", cmd.Tool), logger.WithField("command", cmd.String()))
	if err := process.RunChecked(ctx, d.runner, cmd); err != nil {
		d.logger.Error(fmt.Sprintf("%s failed", cmd.Tool), logger.WithField("error", err))
		return err
	}
	d.logger.Success(fmt.Sprintf("%s finished", cmd.Tool))
	return nil
}
