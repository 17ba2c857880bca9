//go:build integration

package integration_test

import (
	"bytes"
	"context"
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/uepipe/uepipe/pkg/cli"
	"github.com/uepipe/uepipe/pkg/logger"
	"github.com/uepipe/uepipe/pkg/pipeline"
	"github.com/uepipe/uepipe/pkg/process"
	"github.com/uepipe/uepipe/pkg/repo"
	"github.com/uepipe/uepipe/pkg/state"
	"github.com/uepipe/uepipe/pkg/types"
	"github.com/uepipe/uepipe/pkg/unreal"
)

func requireShell(t *testing.T) {
	t.Helper()
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}
	if runtime.GOOS == "windows" {
		t.Skip("fake engine tools are shell scripts")
	}
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git not found in PATH")
	}
}

func git(t *testing.T, dir string, args ...string) {
	t.Helper()
	cmd := exec.Command("git", append([]string{"-c", "user.name=uepipe", "-c", "user.email=uepipe@example.com"}, args...)...)
	cmd.Dir = dir
	out, err := cmd.CombinedOutput()
	require.NoError(t, err, string(out))
}

// pluginRepository creates a repository with a develop and a qa/autotests
// branch and returns its file:// URL
func pluginRepository(t *testing.T) string {
	t.Helper()
	dir := filepath.Join(t.TempDir(), "plugin")
	require.NoError(t, os.MkdirAll(dir, 0755))

	git(t, dir, "init", "-q")
	git(t, dir, "checkout", "-q", "-b", "develop")
	require.NoError(t, os.WriteFile(filepath.Join(dir, "Xsolla.uplugin"), []byte("{}\n"), 0644))
	git(t, dir, "add", ".")
	git(t, dir, "commit", "-q", "-m", "plugin")

	git(t, dir, "checkout", "-q", "-b", "qa/autotests")
	require.NoError(t, os.WriteFile(filepath.Join(dir, "Autotests.txt"), []byte("tests\n"), 0644))
	git(t, dir, "add", ".")
	git(t, dir, "commit", "-q", "-m", "autotests")

	return "file://" + dir
}

// fakeTool writes an executable script that records its invocation in
// calls and exits with code
func fakeTool(t *testing.T, path, name, calls string, code int, extra string) {
	t.Helper()
	script := "#!/bin/sh\n" +
		"echo \"" + name + " $*\" >> \"" + calls + "\"\n" +
		extra +
		"exit " + strconv.Itoa(code) + "\n"
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(script), 0755))
}

const archiveScript = `for a in "$@"; do
  case "$a" in
    -archivedirectory=*) d="${a#-archivedirectory=}"; mkdir -p "$d/Windows"; echo build > "$d/Windows/Demo.exe" ;;
  esac
done
`

func ciOptions(t *testing.T, remote string) (pipeline.CIOptions, string) {
	t.Helper()
	root := t.TempDir()
	engine := filepath.Join(root, "UE_5.4")
	demo := filepath.Join(root, "Demo")
	calls := filepath.Join(root, "calls.log")

	dotnet := filepath.Join(engine, "Engine", "Binaries", "DotNET")
	fakeTool(t, filepath.Join(dotnet, "AutomationTool", "AutomationTool.exe"), "AutomationTool", calls, 0, archiveScript)
	fakeTool(t, filepath.Join(dotnet, "UnrealBuildTool", "UnrealBuildTool.exe"), "UnrealBuildTool", calls, 0, "")
	fakeTool(t, filepath.Join(engine, "Engine", "Binaries", "Win64", "UnrealEditor.exe"), "UnrealEditor", calls, 0, "")
	fakeTool(t, filepath.Join(root, "scripts", "GenerateProjectFiles.sh"), "GenerateProjectFiles", calls, 0, "")
	fakeTool(t, filepath.Join(root, "inspectcode"), "InspectCode", calls, 0, "")

	require.NoError(t, os.MkdirAll(filepath.Join(demo, "Intermediate", "Build"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(demo, "Demo.uproject"), []byte("{}\n"), 0644))

	return pipeline.CIOptions{
		EnginePath:      engine,
		DemoPath:        demo,
		DemoName:        "Demo",
		Branch:          "develop",
		OutputDir:       filepath.Join(root, "out"),
		InspectTool:     filepath.Join(root, "inspectcode"),
		InspectArtifact: filepath.Join(root, "artifacts"),
		TestArtifact:    filepath.Join(root, "artifacts"),
		GenerateScript:  filepath.Join(root, "scripts", "GenerateProjectFiles.sh"),
		Host:            types.HostWindows,
		Config: types.PipelineConfig{
			Plugin:           types.RepoConfig{Remote: remote, Name: "Xsolla"},
			DemoProject:      types.RepoConfig{Remote: remote, Name: "Demo"},
			AutotestBranch:   "qa/autotests",
			AutotestFilter:   unreal.DefaultTestFilter,
			TempFolders:      pipeline.DefaultTempFolders,
			MonitorArtifacts: true,
		},
	}, calls
}

func toolsCalled(t *testing.T, calls string) []string {
	t.Helper()
	data, err := os.ReadFile(calls)
	require.NoError(t, err)

	var tools []string
	for _, line := range strings.Split(strings.TrimSpace(string(data)), "\n") {
		tool, _, _ := strings.Cut(line, " ")
		tools = append(tools, tool)
	}
	return tools
}

// TestCIEndToEnd runs the whole ci pipeline with real git and fake engine tools
func TestCIEndToEnd(t *testing.T) {
	requireShell(t)

	opts, calls := ciOptions(t, pluginRepository(t))

	var out bytes.Buffer
	log := logger.CreateLoggerWithOutput("", "debug", &out)
	var toolLog bytes.Buffer
	runner := process.NewExecRunner(log)
	runner.Stdout, runner.Stderr = &out, &out
	runner.LogFile = &toolLog

	store := state.NewReportStore(filepath.Join(t.TempDir(), "state"), log)
	p := pipeline.CI(opts, pipeline.Deps{
		Runner: runner,
		Cloner: repo.NewPreparer(runner, log.WithStep("git")),
		Logger: log,
	}).WithReportStore(store)

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	report, err := p.Run(ctx)
	require.NoError(t, err, out.String())
	assert.True(t, report.Succeeded)

	assert.Equal(t, []string{
		"AutomationTool", "GenerateProjectFiles", "InspectCode",
		"UnrealBuildTool", "UnrealBuildTool", "UnrealEditor",
	}, toolsCalled(t, calls))

	pluginDir := filepath.Join(opts.DemoPath, "Plugins", "Xsolla")
	assert.FileExists(t, filepath.Join(pluginDir, "Xsolla.uplugin"))
	assert.FileExists(t, filepath.Join(pluginDir, "Autotests.txt"))
	assert.NoDirExists(t, filepath.Join(opts.DemoPath, "Intermediate"))

	assert.FileExists(t, filepath.Join(opts.OutputDir, "Packages", "Windows", "Demo.exe"))
	assert.DirExists(t, filepath.Join(opts.InspectArtifact, "Inspect"))
	assert.DirExists(t, filepath.Join(opts.TestArtifact, "Autotests"))
	assert.Contains(t, toolLog.String(), "=== AutomationTool started")

	last, err := store.LoadLast()
	require.NoError(t, err)
	assert.Equal(t, report.RunID, last.RunID)
	assert.Len(t, last.Steps, len(p.Steps()))
}

// TestBuildFailureStopsRun checks that a failing engine tool aborts the run
// and surfaces the exit code
func TestBuildFailureStopsRun(t *testing.T) {
	requireShell(t)

	opts, calls := ciOptions(t, pluginRepository(t))
	fakeTool(t, filepath.Join(opts.EnginePath, "Engine", "Binaries", "DotNET", "AutomationTool", "AutomationTool.exe"),
		"AutomationTool", calls, 3, "")

	log := logger.Discard()
	runner := process.NewExecRunner(log)
	runner.Stdout, runner.Stderr = nil, nil

	report, err := pipeline.CI(opts, pipeline.Deps{
		Runner: runner,
		Cloner: repo.NewPreparer(runner, log),
		Logger: log,
	}).Run(context.Background())
	require.Error(t, err)

	var exitErr *process.ExitError
	require.True(t, errors.As(err, &exitErr))
	assert.Equal(t, 3, exitErr.Code)
	assert.Equal(t, "package", report.FailedStep().Name)
	assert.Equal(t, []string{"AutomationTool"}, toolsCalled(t, calls))
}

// TestCloneMissingBranch exercises the git failure path
func TestCloneMissingBranch(t *testing.T) {
	requireShell(t)

	remote := pluginRepository(t)
	dest := filepath.Join(t.TempDir(), "checkout")

	log := logger.Discard()
	runner := process.NewExecRunner(log)
	runner.Stdout, runner.Stderr = nil, nil

	err := repo.NewPreparer(runner, log).Clone(context.Background(), remote, dest, "no-such-branch")
	require.Error(t, err)
	assert.True(t, errors.Is(err, repo.ErrCloneFailed))
}

// TestStatusAfterFailedRun checks that the CLI records a failed run and
// reports it from a later invocation
func TestStatusAfterFailedRun(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}
	if runtime.GOOS == "windows" {
		t.Skip("ci is supported on windows")
	}

	root := t.TempDir()
	t.Setenv("HOME", root)
	demo := filepath.Join(root, "Demo")
	require.NoError(t, os.MkdirAll(demo, 0755))

	var out bytes.Buffer
	err := cli.NewCLIWithOutput(cli.NewConfig(), &out, &out).Execute([]string{
		"--root", root, "ci",
		"-u", filepath.Join(root, "UE"), "-d", demo, "-n", "Demo", "-b", "develop",
		"-o", filepath.Join(root, "out"), "-i", filepath.Join(root, "inspectcode"),
		"-a", filepath.Join(root, "artifacts"), "-t", filepath.Join(root, "artifacts"),
	})
	require.Error(t, err)

	out.Reset()
	require.NoError(t, cli.NewCLIWithOutput(cli.NewConfig(), &out, &out).Execute([]string{"--root", root, "status"}))
	assert.Contains(t, out.String(), "Pipeline: ci")
	assert.Contains(t, out.String(), "failed")
	assert.Contains(t, out.String(), "is not supported")

	logs, err := os.ReadDir(filepath.Join(root, ".uepipe", "logs"))
	require.NoError(t, err)
	require.Len(t, logs, 1)
	runID := strings.TrimSuffix(logs[0].Name(), ".log")
	assert.True(t, strings.HasPrefix(runID, "run_"), runID)
	assert.Contains(t, out.String(), "Run:      "+runID)
}
