// Package cli provides the uepipe command-line interface
package cli

import (
	"context"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/uepipe/uepipe/pkg/config"
	"github.com/uepipe/uepipe/pkg/logger"
	"github.com/uepipe/uepipe/pkg/process"
	"github.com/uepipe/uepipe/pkg/repo"
	"github.com/uepipe/uepipe/pkg/types"
	"github.com/uepipe/uepipe/pkg/utils"
)

// CLI wires the commands to their dependencies without package globals
type CLI struct {
	config   *Config
	rootCmd  *cobra.Command
	logger   logger.Logger
	pipeline *types.PipelineConfig
	output   io.Writer
	errorOut io.Writer

	// runner and cloner are created from the logger unless injected
	runner process.Runner
	cloner repo.Cloner
}

// NewCLI creates a CLI instance with the given configuration
func NewCLI(cfg *Config) *CLI {
	if cfg == nil {
		cfg = NewConfig()
	}

	c := &CLI{
		config:   cfg,
		output:   os.Stdout,
		errorOut: os.Stderr,
	}
	c.setupCommands()
	return c
}

// NewCLIWithOutput creates a CLI with custom output writers (for testing)
func NewCLIWithOutput(cfg *Config, output, errorOut io.Writer) *CLI {
	c := NewCLI(cfg)
	c.output = output
	c.errorOut = errorOut
	c.rootCmd.SetOut(output)
	c.rootCmd.SetErr(errorOut)
	return c
}

// WithRunner replaces the process runner used by pipeline commands
func (c *CLI) WithRunner(r process.Runner) *CLI {
	c.runner = r
	return c
}

// WithCloner replaces the repository cloner used by pipeline commands
func (c *CLI) WithCloner(cl repo.Cloner) *CLI {
	c.cloner = cl
	return c
}

// Execute runs the CLI with the given arguments
func (c *CLI) Execute(args []string) error {
	return c.ExecuteContext(context.Background(), args)
}

// ExecuteContext runs the CLI with context support
func (c *CLI) ExecuteContext(ctx context.Context, args []string) error {
	c.rootCmd.SetArgs(args)
	return c.rootCmd.ExecuteContext(ctx)
}

func (c *CLI) setupCommands() {
	c.rootCmd = &cobra.Command{
		Use:   "uepipe",
		Short: "Unreal Engine plugin build pipeline",
		Long: `uepipe checks out an Unreal Engine demo project and plugin, pins them to an
engine version, patches project settings and drives AutomationTool,
UnrealBuildTool and the Editor to package, inspect and test the result.`,

		PersistentPreRunE: c.initializeConfig,
		SilenceUsage:      true,
		SilenceErrors:     true,
		Run: func(cmd *cobra.Command, args []string) {
			cmd.Help()
		},
	}

	flags := c.rootCmd.PersistentFlags()
	flags.StringVar(&c.config.ConfigFile, "config", "", "config file (default: uepipe.yaml in --root or $HOME)")
	flags.StringVar(&c.config.ProjectRoot, "root", ".", "directory holding uepipe.yaml and the state directory")
	flags.StringVarP(&c.config.Verbosity, "verbosity", "v", "info", "log level (debug, info, warn, error)")

	c.rootCmd.Version = c.config.Version
	c.rootCmd.SetVersionTemplate("uepipe v{{.Version}}\n")

	c.rootCmd.AddCommand(c.newBuildDemoCmd())
	c.rootCmd.AddCommand(c.newCICmd())
	c.rootCmd.AddCommand(c.newEnginesCmd())
	c.rootCmd.AddCommand(c.newPatchCmd())
	c.rootCmd.AddCommand(c.newCloneCmd())
	c.rootCmd.AddCommand(c.newStatusCmd())
	c.rootCmd.AddCommand(c.newInitCmd())
	c.rootCmd.AddCommand(c.newValidateCmd())
	c.rootCmd.AddCommand(c.newVersionCmd())
}

func (c *CLI) initializeConfig(cmd *cobra.Command, args []string) error {
	root := utils.AbsPath(c.config.ProjectRoot)

	loader := config.NewLoader()
	cfg, err := loader.Load(c.config.ConfigFile, root)
	if err != nil {
		return err
	}
	c.pipeline = cfg

	if c.output == io.Writer(os.Stdout) {
		c.logger = logger.CreateLogger(cfg.LogFile, c.config.Verbosity)
	} else {
		c.logger = logger.CreateLoggerWithOutput(cfg.LogFile, c.config.Verbosity, c.output)
	}

	if used := loader.ConfigFileUsed(); used != "" {
		c.logger.Debug("Using config file", logger.WithField("file", used))
	}
	return nil
}

func (c *CLI) processRunner() process.Runner {
	if c.runner != nil {
		return c.runner
	}
	r := process.NewExecRunner(c.logger)
	if c.output != io.Writer(os.Stdout) {
		r.Stdout = c.output
		r.Stderr = c.errorOut
	}
	return r
}

func (c *CLI) repoCloner(runner process.Runner) repo.Cloner {
	if c.cloner != nil {
		return c.cloner
	}
	return repo.NewPreparer(runner, c.logger.WithStep("git"))
}

// ExecuteWithVersion runs the CLI on os.Args
func ExecuteWithVersion(version string) error {
	cfg := NewConfig()
	cfg.Version = version
	return NewCLI(cfg).Execute(os.Args[1:])
}
