package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/uepipe/uepipe/pkg/state"
	"github.com/uepipe/uepipe/pkg/types"
	"github.com/uepipe/uepipe/pkg/unreal"
	"github.com/uepipe/uepipe/pkg/utils"
	"github.com/uepipe/uepipe/pkg/validation"
)

func (c *CLI) newEnginesCmd() *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "engines",
		Short: "List supported engine versions and their Android toolchain",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runEngines(format)
		},
	}
	cmd.Flags().StringVarP(&format, "format", "f", "table", "output format (table, json, yaml)")

	return cmd
}

func (c *CLI) runEngines(format string) error {
	settings := unreal.AllSettings()

	switch format {
	case "json":
		enc := json.NewEncoder(c.output)
		enc.SetIndent("", "  ")
		return enc.Encode(settings)
	case "yaml":
		enc := yaml.NewEncoder(c.output)
		defer enc.Close()
		return enc.Encode(settings)
	case "table", "":
	default:
		return fmt.Errorf("unknown format %q", format)
	}

	w := tabwriter.NewWriter(c.output, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "VERSION\tBUILD SETTINGS\tNDK\tJAVA\tSDK API\tNDK API")
	fmt.Fprintln(w, "-------\t--------------\t---\t----\t-------\t-------")
	for _, s := range settings {
		_, sdk, _ := unreal.SplitSetting(s.SDKAPILevel)
		_, ndk, _ := unreal.SplitSetting(s.NDKAPILevel)
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
			s.Version, s.BuildSettings, s.NDKPath, s.JavaPath, sdk, ndk)
	}
	return w.Flush()
}

func (c *CLI) newStatusCmd() *cobra.Command {
	var runID string
	var list bool

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show the outcome of the last pipeline run",
		Long:  `Display the step results of the last run, or of the run given with --run.`,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if list {
				return c.runList()
			}
			return c.runStatus(runID)
		},
	}
	cmd.Flags().StringVar(&runID, "run", "", "run ID to show instead of the last run")
	cmd.Flags().BoolVarP(&list, "list", "l", false, "list recorded run IDs, oldest first")

	return cmd
}

func (c *CLI) runList() error {
	ids, err := state.NewReportStore(c.pipeline.StateDir, c.logger).List()
	if err != nil {
		return err
	}
	if len(ids) == 0 {
		c.printInfo("No pipeline runs recorded yet")
		return nil
	}
	for _, id := range ids {
		fmt.Fprintln(c.output, id)
	}
	return nil
}

func (c *CLI) runStatus(runID string) error {
	store := state.NewReportStore(c.pipeline.StateDir, c.logger)

	var report *types.RunReport
	var err error
	if runID != "" {
		report, err = store.Load(runID)
	} else {
		report, err = store.LoadLast()
	}
	if errors.Is(err, state.ErrNoReport) {
		c.printInfo("No pipeline runs recorded yet")
		return nil
	}
	if err != nil {
		return err
	}

	result := color.GreenString("succeeded")
	if !report.Succeeded {
		result = color.RedString("failed")
	}
	fmt.Fprintf(c.output, "Run:      %s\n", report.RunID)
	fmt.Fprintf(c.output, "Pipeline: %s\n", report.Pipeline)
	fmt.Fprintf(c.output, "Started:  %s\n", report.StartedAt.Format("2006-01-02 15:04:05"))
	fmt.Fprintf(c.output, "Result:   %s in %s\n\n", result, report.FinishedAt.Sub(report.StartedAt).Round(time.Second))

	w := tabwriter.NewWriter(c.output, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "STEP\tSTATUS\tDURATION\tERROR")
	fmt.Fprintln(w, "----\t------\t--------\t-----")
	for _, step := range report.Steps {
		status := string(step.Status)
		switch step.Status {
		case types.StepStatusSucceeded:
			status = color.GreenString(status)
		case types.StepStatusFailed:
			status = color.RedString(status)
		case types.StepStatusSkipped:
			status = color.YellowString(status)
		}

		duration := "-"
		if step.Duration > 0 {
			duration = step.Duration.Round(time.Millisecond).String()
		}
		errText := step.Error
		if errText == "" {
			errText = "-"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", step.Name, status, duration, errText)
	}
	return w.Flush()
}

func (c *CLI) newValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Validate the configuration",
		Long:  `Check the configuration file and environment overrides without running anything.`,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			result := validation.ValidateConfig(*c.pipeline)
			for _, w := range result.Warnings() {
				c.printWarning(w.Error())
			}
			if err := result.Err(); err != nil {
				for _, e := range result.Errors {
					if e.Level == validation.ValidationLevelError {
						c.printError(e.Error())
					}
				}
				return fmt.Errorf("configuration is invalid")
			}
			c.printSuccess("Configuration is valid")
			return nil
		},
	}
}

func (c *CLI) newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version number of uepipe",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(c.output, "uepipe v%s\n", c.config.Version)
		},
	}
}

func (c *CLI) newCloneCmd() *cobra.Command {
	var branch string

	cmd := &cobra.Command{
		Use:   "clone <url> <dest>",
		Short: "Shallow-clone a repository, replacing the destination",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			dest := utils.AbsPath(args[1])
			if err := c.repoCloner(c.processRunner()).Clone(cmd.Context(), args[0], dest, branch); err != nil {
				return err
			}
			c.printSuccess(fmt.Sprintf("Cloned %s into %s", args[0], dest))
			return nil
		},
	}
	cmd.Flags().StringVarP(&branch, "branch", "b", "", "branch to check out")

	return cmd
}

func (c *CLI) printSuccess(message string) {
	fmt.Fprintf(c.output, "%s %s\n", color.GreenString("[uepipe]"), message)
}

func (c *CLI) printError(message string) {
	fmt.Fprintf(c.errorOut, "%s %s\n", color.RedString("[uepipe]"), message)
}

func (c *CLI) printInfo(message string) {
	fmt.Fprintf(c.output, "%s %s\n", color.CyanString("[uepipe]"), message)
}

func (c *CLI) printWarning(message string) {
	fmt.Fprintf(c.output, "%s %s\n", color.YellowString("[uepipe]"), message)
}
