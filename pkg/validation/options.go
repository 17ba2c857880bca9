// Package validation checks pipeline options and configuration before any
// side effect happens
package validation

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/uepipe/uepipe/pkg/pipeline"
	"github.com/uepipe/uepipe/pkg/types"
	"github.com/uepipe/uepipe/pkg/unreal"
	"github.com/uepipe/uepipe/pkg/utils"
)

// ValidationLevel represents error severity
type ValidationLevel string

const (
	ValidationLevelError   ValidationLevel = "error"
	ValidationLevelWarning ValidationLevel = "warning"
)

// ValidationError is one finding about a field
type ValidationError struct {
	Subject string
	Field   string
	Message string
	Level   ValidationLevel
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("[%s] %s.%s: %s", e.Level, e.Subject, e.Field, e.Message)
}

// ValidationResult collects findings; Valid is false once an error-level
// finding is added
type ValidationResult struct {
	Valid  bool
	Errors []ValidationError
}

// NewResult creates an empty, valid result
func NewResult() *ValidationResult {
	return &ValidationResult{Valid: true}
}

// AddError adds a finding
func (r *ValidationResult) AddError(subject, field, message string, level ValidationLevel) {
	r.Errors = append(r.Errors, ValidationError{
		Subject: subject,
		Field:   field,
		Message: message,
		Level:   level,
	})
	if level == ValidationLevelError {
		r.Valid = false
	}
}

// Merge appends the findings of other
func (r *ValidationResult) Merge(other *ValidationResult) {
	r.Errors = append(r.Errors, other.Errors...)
	if !other.Valid {
		r.Valid = false
	}
}

// Warnings returns the warning-level findings
func (r *ValidationResult) Warnings() []ValidationError {
	var out []ValidationError
	for _, e := range r.Errors {
		if e.Level == ValidationLevelWarning {
			out = append(out, e)
		}
	}
	return out
}

// Err joins the error-level findings, or returns nil
func (r *ValidationResult) Err() error {
	var errs []error
	for i := range r.Errors {
		if r.Errors[i].Level == ValidationLevelError {
			errs = append(errs, &r.Errors[i])
		}
	}
	return errors.Join(errs...)
}

// ValidateBuildDemo checks the build-demo arguments
func ValidateBuildDemo(opts pipeline.BuildDemoOptions) *ValidationResult {
	const subject = "build-demo"
	result := NewResult()

	if opts.WorkingDir == "" {
		result.AddError(subject, "working_dir", "working directory is required", ValidationLevelError)
	}
	if opts.PluginBranch == "" {
		result.AddError(subject, "plugin_branch", "plugin branch is required", ValidationLevelError)
	}
	if _, err := unreal.Lookup(opts.EngineVersion); err != nil {
		result.AddError(subject, "engine_version", err.Error(), ValidationLevelError)
	}
	if platform, err := types.ParsePlatform(string(opts.Platform)); err != nil {
		result.AddError(subject, "platform", err.Error(), ValidationLevelError)
	} else if !platform.IsKnown() {
		result.AddError(subject, "platform",
			fmt.Sprintf("%s is passed to AutomationTool as is", platform), ValidationLevelWarning)
	}
	if !isUnrealBool(opts.PlatformBrowser) {
		result.AddError(subject, "is_platform_browser",
			fmt.Sprintf("%q is not True or False", opts.PlatformBrowser), ValidationLevelWarning)
	}

	result.Merge(ValidateConfig(opts.Config))
	return result
}

// ValidateCI checks the ci flags. Missing paths are only warnings; the
// pipeline's own host and demo checks fail the run.
func ValidateCI(opts pipeline.CIOptions) *ValidationResult {
	const subject = "ci"
	result := NewResult()

	if !utils.DirectoryExists(opts.DemoPath) {
		result.AddError(subject, "demo_base",
			fmt.Sprintf("demo project %s does not exist", opts.DemoPath), ValidationLevelWarning)
	}
	if strings.ContainsAny(opts.DemoName, `/\ `) || strings.HasSuffix(opts.DemoName, ".uproject") {
		result.AddError(subject, "demo_name", "demo name must be the bare project name", ValidationLevelError)
	}
	if !utils.DirectoryExists(opts.EnginePath) {
		result.AddError(subject, "ue_base",
			fmt.Sprintf("engine directory %s does not exist", opts.EnginePath), ValidationLevelWarning)
	}
	if !utils.FileExists(opts.InspectTool) {
		result.AddError(subject, "inspect_tool",
			fmt.Sprintf("inspection tool %s does not exist", opts.InspectTool), ValidationLevelWarning)
	}
	if opts.Host != "" && opts.Host != types.HostWindows {
		result.AddError(subject, "host", fmt.Sprintf("%s is not supported", opts.Host), ValidationLevelError)
	}

	cfg := ValidateConfig(opts.Config)
	if opts.Config.AutotestBranch == "" {
		cfg.AddError("config", "autotestBranch", "autotest branch is required", ValidationLevelError)
	}
	result.Merge(cfg)
	return result
}

// ValidateConfig checks the shared configuration
func ValidateConfig(cfg types.PipelineConfig) *ValidationResult {
	const subject = "config"
	result := NewResult()

	checkRepo := func(field string, repo types.RepoConfig) {
		if repo.Remote == "" {
			result.AddError(subject, field+".remote", "remote is required", ValidationLevelError)
		}
		if repo.Name == "" {
			result.AddError(subject, field+".name", "name is required", ValidationLevelError)
		}
	}
	checkRepo("demoProject", cfg.DemoProject)
	checkRepo("plugin", cfg.Plugin)

	for _, folder := range cfg.TempFolders {
		if folder == "" || folder == "." || strings.Contains(folder, "..") || filepath.IsAbs(folder) {
			result.AddError(subject, "tempFolders",
				fmt.Sprintf("%q must be a folder inside the project", folder), ValidationLevelError)
		}
	}
	for i, spec := range cfg.Patches {
		if err := spec.Validate(); err != nil {
			result.AddError(subject, fmt.Sprintf("patches[%d]", i), err.Error(), ValidationLevelError)
		}
	}
	if cfg.StateDir == "" {
		result.AddError(subject, "stateDir", "no state directory, run reports will not be kept", ValidationLevelWarning)
	}
	return result
}

func isUnrealBool(s string) bool {
	switch strings.ToLower(s) {
	case "true", "false":
		return true
	}
	return false
}
