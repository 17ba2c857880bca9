// Package types provides core types and configurations for uepipe
package types

import (
	"fmt"
	"runtime"
	"strings"
	"time"
)

// EngineVersion is an Unreal Engine release such as "5.4"
type EngineVersion string

// Platform represents Unreal target platforms
type Platform string

const (
	PlatformWin64   Platform = "Win64"
	PlatformAndroid Platform = "Android"
	PlatformMac     Platform = "Mac"
	PlatformIOS     Platform = "IOS"
	PlatformLinux   Platform = "Linux"
)

// KnownPlatforms lists the platforms whose spelling is normalised
var KnownPlatforms = []Platform{
	PlatformWin64,
	PlatformAndroid,
	PlatformMac,
	PlatformIOS,
	PlatformLinux,
}

// ParsePlatform matches a known platform name case-insensitively. Other
// names (LinuxArm64, TVOS, ...) are passed through unchanged so any target
// AutomationTool supports can be built.
func ParsePlatform(s string) (Platform, error) {
	if s == "" || strings.ContainsAny(s, " \t=") {
		return "", fmt.Errorf("invalid platform: %q", s)
	}
	for _, p := range KnownPlatforms {
		if strings.EqualFold(string(p), s) {
			return p, nil
		}
	}
	return Platform(s), nil
}

// IsKnown reports whether p is one of KnownPlatforms
func (p Platform) IsKnown() bool {
	for _, known := range KnownPlatforms {
		if p == known {
			return true
		}
	}
	return false
}

// HostOS identifies the machine running the pipeline
type HostOS string

const (
	HostWindows HostOS = "windows"
	HostMacOS   HostOS = "darwin"
	HostLinux   HostOS = "linux"
)

// CurrentHost returns the host OS of the running binary
func CurrentHost() HostOS {
	return HostOS(runtime.GOOS)
}

// StepStatus represents the state of a pipeline step
type StepStatus string

const (
	StepStatusPending   StepStatus = "pending"
	StepStatusRunning   StepStatus = "running"
	StepStatusSucceeded StepStatus = "succeeded"
	StepStatusFailed    StepStatus = "failed"
	StepStatusSkipped   StepStatus = "skipped"
)

// StepResult records the outcome of a single step
type StepResult struct {
	Name     string        `json:"name" yaml:"name"`
	Status   StepStatus    `json:"status" yaml:"status"`
	Duration time.Duration `json:"duration" yaml:"duration"`
	Error    string        `json:"error,omitempty" yaml:"error,omitempty"`
}

// RunReport is the persisted summary of a pipeline run
type RunReport struct {
	RunID      string       `json:"runId" yaml:"runId"`
	Pipeline   string       `json:"pipeline" yaml:"pipeline"`
	StartedAt  time.Time    `json:"startedAt" yaml:"startedAt"`
	FinishedAt time.Time    `json:"finishedAt" yaml:"finishedAt"`
	Succeeded  bool         `json:"succeeded" yaml:"succeeded"`
	Steps      []StepResult `json:"steps" yaml:"steps"`
}

// FailedStep returns the first failed step, if any
func (r *RunReport) FailedStep() *StepResult {
	for i := range r.Steps {
		if r.Steps[i].Status == StepStatusFailed {
			return &r.Steps[i]
		}
	}
	return nil
}

// PatchKind selects a patch operation
type PatchKind string

const (
	PatchKindJSON   PatchKind = "json"
	PatchKindINI    PatchKind = "ini"
	PatchKindLine   PatchKind = "line"
	PatchKindMarker PatchKind = "marker"
)

// PatchSpec describes a declarative file patch. Paths are relative to the
// demo project directory unless absolute.
type PatchSpec struct {
	Kind    PatchKind `json:"kind" yaml:"kind" mapstructure:"kind"`
	File    string    `json:"file" yaml:"file" mapstructure:"file"`
	Key     string    `json:"key,omitempty" yaml:"key,omitempty" mapstructure:"key"`
	Section string    `json:"section,omitempty" yaml:"section,omitempty" mapstructure:"section"`
	Option  string    `json:"option,omitempty" yaml:"option,omitempty" mapstructure:"option"`
	Line    int       `json:"line,omitempty" yaml:"line,omitempty" mapstructure:"line"`
	Match   string    `json:"match,omitempty" yaml:"match,omitempty" mapstructure:"match"`
	Value   string    `json:"value" yaml:"value" mapstructure:"value"`
}

// Validate checks that the fields required by the kind are set
func (p PatchSpec) Validate() error {
	if p.File == "" {
		return fmt.Errorf("patch: file is required")
	}
	switch p.Kind {
	case PatchKindJSON:
		if p.Key == "" {
			return fmt.Errorf("patch %s: key is required", p.File)
		}
	case PatchKindINI:
		if p.Section == "" || p.Option == "" {
			return fmt.Errorf("patch %s: section and option are required", p.File)
		}
	case PatchKindLine:
		if p.Line < 1 {
			return fmt.Errorf("patch %s: line must be >= 1", p.File)
		}
	case PatchKindMarker:
		if p.Match == "" {
			return fmt.Errorf("patch %s: match is required", p.File)
		}
	default:
		return fmt.Errorf("patch %s: unknown kind %q", p.File, p.Kind)
	}
	return nil
}

// RepoConfig is a git remote pinned to a branch
type RepoConfig struct {
	Remote string `json:"remote" yaml:"remote" mapstructure:"remote"`
	Branch string `json:"branch,omitempty" yaml:"branch,omitempty" mapstructure:"branch"`
	Name   string `json:"name" yaml:"name" mapstructure:"name"`
}

// EngineConfig locates engine installs on build machines
type EngineConfig struct {
	WindowsRoot string `json:"windowsRoot" yaml:"windowsRoot" mapstructure:"windowsRoot"`
	MacRoot     string `json:"macRoot" yaml:"macRoot" mapstructure:"macRoot"`
	UseRegistry bool   `json:"useRegistry" yaml:"useRegistry" mapstructure:"useRegistry"`
}

// NotificationConfig controls desktop notifications
type NotificationConfig struct {
	Enabled      bool   `json:"enabled" yaml:"enabled" mapstructure:"enabled"`
	// BeepOnSuccess and BeepOnFailure play the system beep with the notification
	BeepOnSuccess bool `json:"beepOnSuccess" yaml:"beepOnSuccess" mapstructure:"beepOnSuccess"`
	BeepOnFailure bool `json:"beepOnFailure" yaml:"beepOnFailure" mapstructure:"beepOnFailure"`
}

// PipelineConfig is the file/env configuration shared by all commands
type PipelineConfig struct {
	DemoProject      RepoConfig         `json:"demoProject" yaml:"demoProject" mapstructure:"demoProject"`
	Plugin           RepoConfig         `json:"plugin" yaml:"plugin" mapstructure:"plugin"`
	AutotestBranch   string             `json:"autotestBranch" yaml:"autotestBranch" mapstructure:"autotestBranch"`
	AutotestFilter   string             `json:"autotestFilter" yaml:"autotestFilter" mapstructure:"autotestFilter"`
	Engine           EngineConfig       `json:"engine" yaml:"engine" mapstructure:"engine"`
	TempFolders      []string           `json:"tempFolders" yaml:"tempFolders" mapstructure:"tempFolders"`
	Patches          []PatchSpec        `json:"patches,omitempty" yaml:"patches,omitempty" mapstructure:"patches"`
	MonitorArtifacts bool               `json:"monitorArtifacts" yaml:"monitorArtifacts" mapstructure:"monitorArtifacts"`
	StateDir         string             `json:"stateDir" yaml:"stateDir" mapstructure:"stateDir"`
	LogFile          string             `json:"logFile,omitempty" yaml:"logFile,omitempty" mapstructure:"logFile"`
	Notifications    NotificationConfig `json:"notifications" yaml:"notifications" mapstructure:"notifications"`
}
