// Package state persists pipeline run reports between invocations
package state

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/uepipe/uepipe/pkg/logger"
	"github.com/uepipe/uepipe/pkg/types"
	"github.com/uepipe/uepipe/pkg/utils"
)

// LastRunFile is the report of the most recent run inside the state dir
const LastRunFile = "last-run.json"

// ErrNoReport is returned when no run has been recorded yet
var ErrNoReport = errors.New("no run report found")

// ReportStore reads and writes run reports as JSON files
type ReportStore struct {
	stateDir string
	logger   logger.Logger
	mu       sync.Mutex
}

// NewReportStore creates a store rooted at stateDir
func NewReportStore(stateDir string, log logger.Logger) *ReportStore {
	return &ReportStore{
		stateDir: stateDir,
		logger:   log,
	}
}

// Dir returns the state directory
func (s *ReportStore) Dir() string {
	return s.stateDir
}

// Save writes report as last-run.json and keeps a copy under runs/
func (s *ReportStore) Save(report *types.RunReport) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal run report: %w", err)
	}

	runsDir := filepath.Join(s.stateDir, "runs")
	if err := utils.EnsureDirectory(runsDir); err != nil {
		return fmt.Errorf("failed to create state directory: %w", err)
	}

	if report.RunID != "" {
		if err := utils.WriteFileAtomic(filepath.Join(runsDir, report.RunID+".json"), data); err != nil {
			return fmt.Errorf("failed to write run report: %w", err)
		}
	}
	if err := utils.WriteFileAtomic(filepath.Join(s.stateDir, LastRunFile), data); err != nil {
		return fmt.Errorf("failed to write run report: %w", err)
	}

	s.logger.Debug("Run report saved",
		logger.WithField("run_id", report.RunID),
		logger.WithField("path", filepath.Join(s.stateDir, LastRunFile)))
	return nil
}

// LoadLast reads the most recent report
func (s *ReportStore) LoadLast() (*types.RunReport, error) {
	return s.load(filepath.Join(s.stateDir, LastRunFile))
}

// Load reads the report of a specific run
func (s *ReportStore) Load(runID string) (*types.RunReport, error) {
	return s.load(filepath.Join(s.stateDir, "runs", runID+".json"))
}

// List returns the recorded run IDs, oldest report file first
func (s *ReportStore) List() ([]string, error) {
	entries, err := os.ReadDir(filepath.Join(s.stateDir, "runs"))
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to list run reports: %w", err)
	}

	type run struct {
		id    string
		mtime int64
	}
	runs := make([]run, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != ".json" {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		runs = append(runs, run{id: e.Name()[:len(e.Name())-len(".json")], mtime: info.ModTime().UnixNano()})
	}
	sort.SliceStable(runs, func(i, j int) bool { return runs[i].mtime < runs[j].mtime })

	ids := make([]string, len(runs))
	for i, r := range runs {
		ids[i] = r.id
	}
	return ids, nil
}

func (s *ReportStore) load(path string) (*types.RunReport, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%w in %s", ErrNoReport, s.stateDir)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read run report: %w", err)
	}

	var report types.RunReport
	if err := json.Unmarshal(data, &report); err != nil {
		return nil, fmt.Errorf("failed to parse run report %s: %w", path, err)
	}
	return &report, nil
}
