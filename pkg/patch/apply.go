package patch

import (
	"fmt"
	"path/filepath"

	"github.com/uepipe/uepipe/pkg/types"
)

// Apply runs a declarative patch. Relative file paths are resolved against
// baseDir.
func Apply(spec types.PatchSpec, baseDir string) error {
	if err := spec.Validate(); err != nil {
		return err
	}

	path := spec.File
	if !filepath.IsAbs(path) {
		path = filepath.Join(baseDir, path)
	}

	switch spec.Kind {
	case types.PatchKindJSON:
		return UpdateJSONFile(path, spec.Key, spec.Value)
	case types.PatchKindINI:
		return UpdateINIFile(path, spec.Section, spec.Option, spec.Value)
	case types.PatchKindLine:
		return UpdateLineInFile(path, spec.Line, spec.Value)
	case types.PatchKindMarker:
		_, err := ReplaceMatchingLine(path, spec.Match, spec.Value)
		return err
	}
	return fmt.Errorf("unsupported patch kind %q", spec.Kind)
}
