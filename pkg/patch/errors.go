// Package patch edits single keys or lines in project configuration files
package patch

import "errors"

// Sentinel errors returned by the patch operations. The target file is left
// untouched whenever one of these is returned.
var (
	// ErrSectionNotFound indicates the INI section does not exist
	ErrSectionNotFound = errors.New("section not found")

	// ErrOptionNotFound indicates the INI option does not exist in its section
	ErrOptionNotFound = errors.New("option not found")

	// ErrLineOutOfRange indicates a line number outside [1, line count]
	ErrLineOutOfRange = errors.New("line number out of range")

	// ErrNoMatch indicates no line matched the marker pattern
	ErrNoMatch = errors.New("no line matches pattern")

	// ErrNotObject indicates the JSON document is not an object
	ErrNotObject = errors.New("json document is not an object")
)
