package patch

import (
	"fmt"
	"os"
	"regexp"
	"strings"

	"github.com/uepipe/uepipe/pkg/utils"
)

// TextFile is a line-addressable view of a text file that preserves its
// line endings and trailing newline on save
type TextFile struct {
	path            string
	lines           []string
	eol             string
	trailingNewline bool
}

// LoadTextFile reads path into a TextFile
func LoadTextFile(path string) (*TextFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}

	content := string(data)
	eol := "\n"
	if strings.Contains(content, "\r\n") {
		eol = "\r\n"
	}

	tf := &TextFile{path: path, eol: eol}
	if content == "" {
		return tf, nil
	}

	tf.trailingNewline = strings.HasSuffix(content, "\n")
	content = strings.TrimSuffix(content, "\n")
	if eol == "\r\n" {
		content = strings.TrimSuffix(content, "\r")
	}
	tf.lines = strings.Split(content, eol)
	return tf, nil
}

// Len returns the number of lines
func (f *TextFile) Len() int {
	return len(f.lines)
}

// Line returns the 1-based line n
func (f *TextFile) Line(n int) (string, error) {
	if n < 1 || n > len(f.lines) {
		return "", fmt.Errorf("%w: %d (file has %d lines)", ErrLineOutOfRange, n, len(f.lines))
	}
	return f.lines[n-1], nil
}

// ReplaceLine replaces the 1-based line n with value
func (f *TextFile) ReplaceLine(n int, value string) error {
	if n < 1 || n > len(f.lines) {
		return fmt.Errorf("%w: %d (file has %d lines)", ErrLineOutOfRange, n, len(f.lines))
	}
	f.lines[n-1] = value
	return nil
}

// FindFirst returns the 1-based number of the first line matching re, or 0
func (f *TextFile) FindFirst(re *regexp.Regexp) int {
	for i, line := range f.lines {
		if re.MatchString(line) {
			return i + 1
		}
	}
	return 0
}

// ReplaceFirst replaces the first line matching re with value, keeping the
// matched line's leading indentation. Returns the replaced line number.
func (f *TextFile) ReplaceFirst(re *regexp.Regexp, value string) (int, error) {
	n := f.FindFirst(re)
	if n == 0 {
		return 0, fmt.Errorf("%w: %s in %s", ErrNoMatch, re.String(), f.path)
	}

	line := f.lines[n-1]
	indent := line[:len(line)-len(strings.TrimLeft(line, " \t"))]
	f.lines[n-1] = indent + strings.TrimLeft(value, " \t")
	return n, nil
}

// DeleteMatching removes every line matching re except the line numbers in
// keep. Returns how many lines were removed.
func (f *TextFile) DeleteMatching(re *regexp.Regexp, keep ...int) int {
	skip := make(map[int]bool, len(keep))
	for _, n := range keep {
		skip[n] = true
	}

	kept := f.lines[:0]
	removed := 0
	for i, line := range f.lines {
		if !skip[i+1] && re.MatchString(line) {
			removed++
			continue
		}
		kept = append(kept, line)
	}
	f.lines = kept
	return removed
}

// Bytes renders the file content
func (f *TextFile) Bytes() []byte {
	content := strings.Join(f.lines, f.eol)
	if f.trailingNewline {
		content += f.eol
	}
	return []byte(content)
}

// Save writes the file back atomically
func (f *TextFile) Save() error {
	if err := utils.WriteFileAtomic(f.path, f.Bytes()); err != nil {
		return fmt.Errorf("failed to write %s: %w", f.path, err)
	}
	return nil
}

// UpdateLineInFile replaces the exact 1-based lineNumber with newValue.
// Out-of-range numbers return ErrLineOutOfRange without touching the file.
func UpdateLineInFile(path string, lineNumber int, newValue string) error {
	f, err := LoadTextFile(path)
	if err != nil {
		return err
	}
	if err := f.ReplaceLine(lineNumber, newValue); err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	return f.Save()
}

// ReplaceMatchingLine replaces the first line matching pattern with newValue
// (indentation kept). Returns ErrNoMatch without touching the file when no
// line matches.
func ReplaceMatchingLine(path string, pattern string, newValue string) (int, error) {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return 0, fmt.Errorf("invalid pattern %q: %w", pattern, err)
	}

	f, err := LoadTextFile(path)
	if err != nil {
		return 0, err
	}
	n, err := f.ReplaceFirst(re, newValue)
	if err != nil {
		return 0, err
	}
	return n, f.Save()
}
