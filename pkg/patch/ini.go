package patch

import (
	"bytes"
	"fmt"
	"os"
	"strings"
	"sync"

	"gopkg.in/ini.v1"

	"github.com/uepipe/uepipe/pkg/utils"
)

// ini.v1 keeps its output style in package globals
var iniWriteMu sync.Mutex

// iniLoadOptions matches how Unreal config files are written: array entries
// repeat the same key with a +/- prefix and ';' is a legal value character.
var iniLoadOptions = ini.LoadOptions{
	AllowShadows:               true,
	AllowDuplicateShadowValues: true,
	AllowBooleanKeys:           true,
	IgnoreInlineComment:        true,
	IgnoreContinuation:         true,
	KeyValueDelimiters:         "=",
}

// ini.v1 strips a leading backtick or """ pair from values and adds its own
// quoting on write. Unreal has no such quoting, so quote characters are
// swapped for private-use runes while the file is held by ini.v1.
var (
	iniHideQuotes = strings.NewReplacer("`", "\uE000", `"`, "\uE001")
	iniShowQuotes = strings.NewReplacer("\uE000", "`", "\uE001", `"`)
)

// UpdateINIFile overwrites the value of an existing option. Both the section
// and the option must already exist; otherwise ErrSectionNotFound or
// ErrOptionNotFound is returned and the file is not modified.
func UpdateINIFile(path, section, option, value string) error {
	cfg, err := loadINI(path)
	if err != nil {
		return err
	}

	sec, err := cfg.GetSection(section)
	if err != nil {
		return fmt.Errorf("%w: '%s' in %s", ErrSectionNotFound, section, path)
	}
	if !sec.HasKey(option) {
		return fmt.Errorf("%w: '%s' in section '%s'", ErrOptionNotFound, option, section)
	}

	sec.Key(option).SetValue(iniHideQuotes.Replace(value))

	return saveINI(cfg, path)
}

// UpsertINIValues sets several options of one section, creating the section
// and any missing option. Existing options keep their position.
func UpsertINIValues(path, section string, values map[string]string, order []string) error {
	cfg, err := loadINI(path)
	if err != nil {
		return err
	}

	sec := cfg.Section(section)
	for _, option := range order {
		value, ok := values[option]
		if !ok {
			continue
		}
		value = iniHideQuotes.Replace(value)
		if sec.HasKey(option) {
			sec.Key(option).SetValue(value)
			continue
		}
		if _, err := sec.NewKey(option, value); err != nil {
			return fmt.Errorf("failed to add '%s' to section '%s': %w", option, section, err)
		}
	}

	return saveINI(cfg, path)
}

// ReadINIValue returns the value of an option
func ReadINIValue(path, section, option string) (string, error) {
	cfg, err := loadINI(path)
	if err != nil {
		return "", err
	}

	sec, err := cfg.GetSection(section)
	if err != nil {
		return "", fmt.Errorf("%w: '%s' in %s", ErrSectionNotFound, section, path)
	}
	if !sec.HasKey(option) {
		return "", fmt.Errorf("%w: '%s' in section '%s'", ErrOptionNotFound, option, section)
	}
	return iniShowQuotes.Replace(sec.Key(option).String()), nil
}

func loadINI(path string) (*ini.File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	cfg, err := ini.LoadSources(iniLoadOptions, []byte(iniHideQuotes.Replace(string(data))))
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return cfg, nil
}

func saveINI(cfg *ini.File, path string) error {
	iniWriteMu.Lock()
	prevFormat, prevEqual := ini.PrettyFormat, ini.PrettyEqual
	ini.PrettyFormat = false
	ini.PrettyEqual = false

	var buf bytes.Buffer
	_, err := cfg.WriteTo(&buf)

	ini.PrettyFormat, ini.PrettyEqual = prevFormat, prevEqual
	iniWriteMu.Unlock()

	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", path, err)
	}
	if err := utils.WriteFileAtomic(path, []byte(iniShowQuotes.Replace(buf.String()))); err != nil {
		return fmt.Errorf("failed to write to file: %w", err)
	}
	return nil
}
