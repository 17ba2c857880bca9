package patch

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/uepipe/uepipe/pkg/utils"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

type member struct {
	key   string
	value json.RawMessage
}

// UpdateJSONFile sets one top-level key of the JSON object stored at path and
// rewrites the file. The key is appended when absent. Other members keep
// their values and their order; indentation and line endings follow the
// original file.
func UpdateJSONFile(path string, key string, value interface{}) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", path, err)
	}

	hasBOM := bytes.HasPrefix(data, utf8BOM)
	data = bytes.TrimPrefix(data, utf8BOM)

	members, err := decodeObject(data)
	if err != nil {
		return fmt.Errorf("failed to parse %s: %w", path, err)
	}

	encoded, err := encodeValue(value)
	if err != nil {
		return fmt.Errorf("failed to encode value for %q: %w", key, err)
	}

	found := false
	for i := range members {
		if members[i].key == key {
			members[i].value = encoded
			found = true
			break
		}
	}
	if !found {
		members = append(members, member{key: key, value: encoded})
	}

	out, err := encodeObject(members, detectIndent(data))
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", path, err)
	}

	if bytes.HasSuffix(bytes.TrimRight(data, " \t"), []byte("\n")) {
		out = append(out, '\n')
	}
	if bytes.Contains(data, []byte("\r\n")) {
		out = bytes.ReplaceAll(out, []byte("\n"), []byte("\r\n"))
	}
	if hasBOM {
		out = append(append([]byte{}, utf8BOM...), out...)
	}

	if err := utils.WriteFileAtomic(path, out); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}

// ReadJSONKey returns the raw value of a top-level key
func ReadJSONKey(path string, key string) (json.RawMessage, bool, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, false, err
	}

	members, err := decodeObject(bytes.TrimPrefix(data, utf8BOM))
	if err != nil {
		return nil, false, err
	}
	for _, m := range members {
		if m.key == key {
			return m.value, true, nil
		}
	}
	return nil, false, nil
}

func decodeObject(data []byte) ([]member, error) {
	dec := json.NewDecoder(bytes.NewReader(data))

	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return nil, ErrNotObject
	}

	var members []member
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		key, ok := tok.(string)
		if !ok {
			return nil, fmt.Errorf("unexpected token %v", tok)
		}

		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return nil, err
		}
		members = append(members, member{key: key, value: raw})
	}

	if _, err := dec.Token(); err != nil {
		return nil, err
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("unexpected data after top-level object")
	}
	return members, nil
}

func encodeValue(value interface{}) (json.RawMessage, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(value); err != nil {
		return nil, err
	}
	return json.RawMessage(bytes.TrimRight(buf.Bytes(), "\n")), nil
}

func encodeObject(members []member, indent string) ([]byte, error) {
	var compact bytes.Buffer
	compact.WriteByte('{')
	for i, m := range members {
		if i > 0 {
			compact.WriteByte(',')
		}
		k, err := encodeValue(m.key)
		if err != nil {
			return nil, err
		}
		compact.Write(k)
		compact.WriteByte(':')
		compact.Write(m.value)
	}
	compact.WriteByte('}')

	var out bytes.Buffer
	if err := json.Indent(&out, compact.Bytes(), "", indent); err != nil {
		return nil, err
	}
	return out.Bytes(), nil
}

// detectIndent returns the leading whitespace of the first indented line,
// defaulting to a tab as written by the Unreal editor
func detectIndent(data []byte) string {
	for _, line := range strings.Split(string(data), "\n") {
		trimmed := strings.TrimLeft(line, " \t")
		if trimmed == "" || len(trimmed) == len(line) {
			continue
		}
		return line[:len(line)-len(trimmed)]
	}
	return "\t"
}
