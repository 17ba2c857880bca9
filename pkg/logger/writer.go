package logger

import (
	"bytes"
	"strings"
	"sync"
)

// LineWriter forwards each complete line written to it as an Info entry.
// Git progress output uses carriage returns, so those end a line too.
type LineWriter struct {
	log Logger
	mu  sync.Mutex
	buf bytes.Buffer
}

// NewLineWriter wraps a logger as an io.WriteCloser
func NewLineWriter(log Logger) *LineWriter {
	return &LineWriter{log: log}
}

// Write implements io.Writer
func (w *LineWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.buf.Write(p)
	for {
		data := w.buf.Bytes()
		idx := bytes.IndexAny(data, "\r\n")
		if idx < 0 {
			break
		}
		line := string(data[:idx])
		w.buf.Next(idx + 1)
		w.emit(line)
	}
	return len(p), nil
}

// Close flushes any trailing partial line
func (w *LineWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.buf.Len() > 0 {
		w.emit(w.buf.String())
		w.buf.Reset()
	}
	return nil
}

func (w *LineWriter) emit(line string) {
	line = strings.TrimSpace(line)
	if line == "" {
		return
	}
	w.log.Info(line)
}
