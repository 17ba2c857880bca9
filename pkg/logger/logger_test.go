package logger_test

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	pcontext "github.com/uepipe/uepipe/pkg/context"
	"github.com/uepipe/uepipe/pkg/logger"
)

func TestCreateLogger(t *testing.T) {
	log := logger.CreateLogger("", "info")
	if log == nil {
		t.Fatal("expected logger to be created")
	}
}

func TestLogger_WithStep(t *testing.T) {
	var buf bytes.Buffer
	log := logger.CreateLoggerWithOutput("", "info", &buf)

	log.WithStep("clone-plugin").Info("cloning")

	output := buf.String()
	if !strings.Contains(output, "[clone-plugin] cloning") {
		t.Errorf("expected step prefix in log output, got %q", output)
	}
}

func TestLogger_Success(t *testing.T) {
	var buf bytes.Buffer
	log := logger.CreateLoggerWithOutput("", "info", &buf)

	log.Success("build completed")

	if !strings.Contains(buf.String(), "build completed") {
		t.Error("expected success message in log output")
	}
}

func TestLogger_FieldsAreSorted(t *testing.T) {
	var buf bytes.Buffer
	log := logger.CreateLoggerWithOutput("", "info", &buf)

	log.Info("test message",
		logger.WithField("zeta", "last"),
		logger.WithField("alpha", 42),
	)

	output := buf.String()
	if !strings.Contains(output, "{alpha=42, zeta=last}") {
		t.Errorf("expected sorted fields, got %q", output)
	}
}

func TestLogger_ErrorLevel(t *testing.T) {
	var buf bytes.Buffer
	log := logger.CreateLoggerWithOutput("", "error", &buf)

	log.Debug("should not appear")
	log.Info("should not appear")
	log.Warn("should not appear")
	log.Error("should appear")

	output := buf.String()
	if strings.Contains(output, "should not appear") {
		t.Error("lower level logs should not appear with error level")
	}
	if !strings.Contains(output, "should appear") {
		t.Error("error level log should appear")
	}
}

func TestLogger_LogFile(t *testing.T) {
	logFile := filepath.Join(t.TempDir(), "run.log")
	var buf bytes.Buffer
	log := logger.CreateLoggerWithOutput(logFile, "info", &buf)

	log.Info("to both")

	data, err := os.ReadFile(logFile)
	if err != nil {
		t.Fatalf("failed to read log file: %v", err)
	}
	if !strings.Contains(string(data), "to both") {
		t.Error("expected message in log file")
	}
	if !strings.Contains(buf.String(), "to both") {
		t.Error("expected message in output")
	}
}

func TestWithContext_AddsRunID(t *testing.T) {
	var buf bytes.Buffer
	base := logger.CreateLoggerWithOutput("", "info", &buf)

	ctx := pcontext.WithRunID(context.Background(), "run_fixed")
	logger.WithContext(ctx, base).WithStep("package").Info("hello")

	output := buf.String()
	if !strings.Contains(output, "run_id=run_fixed") {
		t.Errorf("expected run id field, got %q", output)
	}
	if !strings.Contains(output, "[package]") {
		t.Errorf("expected step prefix, got %q", output)
	}
}

func TestLineWriter(t *testing.T) {
	var buf bytes.Buffer
	log := logger.CreateLoggerWithOutput("", "info", &buf)

	w := logger.NewLineWriter(log)
	w.Write([]byte("Receiving objects:  10%\rReceiving objects: 100%\nRes"))
	w.Write([]byte("olving deltas"))
	w.Close()

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 3 {
		t.Fatalf("expected 3 log lines, got %d: %q", len(lines), buf.String())
	}
	if !strings.HasSuffix(lines[2], "Resolving deltas") {
		t.Errorf("expected flushed partial line, got %q", lines[2])
	}
}
