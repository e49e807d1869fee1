package logger

import (
	"bytes"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"
)

func TestNewLoggerWritesJSONToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "imgsqueeze.log")
	cfg := DefaultConfig()
	cfg.FilePath = path
	cfg.Console = false
	cfg.Level = "debug"

	log, err := NewLogger(cfg)
	if err != nil {
		t.Fatalf("NewLogger: %v", err)
	}
	if log.GetLevel() != logrus.DebugLevel {
		t.Fatalf("level = %v, want debug", log.GetLevel())
	}

	WithFileOperation(log, "a.png", "compress").Info("done")

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	line := strings.TrimSpace(string(data))
	var rec map[string]any
	if err := json.Unmarshal([]byte(line), &rec); err != nil {
		t.Fatalf("log line is not JSON: %q", line)
	}
	if rec["message"] != "done" || rec["file"] != "a.png" || rec["operation"] != "compress" {
		t.Errorf("unexpected record: %v", rec)
	}
	if _, ok := rec["timestamp"]; !ok {
		t.Error("missing timestamp field")
	}
}

func TestNewLoggerRejectsBadLevel(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Level = "loud"
	if _, err := NewLogger(cfg); err == nil {
		t.Fatal("expected error for invalid level")
	}
}

func TestConsoleGetsTextRecords(t *testing.T) {
	var console bytes.Buffer
	path := filepath.Join(t.TempDir(), "run.log")
	cfg := DefaultConfig()
	cfg.FilePath = path
	cfg.ConsoleOutput = &console

	log, err := NewLogger(cfg)
	if err != nil {
		t.Fatalf("NewLogger: %v", err)
	}
	WithFileOperation(log, "b.jpg", "backup").Warn("retrying")
	log.Debug("hidden at info level")

	text := console.String()
	for _, want := range []string{"level=warning", "msg=retrying", "file=b.jpg", "operation=backup"} {
		if !strings.Contains(text, want) {
			t.Errorf("console output %q lacks %q", text, want)
		}
	}
	if strings.Contains(text, "hidden") {
		t.Error("debug record reached the console at info level")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	var rec map[string]any
	if err := json.Unmarshal(bytes.TrimSpace(data), &rec); err != nil {
		t.Fatalf("file record is not JSON: %q", data)
	}
	if rec["message"] != "retrying" {
		t.Errorf("file record = %v", rec)
	}
}

func TestConsoleJSON(t *testing.T) {
	var console bytes.Buffer
	cfg := DefaultConfig()
	cfg.ConsoleJSON = true
	cfg.ConsoleOutput = &console

	log, err := NewLogger(cfg)
	if err != nil {
		t.Fatalf("NewLogger: %v", err)
	}
	log.Info("started")

	var rec map[string]any
	if err := json.Unmarshal(bytes.TrimSpace(console.Bytes()), &rec); err != nil {
		t.Fatalf("console record is not JSON: %q", console.String())
	}
	if rec["message"] != "started" || rec["level"] != "info" {
		t.Errorf("console record = %v", rec)
	}
}

func TestNoSinksDiscards(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Console = false
	log, err := NewLogger(cfg)
	if err != nil {
		t.Fatalf("NewLogger: %v", err)
	}
	if log.Out != io.Discard {
		t.Error("logger without sinks should discard output")
	}
}
