package logging

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"
)

func TestNewWritesJSONToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "service.log")
	log, closer, err := New("debug", "json", path)
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	if log.GetLevel() != logrus.DebugLevel {
		t.Fatalf("level=%s", log.GetLevel())
	}
	log.WithField("job_id", "abc").Debug("analysis submitted")
	if err := closer.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	blob, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	var entry map[string]any
	if err := json.Unmarshal([]byte(strings.TrimSpace(string(blob))), &entry); err != nil {
		t.Fatalf("log line is not JSON: %q", blob)
	}
	if entry["job_id"] != "abc" || entry["msg"] != "analysis submitted" || entry["level"] != "debug" {
		t.Fatalf("unexpected entry: %v", entry)
	}
}

func TestNewDefaults(t *testing.T) {
	log, closer, err := New("loud", "", "")
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	defer closer.Close()
	if log.GetLevel() != logrus.InfoLevel {
		t.Fatalf("unknown level should fall back to info, got %s", log.GetLevel())
	}
	if _, ok := log.Formatter.(*logrus.TextFormatter); !ok {
		t.Fatalf("expected text formatter, got %T", log.Formatter)
	}
}

func TestNewRejectsUnknownFormat(t *testing.T) {
	if _, _, err := New("info", "xml", ""); err == nil {
		t.Fatal("expected error for unknown format")
	}
}

func TestNewFailsOnUnwritableFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing-dir", "service.log")
	if _, _, err := New("info", "text", path); err == nil {
		t.Fatal("expected error opening log file")
	}
}
