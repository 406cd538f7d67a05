package shared

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/charmbracelet/log"
)

func TestGenerateID(t *testing.T) {
	a := GenerateID()
	b := GenerateID()

	if len(a) != 36 {
		t.Errorf("GenerateID() length = %d, want 36", len(a))
	}
	if a == b {
		t.Errorf("GenerateID() returned duplicate id %s", a)
	}
}

func TestHostTag(t *testing.T) {
	tag := HostTag()

	if !strings.Contains(tag, "@") {
		t.Errorf("HostTag() = %q, want host@ip form", tag)
	}
	if strings.HasPrefix(tag, "@") {
		t.Errorf("HostTag() = %q, missing hostname", tag)
	}
}

func TestNewFileLogger(t *testing.T) {
	path := filepath.Join(t.TempDir(), "acegen.log")

	logger, file, err := NewFileLogger(path)
	if err != nil {
		t.Fatalf("NewFileLogger() error = %v", err)
	}
	defer file.Close()

	logger.Info("generation cycle complete")

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to read log file: %v", err)
	}
	if !strings.Contains(string(data), "generation cycle complete") {
		t.Errorf("log file missing entry, got %q", string(data))
	}
}

func TestWithLogger(t *testing.T) {
	var buf strings.Builder
	logger := NewLogger(&buf)
	SetLogLevel(logger, log.DebugLevel)

	child := WithLogger(logger, "destination", "news")
	child.Debug("processing")

	out := buf.String()
	if !strings.Contains(out, "destination") || !strings.Contains(out, "news") {
		t.Errorf("expected destination field in output, got %q", out)
	}
}
