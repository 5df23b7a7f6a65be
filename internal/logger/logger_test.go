package logger

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func reset() {
	SetVerbose(false)
	SetOutput(os.Stderr)
	SetFile(FileOptions{})
}

func TestSetVerbose(t *testing.T) {
	defer reset()

	SetVerbose(false)
	if IsVerbose() {
		t.Error("expected verbose to be false initially")
	}

	SetVerbose(true)
	if !IsVerbose() {
		t.Error("expected verbose to be true after SetVerbose(true)")
	}
}

func TestDebug_WhenVerbose(t *testing.T) {
	defer reset()

	var buf bytes.Buffer
	SetOutput(&buf)
	SetVerbose(true)

	Debug("test message %s", "arg")

	if got := buf.String(); got != "[DEBUG] test message arg\n" {
		t.Errorf("unexpected output: %q", got)
	}
}

func TestDebug_WhenNotVerbose(t *testing.T) {
	defer reset()

	var buf bytes.Buffer
	SetOutput(&buf)
	SetVerbose(false)

	Debug("test message")
	Info("info")
	Warn("warn")

	if buf.Len() > 0 {
		t.Errorf("expected no output when verbose is disabled, got %q", buf.String())
	}
}

func TestError_AlwaysPrinted(t *testing.T) {
	defer reset()

	var buf bytes.Buffer
	SetOutput(&buf)
	SetVerbose(false)

	Error("store %s corrupted", "vectors")

	if got := buf.String(); got != "[ERROR] store vectors corrupted\n" {
		t.Errorf("unexpected output: %q", got)
	}
}

func TestSection(t *testing.T) {
	defer reset()

	var buf bytes.Buffer
	SetOutput(&buf)
	SetVerbose(true)

	Section("Pipeline")

	if got := buf.String(); got != "\n=== Pipeline ===\n" {
		t.Errorf("unexpected output: %q", got)
	}
}

func TestSetFile_MirrorsAllLevels(t *testing.T) {
	defer reset()

	var buf bytes.Buffer
	SetOutput(&buf)
	SetVerbose(false)
	path := filepath.Join(t.TempDir(), "medingest.log")
	SetFile(FileOptions{Path: path})

	Debug("quiet debug")
	Warn("quiet warn")
	if err := Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	content := string(data)
	if !strings.Contains(content, "[DEBUG] quiet debug") || !strings.Contains(content, "[WARN] quiet warn") {
		t.Errorf("log file missing messages: %q", content)
	}
	if buf.Len() > 0 {
		t.Errorf("console should stay quiet, got %q", buf.String())
	}
}
