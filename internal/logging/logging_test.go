package logging

import (
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestSink_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "checklist.log")

	sink, err := Open(Options{File: path})
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	sink.Logger("sync").Printf("Synced %d items", 3)
	sink.Logger("daemon").Println("Starting daemon")
	if err := sink.Close(); err != nil {
		t.Fatalf("Close() failed: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	out := string(data)
	if !strings.Contains(out, "[sync] ") || !strings.Contains(out, "Synced 3 items") {
		t.Errorf("missing sync line:\n%s", out)
	}
	if !strings.Contains(out, "[daemon] ") {
		t.Errorf("missing daemon line:\n%s", out)
	}
}

func TestSink_Discard(t *testing.T) {
	sink, err := Open(Options{})
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	if sink.Writer() != io.Discard {
		t.Error("expected discard writer without file or verbose")
	}
	if err := sink.Close(); err != nil {
		t.Errorf("Close() failed: %v", err)
	}
}

func TestOrDefault(t *testing.T) {
	if orDefault(0, 10) != 10 || orDefault(-1, 10) != 10 || orDefault(5, 10) != 5 {
		t.Error("orDefault returned unexpected values")
	}
}
