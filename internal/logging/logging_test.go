package logging

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"
)

func TestNew(t *testing.T) {
	log, closer, err := New(Config{})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer closer.Close()

	if log.Level != logrus.InfoLevel {
		t.Errorf("unexpected default level %v", log.Level)
	}
	if _, ok := log.Formatter.(*logrus.TextFormatter); !ok {
		t.Errorf("unexpected default formatter %T", log.Formatter)
	}
}

func TestNewJSONFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mchub.log")

	log, closer, err := New(Config{Level: "debug", Format: "json", File: path})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	log.WithField("conn_id", "abc").Debug("hello")
	closer.Close()

	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	if !strings.Contains(string(b), `"conn_id":"abc"`) || !strings.Contains(string(b), `"msg":"hello"`) {
		t.Errorf("unexpected log output %q", b)
	}
}

func TestNewErrors(t *testing.T) {
	if _, _, err := New(Config{Level: "loud"}); err == nil {
		t.Errorf("expected error for bad level")
	}
	if _, _, err := New(Config{Format: "xml"}); err == nil {
		t.Errorf("expected error for bad format")
	}
	if _, _, err := New(Config{File: filepath.Join(t.TempDir(), "missing", "x.log")}); err == nil {
		t.Errorf("expected error for unwritable file")
	}
}
