package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestJSONFieldNames(t *testing.T) {
	var buf bytes.Buffer
	log, closer, err := New(Options{Level: "debug", Out: &buf})
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	defer closer.Close()

	log.WithField("user_id", "u1").Info("registered")

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("decode %q: %v", buf.String(), err)
	}
	if entry["message"] != "registered" || entry["severity"] != "info" || entry["user_id"] != "u1" {
		t.Fatalf("unexpected entry %v", entry)
	}
	if _, ok := entry["timestamp"]; !ok {
		t.Fatalf("missing timestamp in %v", entry)
	}
}

func TestErrorFileOnlyGetsErrors(t *testing.T) {
	dir := t.TempDir()
	errPath := filepath.Join(dir, "error.log")
	var buf bytes.Buffer
	log, closer, err := New(Options{Out: &buf, ErrorFile: errPath})
	if err != nil {
		t.Fatalf("new: %v", err)
	}

	log.Info("fine")
	log.Error("broken")
	if err := closer.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	b, err := os.ReadFile(errPath)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if !strings.Contains(string(b), "broken") || strings.Contains(string(b), "fine") {
		t.Fatalf("unexpected error log %q", b)
	}
	if !strings.Contains(buf.String(), "fine") {
		t.Fatalf("main output missing info entry")
	}
}

func TestBadLevel(t *testing.T) {
	if _, _, err := New(Options{Level: "loud"}); err == nil {
		t.Fatalf("expected error")
	}
}

func TestFromContext(t *testing.T) {
	fallback := Discard()
	if FromContext(context.Background(), fallback) != fallback {
		t.Fatalf("expected fallback")
	}
	entry := fallback.WithField("req", "1")
	ctx := WithLogger(context.Background(), entry)
	if FromContext(ctx, fallback) != entry {
		t.Fatalf("expected request entry")
	}
}
