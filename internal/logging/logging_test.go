package logging

import (
	"bytes"
	"io"
	"log/slog"
	"os"
	"strings"
	"testing"
)

func captureStdout(fn func()) string {
	old := os.Stdout
	r, w, _ := os.Pipe()
	os.Stdout = w
	defer func() { os.Stdout = old }()

	fn()

	w.Close()
	var buf bytes.Buffer
	io.Copy(&buf, r)
	return buf.String()
}

func TestInit_TextBackend_PlainOutput(t *testing.T) {
	out := captureStdout(func() {
		Init(Config{Service: "ghost-relay", Backend: BackendText, Level: slog.LevelInfo})
		L().Info("room created", "roomHash", "H1")
	})

	if strings.Contains(out, "{") {
		t.Fatalf("expected text output, got what looks like JSON: %s", out)
	}
	if !strings.Contains(out, "room created") {
		t.Fatalf("message missing from output: %s", out)
	}
	if !strings.Contains(out, "service=ghost-relay") {
		t.Fatalf("service attr missing: %s", out)
	}
}

func TestLevelFromString(t *testing.T) {
	cases := map[string]slog.Level{
		"debug": slog.LevelDebug,
		"warn":  slog.LevelWarn,
		"error": slog.LevelError,
		"info":  slog.LevelInfo,
		"bogus": slog.LevelInfo,
		"":      slog.LevelInfo,
	}
	for in, want := range cases {
		if got := LevelFromString(in); got != want {
			t.Errorf("LevelFromString(%q) = %v, want %v", in, got, want)
		}
	}
}
