package log

import (
	"bytes"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want zerolog.Level
	}{
		{"debug", zerolog.DebugLevel},
		{"WARN", zerolog.WarnLevel},
		{"error", zerolog.ErrorLevel},
		{"off", zerolog.Disabled},
		{"bogus", zerolog.InfoLevel},
	}
	for _, tt := range tests {
		if got := parseLevel(tt.in); got != tt.want {
			t.Errorf("parseLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
	if ValidLevel("bogus") || !ValidLevel("info") {
		t.Error("ValidLevel mismatch")
	}
}

func TestComponentLoggers(t *testing.T) {
	old := Logger
	defer SetLogger(old)

	var buf bytes.Buffer
	SetLogger(NewJSONLogger(&buf, "debug"))
	l := WithInstance(Ledger, "abc")
	l.Info().Msg("hello")

	var line map[string]any
	if err := json.Unmarshal(buf.Bytes(), &line); err != nil {
		t.Fatalf("decode log line: %v", err)
	}
	if line["component"] != "ledger" || line["instance"] != "abc" || line["message"] != "hello" {
		t.Errorf("unexpected log line %v", line)
	}
}

func TestInit_File(t *testing.T) {
	old := Logger
	defer SetLogger(old)

	path := filepath.Join(t.TempDir(), "node.log")
	closer, err := Init("info", true, path)
	if err != nil {
		t.Fatalf("Init: %v", err)
	}
	Storage.Info().Msg("to file")
	if err := closer.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
}
