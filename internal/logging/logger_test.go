package logging

import (
	"bytes"
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"

	"snifferconfig/internal/config"
)

func TestNewWithConsoleJSON(t *testing.T) {
	t.Parallel()

	var out bytes.Buffer
	logger, closeFn, err := NewWithConsole(config.LogConfig{
		Console: config.LogSinkConfig{Enabled: true, Level: "info", Format: "json"},
	}, &out)
	if err != nil {
		t.Fatalf("new logger: %v", err)
	}
	defer closeFn()

	logger.Debug("hidden")
	logger.Info("validation rejected", "errors", 2)

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	if len(lines) != 1 {
		t.Fatalf("expected one line, got %q", out.String())
	}
	var record map[string]any
	if err := json.Unmarshal([]byte(lines[0]), &record); err != nil {
		t.Fatalf("decode record: %v", err)
	}
	if record["msg"] != "validation rejected" || record["errors"] != float64(2) {
		t.Fatalf("unexpected record %v", record)
	}
	if _, ok := record["time"]; ok {
		t.Fatalf("console records must not carry time")
	}
}

func TestNewTeeWritesBothSinks(t *testing.T) {
	t.Parallel()

	var out bytes.Buffer
	path := filepath.Join(t.TempDir(), "service.log")
	logger, closeFn, err := NewWithConsole(config.LogConfig{
		Console: config.LogSinkConfig{Enabled: true, Level: "warn", Format: "line"},
		File:    config.LogSinkConfig{Enabled: true, Level: "debug", Format: "json", Path: path},
	}, &out)
	if err != nil {
		t.Fatalf("new logger: %v", err)
	}
	logger.Info("file only")
	logger.Warn("both sinks", "key", "rf.channels[0].rx_gain")
	closeFn()

	if strings.Contains(out.String(), "file only") {
		t.Fatalf("console sink must drop info records: %q", out.String())
	}
	if !strings.Contains(out.String(), ansiYellow) || !strings.Contains(out.String(), ansiCyan+"rf.channels[0].rx_gain") {
		t.Fatalf("expected colored warn line with key path highlight, got %q", out.String())
	}
}

func TestNewRejectsBadSinks(t *testing.T) {
	t.Parallel()

	cases := []config.LogConfig{
		{},
		{Console: config.LogSinkConfig{Enabled: true, Level: "trace", Format: "line"}},
		{Console: config.LogSinkConfig{Enabled: true, Level: "info", Format: "xml"}},
		{File: config.LogSinkConfig{Enabled: true, Level: "info", Format: "json", Path: filepath.Join(t.TempDir(), "missing", "x.log")}},
	}
	for i, cfg := range cases {
		if _, _, err := NewWithConsole(cfg, &bytes.Buffer{}); err == nil {
			t.Fatalf("case %d: expected error", i)
		}
	}
}

func TestHighlightTokens(t *testing.T) {
	t.Parallel()

	line := `level=INFO msg="accepted" key=cell.band value=78`
	got := highlightTokens(line, ansiBlue)
	for _, want := range []string{
		ansiGreen + `"accepted"` + ansiReset + ansiBlue,
		ansiCyan + "cell.band" + ansiReset,
		ansiYellow + "78" + ansiReset,
	} {
		if !strings.Contains(got, want) {
			t.Fatalf("missing %q in %q", want, got)
		}
	}
}

func TestOrDiscard(t *testing.T) {
	t.Parallel()

	if OrDiscard(nil) == nil {
		t.Fatalf("expected discarding logger")
	}
	OrDiscard(nil).Error("dropped")
}
