package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const (
	ingestHTTPEnabled = `[ingest.http]
enabled = true`
	ingestHTTPListen = `[ingest.http]
enabled = true
listen = "127.0.0.1:18081"`
	ingestNATSEnabled = `[ingest.nats]
enabled = true`
)

func TestLoadSnapshotFromFile(t *testing.T) {
	t.Parallel()

	cfg := mustLoadSnapshot(t, joinSections(
		ingestHTTPListen,
		`[controller]
enabled = true
host = "10.0.0.5"
port = 8000
token = "secret"`,
		`[validator]
schema_file = "/etc/sniffer/schema.toml"`,
	))

	if cfg.Service.ReloadEnabled || cfg.Service.ReloadIntervalSec != 30 {
		t.Fatalf("unexpected reload defaults %+v", cfg.Service)
	}
	if cfg.Service.Name != "sniffer-validator" {
		t.Fatalf("unexpected service name %q", cfg.Service.Name)
	}
	if cfg.Ingest.HTTP.Listen != "127.0.0.1:18081" {
		t.Fatalf("unexpected listen %q", cfg.Ingest.HTTP.Listen)
	}
	if cfg.Ingest.HTTP.ValidatePath != "/validate" {
		t.Fatalf("unexpected validate path %q", cfg.Ingest.HTTP.ValidatePath)
	}
	if cfg.Ingest.HTTP.MaxBodyBytes != 2<<20 {
		t.Fatalf("unexpected max body %d", cfg.Ingest.HTTP.MaxBodyBytes)
	}
	if cfg.Controller.Scheme != SchemeHTTP || cfg.Controller.DeployPath != "deploy" {
		t.Fatalf("unexpected controller defaults: %+v", cfg.Controller)
	}
	if cfg.Controller.Timeout().Seconds() != 10 {
		t.Fatalf("unexpected controller timeout %s", cfg.Controller.Timeout())
	}
	if cfg.Validator.TypeTag != "sni5gect" {
		t.Fatalf("unexpected type tag %q", cfg.Validator.TypeTag)
	}
	if cfg.Validator.SchemaFile != "/etc/sniffer/schema.toml" {
		t.Fatalf("unexpected schema file %q", cfg.Validator.SchemaFile)
	}
	if !cfg.Log.Console.Enabled {
		t.Fatalf("console log must be enabled by default")
	}
}

func TestLoadSnapshotNATSDefaults(t *testing.T) {
	t.Parallel()

	cfg := mustLoadSnapshot(t, joinSections(
		ingestNATSEnabled,
		`[publish]
enabled = true`,
	))

	if len(cfg.Ingest.NATS.URL) != 1 || cfg.Ingest.NATS.URL[0] != "nats://127.0.0.1:4222" {
		t.Fatalf("unexpected nats url %v", cfg.Ingest.NATS.URL)
	}
	if cfg.Ingest.NATS.Subject != "sniffer.validate" || cfg.Ingest.NATS.QueueGroup != "sniffer-validators" {
		t.Fatalf("unexpected nats routing %+v", cfg.Ingest.NATS)
	}
	if cfg.Publish.Subject != "sniffer.configs" || cfg.Publish.Stream != "SNIFFER_CONFIGS" {
		t.Fatalf("unexpected publish routing %+v", cfg.Publish)
	}
	if cfg.Publish.Consumer != "sniffer-deployer" || cfg.Publish.MaxDeliver != 5 || cfg.Publish.AckWaitSec != 30 || cfg.Publish.NackDelayMS != 1000 {
		t.Fatalf("unexpected deploy worker defaults %+v", cfg.Publish)
	}
}

func TestLoadSnapshotValidation(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name    string
		content string
		want    string
	}{
		{
			name: "reload interval",
			content: joinSections(`[service]
reload_enabled = true
reload_interval_sec = -1`, ingestHTTPEnabled),
			want: "service.reload_interval_sec must be > 0",
		},
		{
			name:    "no ingest",
			content: `[service]` + "\n" + `name = "x"`,
			want:    "at least one of ingest.http.enabled",
		},
		{
			name: "controller without host",
			content: joinSections(ingestHTTPEnabled, `[controller]
enabled = true
token = "t"`),
			want: "controller.host is required",
		},
		{
			name: "controller without token",
			content: joinSections(ingestHTTPEnabled, `[controller]
enabled = true
host = "ctl"`),
			want: "controller.token is required",
		},
		{
			name: "controller scheme",
			content: joinSections(ingestHTTPEnabled, `[controller]
scheme = "ftp"`),
			want: "controller.scheme has unsupported value",
		},
		{
			name: "controller port",
			content: joinSections(ingestHTTPEnabled, `[controller]
port = 70000`),
			want: "controller.port has unsupported value",
		},
		{
			name: "empty nats url",
			content: joinSections(`[ingest.nats]
enabled = true
url = ["nats://a:4222", " "]`),
			want: "ingest.nats.url[1] is empty",
		},
		{
			name: "publish loops back",
			content: joinSections(ingestNATSEnabled, `[publish]
enabled = true
subject = "sniffer.validate"`),
			want: "publish.subject must differ",
		},
		{
			name: "deploy without controller",
			content: joinSections(ingestNATSEnabled, `[publish]
enabled = true
deploy = true`),
			want: "publish.deploy requires controller.enabled=true",
		},
		{
			name: "deploy without publish",
			content: joinSections(ingestHTTPEnabled, `[publish]
deploy = true`),
			want: "publish.deploy requires publish.enabled=true",
		},
		{
			name: "max deliver",
			content: joinSections(ingestNATSEnabled, `[publish]
enabled = true
max_deliver = -2`),
			want: "publish.max_deliver must be -1 or >0",
		},
		{
			name: "validate path collides",
			content: `[ingest.http]
enabled = true
validate_path = "/healthz"`,
			want: "validate_path must differ",
		},
		{
			name: "relative path",
			content: `[ingest.http]
enabled = true
ready_path = "ready"`,
			want: "ingest.http.ready_path must start with /",
		},
		{
			name: "log level",
			content: joinSections(ingestHTTPEnabled, `[log.console]
enabled = true
level = "trace"`),
			want: "log.console.level has unsupported value",
		},
		{
			name: "log file path",
			content: joinSections(ingestHTTPEnabled, `[log.file]
enabled = true`),
			want: "log.file.path is required",
		},
		{
			name: "unknown key",
			content: `[ingest.http]
enabled = true
ingest_path = "/ingest"`,
			want: "decode config file",
		},
		{
			name: "rule section",
			content: joinSections(ingestHTTPEnabled, `[rule.ct]
alert_type = "count_total"`),
			want: "sections are not supported",
		},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			err := loadSnapshotErr(t, tc.content)
			if !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("expected error containing %q, got %v", tc.want, err)
			}
		})
	}
}

func TestLoadSnapshotFromDirOverlaysFiles(t *testing.T) {
	t.Parallel()

	tmpDir := t.TempDir()
	writeConfigFile(t, filepath.Join(tmpDir, "a.toml"), joinSections(
		ingestHTTPListen,
		`[controller]
enabled = true
host = "ctl"
token = "first"`,
	))
	writeConfigFile(t, filepath.Join(tmpDir, "b.toml"), `[controller]
token = "second"
enabled = false`)
	writeConfigFile(t, filepath.Join(tmpDir, "notes.txt"), "ignored")

	cfg, err := LoadSnapshot(ConfigSource{Dir: tmpDir})
	if err != nil {
		t.Fatalf("load snapshot: %v", err)
	}
	if cfg.Controller.Token != "second" {
		t.Fatalf("expected later file to win, got %q", cfg.Controller.Token)
	}
	if cfg.Controller.Enabled {
		t.Fatalf("expected explicit false to override earlier true")
	}
	if cfg.Controller.Host != "ctl" {
		t.Fatalf("expected host from earlier file, got %q", cfg.Controller.Host)
	}
	if cfg.Ingest.HTTP.Listen != "127.0.0.1:18081" {
		t.Fatalf("unexpected listen %q", cfg.Ingest.HTTP.Listen)
	}
}

func TestLoadSnapshotFromEmptyDir(t *testing.T) {
	t.Parallel()

	_, err := LoadSnapshot(ConfigSource{Dir: t.TempDir()})
	if err == nil || !strings.Contains(err.Error(), "no .toml files") {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestFromCLI(t *testing.T) {
	t.Parallel()

	if _, err := FromCLI("", ""); err == nil {
		t.Fatalf("expected error without source")
	}
	if _, err := FromCLI("a.toml", "dir"); err == nil {
		t.Fatalf("expected error with both sources")
	}
	src, err := FromCLI(" a.toml ", "")
	if err != nil || src.File != "a.toml" {
		t.Fatalf("unexpected source %+v err=%v", src, err)
	}
}

func TestDefaults(t *testing.T) {
	t.Parallel()

	cfg := Defaults()
	if cfg.Ingest.HTTP.Enabled || cfg.Ingest.NATS.Enabled {
		t.Fatalf("defaults must not enable ingest")
	}
	if cfg.Validator.TypeTag != "sni5gect" || cfg.Ingest.HTTP.ValidatePath != "/validate" {
		t.Fatalf("unexpected defaults %+v", cfg)
	}
}

func mustLoadSnapshot(t *testing.T, content string) Config {
	t.Helper()
	cfg, err := loadSnapshotFromContent(t, content)
	if err != nil {
		t.Fatalf("load snapshot: %v", err)
	}
	return cfg
}

func loadSnapshotErr(t *testing.T, content string) error {
	t.Helper()
	_, err := loadSnapshotFromContent(t, content)
	if err == nil {
		t.Fatalf("expected validation error")
	}
	return err
}

func loadSnapshotFromContent(t *testing.T, content string) (Config, error) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	writeConfigFile(t, path, content)
	return LoadSnapshot(ConfigSource{File: path})
}

func joinSections(parts ...string) string {
	nonEmpty := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed == "" {
			continue
		}
		nonEmpty = append(nonEmpty, trimmed)
	}
	return strings.Join(nonEmpty, "\n\n") + "\n"
}

func writeConfigFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config file: %v", err)
	}
}

func TestLoadSnapshotShippedConfig(t *testing.T) {
	t.Parallel()

	cfg, err := LoadSnapshot(ConfigSource{File: filepath.Join("..", "..", "configs", "validator.toml")})
	if err != nil {
		t.Fatalf("load shipped config: %v", err)
	}
	if !cfg.Ingest.HTTP.Enabled || cfg.Ingest.NATS.Enabled {
		t.Fatalf("unexpected ingest %+v", cfg.Ingest)
	}
	if cfg.Validator.SanityFile != "configs/sanity.toml" || cfg.Validator.TypeTag != "sni5gect" {
		t.Fatalf("unexpected validator %+v", cfg.Validator)
	}
	if !cfg.Service.ReloadEnabled || cfg.Service.ReloadIntervalSec != 30 {
		t.Fatalf("unexpected service %+v", cfg.Service)
	}
}
