package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"time"

	"snifferconfig/internal/domain"

	"github.com/pelletier/go-toml/v2"
)

const (
	defaultServiceName    = "sniffer-validator"
	defaultHTTPListen     = ":8080"
	defaultHealthPath     = "/healthz"
	defaultReadyPath      = "/readyz"
	defaultValidatePath   = "/validate"
	defaultMaxBodyBytes   = 2 << 20
	defaultNATSURL        = "nats://127.0.0.1:4222"
	defaultNATSSubject    = "sniffer.validate"
	defaultNATSQueueGroup = "sniffer-validators"
	defaultPublishSubject = "sniffer.configs"
	defaultPublishStream  = "SNIFFER_CONFIGS"
	defaultDeployConsumer = "sniffer-deployer"
	defaultAckWaitSec     = 30
	defaultNackDelayMS    = 1000
	defaultMaxDeliver     = 5
	defaultControllerPort = 80
	defaultDeployPath     = "deploy"
	defaultTimeoutSec     = 10
	defaultReloadInterval = 30

	// SchemeHTTP selects plain HTTP controller transport.
	SchemeHTTP = "http"
	// SchemeHTTPS selects TLS controller transport.
	SchemeHTTPS = "https"
)

var unsupportedSectionPattern = regexp.MustCompile(`(?m)^\s*\[\[?\s*(?:rule|notify|state)(?:\.[^\]\s]+)*\s*\]\]?`)

// Config holds service runtime settings.
// Params: TOML sections from file or merged directory snapshot.
// Returns: validated runtime configuration.
type Config struct {
	Service    ServiceConfig    `toml:"service"`
	Log        LogConfig        `toml:"log"`
	Ingest     IngestConfig     `toml:"ingest"`
	Publish    PublishConfig    `toml:"publish"`
	Controller ControllerConfig `toml:"controller"`
	Validator  ValidatorConfig  `toml:"validator"`
}

// ServiceConfig contains process-level settings.
// Params: service name and periodic validator file reload controls.
// Returns: process settings.
type ServiceConfig struct {
	Name              string `toml:"name"`
	ReloadEnabled     bool   `toml:"reload_enabled"`
	ReloadIntervalSec int    `toml:"reload_interval_sec"`
}

// IngestConfig defines inbound validation interfaces.
// Params: embedded HTTP and NATS request/reply controls.
// Returns: ingestion runtime options.
type IngestConfig struct {
	HTTP HTTPIngestConfig `toml:"http"`
	NATS NATSIngestConfig `toml:"nats"`
}

// HTTPIngestConfig configures HTTP validation endpoint.
// Params: enable flag, listen/endpoints, and body size limit.
// Returns: HTTP ingest behavior.
type HTTPIngestConfig struct {
	Enabled      bool   `toml:"enabled"`
	Listen       string `toml:"listen"`
	HealthPath   string `toml:"health_path"`
	ReadyPath    string `toml:"ready_path"`
	ValidatePath string `toml:"validate_path"`
	MaxBodyBytes int64  `toml:"max_body_bytes"`
}

// NATSIngestConfig configures request/reply validation over core NATS.
// Params: connection URLs, request subject, and queue group.
// Returns: NATS ingest behavior.
type NATSIngestConfig struct {
	Enabled    bool     `toml:"enabled"`
	URL        []string `toml:"url"`
	Subject    string   `toml:"subject"`
	QueueGroup string   `toml:"queue_group"`
}

// PublishConfig configures JetStream publishing of accepted configurations.
// Params: enable flag, subject, stream, and optional deploy worker consuming the stream;
// connection reuses ingest.nats.url.
// Returns: publisher and deploy worker behavior.
type PublishConfig struct {
	Enabled     bool   `toml:"enabled"`
	Subject     string `toml:"subject"`
	Stream      string `toml:"stream"`
	Deploy      bool   `toml:"deploy"`
	Consumer    string `toml:"consumer"`
	AckWaitSec  int    `toml:"ack_wait_sec"`
	NackDelayMS int    `toml:"nack_delay_ms"`
	MaxDeliver  int    `toml:"max_deliver"`
}

// ControllerConfig configures the remote controller client.
// Params: address, bearer token, scheme, deploy endpoint, and request timeout.
// Returns: controller client options.
type ControllerConfig struct {
	Enabled    bool   `toml:"enabled"`
	Host       string `toml:"host"`
	Port       int    `toml:"port"`
	Token      string `toml:"token"`
	Scheme     string `toml:"scheme"`
	DeployPath string `toml:"deploy_path"`
	TimeoutSec int    `toml:"timeout_sec"`
}

// Timeout returns controller request timeout.
func (c ControllerConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSec) * time.Second
}

// ValidatorConfig points at optional schema, sanity, and policy overrides.
// Params: file paths (empty keeps built-in defaults) and result type tag.
// Returns: pipeline collaborator sources.
type ValidatorConfig struct {
	SchemaFile string `toml:"schema_file"`
	SanityFile string `toml:"sanity_file"`
	PolicyFile string `toml:"policy_file"`
	TypeTag    string `toml:"type_tag"`
}

// LogConfig contains console/file logging sinks.
// Params: sink settings for each output target.
// Returns: logger setup options.
type LogConfig struct {
	Console LogSinkConfig `toml:"console"`
	File    LogSinkConfig `toml:"file"`
}

// LogSinkConfig defines one logging sink.
// Params: sink enable flag, level, format, and path.
// Returns: sink-specific behavior.
type LogSinkConfig struct {
	Enabled bool   `toml:"enabled"`
	Level   string `toml:"level"`
	Format  string `toml:"format"`
	Path    string `toml:"path"`
}

// ConfigSource defines configuration source.
// Params: exactly one of file path or directory path.
// Returns: normalized source descriptor.
type ConfigSource struct {
	File string
	Dir  string
}

// FromCLI builds normalized source configuration from input paths.
// Params: optional file and directory arguments.
// Returns: source descriptor or validation error.
func FromCLI(filePath, dirPath string) (ConfigSource, error) {
	filePath = strings.TrimSpace(filePath)
	dirPath = strings.TrimSpace(dirPath)

	if filePath == "" && dirPath == "" {
		return ConfigSource{}, errors.New("either --config-file or --config-dir must be provided")
	}
	if filePath != "" && dirPath != "" {
		return ConfigSource{}, errors.New("config source must be either file or dir")
	}

	if filePath != "" {
		return ConfigSource{File: filePath}, nil
	}
	return ConfigSource{Dir: dirPath}, nil
}

// LoadSnapshot loads and validates configuration from one source.
// Params: source selects file or directory mode.
// Returns: validated config or load/validation error.
func LoadSnapshot(src ConfigSource) (Config, error) {
	var cfg Config
	var err error
	if src.File != "" {
		err = loadFile(src.File, &cfg)
	} else {
		err = loadDir(src.Dir, &cfg)
	}
	if err != nil {
		return Config{}, err
	}
	applyDefaults(&cfg)
	if err := validateConfig(cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Defaults returns configuration used when no file is given.
// Params: none.
// Returns: config with every default applied; no ingest interface is enabled.
func Defaults() Config {
	var cfg Config
	applyDefaults(&cfg)
	return cfg
}

// rejectUnsupportedSyntax reports sections this service does not own.
// Params: raw TOML file body.
// Returns: error when unsupported syntax is detected.
func rejectUnsupportedSyntax(body []byte) error {
	if unsupportedSectionPattern.Match(body) {
		return errors.New("[rule], [notify] and [state] sections are not supported; sanity rules live in validator.sanity_file")
	}
	return nil
}

// loadFile decodes one TOML file on top of dst.
// Params: file path and destination config; keys absent from file keep dst values.
// Returns: read/decode error.
func loadFile(path string, dst *Config) error {
	body, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file %q: %w", path, err)
	}
	if err := rejectUnsupportedSyntax(body); err != nil {
		return fmt.Errorf("decode config file %q: %w", path, err)
	}
	decoder := toml.NewDecoder(bytes.NewReader(body))
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(dst); err != nil {
		return fmt.Errorf("decode config file %q: %w", path, err)
	}
	return nil
}

// loadDir overlays every TOML file of one directory in lexical order.
// Params: directory containing config fragments and destination config.
// Returns: load/decode error.
func loadDir(dir string, dst *Config) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("read config dir %q: %w", dir, err)
	}

	files := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if strings.ToLower(filepath.Ext(name)) != ".toml" {
			continue
		}
		files = append(files, filepath.Join(dir, name))
	}
	if len(files) == 0 {
		return fmt.Errorf("no .toml files found in %q", dir)
	}
	sort.Strings(files)

	for _, file := range files {
		if err := loadFile(file, dst); err != nil {
			return err
		}
	}
	return nil
}

// applyDefaults fills unset values.
// Params: config to mutate.
// Returns: none.
func applyDefaults(cfg *Config) {
	if strings.TrimSpace(cfg.Service.Name) == "" {
		cfg.Service.Name = defaultServiceName
	}
	if cfg.Service.ReloadIntervalSec == 0 {
		cfg.Service.ReloadIntervalSec = defaultReloadInterval
	}

	if cfg.Log.Console.Level == "" {
		cfg.Log.Console.Level = "info"
	}
	if cfg.Log.Console.Format == "" {
		cfg.Log.Console.Format = "line"
	}
	if cfg.Log.File.Level == "" {
		cfg.Log.File.Level = "info"
	}
	if cfg.Log.File.Format == "" {
		cfg.Log.File.Format = "json"
	}
	if !cfg.Log.Console.Enabled && !cfg.Log.File.Enabled {
		cfg.Log.Console.Enabled = true
	}

	if strings.TrimSpace(cfg.Ingest.HTTP.Listen) == "" {
		cfg.Ingest.HTTP.Listen = defaultHTTPListen
	}
	if strings.TrimSpace(cfg.Ingest.HTTP.HealthPath) == "" {
		cfg.Ingest.HTTP.HealthPath = defaultHealthPath
	}
	if strings.TrimSpace(cfg.Ingest.HTTP.ReadyPath) == "" {
		cfg.Ingest.HTTP.ReadyPath = defaultReadyPath
	}
	if strings.TrimSpace(cfg.Ingest.HTTP.ValidatePath) == "" {
		cfg.Ingest.HTTP.ValidatePath = defaultValidatePath
	}
	if cfg.Ingest.HTTP.MaxBodyBytes <= 0 {
		cfg.Ingest.HTTP.MaxBodyBytes = defaultMaxBodyBytes
	}

	cfg.Ingest.NATS.URL = normalizeNATSURLs(cfg.Ingest.NATS.URL)
	if len(cfg.Ingest.NATS.URL) == 0 {
		cfg.Ingest.NATS.URL = []string{defaultNATSURL}
	}
	if strings.TrimSpace(cfg.Ingest.NATS.Subject) == "" {
		cfg.Ingest.NATS.Subject = defaultNATSSubject
	}
	if strings.TrimSpace(cfg.Ingest.NATS.QueueGroup) == "" {
		cfg.Ingest.NATS.QueueGroup = defaultNATSQueueGroup
	}

	if strings.TrimSpace(cfg.Publish.Subject) == "" {
		cfg.Publish.Subject = defaultPublishSubject
	}
	if strings.TrimSpace(cfg.Publish.Stream) == "" {
		cfg.Publish.Stream = defaultPublishStream
	}
	if strings.TrimSpace(cfg.Publish.Consumer) == "" {
		cfg.Publish.Consumer = defaultDeployConsumer
	}
	if cfg.Publish.AckWaitSec <= 0 {
		cfg.Publish.AckWaitSec = defaultAckWaitSec
	}
	if cfg.Publish.NackDelayMS == 0 {
		cfg.Publish.NackDelayMS = defaultNackDelayMS
	}
	if cfg.Publish.MaxDeliver == 0 {
		cfg.Publish.MaxDeliver = defaultMaxDeliver
	}

	cfg.Controller.Scheme = strings.ToLower(strings.TrimSpace(cfg.Controller.Scheme))
	if cfg.Controller.Scheme == "" {
		cfg.Controller.Scheme = SchemeHTTP
	}
	if cfg.Controller.Port == 0 {
		cfg.Controller.Port = defaultControllerPort
	}
	cfg.Controller.DeployPath = strings.Trim(strings.TrimSpace(cfg.Controller.DeployPath), "/")
	if cfg.Controller.DeployPath == "" {
		cfg.Controller.DeployPath = defaultDeployPath
	}
	if cfg.Controller.TimeoutSec <= 0 {
		cfg.Controller.TimeoutSec = defaultTimeoutSec
	}

	if strings.TrimSpace(cfg.Validator.TypeTag) == "" {
		cfg.Validator.TypeTag = domain.DefaultTypeTag
	}
}

// validateConfig checks a defaulted snapshot.
// Params: config after applyDefaults.
// Returns: first validation error.
func validateConfig(cfg Config) error {
	if cfg.Service.ReloadEnabled && cfg.Service.ReloadIntervalSec <= 0 {
		return errors.New("service.reload_interval_sec must be > 0 when reload is enabled")
	}
	if err := validateLogSink("log.console", cfg.Log.Console, false); err != nil {
		return err
	}
	if err := validateLogSink("log.file", cfg.Log.File, true); err != nil {
		return err
	}

	if !cfg.Ingest.HTTP.Enabled && !cfg.Ingest.NATS.Enabled {
		return errors.New("at least one of ingest.http.enabled or ingest.nats.enabled must be true")
	}
	paths := []struct {
		name  string
		value string
	}{
		{name: "ingest.http.health_path", value: cfg.Ingest.HTTP.HealthPath},
		{name: "ingest.http.ready_path", value: cfg.Ingest.HTTP.ReadyPath},
		{name: "ingest.http.validate_path", value: cfg.Ingest.HTTP.ValidatePath},
	}
	for _, path := range paths {
		if !strings.HasPrefix(path.value, "/") {
			return fmt.Errorf("%s must start with /", path.name)
		}
	}
	if cfg.Ingest.HTTP.ValidatePath == cfg.Ingest.HTTP.HealthPath || cfg.Ingest.HTTP.ValidatePath == cfg.Ingest.HTTP.ReadyPath {
		return errors.New("ingest.http.validate_path must differ from health_path and ready_path")
	}

	for i, url := range cfg.Ingest.NATS.URL {
		if url == "" {
			return fmt.Errorf("ingest.nats.url[%d] is empty", i)
		}
	}
	if cfg.Publish.Enabled && cfg.Publish.Subject == cfg.Ingest.NATS.Subject {
		return errors.New("publish.subject must differ from ingest.nats.subject")
	}
	if cfg.Publish.Deploy {
		if !cfg.Publish.Enabled {
			return errors.New("publish.deploy requires publish.enabled=true")
		}
		if !cfg.Controller.Enabled {
			return errors.New("publish.deploy requires controller.enabled=true")
		}
	}
	if cfg.Publish.NackDelayMS < 0 {
		return errors.New("publish.nack_delay_ms must be >=0")
	}
	if cfg.Publish.MaxDeliver < -1 {
		return errors.New("publish.max_deliver must be -1 or >0")
	}

	if cfg.Controller.Enabled {
		if strings.TrimSpace(cfg.Controller.Host) == "" {
			return errors.New("controller.host is required when controller.enabled=true")
		}
		if strings.TrimSpace(cfg.Controller.Token) == "" {
			return errors.New("controller.token is required when controller.enabled=true")
		}
	}
	if cfg.Controller.Port <= 0 || cfg.Controller.Port > 65535 {
		return fmt.Errorf("controller.port has unsupported value %d", cfg.Controller.Port)
	}
	switch cfg.Controller.Scheme {
	case SchemeHTTP, SchemeHTTPS:
	default:
		return fmt.Errorf("controller.scheme has unsupported value %q", cfg.Controller.Scheme)
	}
	return nil
}

// normalizeNATSURLs trims spaces around each configured NATS URL.
// Params: raw URL list from config.
// Returns: normalized URL list preserving element count for validation.
func normalizeNATSURLs(urls []string) []string {
	if len(urls) == 0 {
		return nil
	}
	out := make([]string, len(urls))
	for i := range urls {
		out[i] = strings.TrimSpace(urls[i])
	}
	return out
}

// validateLogSink validates one log sink configuration.
// Params: sink name, sink values, and whether path is required.
// Returns: sink validation error.
func validateLogSink(name string, sink LogSinkConfig, requirePath bool) error {
	if !sink.Enabled {
		return nil
	}

	switch strings.ToLower(strings.TrimSpace(sink.Level)) {
	case "debug", "info", "warn", "error", "panic":
	default:
		return fmt.Errorf("%s.level has unsupported value %q", name, sink.Level)
	}

	switch strings.ToLower(strings.TrimSpace(sink.Format)) {
	case "line", "json":
	default:
		return fmt.Errorf("%s.format has unsupported value %q", name, sink.Format)
	}

	if requirePath && strings.TrimSpace(sink.Path) == "" {
		return fmt.Errorf("%s.path is required", name)
	}

	return nil
}
