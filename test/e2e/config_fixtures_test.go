package e2e

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"
)

// e2eConfigPrefix builds common service/log/http config used in e2e tests.
// Params: HTTP port, NATS URL, and NATS request/reply toggle.
// Returns: TOML prefix string with stable defaults.
func e2eConfigPrefix(port int, natsURL string, natsEnabled bool) string {
	return fmt.Sprintf(`
[service]
name = "sniffer-validator-e2e"
reload_enabled = false

[log.console]
enabled = true
level = "error"
format = "line"

[ingest.http]
enabled = true
listen = "127.0.0.1:%d"
health_path = "/healthz"
ready_path = "/readyz"
validate_path = "/validate"
max_body_bytes = 1048576

[ingest.nats]
enabled = %t
url = ["%s"]
subject = "e2e.validate"
queue_group = "e2e-validators"
`, port, natsEnabled, natsURL)
}

// writeConfig stores config body in a temp file.
// Params: test handle and TOML body.
// Returns: absolute config path.
func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}
