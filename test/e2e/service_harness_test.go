package e2e

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"testing"
	"time"

	"snifferconfig/internal/app"
	"snifferconfig/internal/config"
	"snifferconfig/internal/domain"
)

// newServiceFromConfig creates Service from a config file path.
// Params: test handle and absolute config path.
// Returns: initialized service instance.
func newServiceFromConfig(t *testing.T, path string) *app.Service {
	t.Helper()

	source, err := config.FromCLI(path, "")
	if err != nil {
		t.Fatalf("config source: %v", err)
	}
	service, err := app.NewService(source)
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return service
}

// runService starts service in background; cancel is also registered as cleanup.
// Params: test handle and initialized service.
// Returns: cancel callback and done channel with Run result.
func runService(t *testing.T, service *app.Service) (context.CancelFunc, <-chan error) {
	t.Helper()

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	done := make(chan error, 1)
	go func() {
		done <- service.Run(ctx)
	}()
	return cancel, done
}

// waitReady waits for /readyz endpoint to return 200.
func waitReady(t *testing.T, port int) {
	t.Helper()
	baseURL := fmt.Sprintf("http://127.0.0.1:%d", port)
	waitFor(t, 8*time.Second, func() bool {
		response, err := http.Get(baseURL + "/readyz")
		if err != nil {
			return false
		}
		defer response.Body.Close()
		return response.StatusCode == http.StatusOK
	})
}

// postValidate sends one document to the validate endpoint.
// Params: test handle, base URL, and raw document.
// Returns: HTTP status and decoded envelope.
func postValidate(t *testing.T, baseURL, body string) (int, domain.Response) {
	t.Helper()
	response, err := http.Post(baseURL+"/validate", "text/plain", strings.NewReader(body))
	if err != nil {
		t.Fatalf("validate request: %v", err)
	}
	defer response.Body.Close()
	raw, _ := io.ReadAll(response.Body)

	var envelope domain.Response
	if err := json.Unmarshal(raw, &envelope); err != nil {
		t.Fatalf("decode envelope %q: %v", raw, err)
	}
	return response.StatusCode, envelope
}

// waitServiceStop asserts service Run exits without error after cancellation.
func waitServiceStop(t *testing.T, done <-chan error) {
	t.Helper()
	select {
	case runErr := <-done:
		if runErr != nil {
			t.Fatalf("service run error: %v", runErr)
		}
	case <-time.After(8 * time.Second):
		t.Fatalf("service did not stop after cancel")
	}
}
