package controller

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"testing"
	"time"

	"snifferconfig/internal/config"
	"snifferconfig/internal/domain"
)

func TestRequestGETSendsAuthHeaders(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			t.Errorf("unexpected method %s", r.Method)
		}
		if r.URL.Path != "/status" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer secret" {
			t.Errorf("unexpected authorization %q", got)
		}
		if got := r.Header.Get("User-Agent"); got != UserAgent {
			t.Errorf("unexpected user agent %q", got)
		}
		if got := r.Header.Get("Accept"); got != "application/json" {
			t.Errorf("unexpected accept %q", got)
		}
		if got := r.Header.Get("Content-Type"); got != "" {
			t.Errorf("GET must not carry content type, got %q", got)
		}
		_, _ = w.Write([]byte(`{"status":"up"}`))
	}))
	defer server.Close()

	ok, body := newTestClient(t, server.URL).Request(context.Background(), "status", nil)
	if !ok {
		t.Fatalf("expected success, got %v", body)
	}
	if body["status"] != "up" {
		t.Fatalf("unexpected body %v", body)
	}
}

func TestRequestPOSTSendsJSONPayload(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("unexpected method %s", r.Method)
		}
		if got := r.Header.Get("Content-Type"); got != "application/json" {
			t.Errorf("unexpected content type %q", got)
		}
		var payload map[string]string
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			t.Errorf("decode payload: %v", err)
		}
		if payload["id"] != "x1" || payload["type"] != "sni5gect" || payload["config_str"] != "rf: {}\n" {
			t.Errorf("unexpected payload %v", payload)
		}
		_, _ = w.Write([]byte(`{"deployed":true}`))
	}))
	defer server.Close()

	body, err := newTestClient(t, server.URL).Deploy(context.Background(), domain.Result{ID: "x1", Type: "sni5gect", ConfigStr: "rf: {}\n"})
	if err != nil {
		t.Fatalf("deploy: %v", err)
	}
	if body["deployed"] != true {
		t.Fatalf("unexpected body %v", body)
	}
}

func TestRequestNon200ReturnsBodyText(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusCreated)
		_, _ = io.WriteString(w, "created elsewhere")
	}))
	defer server.Close()

	ok, body := newTestClient(t, server.URL).Request(context.Background(), "/deploy", map[string]string{"a": "b"})
	if ok {
		t.Fatalf("only 200 counts as success")
	}
	if body["error"] != "created elsewhere" {
		t.Fatalf("unexpected body %v", body)
	}
}

func TestDeployClassifiesStatus(t *testing.T) {
	t.Parallel()

	cases := []struct {
		status    int
		retryable bool
	}{
		{status: http.StatusBadRequest, retryable: false},
		{status: http.StatusUnauthorized, retryable: false},
		{status: http.StatusTooManyRequests, retryable: true},
		{status: http.StatusBadGateway, retryable: true},
	}
	for _, tc := range cases {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(tc.status)
		}))
		_, err := newTestClient(t, server.URL).Deploy(context.Background(), domain.Result{ID: "x1"})
		server.Close()

		var statusErr *StatusError
		if !errors.As(err, &statusErr) {
			t.Fatalf("status %d: expected StatusError, got %v", tc.status, err)
		}
		if statusErr.Code != tc.status || statusErr.Retryable() != tc.retryable {
			t.Fatalf("status %d: unexpected classification %+v retryable=%v", tc.status, statusErr, statusErr.Retryable())
		}
	}
}

func TestRequestTransportErrorAndBadJSON(t *testing.T) {
	t.Parallel()

	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	closedURL := "http://" + listener.Addr().String()
	_ = listener.Close()

	ok, body := newTestClient(t, closedURL).Request(context.Background(), "status", nil)
	if ok || !strings.Contains(body["error"].(string), "controller GET status") {
		t.Fatalf("unexpected transport result ok=%v body=%v", ok, body)
	}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, "not json")
	}))
	defer server.Close()

	ok, body = newTestClient(t, server.URL).Request(context.Background(), "status", nil)
	if ok || !strings.Contains(body["error"].(string), "decode controller response") {
		t.Fatalf("unexpected decode result ok=%v body=%v", ok, body)
	}
}

func TestRequestSkipsTLSVerification(t *testing.T) {
	t.Parallel()

	server := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`[1,2]`))
	}))
	defer server.Close()

	ok, body := newTestClient(t, server.URL).Request(context.Background(), "list", nil)
	if !ok {
		t.Fatalf("expected success over self-signed TLS, got %v", body)
	}
	if _, wrapped := body["result"]; !wrapped {
		t.Fatalf("non-object body must be wrapped, got %v", body)
	}
}

func newTestClient(t *testing.T, rawURL string) *Client {
	t.Helper()
	parsed, err := url.Parse(rawURL)
	if err != nil {
		t.Fatalf("parse url: %v", err)
	}
	port, err := strconv.Atoi(parsed.Port())
	if err != nil {
		t.Fatalf("parse port: %v", err)
	}
	return New(config.ControllerConfig{
		Host:       parsed.Hostname(),
		Port:       port,
		Token:      "secret",
		Scheme:     parsed.Scheme,
		DeployPath: "/deploy/",
		TimeoutSec: int((2 * time.Second).Seconds()),
	}, nil)
}
