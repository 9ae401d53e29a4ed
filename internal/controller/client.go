// Package controller talks to the remote controller that deploys accepted
// sniffer configurations.
package controller

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"strings"

	"snifferconfig/internal/config"
	"snifferconfig/internal/domain"
	"snifferconfig/internal/logging"
)

// UserAgent identifies this client to the controller.
const UserAgent = "llm_worker/1.0"

// Client issues bearer-authenticated JSON requests against the controller.
// Params: base URL, token, deploy endpoint, and HTTP client with timeout.
// Returns: stateless client; no retries.
type Client struct {
	baseURL    string
	token      string
	deployPath string
	client     *http.Client
	logger     *slog.Logger
}

// New creates controller client from config.
// Params: controller config and logger (nil discards).
// Returns: initialized client; TLS certificates are not verified.
func New(cfg config.ControllerConfig, logger *slog.Logger) *Client {
	scheme := cfg.Scheme
	if scheme == "" {
		scheme = config.SchemeHTTP
	}
	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true}

	return &Client{
		baseURL:    scheme + "://" + net.JoinHostPort(strings.TrimSpace(cfg.Host), strconv.Itoa(cfg.Port)),
		token:      strings.TrimSpace(cfg.Token),
		deployPath: strings.Trim(cfg.DeployPath, "/"),
		client:     &http.Client{Timeout: cfg.Timeout(), Transport: transport},
		logger:     logging.OrDiscard(logger),
	}
}

// BaseURL returns controller root URL.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// StatusError reports a controller reply other than HTTP 200.
type StatusError struct {
	Code int
	Body string
}

// Error returns formatted message.
func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("controller status=%d", e.Code)
	}
	return fmt.Sprintf("controller status=%d body=%s", e.Code, e.Body)
}

// Retryable reports whether repeating the request may succeed.
func (e *StatusError) Retryable() bool {
	return e.Code >= 500 || e.Code == http.StatusTooManyRequests || e.Code == http.StatusRequestTimeout
}

// Request calls one controller endpoint.
// Params: context, endpoint path relative to base URL, and optional payload (nil sends GET).
// Returns: true with decoded body on HTTP 200; otherwise false with {"error": text}.
func (c *Client) Request(ctx context.Context, path string, payload any) (bool, map[string]any) {
	body, err := c.do(ctx, path, payload)
	if err != nil {
		var statusErr *StatusError
		if errors.As(err, &statusErr) {
			return false, map[string]any{"error": statusErr.Body}
		}
		return false, map[string]any{"error": err.Error()}
	}
	return true, body
}

// Deploy posts one accepted configuration to the deploy endpoint.
// Params: context and accepted result.
// Returns: controller response body, *StatusError for non-200 replies, or transport error.
func (c *Client) Deploy(ctx context.Context, result domain.Result) (map[string]any, error) {
	body, err := c.do(ctx, c.deployPath, result)
	if err != nil {
		return nil, fmt.Errorf("controller deploy %q: %w", result.ID, err)
	}
	return body, nil
}

func (c *Client) do(ctx context.Context, path string, payload any) (map[string]any, error) {
	method := http.MethodGet
	var body io.Reader
	if payload != nil {
		encoded, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("encode controller payload: %w", err)
		}
		method = http.MethodPost
		body = bytes.NewReader(encoded)
	}

	endpoint := c.baseURL + "/" + strings.TrimLeft(path, "/")
	request, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return nil, fmt.Errorf("build controller request: %w", err)
	}
	request.Header.Set("Authorization", "Bearer "+c.token)
	request.Header.Set("Accept", "application/json")
	request.Header.Set("User-Agent", UserAgent)
	if payload != nil {
		request.Header.Set("Content-Type", "application/json")
	}

	c.logger.Info("controller request", "method", method, "path", path)
	response, err := c.client.Do(request)
	if err != nil {
		return nil, fmt.Errorf("controller %s %s: %w", method, path, err)
	}
	defer response.Body.Close()

	raw, err := io.ReadAll(response.Body)
	if err != nil {
		return nil, fmt.Errorf("read controller response: %w", err)
	}
	if response.StatusCode != http.StatusOK {
		return nil, &StatusError{Code: response.StatusCode, Body: string(raw)}
	}

	var decoded any
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return nil, fmt.Errorf("decode controller response: %w", err)
	}
	if object, ok := decoded.(map[string]any); ok {
		return object, nil
	}
	return map[string]any{"result": decoded}, nil
}
