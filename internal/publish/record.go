// Package publish streams accepted sniffer configurations through JetStream
// and optionally deploys them from the stream.
package publish

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"errors"
	"time"

	"snifferconfig/internal/domain"
)

// Record is one accepted configuration as stored in the stream.
// Params: deterministic id, accepted result, and acceptance time.
// Returns: stream message payload.
type Record struct {
	ID         string        `json:"id"`
	Result     domain.Result `json:"result"`
	AcceptedAt time.Time     `json:"accepted_at"`
}

// NewRecord wraps an accepted result.
// Params: result and acceptance timestamp.
// Returns: record with id derived from result content.
func NewRecord(result domain.Result, acceptedAt time.Time) Record {
	return Record{ID: BuildRecordID(result), Result: result, AcceptedAt: acceptedAt}
}

// BuildRecordID creates deterministic id used as JetStream dedupe key.
// Params: accepted result.
// Returns: SHA1 hex of component id and config text.
func BuildRecordID(result domain.Result) string {
	sum := sha1.Sum([]byte(result.ID + "|" + result.ConfigStr))
	return hex.EncodeToString(sum[:])
}

// Producer publishes accepted configurations.
type Producer interface {
	Publish(ctx context.Context, record Record) error
	Close() error
}

// retryable is implemented by errors that know whether a retry can help.
type retryable interface {
	Retryable() bool
}

// IsRetryable reports whether a deploy failure should be redelivered.
// Params: handler error.
// Returns: false only when the error chain declares itself non-retryable.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	var tagged retryable
	if errors.As(err, &tagged) {
		return tagged.Retryable()
	}
	return true
}
