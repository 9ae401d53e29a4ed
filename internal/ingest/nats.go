package ingest

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"snifferconfig/internal/config"
	"snifferconfig/internal/domain"
	"snifferconfig/internal/logging"

	"github.com/nats-io/nats.go"
)

// NATSResponder answers validation requests on a core NATS queue subscription.
// Params: NATS connection, queue subscription, and validator.
// Returns: NATS ingest lifecycle handle.
type NATSResponder struct {
	nc     *nats.Conn
	sub    *nats.Subscription
	logger *slog.Logger
}

// NewNATSResponder subscribes to the validate subject in the configured queue group.
// Params: ingest NATS config, validator, and optional logger.
// Returns: started responder or initialization error.
func NewNATSResponder(cfg config.NATSIngestConfig, validator Validator, logger *slog.Logger) (*NATSResponder, error) {
	nc, err := nats.Connect(strings.Join(cfg.URL, ","))
	if err != nil {
		return nil, fmt.Errorf("connect nats ingest: %w", err)
	}

	responder := &NATSResponder{nc: nc, logger: logging.OrDiscard(logger)}
	sub, err := nc.QueueSubscribe(cfg.Subject, cfg.QueueGroup, func(message *nats.Msg) {
		responder.handle(message, validator)
	})
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("queue subscribe %q/%q: %w", cfg.Subject, cfg.QueueGroup, err)
	}
	responder.sub = sub
	return responder, nil
}

func (r *NATSResponder) handle(message *nats.Msg, validator Validator) {
	if message.Reply == "" {
		r.logger.Warn("nats validate request without reply subject", "subject", message.Subject)
		return
	}

	response := r.validate(message, validator)
	payload, err := encodeResponse(response)
	if err != nil {
		r.logger.Error("nats validate encode failed", "subject", message.Subject, "error", err.Error())
		return
	}
	if err := message.Respond(payload); err != nil {
		r.logger.Warn("nats validate reply failed", "subject", message.Subject, "error", err.Error())
	}
}

// validate runs validator and turns a panic into a rejection so one request cannot stop the responder.
func (r *NATSResponder) validate(message *nats.Msg, validator Validator) (response domain.Response) {
	defer func() {
		if recovered := recover(); recovered != nil {
			r.logger.Error("nats validate panicked", "subject", message.Subject, "panic", fmt.Sprint(recovered))
			response = domain.Reject([]string{"internal validation error"})
		}
	}()
	return validator.Validate(context.Background(), string(message.Data))
}

// Close drains subscription and closes connection.
// Params: none.
// Returns: close error from subscription drain.
func (r *NATSResponder) Close() error {
	if r.sub != nil {
		if err := r.sub.Drain(); err != nil {
			r.nc.Close()
			return err
		}
	}
	r.nc.Close()
	return nil
}
