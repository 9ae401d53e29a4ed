package publish

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"snifferconfig/internal/config"
	"snifferconfig/internal/logging"

	"github.com/nats-io/nats.go"
)

const streamMaxAge = 7 * 24 * time.Hour

// NATSProducer publishes records into a JetStream stream.
// Params: NATS connection and publish subject.
// Returns: producer implementation.
type NATSProducer struct {
	nc      *nats.Conn
	js      nats.JetStreamContext
	subject string
}

// NewNATSProducer creates JetStream producer, creating the stream on demand.
// Params: NATS URLs and publish config.
// Returns: initialized producer or setup error.
func NewNATSProducer(urls []string, cfg config.PublishConfig) (*NATSProducer, error) {
	nc, js, err := openJetStream(urls, cfg)
	if err != nil {
		return nil, err
	}
	return &NATSProducer{nc: nc, js: js, subject: cfg.Subject}, nil
}

// Publish sends one record; duplicates within the stream window are dropped by id.
// Params: context and record.
// Returns: publish error.
func (p *NATSProducer) Publish(ctx context.Context, record Record) error {
	body, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("marshal config record: %w", err)
	}
	msg := nats.NewMsg(p.subject)
	msg.Data = body
	if id := strings.TrimSpace(record.ID); id != "" {
		msg.Header.Set(nats.MsgIdHdr, id)
	}
	if _, err := p.js.PublishMsg(msg, nats.Context(ctx)); err != nil {
		return fmt.Errorf("publish config record: %w", err)
	}
	return nil
}

// Close closes producer NATS connection.
func (p *NATSProducer) Close() error {
	if p == nil || p.nc == nil {
		return nil
	}
	p.nc.Close()
	return nil
}

// DeployWorker consumes published records and hands them to a deploy handler.
// Params: NATS connection and durable queue subscription.
// Returns: worker lifecycle handle.
type DeployWorker struct {
	nc     *nats.Conn
	sub    *nats.Subscription
	logger *slog.Logger
}

// NewDeployWorker starts a durable consumer on the publish stream.
// Params: NATS URLs, publish config, logger, and per-record handler.
// Returns: running worker or setup error.
func NewDeployWorker(urls []string, cfg config.PublishConfig, logger *slog.Logger, handler func(ctx context.Context, record Record) error) (*DeployWorker, error) {
	if handler == nil {
		return nil, errors.New("deploy worker requires a handler")
	}
	nc, js, err := openJetStream(urls, cfg)
	if err != nil {
		return nil, err
	}

	worker := &DeployWorker{nc: nc, logger: logging.OrDiscard(logger)}
	nackDelay := time.Duration(cfg.NackDelayMS) * time.Millisecond
	subOpts := []nats.SubOpt{
		nats.BindStream(cfg.Stream),
		nats.Durable(cfg.Consumer),
		nats.ManualAck(),
		nats.AckExplicit(),
		nats.AckWait(time.Duration(cfg.AckWaitSec) * time.Second),
		nats.MaxDeliver(cfg.MaxDeliver),
		nats.DeliverAll(),
	}
	sub, err := js.QueueSubscribe(cfg.Subject, cfg.Consumer, func(message *nats.Msg) {
		worker.handle(message, handler, cfg.MaxDeliver, nackDelay)
	}, subOpts...)
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("queue subscribe deploy %q/%q: %w", cfg.Subject, cfg.Consumer, err)
	}
	worker.sub = sub
	return worker, nil
}

func (w *DeployWorker) handle(message *nats.Msg, handler func(ctx context.Context, record Record) error, maxDeliver int, nackDelay time.Duration) {
	if message == nil {
		return
	}
	var record Record
	if err := json.Unmarshal(message.Data, &record); err != nil {
		w.logger.Warn("deploy record decode failed", "subject", message.Subject, "error", err.Error())
		_ = message.Ack()
		return
	}

	err := handler(context.Background(), record)
	if err == nil {
		_ = message.Ack()
		return
	}

	attempts := deliveryAttempts(message)
	switch {
	case !IsRetryable(err):
		w.logger.Error("deploy rejected, dropping record", "id", record.Result.ID, "record", record.ID, "error", err.Error())
		_ = message.Ack()
	case isMaxDeliverExceeded(attempts, maxDeliver):
		w.logger.Error("deploy retries exhausted", "id", record.Result.ID, "record", record.ID, "attempts", attempts, "error", err.Error())
		_ = message.Ack()
	default:
		w.logger.Warn("deploy failed, will retry", "id", record.Result.ID, "attempts", attempts, "error", err.Error())
		if nackDelay > 0 {
			_ = message.NakWithDelay(nackDelay)
		} else {
			_ = message.Nak()
		}
	}
}

// Close drains worker subscription and closes NATS connection.
// Params: none.
// Returns: close error from subscription drain.
func (w *DeployWorker) Close() error {
	if w == nil || w.nc == nil {
		return nil
	}
	if w.sub != nil {
		if err := w.sub.Drain(); err != nil {
			w.nc.Close()
			return err
		}
	}
	w.nc.Close()
	return nil
}

// ensureStream ensures the record stream exists.
// Params: JetStream context, stream name, and subject.
// Returns: stream create/lookup error.
func ensureStream(js nats.JetStreamContext, streamName, subject string) error {
	_, err := js.StreamInfo(streamName)
	if err == nil {
		return nil
	}
	if !errors.Is(err, nats.ErrStreamNotFound) && !strings.Contains(strings.ToLower(err.Error()), "stream not found") {
		return fmt.Errorf("stream info %q: %w", streamName, err)
	}

	_, err = js.AddStream(&nats.StreamConfig{
		Name:      streamName,
		Subjects:  []string{subject},
		Retention: nats.LimitsPolicy,
		Storage:   nats.FileStorage,
		MaxAge:    streamMaxAge,
	})
	if err != nil {
		return fmt.Errorf("create stream %q: %w", streamName, err)
	}
	return nil
}

// openJetStream opens connection/JetStream and ensures the record stream exists.
// Params: NATS URLs and publish config.
// Returns: opened NATS connection, JetStream context, and setup error.
func openJetStream(urls []string, cfg config.PublishConfig) (*nats.Conn, nats.JetStreamContext, error) {
	nc, err := nats.Connect(strings.Join(urls, ","))
	if err != nil {
		return nil, nil, fmt.Errorf("connect publish nats: %w", err)
	}
	js, err := nc.JetStream()
	if err != nil {
		nc.Close()
		return nil, nil, fmt.Errorf("jetstream init for publish: %w", err)
	}
	if err := ensureStream(js, cfg.Stream, cfg.Subject); err != nil {
		nc.Close()
		return nil, nil, err
	}
	return nc, js, nil
}

// deliveryAttempts returns number of delivery attempts from JetStream metadata.
func deliveryAttempts(message *nats.Msg) uint64 {
	metadata, err := message.Metadata()
	if err != nil || metadata == nil || metadata.NumDelivered == 0 {
		return 1
	}
	return metadata.NumDelivered
}

// isMaxDeliverExceeded reports if current attempt reached configured max deliver.
func isMaxDeliverExceeded(attempts uint64, maxDeliver int) bool {
	if maxDeliver <= 0 {
		return false
	}
	return attempts >= uint64(maxDeliver)
}
