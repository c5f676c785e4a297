package nats

import (
	"encoding/json"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/openclinic/docpipeline/internal/core/domain"
)

// Sink publishes progress events to a NATS subject so external UI
// gateways can fan them out to browsers. Publishing is fire-and-forget:
// a broken connection is logged, never surfaced to the pipeline.
type Sink struct {
	conn    *nats.Conn
	subject string
}

type Options struct {
	ConnectTimeout       time.Duration
	ReconnectWait        time.Duration
	MaxReconnects        int
	RetryOnFailedConnect *bool
}

func New(url, subject string) (*Sink, error) {
	return NewWithOptions(url, subject, Options{})
}

func NewWithOptions(url, subject string, options Options) (*Sink, error) {
	connectTimeout := options.ConnectTimeout
	if connectTimeout <= 0 {
		connectTimeout = 2 * time.Second
	}
	reconnectWait := options.ReconnectWait
	if reconnectWait <= 0 {
		reconnectWait = 2 * time.Second
	}
	maxReconnects := options.MaxReconnects
	if maxReconnects <= 0 {
		maxReconnects = 60
	}
	retryOnFailedConnect := true
	if options.RetryOnFailedConnect != nil {
		retryOnFailedConnect = *options.RetryOnFailedConnect
	}

	conn, err := nats.Connect(
		url,
		nats.Name("docpipeline"),
		nats.Timeout(connectTimeout),
		nats.ReconnectWait(reconnectWait),
		nats.MaxReconnects(maxReconnects),
		nats.RetryOnFailedConnect(retryOnFailedConnect),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			slog.Warn("nats disconnected", "error", err)
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			slog.Info("nats reconnected", "url", nc.ConnectedUrl())
		}),
	)
	if err != nil {
		return nil, err
	}
	return &Sink{conn: conn, subject: subject}, nil
}

func (s *Sink) Publish(event domain.ProgressEvent) {
	payload, err := json.Marshal(event)
	if err != nil {
		slog.Warn("progress event marshal failed", "job_id", event.JobID, "error", err)
		return
	}
	if err := s.conn.Publish(s.subject, payload); err != nil {
		slog.Warn("progress event publish failed", "job_id", event.JobID, "error", err)
	}
}

func (s *Sink) Close() {
	if s.conn != nil {
		s.conn.Close()
	}
}
