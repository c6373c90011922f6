package events

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"

	"FeedRanker/internal/domain"
	"FeedRanker/internal/ports"
)

const (
	defaultPrefix  = "feedranker"
	defaultTimeout = 5 * time.Second
)

// Config holds NATS configuration.
type Config struct {
	URL           string        // NATS server URL (e.g., "nats://localhost:4222")
	SubjectPrefix string        // Subject namespace (default: "feedranker")
	Timeout       time.Duration // Connection timeout
}

// Envelope wraps every emitted event.
type Envelope struct {
	ID         string          `json:"id"`
	Type       string          `json:"type"`
	OccurredAt time.Time       `json:"occurredAt"`
	Payload    json.RawMessage `json:"payload"`
}

// conn is the subset of *nats.Conn the publisher needs.
type conn interface {
	Publish(subject string, data []byte) error
}

// Publisher emits profile and engagement events to NATS core subjects.
// Delivery is fire-and-forget.
type Publisher struct {
	conn   conn
	nc     *nats.Conn
	prefix string
	logger *slog.Logger
	now    func() time.Time
}

var (
	_ ports.ProfilePublisher = (*Publisher)(nil)
	_ ports.ActivityObserver = (*Publisher)(nil)
)

// Connect dials NATS with unlimited reconnects.
func Connect(cfg Config, logger *slog.Logger) (*Publisher, error) {
	if cfg.URL == "" {
		cfg.URL = nats.DefaultURL
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = defaultTimeout
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	logger = logger.With("component", "nats")

	nc, err := nats.Connect(cfg.URL,
		nats.Name("feedranker"),
		nats.Timeout(cfg.Timeout),
		nats.ReconnectWait(time.Second),
		nats.MaxReconnects(-1),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				logger.Warn("nats disconnected", "error", err)
			}
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			logger.Info("nats reconnected", "url", nc.ConnectedUrl())
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("connect to nats: %w", err)
	}

	p := newPublisher(nc, cfg.SubjectPrefix, logger)
	p.nc = nc
	logger.Info("connected to nats", "url", cfg.URL, "prefix", p.prefix)
	return p, nil
}

func newPublisher(c conn, prefix string, logger *slog.Logger) *Publisher {
	if prefix == "" {
		prefix = defaultPrefix
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Publisher{conn: c, prefix: prefix, logger: logger, now: time.Now}
}

// ProfileUpdatedSubject is where role profile changes are published.
func (p *Publisher) ProfileUpdatedSubject() string {
	return p.prefix + ".profile.updated"
}

// EngagementSubject is where engagements of the given type are published.
func (p *Publisher) EngagementSubject(t domain.EngagementType) string {
	return fmt.Sprintf("%s.engagement.%s", p.prefix, strings.ToLower(string(t)))
}

// PublishProfileUpdated emits the before/after roles of a profile update.
func (p *Publisher) PublishProfileUpdated(_ context.Context, result domain.UpdateResult) error {
	return p.publish(p.ProfileUpdatedSubject(), "profile.updated", result)
}

// OnEngagement emits a recorded engagement for streak and achievement consumers.
func (p *Publisher) OnEngagement(_ context.Context, e domain.Engagement) error {
	return p.publish(p.EngagementSubject(e.Type), "engagement.recorded", e)
}

func (p *Publisher) publish(subject, eventType string, payload any) error {
	raw, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal %s payload: %w", eventType, err)
	}
	data, err := json.Marshal(Envelope{
		ID:         uuid.NewString(),
		Type:       eventType,
		OccurredAt: p.now().UTC(),
		Payload:    raw,
	})
	if err != nil {
		return fmt.Errorf("marshal %s envelope: %w", eventType, err)
	}

	if err := p.conn.Publish(subject, data); err != nil {
		return fmt.Errorf("publish to %s: %w", subject, err)
	}
	return nil
}

// Close drains pending messages and closes the connection.
func (p *Publisher) Close() error {
	if p.nc == nil {
		return nil
	}
	if err := p.nc.Drain(); err != nil {
		p.nc.Close()
		return fmt.Errorf("drain nats: %w", err)
	}
	return nil
}
