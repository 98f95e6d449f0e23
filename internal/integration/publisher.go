package integration

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog/log"

	"github.com/wlan-sim/wlan-sim-pro/internal/config"
	"github.com/wlan-sim/wlan-sim-pro/internal/models"
	"github.com/wlan-sim/wlan-sim-pro/internal/storage"
	"github.com/wlan-sim/wlan-sim-pro/pkg/wlan"
)

// Publisher forwards scenario events to external systems
type Publisher interface {
	PublishEpoch(ctx context.Context, event *models.EpochEvent) error
	PublishRun(ctx context.Context, event *models.RunEvent) error
}

// Conn is the part of *nats.Conn used for publishing
type Conn interface {
	Publish(subject string, data []byte) error
}

// Connect dials NATS using the configured credentials and reconnect policy
func Connect(cfg config.NATSConfig, name string) (*nats.Conn, error) {
	opts := []nats.Option{
		nats.Name(name),
		nats.ReconnectWait(cfg.ReconnectInterval),
		nats.MaxReconnects(cfg.MaxReconnects),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				log.Warn().Err(err).Msg("NATS disconnected")
			}
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.Info().Str("url", nc.ConnectedUrl()).Msg("NATS reconnected")
		}),
	}
	if cfg.Username != "" {
		opts = append(opts, nats.UserInfo(cfg.Username, cfg.Password))
	}

	nc, err := nats.Connect(cfg.URL, opts...)
	if err != nil {
		return nil, fmt.Errorf("connect nats %s: %w", cfg.URL, err)
	}
	return nc, nil
}

// EpochSubject returns <prefix>.<run>.<discipline>.epoch
func EpochSubject(prefix string, runID uuid.UUID, d wlan.Discipline) string {
	return strings.Join([]string{prefix, runID.String(), d.String(), "epoch"}, ".")
}

// ResultSubject returns <prefix>.<run>.result
func ResultSubject(prefix string, runID uuid.UUID) string {
	return strings.Join([]string{prefix, runID.String(), "result"}, ".")
}

// StatusSubject returns <prefix>.<run>.status
func StatusSubject(prefix string, runID uuid.UUID) string {
	return strings.Join([]string{prefix, runID.String(), "status"}, ".")
}

// NATSPublisher publishes JSON events on NATS subjects under a prefix
type NATSPublisher struct {
	nc     Conn
	prefix string
}

// NewNATSPublisher creates a publisher
func NewNATSPublisher(nc Conn, prefix string) *NATSPublisher {
	if prefix == "" {
		prefix = "wlan.sim"
	}
	return &NATSPublisher{nc: nc, prefix: prefix}
}

// PublishEpoch publishes an epoch event
func (p *NATSPublisher) PublishEpoch(ctx context.Context, event *models.EpochEvent) error {
	return p.publish(EpochSubject(p.prefix, event.RunID, event.Discipline), event)
}

// PublishRun publishes finished and failed runs on the result subject, everything else on status
func (p *NATSPublisher) PublishRun(ctx context.Context, event *models.RunEvent) error {
	subject := StatusSubject(p.prefix, event.RunID)
	if event.Type == models.EventTypeRunFinished || event.Type == models.EventTypeRunFailed {
		subject = ResultSubject(p.prefix, event.RunID)
	}
	return p.publish(subject, event)
}

func (p *NATSPublisher) publish(subject string, v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal event for %s: %w", subject, err)
	}

	if err := p.nc.Publish(subject, data); err != nil {
		return fmt.Errorf("publish %s: %w", subject, err)
	}

	log.Debug().
		Str("subject", subject).
		Int("size", len(data)).
		Msg("Event published")
	return nil
}

// StorePublisher records epoch events in a store
type StorePublisher struct {
	store storage.Store
}

// NewStorePublisher creates a publisher backed by store
func NewStorePublisher(store storage.Store) *StorePublisher {
	return &StorePublisher{store: store}
}

// PublishEpoch stores the event
func (p *StorePublisher) PublishEpoch(ctx context.Context, event *models.EpochEvent) error {
	return p.store.CreateEpochEvent(ctx, event)
}

// PublishRun is a no-op; runs are persisted by their owner
func (p *StorePublisher) PublishRun(ctx context.Context, event *models.RunEvent) error {
	return nil
}

// NopPublisher discards every event
type NopPublisher struct{}

// PublishEpoch implements Publisher
func (NopPublisher) PublishEpoch(context.Context, *models.EpochEvent) error { return nil }

// PublishRun implements Publisher
func (NopPublisher) PublishRun(context.Context, *models.RunEvent) error { return nil }

// MultiPublisher fans events out to several publishers. Failures are logged
// and the first error is returned after every publisher has been tried.
type MultiPublisher struct {
	mu         sync.RWMutex
	publishers []Publisher
}

// NewMultiPublisher creates a fan-out publisher
func NewMultiPublisher(publishers ...Publisher) *MultiPublisher {
	return &MultiPublisher{publishers: publishers}
}

// Add appends a publisher
func (m *MultiPublisher) Add(p Publisher) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.publishers = append(m.publishers, p)
}

// PublishEpoch implements Publisher
func (m *MultiPublisher) PublishEpoch(ctx context.Context, event *models.EpochEvent) error {
	return m.each(func(p Publisher) error { return p.PublishEpoch(ctx, event) })
}

// PublishRun implements Publisher
func (m *MultiPublisher) PublishRun(ctx context.Context, event *models.RunEvent) error {
	return m.each(func(p Publisher) error { return p.PublishRun(ctx, event) })
}

func (m *MultiPublisher) each(fn func(Publisher) error) error {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var first error
	for _, p := range m.publishers {
		if err := fn(p); err != nil {
			log.Error().Err(err).Msg("Failed to publish event")
			if first == nil {
				first = err
			}
		}
	}
	return first
}
