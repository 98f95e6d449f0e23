package server

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sync"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog/log"

	"github.com/wlan-sim/wlan-sim-pro/internal/models"
	"github.com/wlan-sim/wlan-sim-pro/internal/report"
)

// Subscriber is the part of *nats.Conn used for subscribing
type Subscriber interface {
	Subscribe(subject string, cb nats.MsgHandler) (*nats.Subscription, error)
}

// RunProgress summarizes what has been observed for one run
type RunProgress struct {
	RunID  uuid.UUID          `json:"runId"`
	Status models.RunStatus   `json:"status"`
	Epochs int                `json:"epochs"`
	Last   *models.EpochEvent `json:"last,omitempty"`
}

// NATSSubscriber follows scenario events published by simulator instances
type NATSSubscriber struct {
	nc     Subscriber
	prefix string
	out    io.Writer
	subs   []*nats.Subscription

	mu   sync.RWMutex
	runs map[uuid.UUID]*RunProgress
}

// NewNATSSubscriber creates NATS subscriber. Finished runs are rendered to out when it is not nil.
func NewNATSSubscriber(nc Subscriber, prefix string, out io.Writer) *NATSSubscriber {
	if prefix == "" {
		prefix = "wlan.sim"
	}
	return &NATSSubscriber{
		nc:     nc,
		prefix: prefix,
		out:    out,
		subs:   make([]*nats.Subscription, 0),
		runs:   make(map[uuid.UUID]*RunProgress),
	}
}

// Start subscribes and blocks until ctx is done
func (s *NATSSubscriber) Start(ctx context.Context) error {
	handlers := map[string]nats.MsgHandler{
		s.prefix + ".*.*.epoch": s.handleEpoch,
		s.prefix + ".*.status":  s.handleRunEvent,
		s.prefix + ".*.result":  s.handleRunEvent,
	}

	for subject, handler := range handlers {
		sub, err := s.nc.Subscribe(subject, handler)
		if err != nil {
			s.unsubscribe()
			return fmt.Errorf("subscribe %s: %w", subject, err)
		}
		s.subs = append(s.subs, sub)
	}

	log.Info().
		Str("prefix", s.prefix).
		Int("subscriptions", len(s.subs)).
		Msg("NATS subscriber started")

	<-ctx.Done()
	s.unsubscribe()

	return ctx.Err()
}

func (s *NATSSubscriber) unsubscribe() {
	for _, sub := range s.subs {
		if sub != nil {
			sub.Unsubscribe()
		}
	}
	s.subs = s.subs[:0]
}

// Progress returns a snapshot of one run
func (s *NATSSubscriber) Progress(runID uuid.UUID) (RunProgress, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.runs[runID]
	if !ok {
		return RunProgress{}, false
	}
	return *p, true
}

// progressLocked returns the entry for runID, creating it. Callers hold mu.
func (s *NATSSubscriber) progressLocked(runID uuid.UUID) *RunProgress {
	p, ok := s.runs[runID]
	if !ok {
		p = &RunProgress{RunID: runID, Status: models.RunStatusRunning}
		s.runs[runID] = p
	}
	return p
}

// handleEpoch handles epoch events
func (s *NATSSubscriber) handleEpoch(msg *nats.Msg) {
	var event models.EpochEvent
	if err := json.Unmarshal(msg.Data, &event); err != nil {
		log.Error().Err(err).Str("subject", msg.Subject).Msg("Failed to unmarshal epoch event")
		return
	}

	s.mu.Lock()
	p := s.progressLocked(event.RunID)
	p.Epochs++
	p.Last = &event
	s.mu.Unlock()

	log.Debug().
		Str("run_id", event.RunID.String()).
		Str("discipline", event.Discipline.String()).
		Int("users", event.Users).
		Int("epoch", event.Epoch).
		Float64("throughput_mbps", event.ThroughputMbps).
		Msg("Epoch completed")
}

// handleRunEvent handles run lifecycle and result events
func (s *NATSSubscriber) handleRunEvent(msg *nats.Msg) {
	var event models.RunEvent
	if err := json.Unmarshal(msg.Data, &event); err != nil {
		log.Error().Err(err).Str("subject", msg.Subject).Msg("Failed to unmarshal run event")
		return
	}

	s.mu.Lock()
	p := s.progressLocked(event.RunID)
	if event.Status != "" {
		p.Status = event.Status
	}
	s.mu.Unlock()

	logger := log.With().Str("run_id", event.RunID.String()).Str("type", string(event.Type)).Logger()

	switch event.Type {
	case models.EventTypeRunFailed:
		logger.Warn().Str("error", event.Error).Msg("Scenario run failed")
	case models.EventTypeRunFinished:
		logger.Info().Msg("Scenario run finished")
		if s.out != nil && event.Run != nil {
			fmt.Fprintf(s.out, "\nRun %s\n", event.RunID)
			if err := report.WriteTable(s.out, event.Run.Results); err != nil {
				logger.Error().Err(err).Msg("Failed to render results")
			}
		}
	default:
		logger.Info().Msg("Scenario run status")
	}
}
