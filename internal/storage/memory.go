package storage

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/wlan-sim/wlan-sim-pro/internal/models"
)

// MemoryStore implements Store in process memory. Contents are lost on exit.
type MemoryStore struct {
	mu     sync.RWMutex
	runs   map[uuid.UUID]*models.ScenarioRun
	events map[uuid.UUID][]*models.EpochEvent
}

// NewMemoryStore creates an empty store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		runs:   make(map[uuid.UUID]*models.ScenarioRun),
		events: make(map[uuid.UUID][]*models.EpochEvent),
	}
}

// Close releases the store contents
func (s *MemoryStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.runs = make(map[uuid.UUID]*models.ScenarioRun)
	s.events = make(map[uuid.UUID][]*models.EpochEvent)
	return nil
}

// CreateRun stores a new run
func (s *MemoryStore) CreateRun(ctx context.Context, run *models.ScenarioRun) error {
	if run == nil || run.ID == uuid.Nil {
		return fmt.Errorf("create run: %w", ErrInvalidData)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.runs[run.ID]; exists {
		return fmt.Errorf("create run %s: %w", run.ID, ErrDuplicateKey)
	}
	s.runs[run.ID] = cloneRun(run)
	return nil
}

// GetRun returns a copy of a stored run
func (s *MemoryStore) GetRun(ctx context.Context, id uuid.UUID) (*models.ScenarioRun, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	run, ok := s.runs[id]
	if !ok {
		return nil, ErrNotFound
	}
	return cloneRun(run), nil
}

// UpdateRun replaces a stored run
func (s *MemoryStore) UpdateRun(ctx context.Context, run *models.ScenarioRun) error {
	if run == nil {
		return fmt.Errorf("update run: %w", ErrInvalidData)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.runs[run.ID]; !ok {
		return ErrNotFound
	}
	run.Touch()
	s.runs[run.ID] = cloneRun(run)
	return nil
}

// DeleteRun removes a run and its events
func (s *MemoryStore) DeleteRun(ctx context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.runs[id]; !ok {
		return ErrNotFound
	}
	delete(s.runs, id)
	delete(s.events, id)
	return nil
}

// ListRuns returns runs newest first
func (s *MemoryStore) ListRuns(ctx context.Context, filters RunFilters, limit, offset int) ([]*models.ScenarioRun, int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	matched := make([]*models.ScenarioRun, 0, len(s.runs))
	for _, run := range s.runs {
		if filters.Status != nil && run.Status != *filters.Status {
			continue
		}
		matched = append(matched, run)
	}

	sort.Slice(matched, func(i, j int) bool {
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})

	total := int64(len(matched))
	page := paginate(matched, limit, offset)

	out := make([]*models.ScenarioRun, 0, len(page))
	for _, run := range page {
		out = append(out, cloneRun(run))
	}
	return out, total, nil
}

// CreateEpochEvent appends an event to its run
func (s *MemoryStore) CreateEpochEvent(ctx context.Context, event *models.EpochEvent) error {
	if event == nil {
		return fmt.Errorf("create epoch event: %w", ErrInvalidData)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.runs[event.RunID]; !ok {
		return fmt.Errorf("create epoch event for run %s: %w", event.RunID, ErrNotFound)
	}
	e := *event
	s.events[event.RunID] = append(s.events[event.RunID], &e)
	return nil
}

// ListEpochEvents returns a run's events in publication order
func (s *MemoryStore) ListEpochEvents(ctx context.Context, runID uuid.UUID, limit, offset int) ([]*models.EpochEvent, int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if _, ok := s.runs[runID]; !ok {
		return nil, 0, ErrNotFound
	}

	events := s.events[runID]
	page := paginate(events, limit, offset)

	out := make([]*models.EpochEvent, 0, len(page))
	for _, e := range page {
		c := *e
		out = append(out, &c)
	}
	return out, int64(len(events)), nil
}

// paginate applies limit and offset; limit <= 0 means no limit
func paginate[T any](items []T, limit, offset int) []T {
	if offset < 0 {
		offset = 0
	}
	if offset >= len(items) {
		return nil
	}
	items = items[offset:]
	if limit > 0 && limit < len(items) {
		items = items[:limit]
	}
	return items
}

func cloneRun(run *models.ScenarioRun) *models.ScenarioRun {
	c := *run
	c.Parameters.UserCounts = append([]int(nil), run.Parameters.UserCounts...)
	c.Parameters.Scheduled.SubChannels = append([]float64(nil), run.Parameters.Scheduled.SubChannels...)

	c.Results = make([]models.ScenarioResult, len(run.Results))
	for i, r := range run.Results {
		c.Results[i] = models.ScenarioResult{
			Users:       r.Users,
			Disciplines: append([]models.DisciplineResult(nil), r.Disciplines...),
		}
	}
	return &c
}
