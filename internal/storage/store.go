package storage

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/wlan-sim/wlan-sim-pro/internal/models"
)

// Common errors
var (
	ErrNotFound     = errors.New("not found")
	ErrDuplicateKey = errors.New("duplicate key")
	ErrInvalidData  = errors.New("invalid data")
)

// Store defines the storage interface
type Store interface {
	// Scenario run methods
	CreateRun(ctx context.Context, run *models.ScenarioRun) error
	GetRun(ctx context.Context, id uuid.UUID) (*models.ScenarioRun, error)
	UpdateRun(ctx context.Context, run *models.ScenarioRun) error
	DeleteRun(ctx context.Context, id uuid.UUID) error
	ListRuns(ctx context.Context, filters RunFilters, limit, offset int) ([]*models.ScenarioRun, int64, error)

	// Epoch event methods
	CreateEpochEvent(ctx context.Context, event *models.EpochEvent) error
	ListEpochEvents(ctx context.Context, runID uuid.UUID, limit, offset int) ([]*models.EpochEvent, int64, error)

	// Close the store
	Close() error
}

// RunFilters narrows ListRuns
type RunFilters struct {
	Status *models.RunStatus
}
