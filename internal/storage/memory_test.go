package storage

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wlan-sim/wlan-sim-pro/internal/models"
	"github.com/wlan-sim/wlan-sim-pro/pkg/wlan"
)

func newRun(status models.RunStatus, created time.Time) *models.ScenarioRun {
	run := &models.ScenarioRun{BaseModel: models.NewBaseModel(), Status: status}
	run.CreatedAt = created
	return run
}

func TestRunLifecycle(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	defer s.Close()

	run := newRun(models.RunStatusPending, time.Now())
	require.NoError(t, s.CreateRun(ctx, run))
	assert.ErrorIs(t, s.CreateRun(ctx, run), ErrDuplicateKey)

	got, err := s.GetRun(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, models.RunStatusPending, got.Status)

	run.Status = models.RunStatusCompleted
	run.Results = []models.ScenarioResult{{
		Users:       10,
		Disciplines: []models.DisciplineResult{{Discipline: wlan.Contention, ThroughputMbps: 90}},
	}}
	require.NoError(t, s.UpdateRun(ctx, run))

	got, err = s.GetRun(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, models.RunStatusCompleted, got.Status)
	require.Len(t, got.Results, 1)

	// stored copies are isolated from callers
	got.Results[0].Disciplines[0].ThroughputMbps = 0
	again, err := s.GetRun(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, 90.0, again.Results[0].Disciplines[0].ThroughputMbps)

	require.NoError(t, s.DeleteRun(ctx, run.ID))
	_, err = s.GetRun(ctx, run.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, s.DeleteRun(ctx, run.ID), ErrNotFound)
}

func TestCreateRunRejectsInvalid(t *testing.T) {
	s := NewMemoryStore()
	assert.ErrorIs(t, s.CreateRun(context.Background(), nil), ErrInvalidData)
	assert.ErrorIs(t, s.CreateRun(context.Background(), &models.ScenarioRun{}), ErrInvalidData)
	assert.ErrorIs(t, s.UpdateRun(context.Background(), newRun(models.RunStatusPending, time.Now())), ErrNotFound)
}

func TestListRuns(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	base := time.Now()
	for i := 0; i < 5; i++ {
		status := models.RunStatusCompleted
		if i%2 == 0 {
			status = models.RunStatusFailed
		}
		require.NoError(t, s.CreateRun(ctx, newRun(status, base.Add(time.Duration(i)*time.Second))))
	}

	runs, total, err := s.ListRuns(ctx, RunFilters{}, 2, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(5), total)
	require.Len(t, runs, 2)
	assert.True(t, runs[0].CreatedAt.After(runs[1].CreatedAt))

	failed := models.RunStatusFailed
	runs, total, err = s.ListRuns(ctx, RunFilters{Status: &failed}, 0, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)
	assert.Len(t, runs, 3)

	runs, _, err = s.ListRuns(ctx, RunFilters{}, 10, 10)
	require.NoError(t, err)
	assert.Empty(t, runs)
}

func TestEpochEvents(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	run := newRun(models.RunStatusRunning, time.Now())
	require.NoError(t, s.CreateRun(ctx, run))

	for i := 1; i <= 3; i++ {
		require.NoError(t, s.CreateEpochEvent(ctx, &models.EpochEvent{
			Type:  models.EventTypeEpoch,
			RunID: run.ID,
			Epoch: i,
		}))
	}
	err := s.CreateEpochEvent(ctx, &models.EpochEvent{RunID: uuid.New()})
	assert.ErrorIs(t, err, ErrNotFound)

	events, total, err := s.ListEpochEvents(ctx, run.ID, 2, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)
	require.Len(t, events, 2)
	assert.Equal(t, 2, events[0].Epoch)
	assert.Equal(t, 3, events[1].Epoch)

	_, _, err = s.ListEpochEvents(ctx, uuid.New(), 0, 0)
	assert.ErrorIs(t, err, ErrNotFound)
}
