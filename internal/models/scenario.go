package models

import (
	"time"

	"github.com/wlan-sim/wlan-sim-pro/internal/config"
	"github.com/wlan-sim/wlan-sim-pro/pkg/wlan"
)

// RunStatus is the lifecycle state of a scenario run
type RunStatus string

const (
	RunStatusPending   RunStatus = "PENDING"
	RunStatusRunning   RunStatus = "RUNNING"
	RunStatusCompleted RunStatus = "COMPLETED"
	RunStatusFailed    RunStatus = "FAILED"
)

// ScenarioRun is one execution of the scenario driver over every user count
type ScenarioRun struct {
	BaseModel

	Name       string                  `json:"name,omitempty"`
	Status     RunStatus               `json:"status"`
	Error      string                  `json:"error,omitempty"`
	Parameters config.SimulationConfig `json:"parameters"`
	Results    []ScenarioResult        `json:"results"`

	StartedAt  *time.Time `json:"startedAt,omitempty"`
	FinishedAt *time.Time `json:"finishedAt,omitempty"`
}

// ScenarioResult holds the results of every discipline for one user count
type ScenarioResult struct {
	Users       int                `json:"users"`
	Disciplines []DisciplineResult `json:"disciplines"`
}

// Result returns the entry for d
func (r ScenarioResult) Result(d wlan.Discipline) (DisciplineResult, bool) {
	for _, dr := range r.Disciplines {
		if dr.Discipline == d {
			return dr, true
		}
	}
	return DisciplineResult{}, false
}

// DisciplineResult is the iteration average for one discipline
type DisciplineResult struct {
	Discipline     wlan.Discipline `json:"discipline"`
	ThroughputMbps float64         `json:"throughputMbps"`
	AvgLatencyMs   float64         `json:"avgLatencyMs"`
	MaxLatencyMs   float64         `json:"maxLatencyMs"`
	Packets        int             `json:"packets"`
	Dropped        int             `json:"dropped"`
	Epochs         int             `json:"epochs"`
	Iterations     int             `json:"iterations"`
}
