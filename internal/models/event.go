package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/wlan-sim/wlan-sim-pro/pkg/wlan"
)

// EventType represents event types
type EventType string

const (
	EventTypeEpoch       EventType = "EPOCH"
	EventTypeRunStarted  EventType = "RUN_STARTED"
	EventTypeRunFinished EventType = "RUN_FINISHED"
	EventTypeRunFailed   EventType = "RUN_FAILED"
)

// EpochEvent is published after every completed epoch
type EpochEvent struct {
	Type       EventType       `json:"type"`
	RunID      uuid.UUID       `json:"runId"`
	Time       time.Time       `json:"time"`
	Users      int             `json:"users"`
	Iteration  int             `json:"iteration"`
	Epoch      int             `json:"epoch"`
	Discipline wlan.Discipline `json:"discipline"`

	Packets        int     `json:"packets"`
	ThroughputMbps float64 `json:"throughputMbps"`
	AvgLatencyMs   float64 `json:"avgLatencyMs"`
	MaxLatencyMs   float64 `json:"maxLatencyMs"`
}

// RunEvent announces a change in a run's lifecycle
type RunEvent struct {
	Type   EventType    `json:"type"`
	RunID  uuid.UUID    `json:"runId"`
	Time   time.Time    `json:"time"`
	Status RunStatus    `json:"status"`
	Error  string       `json:"error,omitempty"`
	Run    *ScenarioRun `json:"run,omitempty"`
}
