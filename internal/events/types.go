// Package events provides event management functionality.
package events

import (
	"time"
)

// EventType represents different event types
type EventType string

const (
	RunStarted    EventType = "RUN_STARTED"
	RunCompleted  EventType = "RUN_COMPLETED"
	RunFailed     EventType = "RUN_FAILED"
	RunArchived   EventType = "RUN_ARCHIVED"
	JobCompleted  EventType = "JOB_COMPLETED"
	JobFailed     EventType = "JOB_FAILED"
	ErrorOccurred EventType = "ERROR_OCCURRED"
)

// Event represents a system event
type Event struct {
	Type      EventType `json:"type"`
	Timestamp time.Time `json:"timestamp"`
	Module    string    `json:"module"`
	Data      EventData `json:"data,omitempty"`
}

// EventData is implemented by every typed payload
type EventData interface {
	EventType() EventType
}

// RunStartedData contains data for RunStarted events
type RunStartedData struct {
	RunID  string   `json:"run_id"`
	Mode   string   `json:"mode"`
	Assets []string `json:"assets"`
	Source string   `json:"source"`
}

// EventType returns the event type for RunStartedData
func (d *RunStartedData) EventType() EventType { return RunStarted }

// RunCompletedData contains data for RunCompleted events
type RunCompletedData struct {
	RunID      string   `json:"run_id"`
	Mode       string   `json:"mode"`
	Status     string   `json:"status"`
	Sections   []string `json:"sections"`
	Failures   int      `json:"failures"`
	DurationMs int64    `json:"duration_ms"`
}

// EventType returns the event type for RunCompletedData
func (d *RunCompletedData) EventType() EventType { return RunCompleted }

// RunFailedData contains data for RunFailed events
type RunFailedData struct {
	RunID   string `json:"run_id"`
	Mode    string `json:"mode"`
	Stage   string `json:"stage,omitempty"`
	Backend string `json:"backend,omitempty"`
	Error   string `json:"error"`
}

// EventType returns the event type for RunFailedData
func (d *RunFailedData) EventType() EventType { return RunFailed }

// RunArchivedData contains data for RunArchived events
type RunArchivedData struct {
	RunID string `json:"run_id"`
	Key   string `json:"key"`
}

// EventType returns the event type for RunArchivedData
func (d *RunArchivedData) EventType() EventType { return RunArchived }

// JobStatusData contains data for job lifecycle events
type JobStatusData struct {
	Job      string `json:"job"`
	Status   string `json:"status"`
	Error    string `json:"error,omitempty"`
	Duration int64  `json:"duration_ms"`
}

// EventType returns the event type for JobStatusData
func (d *JobStatusData) EventType() EventType {
	if d.Error != "" {
		return JobFailed
	}
	return JobCompleted
}

// ErrorEventData contains data for ErrorOccurred events
type ErrorEventData struct {
	Error   string                 `json:"error"`
	Context map[string]interface{} `json:"context,omitempty"`
}

// EventType returns the event type for ErrorEventData
func (d *ErrorEventData) EventType() EventType { return ErrorOccurred }
