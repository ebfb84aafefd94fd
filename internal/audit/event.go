// Package audit implements the event schema and local buffering Ripple
// emits to the out-of-scope AuditSink port (spec.md §6). Construction
// mirrors the donor's internal/events package: one typed constructor per
// concern, a fixed enum of event types, and a JSON-friendly Data payload.
package audit

import (
	"time"

	"github.com/google/uuid"
)

// EventType is one of the fixed categories spec.md §6 defines for the
// audit schema. Unrecognized values are still persisted, never rejected.
type EventType string

const (
	EventDosing          EventType = "dosing"
	EventIrrigation      EventType = "irrigation"
	EventClimate         EventType = "climate"
	EventAlarm           EventType = "alarm"
	EventSystem          EventType = "system"
	EventConfigChange    EventType = "config_change"
	EventUserCommand     EventType = "user_command"
	EventOverride        EventType = "override"
	EventPhaseTransition EventType = "phase_transition"
	EventModeChange      EventType = "mode_change"
)

// Source identifies who initiated the action the event records.
type Source string

const (
	SourceAutonomous Source = "autonomous"
	SourceManual     Source = "manual"
	SourceScheduled  Source = "scheduled"
)

// Event is the audit record shape spec.md §6 defines. Value/PreviousValue
// are left as interface{} since different event types carry different
// payload shapes (ratio+duration for a dose, reason for an alarm, etc.).
type Event struct {
	ID            string      `json:"id"`
	Timestamp     time.Time   `json:"timestamp"`
	DeviceID      string      `json:"device_id"`
	EventType     EventType   `json:"event_type"`
	Action        string      `json:"action"`
	Resource      string      `json:"resource,omitempty"`
	Value         interface{} `json:"value,omitempty"`
	PreviousValue interface{} `json:"previous_value,omitempty"`
	Source        Source      `json:"source"`
	Status        string      `json:"status,omitempty"`
	Details       string      `json:"details,omitempty"`
	GrowCycleID   string      `json:"grow_cycle_id,omitempty"`
}

// New constructs an Event with a fresh UUID and the current timestamp,
// matching the donor's NewXEvent constructors (internal/events/constructors.go).
func New(deviceID string, eventType EventType, action string, source Source) *Event {
	return &Event{
		ID:        uuid.New().String(),
		Timestamp: time.Now(),
		DeviceID:  deviceID,
		EventType: eventType,
		Action:    action,
		Source:    source,
	}
}

// WithResource sets the resource field and returns the event for chaining.
func (e *Event) WithResource(resource string) *Event {
	e.Resource = resource
	return e
}

// WithValue sets the value field and returns the event for chaining.
func (e *Event) WithValue(v interface{}) *Event {
	e.Value = v
	return e
}

// WithPreviousValue sets the previous-value field and returns the event for chaining.
func (e *Event) WithPreviousValue(v interface{}) *Event {
	e.PreviousValue = v
	return e
}

// WithDetails sets the details field and returns the event for chaining.
func (e *Event) WithDetails(details string) *Event {
	e.Details = details
	return e
}

// DosingValue is the Value payload for a dosing/nutrient_start audit event
// (spec.md end-to-end scenario S1: "audit emitted with ratio=[1,1,0]").
type DosingValue struct {
	Ratio            []int `json:"ratio"`
	OnDurationSecs   int   `json:"on_duration_seconds"`
	WaitDurationSecs int   `json:"wait_duration_seconds,omitempty"`
}
