// Package sse streams report state changes to the browser with Server-Sent Events.
package sse

import (
	"time"
)

// EventType represents the type of SSE Event.
type EventType string

const (
	// EventReportSnapshot carries the current view when a client connects.
	EventReportSnapshot EventType = "report.snapshot"
	// EventReportSubmitting is sent when a report enters the submitting state.
	EventReportSubmitting EventType = "report.submitting"
	// EventReportSuccess is sent with the receipt once a report is done.
	EventReportSuccess EventType = "report.success"
	// EventHeartbeat represents a connection keepalive event.
	EventHeartbeat EventType = "heartbeat"
)

// Event represents an SSE event to be sent to clients.
type Event struct {
	Timestamp time.Time `json:"timestamp"`
	Data      any       `json:"data"`
	Type      EventType `json:"type"`

	// SessionID scopes delivery to clients watching that session.
	// Empty means every client.
	SessionID string `json:"-"`
}

// HeartbeatEventData is the data payload for heartbeat events.
type HeartbeatEventData struct {
	ServerTime time.Time `json:"server_time"`
}

// NewReportEvent creates an event for one form session.
func NewReportEvent(eventType EventType, sessionID string, data any) Event {
	return Event{
		Type:      eventType,
		SessionID: sessionID,
		Data:      data,
		Timestamp: time.Now(),
	}
}

// NewHeartbeatEvent creates a heartbeat event.
func NewHeartbeatEvent() Event {
	now := time.Now()
	return Event{
		Type:      EventHeartbeat,
		Data:      HeartbeatEventData{ServerTime: now},
		Timestamp: now,
	}
}
