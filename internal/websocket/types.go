package websocket

import (
	"time"

	"github.com/gorilla/websocket"

	"github.com/deidscan/deidscan/internal/pii"
)

// EventType identifies the kind of event pushed to clients.
type EventType string

const (
	EventTypeScanStarted   EventType = "scan_started"
	EventTypeScanCompleted EventType = "scan_completed"
	EventTypeSystemStatus  EventType = "system_status"
	EventTypeConnection    EventType = "connection"
)

// Event is one message pushed over the WebSocket.
type Event struct {
	Type      EventType   `json:"type"`
	Timestamp time.Time   `json:"timestamp"`
	Data      interface{} `json:"data"`
}

// ScanStartedEvent announces a scan that has begun processing.
type ScanStartedEvent struct {
	RunID  string `json:"run_id"`
	Format string `json:"format,omitempty"`
}

// ScanCompletedEvent carries the outcome of a finished scan. Only counts
// leave the server; de-identified content is never broadcast.
type ScanCompletedEvent struct {
	RunID         string     `json:"run_id"`
	RowsProcessed int        `json:"rows_processed"`
	TotalMatches  int        `json:"total_matches"`
	Matches       pii.Counts `json:"matches"`
	DurationMs    int64      `json:"duration_ms"`
}

// ConnectionEvent announces clients joining or leaving.
type ConnectionEvent struct {
	Action   string `json:"action"`
	ClientID string `json:"client_id"`
	Message  string `json:"message"`
}

// Client is one connected WebSocket peer.
type Client struct {
	ID           string
	Conn         *websocket.Conn
	Send         chan Event
	ConnectedAt  time.Time
	LastPing     time.Time
	IP           string
	UserAgent    string
	Subscription *SubscriptionRequest
}

// SubscriptionRequest narrows which event types a client receives.
type SubscriptionRequest struct {
	Events []EventType `json:"events"`
}

// ClientMessage is a message received from a client.
type ClientMessage struct {
	Type string      `json:"type"`
	Data interface{} `json:"data,omitempty"`
}
