package websocket

import (
	"testing"
	"time"

	"github.com/deidscan/deidscan/internal/logger"
	"github.com/deidscan/deidscan/internal/pii"
)

func TestShouldSendToClient(t *testing.T) {
	h := NewHub(logger.NewNop())
	event := Event{Type: EventTypeScanCompleted, Timestamp: time.Now()}

	t.Run("no subscription receives everything", func(t *testing.T) {
		client := &Client{}
		if !h.shouldSendToClient(client, event) {
			t.Error("unfiltered client was skipped")
		}
	})

	t.Run("matching subscription receives", func(t *testing.T) {
		client := &Client{Subscription: &SubscriptionRequest{
			Events: []EventType{EventTypeScanStarted, EventTypeScanCompleted},
		}}
		if !h.shouldSendToClient(client, event) {
			t.Error("subscribed client was skipped")
		}
	})

	t.Run("non-matching subscription is skipped", func(t *testing.T) {
		client := &Client{Subscription: &SubscriptionRequest{
			Events: []EventType{EventTypeSystemStatus},
		}}
		if h.shouldSendToClient(client, event) {
			t.Error("unsubscribed client received the event")
		}
	})
}

func TestBroadcastDelivery(t *testing.T) {
	h := NewHub(logger.NewNop())

	client := &Client{ID: "c1", Send: make(chan Event, 1)}
	h.clients[client] = true

	h.ScanCompleted(ScanCompletedEvent{
		RunID:         "r1",
		RowsProcessed: 10,
		TotalMatches:  4,
		Matches:       pii.Counts{pii.CategoryEmail: 4},
	})

	// Drain the queued broadcast the way Run would.
	h.broadcastEvent(<-h.broadcast)

	select {
	case event := <-client.Send:
		if event.Type != EventTypeScanCompleted {
			t.Errorf("event type = %s", event.Type)
		}
		data, ok := event.Data.(ScanCompletedEvent)
		if !ok {
			t.Fatalf("event data has type %T", event.Data)
		}
		if data.RunID != "r1" || data.TotalMatches != 4 {
			t.Errorf("event data = %+v", data)
		}
	default:
		t.Fatal("client received no event")
	}
}

func TestBroadcastDropsSlowClient(t *testing.T) {
	h := NewHub(logger.NewNop())

	slow := &Client{ID: "slow", Send: make(chan Event)} // unbuffered, never read
	h.clients[slow] = true
	h.stats.ActiveConnections = 1

	h.broadcastEvent(Event{Type: EventTypeSystemStatus, Timestamp: time.Now()})

	if _, still := h.clients[slow]; still {
		t.Error("slow client was not dropped")
	}
	if got := h.GetStats().ActiveConnections; got != 0 {
		t.Errorf("active connections = %d, want 0", got)
	}
}

func TestGetStats(t *testing.T) {
	h := NewHub(logger.NewNop())
	h.clients[&Client{ID: "a", Send: make(chan Event, 1)}] = true
	h.clients[&Client{ID: "b", Send: make(chan Event, 1)}] = true

	if got := h.GetStats().ActiveConnections; got != 2 {
		t.Errorf("active connections = %d, want 2", got)
	}
}
