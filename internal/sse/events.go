// Package sse implements Server-Sent Events for real-time library updates.
package sse

import (
	"time"

	"github.com/inkwellapp/inkwell-server/internal/domain"
)

// EventType represents the type of SSE event.
type EventType string

const (
	// EventDocumentAdded represents a document entering the library.
	EventDocumentAdded EventType = "document.added"
	// EventDocumentDeleted represents a document leaving the library.
	EventDocumentDeleted EventType = "document.deleted"
	// EventHeartbeat represents a connection keepalive event.
	EventHeartbeat EventType = "heartbeat"
)

// Event represents an SSE event to be sent to clients.
type Event struct {
	Timestamp time.Time `json:"timestamp"`
	Data      any       `json:"data"`
	Type      EventType `json:"type"`
}

// DocumentAddedData is the payload for document.added. It carries the
// library entry so clients can render the new document without a refetch.
type DocumentAddedData struct {
	Document domain.LibraryEntry `json:"document"`
}

// DocumentDeletedData is the payload for document.deleted.
type DocumentDeletedData struct {
	DocumentID string `json:"document_id"`
}

// HeartbeatData is the payload for heartbeat events.
type HeartbeatData struct {
	ServerTime time.Time `json:"server_time"`
}

// NewDocumentAddedEvent creates a document.added event.
func NewDocumentAddedEvent(entry domain.LibraryEntry) Event {
	return Event{
		Type:      EventDocumentAdded,
		Timestamp: time.Now(),
		Data:      DocumentAddedData{Document: entry},
	}
}

// NewDocumentDeletedEvent creates a document.deleted event.
func NewDocumentDeletedEvent(documentID string) Event {
	return Event{
		Type:      EventDocumentDeleted,
		Timestamp: time.Now(),
		Data:      DocumentDeletedData{DocumentID: documentID},
	}
}

// NewHeartbeatEvent creates a heartbeat event.
func NewHeartbeatEvent() Event {
	return Event{
		Type:      EventHeartbeat,
		Timestamp: time.Now(),
		Data:      HeartbeatData{ServerTime: time.Now()},
	}
}
