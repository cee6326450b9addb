package events

import (
	"time"

	"github.com/google/uuid"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventApplicationReady      EventType = "application_ready"
	EventAuthenticationSuccess EventType = "authentication_success"
	EventAuthenticationFailure EventType = "authentication_failure"
	EventTokenIssued           EventType = "token_issued"
	EventLogout                EventType = "logout"
)

// Event represents something the authentication layer wants others to know about.
type Event struct {
	ID        string      `json:"id"`
	Type      EventType   `json:"type"`
	Login     string      `json:"login,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload,omitempty"`
}

// NewEvent stamps an event with a fresh id and the current time.
func NewEvent(eventType EventType, login string, payload interface{}) Event {
	return Event{
		ID:        uuid.NewString(),
		Type:      eventType,
		Login:     login,
		Timestamp: time.Now().UTC(),
		Payload:   payload,
	}
}

// AuthenticationPayload describes an authentication attempt.
type AuthenticationPayload struct {
	Method string   `json:"method"`
	Path   string   `json:"path"`
	Roles  []string `json:"roles,omitempty"`
	Reason string   `json:"reason,omitempty"`
}

// TokenIssuedPayload describes a token written to a client.
type TokenIssuedPayload struct {
	ExpiresAt time.Time `json:"expires_at"`
}
