package events

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/spec-kit/service-shop/internal/domain"
)

// EventType enumerates supported event identifiers. Values double as bus
// routing keys and subjects.
type EventType string

const (
	EventServiceRequestCreated   EventType = "service_request.created"
	EventServiceRequestAssigned  EventType = "service_request.assigned"
	EventServiceRequestCompleted EventType = "service_request.completed"
)

// Actor encapsulates actor metadata for an event.
type Actor struct {
	Role domain.ActorRole `json:"role"`
	ID   *string          `json:"id,omitempty"`
}

// Event represents a domain event emitted by the orchestrator.
type Event struct {
	ID               string      `json:"id"`
	Type             EventType   `json:"type"`
	ServiceRequestID string      `json:"service_request_id"`
	Actor            Actor       `json:"actor"`
	Timestamp        time.Time   `json:"timestamp"`
	Payload          interface{} `json:"payload"`
}

// CreatedPayload payload.
type CreatedPayload struct {
	ExternalKey string          `json:"external_key"`
	CustomerID  string          `json:"customer_id"`
	VehicleID   string          `json:"vehicle_id"`
	ServiceType string          `json:"service_type"`
	Priority    domain.Priority `json:"priority"`
}

// AssignedPayload payload.
type AssignedPayload struct {
	TechnicianID string `json:"technician_id"`
	BayNumber    int    `json:"bay_number"`
}

// CompletedPayload carries the priced ticket and the customer contact the
// notification service delivers to.
type CompletedPayload struct {
	ExternalKey   string          `json:"external_key"`
	CustomerID    string          `json:"customer_id"`
	CustomerName  string          `json:"customer_name,omitempty"`
	CustomerEmail string          `json:"customer_email,omitempty"`
	FinalCost     decimal.Decimal `json:"final_cost"`
}

// ActorFrom converts a domain actor to event metadata.
func ActorFrom(actor domain.Actor) Actor {
	out := Actor{Role: actor.Role}
	if actor.ID != "" {
		id := actor.ID
		out.ID = &id
	}
	return out
}
