package domain

import "time"

// ActorRole identifies who drove a change.
type ActorRole string

const (
	ActorCustomer   ActorRole = "CUSTOMER"
	ActorManager    ActorRole = "MANAGER"
	ActorTechnician ActorRole = "TECHNICIAN"
	ActorSystem     ActorRole = "SYSTEM"
)

// Actor is the caller on whose behalf an operation runs.
type Actor struct {
	Role ActorRole
	ID   string
}

// SystemActor is used for internal callers with no principal.
var SystemActor = Actor{Role: ActorSystem}

// StatusChange is an immutable status history entry.
type StatusChange struct {
	ID               string
	ServiceRequestID string
	FromStatus       *RequestStatus
	ToStatus         RequestStatus
	ActorRole        ActorRole
	ActorID          *string
	Comment          string
	CreatedAt        time.Time
}
