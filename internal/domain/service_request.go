package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// RequestStatus enumerates lifecycle states for service requests.
type RequestStatus string

const (
	StatusPending    RequestStatus = "PENDING"
	StatusAssigned   RequestStatus = "ASSIGNED"
	StatusInProgress RequestStatus = "IN_PROGRESS"
	StatusCompleted  RequestStatus = "COMPLETED"
	StatusClosed     RequestStatus = "CLOSED"
	StatusCancelled  RequestStatus = "CANCELLED"
)

// ActiveStatuses are the states during which a bay is held.
var ActiveStatuses = []RequestStatus{StatusAssigned, StatusInProgress}

// IsActive reports whether the status holds a bay.
func (s RequestStatus) IsActive() bool {
	return s == StatusAssigned || s == StatusInProgress
}

// IsTerminal reports whether no operation may leave the status.
func (s RequestStatus) IsTerminal() bool {
	return s == StatusClosed || s == StatusCancelled
}

// Valid reports whether s is a known status.
func (s RequestStatus) Valid() bool {
	switch s {
	case StatusPending, StatusAssigned, StatusInProgress, StatusCompleted, StatusClosed, StatusCancelled:
		return true
	}
	return false
}

// Priority enumerates intake urgency.
type Priority string

const (
	PriorityLow    Priority = "LOW"
	PriorityNormal Priority = "NORMAL"
	PriorityHigh   Priority = "HIGH"
	PriorityUrgent Priority = "URGENT"
)

// Valid reports whether p is a known priority.
func (p Priority) Valid() bool {
	switch p {
	case PriorityLow, PriorityNormal, PriorityHigh, PriorityUrgent:
		return true
	}
	return false
}

// ServiceRequest is the aggregate for one vehicle-service job.
type ServiceRequest struct {
	ID                 string
	ExternalKey        string
	CustomerID         string
	VehicleID          string
	TechnicianID       *string
	BayNumber          *int
	ServiceType        string
	Priority           Priority
	Description        string
	Status             RequestStatus
	ServiceNotes       *string
	EstimatedCost      *decimal.Decimal
	FinalCost          *decimal.Decimal
	PickupRequired     bool
	PickupAddress      *string
	PreferredDate      *time.Time
	CancellationReason *string
	CreatedAt          time.Time
	UpdatedAt          time.Time
	StartedAt          *time.Time
	CompletedAt        *time.Time
	Version            int64
}

// Clone returns a deep copy so callers cannot mutate stored state.
func (r *ServiceRequest) Clone() *ServiceRequest {
	if r == nil {
		return nil
	}
	c := *r
	c.TechnicianID = cloneString(r.TechnicianID)
	c.ServiceNotes = cloneString(r.ServiceNotes)
	c.PickupAddress = cloneString(r.PickupAddress)
	c.CancellationReason = cloneString(r.CancellationReason)
	if r.BayNumber != nil {
		bay := *r.BayNumber
		c.BayNumber = &bay
	}
	if r.EstimatedCost != nil {
		v := *r.EstimatedCost
		c.EstimatedCost = &v
	}
	if r.FinalCost != nil {
		v := *r.FinalCost
		c.FinalCost = &v
	}
	c.PreferredDate = cloneTime(r.PreferredDate)
	c.StartedAt = cloneTime(r.StartedAt)
	c.CompletedAt = cloneTime(r.CompletedAt)
	return &c
}

// Priced reports whether the final cost has been fixed.
func (r *ServiceRequest) Priced() bool {
	return r.FinalCost != nil
}

func cloneString(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}
