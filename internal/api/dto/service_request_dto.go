package dto

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/spec-kit/service-shop/internal/domain"
)

// CreateServiceRequestRequest payload.
type CreateServiceRequestRequest struct {
	VehicleID      string          `json:"vehicle_id"`
	ServiceType    string          `json:"service_type"`
	Description    string          `json:"description"`
	Priority       domain.Priority `json:"priority"`
	PickupRequired bool            `json:"pickup_required"`
	PickupAddress  string          `json:"pickup_address"`
	PreferredDate  *time.Time      `json:"preferred_date"`
}

// AssignRequest payload.
type AssignRequest struct {
	TechnicianID  string           `json:"technician_id"`
	BayNumber     int              `json:"bay_number"`
	EstimatedCost *decimal.Decimal `json:"estimated_cost"`
}

// CompleteRequest payload.
type CompleteRequest struct {
	Notes string `json:"notes"`
}

// StatusUpdateRequest payload.
type StatusUpdateRequest struct {
	Status domain.RequestStatus `json:"status"`
	Notes  string               `json:"notes"`
}

// PricingRequest payload. Omitted components count as zero.
type PricingRequest struct {
	PartsCost *decimal.Decimal `json:"parts_cost"`
	LaborCost *decimal.Decimal `json:"labor_cost"`
}

// CancelRequest payload.
type CancelRequest struct {
	Reason string `json:"reason"`
}

// RescheduleRequest payload.
type RescheduleRequest struct {
	PreferredDate time.Time `json:"preferred_date"`
}

// ServiceRequestResponse represents a service request.
type ServiceRequestResponse struct {
	ID                 string               `json:"id"`
	ExternalKey        string               `json:"external_key"`
	CustomerID         string               `json:"customer_id"`
	VehicleID          string               `json:"vehicle_id"`
	TechnicianID       *string              `json:"technician_id"`
	BayNumber          *int                 `json:"bay_number"`
	ServiceType        string               `json:"service_type"`
	Priority           domain.Priority      `json:"priority"`
	Description        string               `json:"description"`
	Status             domain.RequestStatus `json:"status"`
	ServiceNotes       *string              `json:"service_notes"`
	EstimatedCost      *decimal.Decimal     `json:"estimated_cost"`
	FinalCost          *decimal.Decimal     `json:"final_cost"`
	PickupRequired     bool                 `json:"pickup_required"`
	PickupAddress      *string              `json:"pickup_address"`
	PreferredDate      *time.Time           `json:"preferred_date"`
	CancellationReason *string              `json:"cancellation_reason"`
	CreatedAt          time.Time            `json:"created_at"`
	UpdatedAt          time.Time            `json:"updated_at"`
	StartedAt          *time.Time           `json:"started_at"`
	CompletedAt        *time.Time           `json:"completed_at"`
}

// StatusChangeResponse represents a history entry.
type StatusChangeResponse struct {
	ID         string                `json:"id"`
	FromStatus *domain.RequestStatus `json:"from_status"`
	ToStatus   domain.RequestStatus  `json:"to_status"`
	ActorRole  domain.ActorRole      `json:"actor_role"`
	ActorID    *string               `json:"actor_id"`
	Comment    string                `json:"comment,omitempty"`
	CreatedAt  time.Time             `json:"created_at"`
}

// BayStatusResponse represents one bay.
type BayStatusResponse struct {
	BayNumber        int     `json:"bay_number"`
	Occupied         bool    `json:"occupied"`
	ServiceRequestID *string `json:"service_request_id"`
}

// DashboardResponse carries counts per status.
type DashboardResponse struct {
	Total      int `json:"total"`
	Pending    int `json:"pending"`
	Assigned   int `json:"assigned"`
	InProgress int `json:"in_progress"`
	Completed  int `json:"completed"`
	Closed     int `json:"closed"`
	Cancelled  int `json:"cancelled"`
}

// ServiceRequestFromDomain maps the aggregate to its response.
func ServiceRequestFromDomain(req *domain.ServiceRequest) ServiceRequestResponse {
	return ServiceRequestResponse{
		ID:                 req.ID,
		ExternalKey:        req.ExternalKey,
		CustomerID:         req.CustomerID,
		VehicleID:          req.VehicleID,
		TechnicianID:       req.TechnicianID,
		BayNumber:          req.BayNumber,
		ServiceType:        req.ServiceType,
		Priority:           req.Priority,
		Description:        req.Description,
		Status:             req.Status,
		ServiceNotes:       req.ServiceNotes,
		EstimatedCost:      req.EstimatedCost,
		FinalCost:          req.FinalCost,
		PickupRequired:     req.PickupRequired,
		PickupAddress:      req.PickupAddress,
		PreferredDate:      req.PreferredDate,
		CancellationReason: req.CancellationReason,
		CreatedAt:          req.CreatedAt,
		UpdatedAt:          req.UpdatedAt,
		StartedAt:          req.StartedAt,
		CompletedAt:        req.CompletedAt,
	}
}
