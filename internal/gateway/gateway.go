// Package gateway holds the contracts and HTTP adapters for collaborators
// owned by other services: vehicles, inventory pricing, technician workload,
// billing and the customer directory.
package gateway

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"
)

// ErrNotFound is returned when a collaborator reports the resource missing.
var ErrNotFound = errors.New("resource not found")

// Vehicle is the slice of the vehicle aggregate the orchestrator needs.
type Vehicle struct {
	ID              string `json:"id"`
	OwnerCustomerID string `json:"owner_customer_id"`
}

// Contact is how a customer is reached for notifications.
type Contact struct {
	CustomerID string `json:"id"`
	Name       string `json:"name"`
	Email      string `json:"email"`
}

// VehicleDirectory resolves vehicle ownership. Calls on it are mandatory.
type VehicleDirectory interface {
	GetVehicle(ctx context.Context, vehicleID string) (Vehicle, error)
}

// PartsPricer returns the parts cost booked against a service request.
type PartsPricer interface {
	GetPartsCost(ctx context.Context, serviceRequestID string) (decimal.Decimal, error)
}

// WorkloadTracker adjusts a technician's active-job counter by delta (+1 or -1).
type WorkloadTracker interface {
	AdjustWorkload(ctx context.Context, technicianID string, delta int) error
}

// InvoiceTrigger asks billing to materialize the invoice for a priced request.
type InvoiceTrigger interface {
	GenerateInvoice(ctx context.Context, serviceRequestID string) error
}

// CustomerDirectory resolves customer contact details.
type CustomerDirectory interface {
	GetContact(ctx context.Context, customerID string) (Contact, error)
}
