package repository

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"

	"github.com/spec-kit/service-shop/internal/domain"
)

var (
	// ErrNotFound is returned when a record does not exist.
	ErrNotFound = errors.New("record not found")
	// ErrBayOccupied is returned when a write would give an active bay a second holder.
	ErrBayOccupied = errors.New("bay already occupied")
	// ErrStaleWrite is returned when the stored version moved since the caller read it.
	ErrStaleWrite = errors.New("service request modified concurrently")
	// ErrInvoiceExists is returned when a service request already has an invoice.
	ErrInvoiceExists = errors.New("invoice already exists for service request")
)

// ServiceRequestFilter captures listing parameters.
type ServiceRequestFilter struct {
	CustomerID   *string
	TechnicianID *string
	Statuses     []domain.RequestStatus
	Limit        int
	Offset       int
}

// ServiceRequestRepository encapsulates service request persistence.
//
// Save is a conditional write: it succeeds only when the stored Version still
// equals req.Version, and bumps req.Version on success. A history entry, when
// given, is stored in the same write.
type ServiceRequestRepository interface {
	Create(ctx context.Context, req *domain.ServiceRequest, change *domain.StatusChange) error
	Save(ctx context.Context, req *domain.ServiceRequest, change *domain.StatusChange) error
	GetByID(ctx context.Context, id string) (*domain.ServiceRequest, error)
	List(ctx context.Context, filter ServiceRequestFilter) ([]domain.ServiceRequest, error)
	ListActive(ctx context.Context) ([]domain.ServiceRequest, error)
	CountByStatus(ctx context.Context) (map[domain.RequestStatus]int, error)
	History(ctx context.Context, serviceRequestID string) ([]domain.StatusChange, error)
}

// InvoiceRepository stores invoices, one per service request.
type InvoiceRepository interface {
	Create(ctx context.Context, invoice *domain.Invoice) error
	GetByServiceRequest(ctx context.Context, serviceRequestID string) (*domain.Invoice, error)
}

func normalizeLimit(limit, offset int) (int, int) {
	if limit <= 0 {
		limit = 20
	}
	if limit > 200 {
		limit = 200
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}

func toNullDecimal(d *decimal.Decimal) decimal.NullDecimal {
	if d == nil {
		return decimal.NullDecimal{}
	}
	return decimal.NullDecimal{Decimal: *d, Valid: true}
}

func fromNullDecimal(n decimal.NullDecimal) *decimal.Decimal {
	if !n.Valid {
		return nil
	}
	d := n.Decimal
	return &d
}
