package billing

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/spec-kit/service-shop/internal/domain"
	"github.com/spec-kit/service-shop/internal/gateway"
	"github.com/spec-kit/service-shop/internal/repository"
	apperrors "github.com/spec-kit/service-shop/pkg/util/errorutil"
)

// InvoiceService issues exactly one invoice per priced service request.
type InvoiceService struct {
	requests repository.ServiceRequestRepository
	invoices repository.InvoiceRepository
	pricer   gateway.PartsPricer
	logger   *zap.Logger
}

// Dependencies bundles collaborators for the invoice service.
type Dependencies struct {
	RequestRepo repository.ServiceRequestRepository
	InvoiceRepo repository.InvoiceRepository
	Pricer      gateway.PartsPricer
	Logger      *zap.Logger
}

// NewInvoiceService constructs the service.
func NewInvoiceService(deps Dependencies) *InvoiceService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	pricer := deps.Pricer
	if pricer == nil {
		pricer = gateway.ZeroPricer()
	}
	return &InvoiceService{
		requests: deps.RequestRepo,
		invoices: deps.InvoiceRepo,
		pricer:   pricer,
		logger:   logger,
	}
}

// Generate creates the invoice for a priced service request. The total is the
// request's final cost; labor is whatever the parts cost leaves, never negative.
func (s *InvoiceService) Generate(ctx context.Context, serviceRequestID string) (*domain.Invoice, error) {
	req, err := s.requests.GetByID(ctx, serviceRequestID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, apperrors.NewNotFound("service request", map[string]any{"id": serviceRequestID})
	}
	if err != nil {
		return nil, err
	}
	if !req.Priced() {
		return nil, apperrors.NewBadRequest("service request has no final cost", map[string]any{"id": serviceRequestID})
	}

	if _, err := s.invoices.GetByServiceRequest(ctx, serviceRequestID); err == nil {
		return nil, invoiceExists(serviceRequestID)
	} else if !errors.Is(err, repository.ErrNotFound) {
		return nil, err
	}

	parts, err := s.pricer.GetPartsCost(ctx, serviceRequestID)
	if err != nil {
		s.logger.Warn("parts cost unavailable, invoicing with zero parts",
			zap.String("service_request_id", serviceRequestID),
			zap.Error(err))
		parts = decimal.Zero
	}

	invoice := &domain.Invoice{
		ID:               uuid.NewString(),
		ServiceRequestID: req.ID,
		CustomerID:       req.CustomerID,
		Status:           domain.InvoiceStatusPending,
	}
	invoice.TotalAmount, invoice.PartsCost, invoice.LaborCost = splitTotal(*req.FinalCost, parts)

	if err := s.invoices.Create(ctx, invoice); err != nil {
		if errors.Is(err, repository.ErrInvoiceExists) {
			return nil, invoiceExists(serviceRequestID)
		}
		return nil, err
	}
	s.logger.Info("invoice generated",
		zap.String("service_request_id", req.ID),
		zap.String("invoice_id", invoice.ID),
		zap.String("total", invoice.TotalAmount.StringFixed(2)))
	return invoice, nil
}

// GetByServiceRequest returns the invoice issued for a request.
func (s *InvoiceService) GetByServiceRequest(ctx context.Context, serviceRequestID string) (*domain.Invoice, error) {
	invoice, err := s.invoices.GetByServiceRequest(ctx, serviceRequestID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, apperrors.NewNotFound("invoice", map[string]any{"service_request_id": serviceRequestID})
	}
	return invoice, err
}

func splitTotal(finalCost, parts decimal.Decimal) (total, partsCost, labor decimal.Decimal) {
	if parts.IsNegative() {
		parts = decimal.Zero
	}
	labor = finalCost.Sub(parts)
	if labor.IsNegative() {
		labor = decimal.Zero
	}
	return finalCost, parts, labor
}

func invoiceExists(serviceRequestID string) error {
	return apperrors.NewConflict("invoice already exists", map[string]any{"service_request_id": serviceRequestID})
}
