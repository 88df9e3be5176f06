package billing

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/spec-kit/service-shop/internal/domain"
	"github.com/spec-kit/service-shop/internal/gateway"
	"github.com/spec-kit/service-shop/internal/repository"
	apperrors "github.com/spec-kit/service-shop/pkg/util/errorutil"
)

type stubPricer struct {
	cost decimal.Decimal
	err  error
}

func (p stubPricer) GetPartsCost(context.Context, string) (decimal.Decimal, error) {
	return p.cost, p.err
}

func seedPriced(t *testing.T, repo *repository.MemoryServiceRequestRepository, id string, finalCost string) {
	t.Helper()
	cost := decimal.RequireFromString(finalCost)
	req := &domain.ServiceRequest{
		ID:         id,
		CustomerID: "cust-1",
		VehicleID:  "veh-1",
		Status:     domain.StatusCompleted,
		Priority:   domain.PriorityNormal,
		FinalCost:  &cost,
	}
	if err := repo.Create(context.Background(), req, nil); err != nil {
		t.Fatalf("seed: %v", err)
	}
}

func newService(pricer gateway.PartsPricer) (*InvoiceService, *repository.MemoryServiceRequestRepository) {
	requests := repository.NewMemoryServiceRequestRepository()
	svc := NewInvoiceService(Dependencies{
		RequestRepo: requests,
		InvoiceRepo: repository.NewMemoryInvoiceRepository(),
		Pricer:      pricer,
	})
	return svc, requests
}

func TestGenerateDerivesLaborFromParts(t *testing.T) {
	svc, requests := newService(stubPricer{cost: decimal.NewFromInt(200)})
	seedPriced(t, requests, "sr-1", "500")

	invoice, err := svc.Generate(context.Background(), "sr-1")
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if !invoice.TotalAmount.Equal(decimal.NewFromInt(500)) {
		t.Errorf("total = %s", invoice.TotalAmount)
	}
	if !invoice.LaborCost.Equal(decimal.NewFromInt(300)) {
		t.Errorf("labor = %s", invoice.LaborCost)
	}
	if invoice.CustomerID != "cust-1" || invoice.Status != domain.InvoiceStatusPending {
		t.Errorf("unexpected invoice %+v", invoice)
	}
}

func TestGenerateClampsLaborAtZero(t *testing.T) {
	svc, requests := newService(stubPricer{cost: decimal.NewFromInt(800)})
	seedPriced(t, requests, "sr-1", "500")

	invoice, err := svc.Generate(context.Background(), "sr-1")
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if !invoice.LaborCost.IsZero() {
		t.Errorf("labor should clamp to zero, got %s", invoice.LaborCost)
	}
	if !invoice.TotalAmount.Equal(decimal.NewFromInt(500)) {
		t.Errorf("total should stay final cost, got %s", invoice.TotalAmount)
	}
}

func TestGeneratePricerFailureMeansZeroParts(t *testing.T) {
	svc, requests := newService(stubPricer{err: errors.New("inventory down")})
	seedPriced(t, requests, "sr-1", "120.50")

	invoice, err := svc.Generate(context.Background(), "sr-1")
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if !invoice.PartsCost.IsZero() || !invoice.LaborCost.Equal(decimal.RequireFromString("120.50")) {
		t.Errorf("unexpected split parts=%s labor=%s", invoice.PartsCost, invoice.LaborCost)
	}
}

func TestGenerateOnlyOnce(t *testing.T) {
	svc, requests := newService(nil)
	seedPriced(t, requests, "sr-1", "100")

	if _, err := svc.Generate(context.Background(), "sr-1"); err != nil {
		t.Fatalf("first: %v", err)
	}
	_, err := svc.Generate(context.Background(), "sr-1")
	if !apperrors.HasCode(err, "CONFLICT") {
		t.Fatalf("expected conflict, got %v", err)
	}

	trigger := NewLocalTrigger(svc)
	if err := trigger.GenerateInvoice(context.Background(), "sr-1"); !errors.Is(err, gateway.ErrInvoiceExists) {
		t.Fatalf("trigger should report ErrInvoiceExists, got %v", err)
	}
}

func TestGenerateRejectsUnpricedAndUnknown(t *testing.T) {
	svc, requests := newService(nil)
	req := &domain.ServiceRequest{ID: "sr-2", CustomerID: "c", VehicleID: "v", Status: domain.StatusCompleted}
	_ = requests.Create(context.Background(), req, nil)

	if _, err := svc.Generate(context.Background(), "sr-2"); !apperrors.HasCode(err, "BAD_REQUEST") {
		t.Errorf("expected bad request for unpriced, got %v", err)
	}
	if _, err := svc.Generate(context.Background(), "missing"); !apperrors.HasCode(err, "NOT_FOUND") {
		t.Errorf("expected not found, got %v", err)
	}
	if _, err := svc.GetByServiceRequest(context.Background(), "sr-2"); !apperrors.HasCode(err, "NOT_FOUND") {
		t.Errorf("expected invoice not found, got %v", err)
	}
}
