package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/spec-kit/service-shop/internal/domain"
	"github.com/spec-kit/service-shop/internal/events"
	"github.com/spec-kit/service-shop/internal/gateway"
	"github.com/spec-kit/service-shop/internal/repository"
)

var errDown = errors.New("collaborator down")

type fakeVehicles struct {
	owners map[string]string
	err    error
}

func (f *fakeVehicles) GetVehicle(_ context.Context, vehicleID string) (gateway.Vehicle, error) {
	if f.err != nil {
		return gateway.Vehicle{}, f.err
	}
	owner, ok := f.owners[vehicleID]
	if !ok {
		return gateway.Vehicle{}, gateway.ErrNotFound
	}
	return gateway.Vehicle{ID: vehicleID, OwnerCustomerID: owner}, nil
}

type workloadCall struct {
	technicianID string
	delta        int
}

type fakeWorkload struct {
	mu    sync.Mutex
	calls []workloadCall
	err   error
	block bool
}

func (f *fakeWorkload) AdjustWorkload(ctx context.Context, technicianID string, delta int) error {
	if f.block {
		<-ctx.Done()
		return ctx.Err()
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, workloadCall{technicianID: technicianID, delta: delta})
	return f.err
}

func (f *fakeWorkload) snapshot() []workloadCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]workloadCall(nil), f.calls...)
}

type fakeInvoices struct {
	mu     sync.Mutex
	issued map[string]int
	err    error
}

func (f *fakeInvoices) GenerateInvoice(_ context.Context, serviceRequestID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	if f.issued == nil {
		f.issued = make(map[string]int)
	}
	if f.issued[serviceRequestID] > 0 {
		return gateway.ErrInvoiceExists
	}
	f.issued[serviceRequestID]++
	return nil
}

type fakeCustomers struct {
	err error
}

func (f *fakeCustomers) GetContact(_ context.Context, customerID string) (gateway.Contact, error) {
	if f.err != nil {
		return gateway.Contact{}, f.err
	}
	return gateway.Contact{CustomerID: customerID, Name: "Pat Driver", Email: customerID + "@example.com"}, nil
}

type fakePublisher struct {
	mu     sync.Mutex
	events []events.Event
	err    error
}

func (f *fakePublisher) Publish(_ context.Context, event events.Event) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.events = append(f.events, event)
	return nil
}

func (f *fakePublisher) types() []events.EventType {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]events.EventType, len(f.events))
	for i, e := range f.events {
		out[i] = e.Type
	}
	return out
}

type countingMetrics struct {
	mu          sync.Mutex
	transitions map[string]int
}

func (m *countingMetrics) RecordTransition(status string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.transitions == nil {
		m.transitions = make(map[string]int)
	}
	m.transitions[status]++
}

// noLocker does not serialize anything, leaving the store as the only guard.
type noLocker struct{}

func (noLocker) Lock(context.Context, int) (func(), error) { return func() {}, nil }

type harness struct {
	svc       *ServiceRequestService
	repo      *repository.MemoryServiceRequestRepository
	vehicles  *fakeVehicles
	workload  *fakeWorkload
	invoices  *fakeInvoices
	customers *fakeCustomers
	publisher *fakePublisher
	metrics   *countingMetrics
}

type harnessOption func(*Dependencies)

func newHarness(t *testing.T, opts ...harnessOption) *harness {
	t.Helper()
	h := &harness{
		repo:      repository.NewMemoryServiceRequestRepository(),
		vehicles:  &fakeVehicles{owners: map[string]string{"veh-1": "cust-1", "veh-2": "cust-2"}},
		workload:  &fakeWorkload{},
		invoices:  &fakeInvoices{},
		customers: &fakeCustomers{},
		publisher: &fakePublisher{},
		metrics:   &countingMetrics{},
	}
	deps := Dependencies{
		RequestRepo: h.repo,
		Vehicles:    h.vehicles,
		Workload:    h.workload,
		Invoices:    h.invoices,
		Customers:   h.customers,
		Publisher:   h.publisher,
		Degrader:    gateway.NewDegrader(zap.NewNop(), 200*time.Millisecond, nil),
		Metrics:     h.metrics,
		Logger:      zap.NewNop(),
		TotalBays:   20,
	}
	for _, opt := range opts {
		opt(&deps)
	}
	h.svc = NewServiceRequestService(deps)
	return h
}

var (
	manager    = domain.Actor{Role: domain.ActorManager, ID: "mgr-1"}
	technician = domain.Actor{Role: domain.ActorTechnician, ID: "tech-5"}
	customer1  = domain.Actor{Role: domain.ActorCustomer, ID: "cust-1"}
)

func (h *harness) create(t *testing.T) *domain.ServiceRequest {
	t.Helper()
	req, err := h.svc.Create(context.Background(), customer1, "cust-1", CreateInput{
		VehicleID:   "veh-1",
		ServiceType: "OIL_CHANGE",
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	return req
}

func (h *harness) assigned(t *testing.T, bay int) *domain.ServiceRequest {
	t.Helper()
	req := h.create(t)
	assigned, err := h.svc.Assign(context.Background(), manager, req.ID, AssignInput{TechnicianID: "tech-5", BayNumber: bay})
	if err != nil {
		t.Fatalf("assign bay %d: %v", bay, err)
	}
	return assigned
}

func (h *harness) completed(t *testing.T) *domain.ServiceRequest {
	t.Helper()
	req := h.assigned(t, 1)
	ctx := context.Background()
	if _, err := h.svc.Start(ctx, technician, req.ID); err != nil {
		t.Fatalf("start: %v", err)
	}
	done, err := h.svc.Complete(ctx, technician, req.ID, "")
	if err != nil {
		t.Fatalf("complete: %v", err)
	}
	return done
}

func money(v int64) *decimal.Decimal {
	d := decimal.NewFromInt(v)
	return &d
}
