package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/spec-kit/service-shop/internal/domain"
)

// MemoryServiceRequestRepository is a process-local store used when no
// database is configured. It enforces the same bay uniqueness and version
// checks as the Postgres schema, atomically under one mutex.
type MemoryServiceRequestRepository struct {
	mu       sync.RWMutex
	requests map[string]*domain.ServiceRequest
	history  map[string][]domain.StatusChange
	now      func() time.Time
}

// NewMemoryServiceRequestRepository builds an empty store.
func NewMemoryServiceRequestRepository() *MemoryServiceRequestRepository {
	return &MemoryServiceRequestRepository{
		requests: make(map[string]*domain.ServiceRequest),
		history:  make(map[string][]domain.StatusChange),
		now:      time.Now,
	}
}

func (r *MemoryServiceRequestRepository) Create(_ context.Context, req *domain.ServiceRequest, change *domain.StatusChange) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.requests[req.ID]; exists {
		return ErrStaleWrite
	}
	if r.bayTakenLocked(req) {
		return ErrBayOccupied
	}
	now := r.now()
	req.CreatedAt = now
	req.UpdatedAt = now
	req.Version = 1
	r.requests[req.ID] = req.Clone()
	r.appendHistoryLocked(change, now)
	return nil
}

func (r *MemoryServiceRequestRepository) Save(_ context.Context, req *domain.ServiceRequest, change *domain.StatusChange) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored, ok := r.requests[req.ID]
	if !ok || stored.Version != req.Version {
		return ErrStaleWrite
	}
	if r.bayTakenLocked(req) {
		return ErrBayOccupied
	}
	now := r.now()
	req.UpdatedAt = now
	req.Version = stored.Version + 1
	r.requests[req.ID] = req.Clone()
	r.appendHistoryLocked(change, now)
	return nil
}

func (r *MemoryServiceRequestRepository) GetByID(_ context.Context, id string) (*domain.ServiceRequest, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	req, ok := r.requests[id]
	if !ok {
		return nil, ErrNotFound
	}
	return req.Clone(), nil
}

func (r *MemoryServiceRequestRepository) List(_ context.Context, filter ServiceRequestFilter) ([]domain.ServiceRequest, error) {
	r.mu.RLock()
	matched := make([]domain.ServiceRequest, 0)
	for _, req := range r.requests {
		if matchesFilter(req, filter) {
			matched = append(matched, *req.Clone())
		}
	}
	r.mu.RUnlock()

	sort.Slice(matched, func(i, j int) bool {
		if matched[i].CreatedAt.Equal(matched[j].CreatedAt) {
			return matched[i].ID < matched[j].ID
		}
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})

	limit, offset := normalizeLimit(filter.Limit, filter.Offset)
	if offset >= len(matched) {
		return []domain.ServiceRequest{}, nil
	}
	end := offset + limit
	if end > len(matched) {
		end = len(matched)
	}
	return matched[offset:end], nil
}

func (r *MemoryServiceRequestRepository) ListActive(_ context.Context) ([]domain.ServiceRequest, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	active := make([]domain.ServiceRequest, 0)
	for _, req := range r.requests {
		if req.Status.IsActive() {
			active = append(active, *req.Clone())
		}
	}
	sort.Slice(active, func(i, j int) bool {
		return bayOf(&active[i]) < bayOf(&active[j])
	})
	return active, nil
}

func (r *MemoryServiceRequestRepository) CountByStatus(_ context.Context) (map[domain.RequestStatus]int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	counts := make(map[domain.RequestStatus]int)
	for _, req := range r.requests {
		counts[req.Status]++
	}
	return counts, nil
}

func (r *MemoryServiceRequestRepository) History(_ context.Context, serviceRequestID string) ([]domain.StatusChange, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	entries := r.history[serviceRequestID]
	out := make([]domain.StatusChange, len(entries))
	copy(out, entries)
	return out, nil
}

func (r *MemoryServiceRequestRepository) bayTakenLocked(req *domain.ServiceRequest) bool {
	if !req.Status.IsActive() || req.BayNumber == nil {
		return false
	}
	for id, other := range r.requests {
		if id == req.ID || !other.Status.IsActive() || other.BayNumber == nil {
			continue
		}
		if *other.BayNumber == *req.BayNumber {
			return true
		}
	}
	return false
}

func (r *MemoryServiceRequestRepository) appendHistoryLocked(change *domain.StatusChange, now time.Time) {
	if change == nil {
		return
	}
	change.CreatedAt = now
	r.history[change.ServiceRequestID] = append(r.history[change.ServiceRequestID], *change)
}

func matchesFilter(req *domain.ServiceRequest, filter ServiceRequestFilter) bool {
	if filter.CustomerID != nil && req.CustomerID != *filter.CustomerID {
		return false
	}
	if filter.TechnicianID != nil && (req.TechnicianID == nil || *req.TechnicianID != *filter.TechnicianID) {
		return false
	}
	if len(filter.Statuses) > 0 {
		for _, status := range filter.Statuses {
			if req.Status == status {
				return true
			}
		}
		return false
	}
	return true
}

func bayOf(req *domain.ServiceRequest) int {
	if req.BayNumber == nil {
		return 0
	}
	return *req.BayNumber
}

// MemoryInvoiceRepository keeps invoices in process memory.
type MemoryInvoiceRepository struct {
	mu        sync.Mutex
	byRequest map[string]domain.Invoice
	now       func() time.Time
}

// NewMemoryInvoiceRepository builds an empty store.
func NewMemoryInvoiceRepository() *MemoryInvoiceRepository {
	return &MemoryInvoiceRepository{byRequest: make(map[string]domain.Invoice), now: time.Now}
}

func (r *MemoryInvoiceRepository) Create(_ context.Context, invoice *domain.Invoice) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.byRequest[invoice.ServiceRequestID]; exists {
		return ErrInvoiceExists
	}
	invoice.CreatedAt = r.now()
	r.byRequest[invoice.ServiceRequestID] = *invoice
	return nil
}

func (r *MemoryInvoiceRepository) GetByServiceRequest(_ context.Context, serviceRequestID string) (*domain.Invoice, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	invoice, ok := r.byRequest[serviceRequestID]
	if !ok {
		return nil, ErrNotFound
	}
	return &invoice, nil
}
