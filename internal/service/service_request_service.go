package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/spec-kit/service-shop/internal/domain"
	"github.com/spec-kit/service-shop/internal/events"
	"github.com/spec-kit/service-shop/internal/gateway"
	"github.com/spec-kit/service-shop/internal/lock"
	"github.com/spec-kit/service-shop/internal/repository"
	apperrors "github.com/spec-kit/service-shop/pkg/util/errorutil"
)

// maxWriteAttempts bounds reload-and-retry after a concurrent write to the same row.
const maxWriteAttempts = 3

// Outcome is what an orchestrator command produced: the persisted request and
// the best-effort failures absorbed along the way.
type Outcome struct {
	Request     *domain.ServiceRequest
	SideEffects []error
}

func (o *Outcome) note(err error) {
	if err != nil {
		o.SideEffects = append(o.SideEffects, err)
	}
}

// TransitionRecorder counts committed status transitions.
type TransitionRecorder interface {
	RecordTransition(status string)
}

// ServiceRequestService drives service requests through their lifecycle.
type ServiceRequestService struct {
	requests  repository.ServiceRequestRepository
	vehicles  gateway.VehicleDirectory
	workload  gateway.WorkloadTracker
	invoices  gateway.InvoiceTrigger
	customers gateway.CustomerDirectory
	publisher events.Publisher
	locker    lock.BayLocker
	degrader  *gateway.Degrader
	metrics   TransitionRecorder
	logger    *zap.Logger
	totalBays int
	now       func() time.Time
}

// Dependencies bundles collaborators for the service request service.
type Dependencies struct {
	RequestRepo repository.ServiceRequestRepository
	Vehicles    gateway.VehicleDirectory
	Workload    gateway.WorkloadTracker
	Invoices    gateway.InvoiceTrigger
	Customers   gateway.CustomerDirectory
	Publisher   events.Publisher
	Locker      lock.BayLocker
	Degrader    *gateway.Degrader
	Metrics     TransitionRecorder
	Logger      *zap.Logger
	TotalBays   int
	Clock       func() time.Time
}

// CreateInput describes intake payload.
type CreateInput struct {
	VehicleID      string
	ServiceType    string
	Description    string
	Priority       domain.Priority
	PickupRequired bool
	PickupAddress  string
	PreferredDate  *time.Time
}

// AssignInput describes technician and bay assignment.
type AssignInput struct {
	TechnicianID  string
	BayNumber     int
	EstimatedCost *decimal.Decimal
}

// ListFilter describes listing filters.
type ListFilter struct {
	CustomerID   *string
	TechnicianID *string
	Statuses     []domain.RequestStatus
	Limit        int
	Offset       int
}

// NewServiceRequestService constructs the service.
func NewServiceRequestService(deps Dependencies) *ServiceRequestService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	svc := &ServiceRequestService{
		requests:  deps.RequestRepo,
		vehicles:  deps.Vehicles,
		workload:  deps.Workload,
		invoices:  deps.Invoices,
		customers: deps.Customers,
		publisher: deps.Publisher,
		locker:    deps.Locker,
		degrader:  deps.Degrader,
		metrics:   deps.Metrics,
		logger:    logger,
		totalBays: deps.TotalBays,
		now:       deps.Clock,
	}
	if svc.vehicles == nil {
		svc.vehicles = gateway.UnconfiguredVehicles()
	}
	if svc.workload == nil {
		svc.workload = gateway.LoggingWorkload(logger)
	}
	if svc.customers == nil {
		svc.customers = gateway.IDOnlyDirectory()
	}
	if svc.locker == nil {
		svc.locker = lock.NewMemoryLocker()
	}
	if svc.degrader == nil {
		svc.degrader = gateway.NewDegrader(logger, 0, nil)
	}
	if svc.now == nil {
		svc.now = time.Now
	}
	return svc
}

// Create registers a new PENDING request after verifying the vehicle belongs
// to the customer. The vehicle check is mandatory: any failure aborts creation.
func (s *ServiceRequestService) Create(ctx context.Context, actor domain.Actor, customerID string, input CreateInput) (*domain.ServiceRequest, error) {
	out, err := s.create(ctx, actor, customerID, input)
	return out.Request, err
}

func (s *ServiceRequestService) create(ctx context.Context, actor domain.Actor, customerID string, input CreateInput) (Outcome, error) {
	req, err := s.newRequest(customerID, input)
	if err != nil {
		return Outcome{}, err
	}
	if err := s.verifyOwnership(ctx, customerID, req.VehicleID); err != nil {
		return Outcome{}, err
	}

	change := s.statusChange(actor, req.ID, nil, req.Status, "created")
	if err := s.requests.Create(ctx, req, change); err != nil {
		return Outcome{}, err
	}
	s.recordTransition(req)
	s.logger.Info("service request created",
		zap.String("service_request_id", req.ID),
		zap.String("external_key", req.ExternalKey),
		zap.String("customer_id", req.CustomerID))

	out := Outcome{Request: req}
	out.note(s.publish(ctx, actor, req, events.EventServiceRequestCreated, events.CreatedPayload{
		ExternalKey: req.ExternalKey,
		CustomerID:  req.CustomerID,
		VehicleID:   req.VehicleID,
		ServiceType: req.ServiceType,
		Priority:    req.Priority,
	}))
	return out, nil
}

func (s *ServiceRequestService) newRequest(customerID string, input CreateInput) (*domain.ServiceRequest, error) {
	customerID = strings.TrimSpace(customerID)
	vehicleID := strings.TrimSpace(input.VehicleID)
	serviceType := strings.TrimSpace(input.ServiceType)
	missing := []string{}
	if customerID == "" {
		missing = append(missing, "customer_id")
	}
	if vehicleID == "" {
		missing = append(missing, "vehicle_id")
	}
	if serviceType == "" {
		missing = append(missing, "service_type")
	}
	if len(missing) > 0 {
		return nil, apperrors.NewValidationError("required fields missing", map[string]any{"fields": missing})
	}

	priority := input.Priority
	if priority == "" {
		priority = domain.PriorityNormal
	}
	if !priority.Valid() {
		return nil, apperrors.NewValidationError("invalid priority", map[string]any{"priority": priority})
	}

	address := strings.TrimSpace(input.PickupAddress)
	if input.PickupRequired && address == "" {
		return nil, apperrors.NewBadRequest("pickup address is required when pickup is requested", nil)
	}
	if !input.PickupRequired && address != "" {
		return nil, apperrors.NewBadRequest("pickup address given but pickup was not requested", nil)
	}

	req := &domain.ServiceRequest{
		ID:             uuid.NewString(),
		ExternalKey:    generateRequestKey(),
		CustomerID:     customerID,
		VehicleID:      vehicleID,
		ServiceType:    serviceType,
		Priority:       priority,
		Description:    strings.TrimSpace(input.Description),
		Status:         domain.StatusPending,
		PickupRequired: input.PickupRequired,
		PreferredDate:  input.PreferredDate,
	}
	if address != "" {
		req.PickupAddress = &address
	}
	return req, nil
}

func (s *ServiceRequestService) verifyOwnership(ctx context.Context, customerID, vehicleID string) error {
	vehicle, err := s.vehicles.GetVehicle(ctx, vehicleID)
	switch {
	case errors.Is(err, gateway.ErrNotFound):
		return apperrors.NewNotFound("vehicle", map[string]any{"vehicle_id": vehicleID})
	case err != nil:
		s.logger.Error("vehicle lookup failed",
			zap.String("vehicle_id", vehicleID),
			zap.Error(err))
		return apperrors.NewUnavailable("vehicle service", err)
	case vehicle.OwnerCustomerID != customerID:
		return apperrors.NewBadRequest("vehicle is not owned by customer", map[string]any{
			"vehicle_id":  vehicleID,
			"customer_id": customerID,
		})
	}
	return nil
}

// Get returns a request visible to actor.
func (s *ServiceRequestService) Get(ctx context.Context, actor domain.Actor, id string) (*domain.ServiceRequest, error) {
	req, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := authorize(actor, req); err != nil {
		return nil, err
	}
	return req, nil
}

// List returns requests ordered newest first.
func (s *ServiceRequestService) List(ctx context.Context, filter ListFilter) ([]domain.ServiceRequest, error) {
	return s.requests.List(ctx, repository.ServiceRequestFilter{
		CustomerID:   filter.CustomerID,
		TechnicianID: filter.TechnicianID,
		Statuses:     filter.Statuses,
		Limit:        filter.Limit,
		Offset:       filter.Offset,
	})
}

// History returns status changes oldest first.
func (s *ServiceRequestService) History(ctx context.Context, actor domain.Actor, id string) ([]domain.StatusChange, error) {
	if _, err := s.Get(ctx, actor, id); err != nil {
		return nil, err
	}
	return s.requests.History(ctx, id)
}

// Assign puts a PENDING request on a technician and a free bay.
func (s *ServiceRequestService) Assign(ctx context.Context, actor domain.Actor, id string, input AssignInput) (*domain.ServiceRequest, error) {
	out, err := s.assign(ctx, actor, id, input)
	return out.Request, err
}

func (s *ServiceRequestService) assign(ctx context.Context, actor domain.Actor, id string, input AssignInput) (Outcome, error) {
	technicianID := strings.TrimSpace(input.TechnicianID)
	if technicianID == "" {
		return Outcome{}, apperrors.NewValidationError("technician_id is required", nil)
	}
	bay := input.BayNumber
	if err := s.checkBayRange(bay); err != nil {
		return Outcome{}, err
	}
	if input.EstimatedCost != nil && input.EstimatedCost.IsNegative() {
		return Outcome{}, apperrors.NewBadRequest("estimated cost must not be negative", nil)
	}

	release, err := s.locker.Lock(ctx, bay)
	if err != nil {
		return Outcome{}, apperrors.NewUnavailable("bay lock", err)
	}
	req, err := s.apply(ctx, actor, id, opAssign, "", func(req *domain.ServiceRequest) error {
		occupant, err := s.occupantOf(ctx, bay)
		if err != nil {
			return err
		}
		if occupant != "" && occupant != req.ID {
			return bayOccupied(bay)
		}
		req.TechnicianID = &technicianID
		req.BayNumber = &bay
		req.EstimatedCost = input.EstimatedCost
		return nil
	})
	release()
	if err != nil {
		return Outcome{}, err
	}

	out := Outcome{Request: req}
	out.note(s.adjustWorkload(ctx, req.ID, technicianID, 1))
	out.note(s.publish(ctx, actor, req, events.EventServiceRequestAssigned, events.AssignedPayload{
		TechnicianID: technicianID,
		BayNumber:    bay,
	}))
	return out, nil
}

// Start moves an ASSIGNED request into work.
func (s *ServiceRequestService) Start(ctx context.Context, actor domain.Actor, id string) (*domain.ServiceRequest, error) {
	return s.apply(ctx, actor, id, opStart, "", func(req *domain.ServiceRequest) error {
		started := s.now()
		req.StartedAt = &started
		return nil
	})
}

// Complete finishes work on an IN_PROGRESS request.
func (s *ServiceRequestService) Complete(ctx context.Context, actor domain.Actor, id, notes string) (*domain.ServiceRequest, error) {
	out, err := s.complete(ctx, actor, id, notes)
	return out.Request, err
}

func (s *ServiceRequestService) complete(ctx context.Context, actor domain.Actor, id, notes string) (Outcome, error) {
	notes = strings.TrimSpace(notes)
	req, err := s.apply(ctx, actor, id, opComplete, notes, func(req *domain.ServiceRequest) error {
		completed := s.now()
		req.CompletedAt = &completed
		if notes != "" {
			req.ServiceNotes = &notes
		}
		return nil
	})
	if err != nil {
		return Outcome{}, err
	}
	out := Outcome{Request: req}
	if req.TechnicianID != nil {
		out.note(s.adjustWorkload(ctx, req.ID, *req.TechnicianID, -1))
	}
	return out, nil
}

// Close archives a COMPLETED request.
func (s *ServiceRequestService) Close(ctx context.Context, actor domain.Actor, id string) (*domain.ServiceRequest, error) {
	return s.apply(ctx, actor, id, opClose, "", nil)
}

// Cancel aborts a request that has not completed. Side effects already issued
// for it are left as they are.
func (s *ServiceRequestService) Cancel(ctx context.Context, actor domain.Actor, id, reason string) (*domain.ServiceRequest, error) {
	reason = strings.TrimSpace(reason)
	return s.apply(ctx, actor, id, opCancel, reason, func(req *domain.ServiceRequest) error {
		if reason != "" {
			req.CancellationReason = &reason
		}
		return nil
	})
}

// Reschedule moves the preferred date of a request that has not started.
func (s *ServiceRequestService) Reschedule(ctx context.Context, actor domain.Actor, id string, date time.Time) (*domain.ServiceRequest, error) {
	if date.IsZero() {
		return nil, apperrors.NewValidationError("preferred_date is required", nil)
	}
	return s.apply(ctx, actor, id, opReschedule, "", func(req *domain.ServiceRequest) error {
		req.PreferredDate = &date
		return nil
	})
}

// UpdateStatus is the transition-to form: it runs whichever command reaches target.
func (s *ServiceRequestService) UpdateStatus(ctx context.Context, actor domain.Actor, id string, target domain.RequestStatus, notes string) (*domain.ServiceRequest, error) {
	op, ok := operationFor(target)
	if !ok {
		return nil, apperrors.NewBadRequest("status cannot be set directly", map[string]any{"status": target})
	}
	if actor.Role == domain.ActorTechnician && op != opStart && op != opComplete {
		return nil, apperrors.NewForbidden("technicians may only start or complete service requests")
	}
	switch op {
	case opStart:
		return s.Start(ctx, actor, id)
	case opComplete:
		return s.Complete(ctx, actor, id, notes)
	case opClose:
		return s.Close(ctx, actor, id)
	default:
		return s.Cancel(ctx, actor, id, notes)
	}
}

// Dashboard counts requests per status.
func (s *ServiceRequestService) Dashboard(ctx context.Context) (domain.DashboardCounts, error) {
	counts, err := s.requests.CountByStatus(ctx)
	if err != nil {
		return domain.DashboardCounts{}, err
	}
	result := domain.DashboardCounts{
		Pending:    counts[domain.StatusPending],
		Assigned:   counts[domain.StatusAssigned],
		InProgress: counts[domain.StatusInProgress],
		Completed:  counts[domain.StatusCompleted],
		Closed:     counts[domain.StatusClosed],
		Cancelled:  counts[domain.StatusCancelled],
	}
	for _, count := range counts {
		result.Total += count
	}
	return result, nil
}

// apply runs one guarded read-modify-write. The row is reloaded and the guard
// re-evaluated when a concurrent writer got there first.
func (s *ServiceRequestService) apply(ctx context.Context, actor domain.Actor, id string, op operation, comment string, mutate func(req *domain.ServiceRequest) error) (*domain.ServiceRequest, error) {
	for attempt := 0; attempt < maxWriteAttempts; attempt++ {
		req, err := s.load(ctx, id)
		if err != nil {
			return nil, err
		}
		if err := authorize(actor, req); err != nil {
			return nil, err
		}
		if err := checkSource(op, req); err != nil {
			return nil, err
		}

		from := req.Status
		if to, ok := resultStatus[op]; ok {
			req.Status = to
		}
		if mutate != nil {
			if err := mutate(req); err != nil {
				return nil, err
			}
		}

		var change *domain.StatusChange
		if req.Status != from {
			change = s.statusChange(actor, req.ID, &from, req.Status, comment)
		}

		err = s.requests.Save(ctx, req, change)
		switch {
		case err == nil:
			if change != nil {
				s.recordTransition(req)
				s.logger.Info("service request transitioned",
					zap.String("service_request_id", req.ID),
					zap.String("from", string(from)),
					zap.String("to", string(req.Status)))
			}
			return req, nil
		case errors.Is(err, repository.ErrStaleWrite):
			continue
		case errors.Is(err, repository.ErrBayOccupied):
			return nil, bayOccupied(bayOf(req))
		default:
			return nil, err
		}
	}
	return nil, apperrors.NewConflict("service request was modified concurrently; retry", map[string]any{"id": id})
}

func (s *ServiceRequestService) load(ctx context.Context, id string) (*domain.ServiceRequest, error) {
	req, err := s.requests.GetByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, apperrors.NewNotFound("service request", map[string]any{"id": id})
	}
	return req, err
}

func (s *ServiceRequestService) statusChange(actor domain.Actor, requestID string, from *domain.RequestStatus, to domain.RequestStatus, comment string) *domain.StatusChange {
	change := &domain.StatusChange{
		ID:               uuid.NewString(),
		ServiceRequestID: requestID,
		FromStatus:       from,
		ToStatus:         to,
		ActorRole:        actor.Role,
		Comment:          comment,
	}
	if actor.ID != "" {
		actorID := actor.ID
		change.ActorID = &actorID
	}
	return change
}

func (s *ServiceRequestService) recordTransition(req *domain.ServiceRequest) {
	if s.metrics != nil {
		s.metrics.RecordTransition(string(req.Status))
	}
}

func (s *ServiceRequestService) adjustWorkload(ctx context.Context, requestID, technicianID string, delta int) error {
	name := "workload.increment"
	if delta < 0 {
		name = "workload.decrement"
	}
	return s.degrader.Attempt(ctx, name, requestID, gateway.EffectFunc(func(ctx context.Context) error {
		return s.workload.AdjustWorkload(ctx, technicianID, delta)
	}))
}

func (s *ServiceRequestService) publish(ctx context.Context, actor domain.Actor, req *domain.ServiceRequest, eventType events.EventType, payload any) error {
	if s.publisher == nil {
		return nil
	}
	event := events.Event{
		ID:               uuid.NewString(),
		Type:             eventType,
		ServiceRequestID: req.ID,
		Actor:            events.ActorFrom(actor),
		Timestamp:        s.now(),
		Payload:          payload,
	}
	return s.degrader.Attempt(ctx, "notification.publish", req.ID, gateway.EffectFunc(func(ctx context.Context) error {
		return s.publisher.Publish(ctx, event)
	}))
}

// authorize limits customers to their own requests.
func authorize(actor domain.Actor, req *domain.ServiceRequest) error {
	if actor.Role == domain.ActorCustomer && actor.ID != req.CustomerID {
		return apperrors.NewForbidden("service request belongs to another customer")
	}
	return nil
}

func generateRequestKey() string {
	return "SR-" + strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:8])
}
