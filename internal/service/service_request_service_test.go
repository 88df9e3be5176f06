package service

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/spec-kit/service-shop/internal/domain"
	"github.com/spec-kit/service-shop/internal/events"
	"github.com/spec-kit/service-shop/internal/gateway"
	"github.com/spec-kit/service-shop/internal/repository"
	apperrors "github.com/spec-kit/service-shop/pkg/util/errorutil"
)

func TestFullLifecycle(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	req := h.create(t)
	if req.Status != domain.StatusPending || req.Priority != domain.PriorityNormal {
		t.Fatalf("unexpected created request %+v", req)
	}
	if !strings.HasPrefix(req.ExternalKey, "SR-") || len(req.ExternalKey) != 11 {
		t.Errorf("unexpected external key %q", req.ExternalKey)
	}

	assigned, err := h.svc.Assign(ctx, manager, req.ID, AssignInput{TechnicianID: "tech-5", BayNumber: 3, EstimatedCost: money(450)})
	if err != nil {
		t.Fatalf("assign: %v", err)
	}
	if assigned.Status != domain.StatusAssigned || *assigned.BayNumber != 3 || *assigned.TechnicianID != "tech-5" {
		t.Fatalf("unexpected assigned request %+v", assigned)
	}
	available, _ := h.svc.AvailableBays(ctx)
	for _, bay := range available {
		if bay == 3 {
			t.Fatal("bay 3 should be occupied")
		}
	}

	started, err := h.svc.Start(ctx, technician, req.ID)
	if err != nil || started.Status != domain.StatusInProgress || started.StartedAt == nil {
		t.Fatalf("start: %+v %v", started, err)
	}

	done, err := h.svc.Complete(ctx, technician, req.ID, "replaced filter")
	if err != nil || done.Status != domain.StatusCompleted || done.CompletedAt == nil {
		t.Fatalf("complete: %+v %v", done, err)
	}
	if done.ServiceNotes == nil || *done.ServiceNotes != "replaced filter" {
		t.Errorf("notes not stored: %+v", done.ServiceNotes)
	}

	priced, err := h.svc.SetPricing(ctx, manager, req.ID, PricingInput{PartsCost: money(200), LaborCost: money(300)})
	if err != nil {
		t.Fatalf("pricing: %v", err)
	}
	if !priced.FinalCost.Equal(decimal.NewFromInt(500)) {
		t.Errorf("final cost = %s", priced.FinalCost)
	}
	if h.invoices.issued[req.ID] != 1 {
		t.Errorf("invoice generation not attempted")
	}

	calls := h.workload.snapshot()
	if len(calls) != 2 || calls[0].delta != 1 || calls[1].delta != -1 || calls[1].technicianID != "tech-5" {
		t.Errorf("unexpected workload calls %+v", calls)
	}

	gotTypes := h.publisher.types()
	wantTypes := []events.EventType{events.EventServiceRequestCreated, events.EventServiceRequestAssigned, events.EventServiceRequestCompleted}
	if len(gotTypes) != len(wantTypes) {
		t.Fatalf("events = %v", gotTypes)
	}
	for i := range wantTypes {
		if gotTypes[i] != wantTypes[i] {
			t.Errorf("event %d = %s, want %s", i, gotTypes[i], wantTypes[i])
		}
	}
	completedPayload, ok := h.publisher.events[2].Payload.(events.CompletedPayload)
	if !ok || completedPayload.CustomerEmail != "cust-1@example.com" || !completedPayload.FinalCost.Equal(decimal.NewFromInt(500)) {
		t.Errorf("unexpected completion payload %+v", h.publisher.events[2].Payload)
	}

	closed, err := h.svc.Close(ctx, manager, req.ID)
	if err != nil || closed.Status != domain.StatusClosed {
		t.Fatalf("close: %+v %v", closed, err)
	}
	if h.metrics.transitions["CLOSED"] != 1 || h.metrics.transitions["PENDING"] != 1 {
		t.Errorf("unexpected transition metrics %v", h.metrics.transitions)
	}
}

func TestAssignToOccupiedBayFailsWithoutMutation(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.assigned(t, 1)

	other := h.create(t)
	_, err := h.svc.Assign(ctx, manager, other.ID, AssignInput{TechnicianID: "tech-7", BayNumber: 1})
	if !apperrors.HasCode(err, "BAD_REQUEST") || !strings.Contains(err.Error(), "already occupied") {
		t.Fatalf("expected bay occupied bad request, got %v", err)
	}

	stored, _ := h.svc.Get(ctx, manager, other.ID)
	if stored.Status != domain.StatusPending || stored.BayNumber != nil || stored.TechnicianID != nil || stored.Version != other.Version {
		t.Errorf("rejected assign mutated the request: %+v", stored)
	}
}

func TestCancelledRequestCannotBeAssigned(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	req := h.create(t)

	cancelled, err := h.svc.Cancel(ctx, customer1, req.ID, "changed my mind")
	if err != nil || cancelled.Status != domain.StatusCancelled {
		t.Fatalf("cancel: %+v %v", cancelled, err)
	}
	if cancelled.CancellationReason == nil || *cancelled.CancellationReason != "changed my mind" {
		t.Errorf("reason not stored")
	}

	_, err = h.svc.Assign(ctx, manager, req.ID, AssignInput{TechnicianID: "tech-5", BayNumber: 2})
	if !apperrors.HasCode(err, "BAD_REQUEST") {
		t.Fatalf("expected bad request, got %v", err)
	}
	if want := "cannot assign service request in status CANCELLED; expected PENDING"; err.Error() != want {
		t.Errorf("message = %q, want %q", err.Error(), want)
	}
}

func TestCreateRequiresPickupAddress(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	_, err := h.svc.Create(ctx, customer1, "cust-1", CreateInput{
		VehicleID:      "veh-1",
		ServiceType:    "BRAKES",
		PickupRequired: true,
		PickupAddress:  "   ",
	})
	if !apperrors.HasCode(err, "BAD_REQUEST") {
		t.Fatalf("expected bad request, got %v", err)
	}
	all, _ := h.svc.List(ctx, ListFilter{})
	if len(all) != 0 {
		t.Fatalf("nothing should be persisted, got %d", len(all))
	}

	req, err := h.svc.Create(ctx, customer1, "cust-1", CreateInput{
		VehicleID:      "veh-1",
		ServiceType:    "BRAKES",
		PickupRequired: true,
		PickupAddress:  "1 Main St",
	})
	if err != nil || req.PickupAddress == nil || *req.PickupAddress != "1 Main St" {
		t.Fatalf("create with address: %+v %v", req, err)
	}
}

func TestSetPricingOnlyOnce(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	req := h.completed(t)

	if _, err := h.svc.SetPricing(ctx, manager, req.ID, PricingInput{PartsCost: money(200), LaborCost: money(300)}); err != nil {
		t.Fatalf("first pricing: %v", err)
	}
	_, err := h.svc.SetPricing(ctx, manager, req.ID, PricingInput{PartsCost: money(1), LaborCost: money(1)})
	if !apperrors.HasCode(err, "BAD_REQUEST") {
		t.Fatalf("expected bad request on re-pricing, got %v", err)
	}
	stored, _ := h.svc.Get(ctx, manager, req.ID)
	if !stored.FinalCost.Equal(decimal.NewFromInt(500)) {
		t.Errorf("final cost changed to %s", stored.FinalCost)
	}
}

func TestSetPricingTreatsMissingComponentsAsZero(t *testing.T) {
	h := newHarness(t)
	req := h.completed(t)

	priced, err := h.svc.SetPricing(context.Background(), manager, req.ID, PricingInput{LaborCost: money(80)})
	if err != nil {
		t.Fatalf("pricing: %v", err)
	}
	if !priced.FinalCost.Equal(decimal.NewFromInt(80)) {
		t.Errorf("final cost = %s", priced.FinalCost)
	}
}

func TestSetPricingRejectsNegativeAndWrongState(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	req := h.completed(t)
	negative := decimal.NewFromInt(-5)

	if _, err := h.svc.SetPricing(ctx, manager, req.ID, PricingInput{PartsCost: &negative}); !apperrors.HasCode(err, "BAD_REQUEST") {
		t.Errorf("expected bad request for negative cost, got %v", err)
	}

	pending := h.create(t)
	_, err := h.svc.SetPricing(ctx, manager, pending.ID, PricingInput{LaborCost: money(10)})
	if !apperrors.HasCode(err, "BAD_REQUEST") || !strings.Contains(err.Error(), "expected COMPLETED") {
		t.Errorf("expected state guard, got %v", err)
	}
}

func TestBestEffortFailuresDoNotFailPrimaryOperation(t *testing.T) {
	h := newHarness(t)
	h.workload.err = errDown
	h.invoices.err = errDown
	h.customers.err = errDown
	h.publisher.err = errDown
	ctx := context.Background()

	created, err := h.svc.create(ctx, customer1, "cust-1", CreateInput{VehicleID: "veh-1", ServiceType: "TIRES"})
	if err != nil {
		t.Fatalf("create should succeed: %v", err)
	}
	if len(created.SideEffects) != 1 {
		t.Errorf("expected publish failure recorded, got %v", created.SideEffects)
	}
	id := created.Request.ID

	assigned, err := h.svc.assign(ctx, manager, id, AssignInput{TechnicianID: "tech-5", BayNumber: 4})
	if err != nil || assigned.Request.Status != domain.StatusAssigned {
		t.Fatalf("assign should succeed: %v", err)
	}
	if len(assigned.SideEffects) != 2 {
		t.Errorf("expected workload and publish failures, got %v", assigned.SideEffects)
	}

	if _, err := h.svc.Start(ctx, technician, id); err != nil {
		t.Fatalf("start: %v", err)
	}
	completed, err := h.svc.complete(ctx, technician, id, "")
	if err != nil || len(completed.SideEffects) != 1 {
		t.Fatalf("complete: %v %v", err, completed.SideEffects)
	}

	priced, err := h.svc.setPricing(ctx, manager, id, PricingInput{PartsCost: money(10), LaborCost: money(20)})
	if err != nil {
		t.Fatalf("pricing should succeed despite billing outage: %v", err)
	}
	if len(priced.SideEffects) != 3 {
		t.Errorf("expected invoice, contact and publish failures, got %v", priced.SideEffects)
	}
	stored, _ := h.svc.Get(ctx, manager, id)
	if !stored.FinalCost.Equal(decimal.NewFromInt(30)) {
		t.Errorf("pricing must persist, got %v", stored.FinalCost)
	}
}

func TestSlowSideEffectIsBounded(t *testing.T) {
	h := newHarness(t, func(d *Dependencies) {
		d.Degrader = gateway.NewDegrader(zap.NewNop(), 20*time.Millisecond, nil)
	})
	h.workload.block = true
	req := h.create(t)

	start := time.Now()
	out, err := h.svc.assign(context.Background(), manager, req.ID, AssignInput{TechnicianID: "tech-5", BayNumber: 2})
	if err != nil {
		t.Fatalf("assign: %v", err)
	}
	if time.Since(start) > time.Second {
		t.Errorf("assign waited on a slow collaborator")
	}
	if len(out.SideEffects) != 1 {
		t.Errorf("timeout should be recorded as a failure, got %v", out.SideEffects)
	}
}

func TestCreateVehicleChecks(t *testing.T) {
	cases := []struct {
		name      string
		vehicleID string
		err       error
		code      string
	}{
		{name: "unknown vehicle", vehicleID: "veh-404", code: "NOT_FOUND"},
		{name: "owned by someone else", vehicleID: "veh-2", code: "BAD_REQUEST"},
		{name: "vehicle service down", vehicleID: "veh-1", err: errDown, code: "DEPENDENCY_UNAVAILABLE"},
		{name: "vehicle service not configured", vehicleID: "veh-1", err: gateway.ErrNotConfigured, code: "DEPENDENCY_UNAVAILABLE"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			h := newHarness(t)
			h.vehicles.err = tc.err
			_, err := h.svc.Create(context.Background(), customer1, "cust-1", CreateInput{VehicleID: tc.vehicleID, ServiceType: "OIL_CHANGE"})
			if !apperrors.HasCode(err, tc.code) {
				t.Fatalf("expected %s, got %v", tc.code, err)
			}
			all, _ := h.svc.List(context.Background(), ListFilter{})
			if len(all) != 0 {
				t.Errorf("nothing should be persisted")
			}
			if len(h.publisher.types()) != 0 {
				t.Errorf("no event expected on failed creation")
			}
		})
	}
}

func TestCreateValidatesInput(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	if _, err := h.svc.Create(ctx, customer1, "cust-1", CreateInput{VehicleID: "veh-1"}); !apperrors.HasCode(err, "VALIDATION_FAILED") {
		t.Errorf("expected validation error for missing service type, got %v", err)
	}
	if _, err := h.svc.Create(ctx, customer1, "cust-1", CreateInput{VehicleID: "veh-1", ServiceType: "X", Priority: "SOMEDAY"}); !apperrors.HasCode(err, "VALIDATION_FAILED") {
		t.Errorf("expected validation error for priority, got %v", err)
	}
	if _, err := h.svc.Create(ctx, customer1, "cust-1", CreateInput{VehicleID: "veh-1", ServiceType: "X", PickupAddress: "somewhere"}); !apperrors.HasCode(err, "BAD_REQUEST") {
		t.Errorf("expected bad request for address without pickup, got %v", err)
	}
}

func TestConcurrentAssignSameBayExactlyOneWins(t *testing.T) {
	lockers := map[string]harnessOption{
		"memory locker": func(*Dependencies) {},
		"store guard":   func(d *Dependencies) { d.Locker = noLocker{} },
	}
	for name, opt := range lockers {
		t.Run(name, func(t *testing.T) {
			h := newHarness(t, opt)
			const contenders = 12
			ids := make([]string, contenders)
			for i := range ids {
				ids[i] = h.create(t).ID
			}

			var wg sync.WaitGroup
			var mu sync.Mutex
			wins, rejections := 0, 0
			start := make(chan struct{})
			for _, id := range ids {
				wg.Add(1)
				go func(id string) {
					defer wg.Done()
					<-start
					_, err := h.svc.Assign(context.Background(), manager, id, AssignInput{TechnicianID: "tech-" + id[:4], BayNumber: 7})
					mu.Lock()
					defer mu.Unlock()
					switch {
					case err == nil:
						wins++
					case apperrors.HasCode(err, "BAD_REQUEST"):
						rejections++
					default:
						t.Errorf("unexpected error: %v", err)
					}
				}(id)
			}
			close(start)
			wg.Wait()

			if wins != 1 || rejections != contenders-1 {
				t.Fatalf("wins=%d rejections=%d", wins, rejections)
			}
			statuses, _ := h.svc.BayStatuses(context.Background())
			if !statuses[6].Occupied {
				t.Errorf("bay 7 should be occupied")
			}
		})
	}
}

func TestBayMath(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	holders := map[int]string{}
	for _, bay := range []int{3, 1, 2} {
		holders[bay] = h.assigned(t, bay).ID
	}

	available, err := h.svc.AvailableBays(ctx)
	if err != nil {
		t.Fatalf("available: %v", err)
	}
	if len(available) != 17 {
		t.Fatalf("expected 17 free bays, got %v", available)
	}
	for i, bay := range available {
		if bay != i+4 {
			t.Fatalf("free bays not ascending from 4: %v", available)
		}
	}

	statuses, _ := h.svc.BayStatuses(ctx)
	if len(statuses) != 20 {
		t.Fatalf("expected 20 bay statuses, got %d", len(statuses))
	}
	for _, status := range statuses {
		holder, taken := holders[status.BayNumber]
		if status.Occupied != taken {
			t.Errorf("bay %d occupied=%v", status.BayNumber, status.Occupied)
		}
		if taken && (status.ServiceRequestID == nil || *status.ServiceRequestID != holder) {
			t.Errorf("bay %d holder mismatch", status.BayNumber)
		}
		if !taken && status.ServiceRequestID != nil {
			t.Errorf("free bay %d reports a holder", status.BayNumber)
		}
	}

	if _, err := h.svc.Cancel(ctx, manager, holders[2], ""); err != nil {
		t.Fatalf("cancel: %v", err)
	}
	available, _ = h.svc.AvailableBays(ctx)
	if len(available) != 18 || available[0] != 2 {
		t.Errorf("cancelled request should free bay 2, got %v", available)
	}
}

func TestAssignRejectsBayOutOfRange(t *testing.T) {
	h := newHarness(t)
	req := h.create(t)
	for _, bay := range []int{0, 21, -3} {
		_, err := h.svc.Assign(context.Background(), manager, req.ID, AssignInput{TechnicianID: "tech-5", BayNumber: bay})
		if !apperrors.HasCode(err, "BAD_REQUEST") {
			t.Errorf("bay %d: expected bad request, got %v", bay, err)
		}
	}
	if _, err := h.svc.Assign(context.Background(), manager, req.ID, AssignInput{BayNumber: 2}); !apperrors.HasCode(err, "VALIDATION_FAILED") {
		t.Errorf("expected validation error for missing technician, got %v", err)
	}
}

func TestRescheduleGuard(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	date := time.Date(2026, 11, 2, 9, 0, 0, 0, time.UTC)

	pending := h.create(t)
	moved, err := h.svc.Reschedule(ctx, customer1, pending.ID, date)
	if err != nil || moved.PreferredDate == nil || !moved.PreferredDate.Equal(date) || moved.Status != domain.StatusPending {
		t.Fatalf("reschedule pending: %+v %v", moved, err)
	}

	assigned := h.assigned(t, 5)
	if _, err := h.svc.Reschedule(ctx, manager, assigned.ID, date); err != nil {
		t.Fatalf("reschedule assigned: %v", err)
	}
	if _, err := h.svc.Start(ctx, technician, assigned.ID); err != nil {
		t.Fatalf("start: %v", err)
	}
	_, err = h.svc.Reschedule(ctx, manager, assigned.ID, date)
	if !apperrors.HasCode(err, "BAD_REQUEST") || !strings.Contains(err.Error(), "expected PENDING or ASSIGNED") {
		t.Fatalf("expected guard on in-progress reschedule, got %v", err)
	}
}

func TestTerminalAndCompletedStatesRejectCancel(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	done := h.completed(t)

	if _, err := h.svc.Cancel(ctx, manager, done.ID, ""); !apperrors.HasCode(err, "BAD_REQUEST") {
		t.Errorf("completed request must not cancel, got %v", err)
	}
	if _, err := h.svc.Close(ctx, manager, done.ID); err != nil {
		t.Fatalf("close: %v", err)
	}
	for name, op := range map[string]func() error{
		"cancel": func() error { _, err := h.svc.Cancel(ctx, manager, done.ID, ""); return err },
		"start":  func() error { _, err := h.svc.Start(ctx, manager, done.ID); return err },
		"close":  func() error { _, err := h.svc.Close(ctx, manager, done.ID); return err },
	} {
		if err := op(); !apperrors.HasCode(err, "BAD_REQUEST") {
			t.Errorf("%s on closed request: expected bad request, got %v", name, err)
		}
	}
}

func TestCancelledRequestRejectsEveryCommand(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	req := h.create(t)
	if _, err := h.svc.Cancel(ctx, customer1, req.ID, "changed my mind"); err != nil {
		t.Fatalf("cancel: %v", err)
	}
	date := time.Date(2026, 11, 2, 9, 0, 0, 0, time.UTC)

	for name, op := range map[string]func() error{
		"assign": func() error {
			_, err := h.svc.Assign(ctx, manager, req.ID, AssignInput{TechnicianID: "tech-5", BayNumber: 2})
			return err
		},
		"start":    func() error { _, err := h.svc.Start(ctx, technician, req.ID); return err },
		"complete": func() error { _, err := h.svc.Complete(ctx, technician, req.ID, ""); return err },
		"close":    func() error { _, err := h.svc.Close(ctx, manager, req.ID); return err },
		"cancel":   func() error { _, err := h.svc.Cancel(ctx, manager, req.ID, ""); return err },
		"reschedule": func() error {
			_, err := h.svc.Reschedule(ctx, customer1, req.ID, date)
			return err
		},
		"pricing": func() error {
			_, err := h.svc.SetPricing(ctx, manager, req.ID, PricingInput{PartsCost: money(10)})
			return err
		},
		"invoice": func() error { return h.svc.RetryInvoice(ctx, manager, req.ID) },
	} {
		err := op()
		if !apperrors.HasCode(err, "BAD_REQUEST") || !strings.Contains(err.Error(), "status CANCELLED") {
			t.Errorf("%s on cancelled request: expected bad request, got %v", name, err)
		}
	}

	stored, err := h.svc.Get(ctx, manager, req.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if stored.Status != domain.StatusCancelled || stored.BayNumber != nil || stored.FinalCost != nil || stored.PreferredDate != nil {
		t.Errorf("rejected commands must not mutate, got %+v", stored)
	}
}

func TestTechnicianCannotCloseOrCancelThroughStatusUpdate(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	req := h.assigned(t, 11)

	if _, err := h.svc.UpdateStatus(ctx, technician, req.ID, domain.StatusCancelled, "nope"); !apperrors.HasCode(err, "FORBIDDEN") {
		t.Errorf("technician cancel: expected forbidden, got %v", err)
	}
	if _, err := h.svc.UpdateStatus(ctx, manager, req.ID, domain.StatusCancelled, "customer called"); err != nil {
		t.Fatalf("manager cancel: %v", err)
	}

	done := h.completed(t)
	if _, err := h.svc.UpdateStatus(ctx, technician, done.ID, domain.StatusClosed, ""); !apperrors.HasCode(err, "FORBIDDEN") {
		t.Errorf("technician close: expected forbidden, got %v", err)
	}
}

func TestUpdateStatusDispatches(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	req := h.assigned(t, 9)

	started, err := h.svc.UpdateStatus(ctx, technician, req.ID, domain.StatusInProgress, "")
	if err != nil || started.Status != domain.StatusInProgress {
		t.Fatalf("to in progress: %+v %v", started, err)
	}
	done, err := h.svc.UpdateStatus(ctx, technician, req.ID, domain.StatusCompleted, "all good")
	if err != nil || done.Status != domain.StatusCompleted || *done.ServiceNotes != "all good" {
		t.Fatalf("to completed: %+v %v", done, err)
	}
	if _, err := h.svc.UpdateStatus(ctx, manager, req.ID, domain.StatusAssigned, ""); !apperrors.HasCode(err, "BAD_REQUEST") {
		t.Errorf("assigned is not a direct target, got %v", err)
	}
	if _, err := h.svc.UpdateStatus(ctx, manager, req.ID, domain.StatusPending, ""); !apperrors.HasCode(err, "BAD_REQUEST") {
		t.Errorf("pending is not a direct target, got %v", err)
	}
}

func TestHistoryRecordsEveryTransition(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	req := h.completed(t)

	history, err := h.svc.History(ctx, manager, req.ID)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	want := []domain.RequestStatus{domain.StatusPending, domain.StatusAssigned, domain.StatusInProgress, domain.StatusCompleted}
	if len(history) != len(want) {
		t.Fatalf("expected %d entries, got %+v", len(want), history)
	}
	if history[0].FromStatus != nil {
		t.Errorf("creation entry should have no source state")
	}
	for i, status := range want {
		if history[i].ToStatus != status {
			t.Errorf("entry %d = %s, want %s", i, history[i].ToStatus, status)
		}
	}
	if history[1].ActorRole != domain.ActorManager || *history[1].ActorID != "mgr-1" {
		t.Errorf("assign entry actor = %s", history[1].ActorRole)
	}
}

func TestDashboardCounts(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.create(t)
	h.assigned(t, 4)
	h.completed(t)
	cancelled := h.create(t)
	_, _ = h.svc.Cancel(ctx, manager, cancelled.ID, "")

	counts, err := h.svc.Dashboard(ctx)
	if err != nil {
		t.Fatalf("dashboard: %v", err)
	}
	want := domain.DashboardCounts{Total: 4, Pending: 1, Assigned: 1, Completed: 1, Cancelled: 1}
	if counts != want {
		t.Errorf("counts = %+v, want %+v", counts, want)
	}
}

func TestCustomersSeeOnlyTheirRequests(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	req := h.create(t)
	stranger := domain.Actor{Role: domain.ActorCustomer, ID: "cust-2"}

	if _, err := h.svc.Get(ctx, stranger, req.ID); !apperrors.HasCode(err, "FORBIDDEN") {
		t.Errorf("expected forbidden, got %v", err)
	}
	if _, err := h.svc.Cancel(ctx, stranger, req.ID, ""); !apperrors.HasCode(err, "FORBIDDEN") {
		t.Errorf("expected forbidden cancel, got %v", err)
	}
	if _, err := h.svc.Get(ctx, customer1, req.ID); err != nil {
		t.Errorf("owner should see request: %v", err)
	}
	if _, err := h.svc.Get(ctx, manager, "nope"); !apperrors.HasCode(err, "NOT_FOUND") {
		t.Errorf("expected not found, got %v", err)
	}
}

func TestRetryInvoice(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	req := h.completed(t)

	if err := h.svc.RetryInvoice(ctx, manager, req.ID); !apperrors.HasCode(err, "BAD_REQUEST") {
		t.Errorf("unpriced request: expected bad request, got %v", err)
	}

	h.invoices.err = errDown
	if _, err := h.svc.SetPricing(ctx, manager, req.ID, PricingInput{LaborCost: money(100)}); err != nil {
		t.Fatalf("pricing: %v", err)
	}
	if err := h.svc.RetryInvoice(ctx, manager, req.ID); !apperrors.HasCode(err, "DEPENDENCY_UNAVAILABLE") {
		t.Errorf("expected unavailable while billing is down, got %v", err)
	}

	h.invoices.err = nil
	if err := h.svc.RetryInvoice(ctx, manager, req.ID); err != nil {
		t.Fatalf("retry: %v", err)
	}
	if err := h.svc.RetryInvoice(ctx, manager, req.ID); !apperrors.HasCode(err, "CONFLICT") {
		t.Errorf("expected conflict on duplicate, got %v", err)
	}
}

func TestActiveWorkload(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.assigned(t, 5)
	h.assigned(t, 6)
	h.completed(t)

	wl, err := h.svc.ActiveWorkload(ctx)
	if err != nil {
		t.Fatalf("workload: %v", err)
	}
	if wl.Jobs["tech-5"] != 2 || wl.OccupiedBays != 2 {
		t.Errorf("unexpected workload %+v", wl)
	}
}

func TestStaleWriteIsRetriedAgainstFreshState(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	req := h.create(t)

	stale, _ := h.repo.GetByID(ctx, req.ID)
	if _, err := h.svc.Cancel(ctx, manager, req.ID, ""); err != nil {
		t.Fatalf("cancel: %v", err)
	}
	stale.Status = domain.StatusAssigned
	if err := h.repo.Save(ctx, stale, nil); err != repository.ErrStaleWrite {
		t.Fatalf("expected stale write, got %v", err)
	}
	_, err := h.svc.Assign(ctx, manager, req.ID, AssignInput{TechnicianID: "tech-5", BayNumber: 1})
	if !apperrors.HasCode(err, "BAD_REQUEST") {
		t.Fatalf("expected state guard after cancellation, got %v", err)
	}
}
