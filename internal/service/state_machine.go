package service

import (
	"fmt"
	"strings"

	"github.com/spec-kit/service-shop/internal/domain"
	apperrors "github.com/spec-kit/service-shop/pkg/util/errorutil"
)

type operation string

const (
	opAssign     operation = "assign"
	opStart      operation = "start"
	opComplete   operation = "complete"
	opPrice      operation = "price"
	opClose      operation = "close"
	opCancel     operation = "cancel"
	opReschedule operation = "reschedule"
	opInvoice    operation = "invoice"
)

// validSources lists, per operation, the only statuses it may run from.
var validSources = map[operation][]domain.RequestStatus{
	opAssign:     {domain.StatusPending},
	opStart:      {domain.StatusAssigned},
	opComplete:   {domain.StatusInProgress},
	opPrice:      {domain.StatusCompleted},
	opClose:      {domain.StatusCompleted},
	opCancel:     {domain.StatusPending, domain.StatusAssigned, domain.StatusInProgress},
	opReschedule: {domain.StatusPending, domain.StatusAssigned},
	opInvoice:    {domain.StatusCompleted, domain.StatusClosed},
}

// resultStatus is the status an operation lands in. Operations absent here
// leave the status unchanged.
var resultStatus = map[operation]domain.RequestStatus{
	opAssign:   domain.StatusAssigned,
	opStart:    domain.StatusInProgress,
	opComplete: domain.StatusCompleted,
	opClose:    domain.StatusClosed,
	opCancel:   domain.StatusCancelled,
}

func checkSource(op operation, req *domain.ServiceRequest) error {
	allowed := validSources[op]
	for _, status := range allowed {
		if req.Status == status {
			return nil
		}
	}
	expected := make([]string, len(allowed))
	for i, status := range allowed {
		expected[i] = string(status)
	}
	return apperrors.NewBadRequest(
		fmt.Sprintf("cannot %s service request in status %s; expected %s", op, req.Status, strings.Join(expected, " or ")),
		map[string]any{
			"id":       req.ID,
			"status":   req.Status,
			"expected": expected,
		},
	)
}

// operationFor maps a requested target status onto the command that reaches it.
func operationFor(target domain.RequestStatus) (operation, bool) {
	switch target {
	case domain.StatusInProgress:
		return opStart, true
	case domain.StatusCompleted:
		return opComplete, true
	case domain.StatusClosed:
		return opClose, true
	case domain.StatusCancelled:
		return opCancel, true
	default:
		return "", false
	}
}
