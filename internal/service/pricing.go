package service

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/spec-kit/service-shop/internal/domain"
	"github.com/spec-kit/service-shop/internal/events"
	"github.com/spec-kit/service-shop/internal/gateway"
	apperrors "github.com/spec-kit/service-shop/pkg/util/errorutil"
)

// PricingInput carries the cost components. Missing components count as zero.
type PricingInput struct {
	PartsCost *decimal.Decimal
	LaborCost *decimal.Decimal
}

// SetPricing fixes the final cost of a COMPLETED request exactly once, then
// requests the invoice and notifies the customer on a best-effort basis.
func (s *ServiceRequestService) SetPricing(ctx context.Context, actor domain.Actor, id string, input PricingInput) (*domain.ServiceRequest, error) {
	out, err := s.setPricing(ctx, actor, id, input)
	return out.Request, err
}

func (s *ServiceRequestService) setPricing(ctx context.Context, actor domain.Actor, id string, input PricingInput) (Outcome, error) {
	parts, labor := orZero(input.PartsCost), orZero(input.LaborCost)
	if parts.IsNegative() || labor.IsNegative() {
		return Outcome{}, apperrors.NewBadRequest("costs must not be negative", map[string]any{
			"parts_cost": parts.String(),
			"labor_cost": labor.String(),
		})
	}
	finalCost := parts.Add(labor)

	req, err := s.apply(ctx, actor, id, opPrice, "", func(req *domain.ServiceRequest) error {
		if req.Priced() {
			return apperrors.NewBadRequest("service request is already priced", map[string]any{
				"id":         req.ID,
				"final_cost": req.FinalCost.String(),
			})
		}
		req.FinalCost = &finalCost
		return nil
	})
	if err != nil {
		return Outcome{}, err
	}

	out := Outcome{Request: req}
	out.note(s.degrader.Attempt(ctx, "billing.generate_invoice", req.ID, gateway.EffectFunc(func(ctx context.Context) error {
		return s.generateInvoice(ctx, req.ID)
	})))
	s.notifyCompleted(ctx, actor, req, &out)
	return out, nil
}

// RetryInvoice is the manual path for an invoice that failed to generate at
// pricing time. Unlike the pricing path it reports failures to the caller.
func (s *ServiceRequestService) RetryInvoice(ctx context.Context, actor domain.Actor, id string) error {
	req, err := s.load(ctx, id)
	if err != nil {
		return err
	}
	if err := checkSource(opInvoice, req); err != nil {
		return err
	}
	if !req.Priced() {
		return apperrors.NewBadRequest("service request has no final cost", map[string]any{"id": id})
	}
	if s.invoices == nil {
		return apperrors.NewUnavailable("billing", gateway.ErrNotConfigured)
	}

	err = s.invoices.GenerateInvoice(ctx, id)
	var domainErr *apperrors.DomainError
	switch {
	case err == nil:
		s.logger.Info("invoice generated on retry",
			zap.String("service_request_id", id),
			zap.String("actor_role", string(actor.Role)))
		return nil
	case errors.Is(err, gateway.ErrInvoiceExists):
		return apperrors.NewConflict("invoice already exists", map[string]any{"service_request_id": id})
	case errors.As(err, &domainErr):
		return domainErr
	default:
		return apperrors.NewUnavailable("billing", err)
	}
}

func (s *ServiceRequestService) generateInvoice(ctx context.Context, id string) error {
	if s.invoices == nil {
		return nil
	}
	err := s.invoices.GenerateInvoice(ctx, id)
	if errors.Is(err, gateway.ErrInvoiceExists) {
		return nil
	}
	return err
}

// notifyCompleted resolves the customer contact and publishes the completion
// event. A failed lookup still publishes with the customer id alone.
func (s *ServiceRequestService) notifyCompleted(ctx context.Context, actor domain.Actor, req *domain.ServiceRequest, out *Outcome) {
	payload := events.CompletedPayload{
		ExternalKey: req.ExternalKey,
		CustomerID:  req.CustomerID,
		FinalCost:   *req.FinalCost,
	}
	out.note(s.degrader.Attempt(ctx, "customer.get_contact", req.ID, gateway.EffectFunc(func(ctx context.Context) error {
		contact, err := s.customers.GetContact(ctx, req.CustomerID)
		if err != nil {
			return err
		}
		payload.CustomerName = contact.Name
		payload.CustomerEmail = contact.Email
		return nil
	})))
	out.note(s.publish(ctx, actor, req, events.EventServiceRequestCompleted, payload))
}

func orZero(v *decimal.Decimal) decimal.Decimal {
	if v == nil {
		return decimal.Zero
	}
	return *v
}
