package billing

import (
	"context"

	"github.com/spec-kit/service-shop/internal/gateway"
	apperrors "github.com/spec-kit/service-shop/pkg/util/errorutil"
)

// LocalTrigger runs invoice generation in-process when no remote billing
// service is configured.
type LocalTrigger struct {
	invoices *InvoiceService
}

// NewLocalTrigger adapts svc to gateway.InvoiceTrigger.
func NewLocalTrigger(svc *InvoiceService) *LocalTrigger {
	return &LocalTrigger{invoices: svc}
}

var _ gateway.InvoiceTrigger = (*LocalTrigger)(nil)

func (t *LocalTrigger) GenerateInvoice(ctx context.Context, serviceRequestID string) error {
	_, err := t.invoices.Generate(ctx, serviceRequestID)
	if apperrors.HasCode(err, "CONFLICT") {
		return gateway.ErrInvoiceExists
	}
	return err
}
