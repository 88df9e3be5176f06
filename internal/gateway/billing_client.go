package gateway

import (
	"context"
	"errors"
	"net/http"
	"time"
)

// BillingClient asks the billing service to generate invoices.
type BillingClient struct {
	client *jsonClient
}

// NewBillingClient builds a client for baseURL.
func NewBillingClient(baseURL string, timeout time.Duration) (*BillingClient, error) {
	c, err := newJSONClient("billing-service", baseURL, timeout)
	if err != nil {
		return nil, err
	}
	return &BillingClient{client: c}, nil
}

// GenerateInvoice requests the invoice for a priced service request. A 409
// from billing means the invoice already exists and is reported as such.
func (c *BillingClient) GenerateInvoice(ctx context.Context, serviceRequestID string) error {
	err := c.client.do(ctx, http.MethodPost, c.client.resolve("/api/v1/invoices/generate/%s", serviceRequestID), nil, nil)
	var statusErr *StatusError
	if errors.As(err, &statusErr) && statusErr.StatusCode == http.StatusConflict {
		return ErrInvoiceExists
	}
	return err
}

// ErrInvoiceExists is returned when billing already holds an invoice for the request.
var ErrInvoiceExists = errors.New("invoice already exists")
