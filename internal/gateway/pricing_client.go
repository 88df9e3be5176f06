package gateway

import (
	"context"
	"net/http"
	"time"

	"github.com/shopspring/decimal"
)

// PricingClient reads parts usage cost from the inventory service.
type PricingClient struct {
	client *jsonClient
}

// NewPricingClient builds a client for baseURL.
func NewPricingClient(baseURL string, timeout time.Duration) (*PricingClient, error) {
	c, err := newJSONClient("inventory-service", baseURL, timeout)
	if err != nil {
		return nil, err
	}
	return &PricingClient{client: c}, nil
}

// GetPartsCost returns the total cost of parts booked against the request.
func (c *PricingClient) GetPartsCost(ctx context.Context, serviceRequestID string) (decimal.Decimal, error) {
	var resp struct {
		Data struct {
			PartsCost decimal.Decimal `json:"parts_cost"`
		} `json:"data"`
	}
	target := c.client.resolve("/api/v1/parts-usage/service-requests/%s/cost", serviceRequestID)
	if err := c.client.do(ctx, http.MethodGet, target, nil, &resp); err != nil {
		return decimal.Zero, err
	}
	return resp.Data.PartsCost, nil
}

type zeroPricer struct{}

// ZeroPricer reports no parts cost. It stands in when no inventory service is configured.
func ZeroPricer() PartsPricer {
	return zeroPricer{}
}

func (zeroPricer) GetPartsCost(context.Context, string) (decimal.Decimal, error) {
	return decimal.Zero, nil
}
