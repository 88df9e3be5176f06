package gateway

import (
	"context"
	"net/http"
	"time"
)

// CustomerClient reads contact details from the auth service.
type CustomerClient struct {
	client *jsonClient
}

// NewCustomerClient builds a client for baseURL.
func NewCustomerClient(baseURL string, timeout time.Duration) (*CustomerClient, error) {
	c, err := newJSONClient("auth-service", baseURL, timeout)
	if err != nil {
		return nil, err
	}
	return &CustomerClient{client: c}, nil
}

// GetContact fetches the customer's name and email.
func (c *CustomerClient) GetContact(ctx context.Context, customerID string) (Contact, error) {
	var resp struct {
		Data Contact `json:"data"`
	}
	if err := c.client.do(ctx, http.MethodGet, c.client.resolve("/api/v1/customers/%s", customerID), nil, &resp); err != nil {
		return Contact{}, err
	}
	if resp.Data.CustomerID == "" {
		resp.Data.CustomerID = customerID
	}
	return resp.Data, nil
}

type idOnlyDirectory struct{}

// IDOnlyDirectory returns contacts carrying only the customer id, leaving
// address resolution to the notification consumer.
func IDOnlyDirectory() CustomerDirectory {
	return idOnlyDirectory{}
}

func (idOnlyDirectory) GetContact(_ context.Context, customerID string) (Contact, error) {
	return Contact{CustomerID: customerID}, nil
}
