package gateway

import (
	"context"
	"errors"
	"net/http"
	"time"
)

// VehicleClient reads vehicles from the vehicle service.
type VehicleClient struct {
	client *jsonClient
}

// NewVehicleClient builds a client for baseURL.
func NewVehicleClient(baseURL string, timeout time.Duration) (*VehicleClient, error) {
	c, err := newJSONClient("vehicle-service", baseURL, timeout)
	if err != nil {
		return nil, err
	}
	return &VehicleClient{client: c}, nil
}

// GetVehicle fetches a vehicle, returning ErrNotFound when it does not exist.
func (c *VehicleClient) GetVehicle(ctx context.Context, vehicleID string) (Vehicle, error) {
	var resp struct {
		Data Vehicle `json:"data"`
	}
	if err := c.client.do(ctx, http.MethodGet, c.client.resolve("/api/v1/vehicles/%s", vehicleID), nil, &resp); err != nil {
		return Vehicle{}, err
	}
	if resp.Data.ID == "" {
		resp.Data.ID = vehicleID
	}
	return resp.Data, nil
}

// ErrNotConfigured is returned by collaborators that have no endpoint.
var ErrNotConfigured = errors.New("collaborator not configured")

type unconfiguredVehicles struct{}

// UnconfiguredVehicles fails every lookup, so creation fails closed when no
// vehicle service is configured.
func UnconfiguredVehicles() VehicleDirectory {
	return unconfiguredVehicles{}
}

func (unconfiguredVehicles) GetVehicle(context.Context, string) (Vehicle, error) {
	return Vehicle{}, ErrNotConfigured
}
