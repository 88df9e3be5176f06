package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// InvoiceStatus enumerates billing states.
type InvoiceStatus string

const (
	InvoiceStatusPending InvoiceStatus = "PENDING"
	InvoiceStatusPaid    InvoiceStatus = "PAID"
)

// Invoice bills one service request. At most one exists per request.
type Invoice struct {
	ID               string
	ServiceRequestID string
	CustomerID       string
	PartsCost        decimal.Decimal
	LaborCost        decimal.Decimal
	TotalAmount      decimal.Decimal
	Status           InvoiceStatus
	CreatedAt        time.Time
}
