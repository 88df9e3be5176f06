package dto

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/spec-kit/service-shop/internal/domain"
)

// InvoiceResponse represents an invoice.
type InvoiceResponse struct {
	ID               string               `json:"id"`
	ServiceRequestID string               `json:"service_request_id"`
	CustomerID       string               `json:"customer_id"`
	PartsCost        decimal.Decimal      `json:"parts_cost"`
	LaborCost        decimal.Decimal      `json:"labor_cost"`
	TotalAmount      decimal.Decimal      `json:"total_amount"`
	Status           domain.InvoiceStatus `json:"status"`
	CreatedAt        time.Time            `json:"created_at"`
}

// InvoiceFromDomain maps an invoice to its response.
func InvoiceFromDomain(invoice *domain.Invoice) InvoiceResponse {
	return InvoiceResponse{
		ID:               invoice.ID,
		ServiceRequestID: invoice.ServiceRequestID,
		CustomerID:       invoice.CustomerID,
		PartsCost:        invoice.PartsCost,
		LaborCost:        invoice.LaborCost,
		TotalAmount:      invoice.TotalAmount,
		Status:           invoice.Status,
		CreatedAt:        invoice.CreatedAt,
	}
}
