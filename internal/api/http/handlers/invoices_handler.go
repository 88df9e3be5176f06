package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/service-shop/internal/api/dto"
	"github.com/spec-kit/service-shop/internal/billing"
)

// InvoicesHandler exposes locally issued invoices.
type InvoicesHandler struct {
	invoices *billing.InvoiceService
}

// NewInvoicesHandler constructs handler.
func NewInvoicesHandler(invoices *billing.InvoiceService) *InvoicesHandler {
	return &InvoicesHandler{invoices: invoices}
}

// GetByServiceRequest GET /invoices/service-requests/:id.
func (h *InvoicesHandler) GetByServiceRequest(c *fiber.Ctx) error {
	invoice, err := h.invoices.GetByServiceRequest(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.InvoiceFromDomain(invoice)})
}
