package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/service-shop/internal/api/dto"
	"github.com/spec-kit/service-shop/internal/service"
)

// ShopHandler serves the bay board and the dashboard.
type ShopHandler struct {
	service *service.ServiceRequestService
}

// NewShopHandler constructs handler.
func NewShopHandler(svc *service.ServiceRequestService) *ShopHandler {
	return &ShopHandler{service: svc}
}

// Bays GET /bays.
func (h *ShopHandler) Bays(c *fiber.Ctx) error {
	statuses, err := h.service.BayStatuses(c.UserContext())
	if err != nil {
		return err
	}
	items := make([]dto.BayStatusResponse, 0, len(statuses))
	for _, status := range statuses {
		items = append(items, dto.BayStatusResponse{
			BayNumber:        status.BayNumber,
			Occupied:         status.Occupied,
			ServiceRequestID: status.ServiceRequestID,
		})
	}
	return c.JSON(fiber.Map{"data": items})
}

// AvailableBays GET /bays/available.
func (h *ShopHandler) AvailableBays(c *fiber.Ctx) error {
	bays, err := h.service.AvailableBays(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": bays})
}

// Dashboard GET /dashboard.
func (h *ShopHandler) Dashboard(c *fiber.Ctx) error {
	counts, err := h.service.Dashboard(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.DashboardResponse{
		Total:      counts.Total,
		Pending:    counts.Pending,
		Assigned:   counts.Assigned,
		InProgress: counts.InProgress,
		Completed:  counts.Completed,
		Closed:     counts.Closed,
		Cancelled:  counts.Cancelled,
	}})
}
