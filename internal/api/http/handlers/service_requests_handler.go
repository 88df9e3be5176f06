package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/service-shop/internal/api/dto"
	"github.com/spec-kit/service-shop/internal/auth"
	"github.com/spec-kit/service-shop/internal/domain"
	"github.com/spec-kit/service-shop/internal/service"
	apperrors "github.com/spec-kit/service-shop/pkg/util/errorutil"
)

// ServiceRequestsHandler exposes the orchestrator commands.
type ServiceRequestsHandler struct {
	service *service.ServiceRequestService
}

// NewServiceRequestsHandler constructs handler.
func NewServiceRequestsHandler(svc *service.ServiceRequestService) *ServiceRequestsHandler {
	return &ServiceRequestsHandler{service: svc}
}

// Create POST /service-requests.
func (h *ServiceRequestsHandler) Create(c *fiber.Ctx) error {
	principal, err := principalFrom(c)
	if err != nil {
		return err
	}
	var req dto.CreateServiceRequestRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	created, err := h.service.Create(c.UserContext(), principal.Actor(), principal.ID, service.CreateInput{
		VehicleID:      req.VehicleID,
		ServiceType:    req.ServiceType,
		Description:    req.Description,
		Priority:       req.Priority,
		PickupRequired: req.PickupRequired,
		PickupAddress:  req.PickupAddress,
		PreferredDate:  req.PreferredDate,
	})
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": dto.ServiceRequestFromDomain(created)})
}

// Get GET /service-requests/:id.
func (h *ServiceRequestsHandler) Get(c *fiber.Ctx) error {
	principal, err := principalFrom(c)
	if err != nil {
		return err
	}
	req, err := h.service.Get(c.UserContext(), principal.Actor(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.ServiceRequestFromDomain(req)})
}

// List GET /service-requests. Customers and technicians only see their own.
func (h *ServiceRequestsHandler) List(c *fiber.Ctx) error {
	principal, err := principalFrom(c)
	if err != nil {
		return err
	}
	filter, err := parseListQuery(c)
	if err != nil {
		return err
	}
	switch principal.Role {
	case domain.ActorCustomer:
		filter.CustomerID = &principal.ID
	case domain.ActorTechnician:
		filter.TechnicianID = &principal.ID
	}

	requests, err := h.service.List(c.UserContext(), filter)
	if err != nil {
		return err
	}
	items := make([]dto.ServiceRequestResponse, 0, len(requests))
	for i := range requests {
		items = append(items, dto.ServiceRequestFromDomain(&requests[i]))
	}
	return c.JSON(fiber.Map{"data": items})
}

// History GET /service-requests/:id/history.
func (h *ServiceRequestsHandler) History(c *fiber.Ctx) error {
	principal, err := principalFrom(c)
	if err != nil {
		return err
	}
	entries, err := h.service.History(c.UserContext(), principal.Actor(), c.Params("id"))
	if err != nil {
		return err
	}
	items := make([]dto.StatusChangeResponse, 0, len(entries))
	for _, entry := range entries {
		items = append(items, dto.StatusChangeResponse{
			ID:         entry.ID,
			FromStatus: entry.FromStatus,
			ToStatus:   entry.ToStatus,
			ActorRole:  entry.ActorRole,
			ActorID:    entry.ActorID,
			Comment:    entry.Comment,
			CreatedAt:  entry.CreatedAt,
		})
	}
	return c.JSON(fiber.Map{"data": items})
}

// Assign POST /service-requests/:id/assign.
func (h *ServiceRequestsHandler) Assign(c *fiber.Ctx) error {
	var req dto.AssignRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	return h.respond(c, func(actor domain.Actor, id string) (*domain.ServiceRequest, error) {
		return h.service.Assign(c.UserContext(), actor, id, service.AssignInput{
			TechnicianID:  req.TechnicianID,
			BayNumber:     req.BayNumber,
			EstimatedCost: req.EstimatedCost,
		})
	})
}

// Start POST /service-requests/:id/start.
func (h *ServiceRequestsHandler) Start(c *fiber.Ctx) error {
	return h.respond(c, func(actor domain.Actor, id string) (*domain.ServiceRequest, error) {
		return h.service.Start(c.UserContext(), actor, id)
	})
}

// Complete POST /service-requests/:id/complete.
func (h *ServiceRequestsHandler) Complete(c *fiber.Ctx) error {
	var req dto.CompleteRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return apperrors.NewValidationError("invalid payload", nil)
		}
	}
	return h.respond(c, func(actor domain.Actor, id string) (*domain.ServiceRequest, error) {
		return h.service.Complete(c.UserContext(), actor, id, req.Notes)
	})
}

// UpdateStatus PATCH /service-requests/:id/status.
func (h *ServiceRequestsHandler) UpdateStatus(c *fiber.Ctx) error {
	var req dto.StatusUpdateRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if !req.Status.Valid() {
		return apperrors.NewValidationError("invalid status", map[string]any{"status": req.Status})
	}
	return h.respond(c, func(actor domain.Actor, id string) (*domain.ServiceRequest, error) {
		return h.service.UpdateStatus(c.UserContext(), actor, id, req.Status, req.Notes)
	})
}

// SetPricing POST /service-requests/:id/pricing.
func (h *ServiceRequestsHandler) SetPricing(c *fiber.Ctx) error {
	var req dto.PricingRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	return h.respond(c, func(actor domain.Actor, id string) (*domain.ServiceRequest, error) {
		return h.service.SetPricing(c.UserContext(), actor, id, service.PricingInput{
			PartsCost: req.PartsCost,
			LaborCost: req.LaborCost,
		})
	})
}

// RetryInvoice POST /service-requests/:id/invoice.
func (h *ServiceRequestsHandler) RetryInvoice(c *fiber.Ctx) error {
	principal, err := principalFrom(c)
	if err != nil {
		return err
	}
	if err := h.service.RetryInvoice(c.UserContext(), principal.Actor(), c.Params("id")); err != nil {
		return err
	}
	return c.Status(http.StatusAccepted).JSON(fiber.Map{"data": fiber.Map{"service_request_id": c.Params("id")}})
}

// Close POST /service-requests/:id/close.
func (h *ServiceRequestsHandler) Close(c *fiber.Ctx) error {
	return h.respond(c, func(actor domain.Actor, id string) (*domain.ServiceRequest, error) {
		return h.service.Close(c.UserContext(), actor, id)
	})
}

// Cancel POST /service-requests/:id/cancel.
func (h *ServiceRequestsHandler) Cancel(c *fiber.Ctx) error {
	var req dto.CancelRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return apperrors.NewValidationError("invalid payload", nil)
		}
	}
	return h.respond(c, func(actor domain.Actor, id string) (*domain.ServiceRequest, error) {
		return h.service.Cancel(c.UserContext(), actor, id, req.Reason)
	})
}

// Reschedule POST /service-requests/:id/reschedule.
func (h *ServiceRequestsHandler) Reschedule(c *fiber.Ctx) error {
	var req dto.RescheduleRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	return h.respond(c, func(actor domain.Actor, id string) (*domain.ServiceRequest, error) {
		return h.service.Reschedule(c.UserContext(), actor, id, req.PreferredDate)
	})
}

func (h *ServiceRequestsHandler) respond(c *fiber.Ctx, command func(actor domain.Actor, id string) (*domain.ServiceRequest, error)) error {
	principal, err := principalFrom(c)
	if err != nil {
		return err
	}
	req, err := command(principal.Actor(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.ServiceRequestFromDomain(req)})
}

func principalFrom(c *fiber.Ctx) (*auth.Principal, error) {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return nil, apperrors.NewUnauthorized("authentication required")
	}
	return principal, nil
}

func parseListQuery(c *fiber.Ctx) (service.ListFilter, error) {
	filter := service.ListFilter{
		Limit:  parseInt(c.Query("limit"), 20),
		Offset: parseInt(c.Query("offset"), 0),
	}
	if customerID := strings.TrimSpace(c.Query("customer_id")); customerID != "" {
		filter.CustomerID = &customerID
	}
	if technicianID := strings.TrimSpace(c.Query("technician_id")); technicianID != "" {
		filter.TechnicianID = &technicianID
	}
	if statusStr := c.Query("status"); statusStr != "" {
		for _, part := range strings.Split(statusStr, ",") {
			status := domain.RequestStatus(strings.ToUpper(strings.TrimSpace(part)))
			if !status.Valid() {
				return filter, apperrors.NewValidationError("invalid status filter", map[string]any{"status": part})
			}
			filter.Statuses = append(filter.Statuses, status)
		}
	}
	return filter, nil
}

func parseInt(val string, def int) int {
	if val == "" {
		return def
	}
	parsed, err := strconv.Atoi(val)
	if err != nil || parsed < 0 {
		return def
	}
	return parsed
}
