package handlers

import (
	"io"
	"net/http"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/helpdesk/internal/api/dto"
	"github.com/spec-kit/helpdesk/internal/domain"
	"github.com/spec-kit/helpdesk/internal/query"
	"github.com/spec-kit/helpdesk/internal/repository"
	"github.com/spec-kit/helpdesk/internal/service"
	apperrors "github.com/spec-kit/helpdesk/pkg/util"
)

// TicketsHandler exposes the ticket engine.
type TicketsHandler struct {
	service *service.TicketService
	prefs   repository.PreferenceRepository
}

// NewTicketsHandler constructs handler.
func NewTicketsHandler(ticketService *service.TicketService, prefs repository.PreferenceRepository) *TicketsHandler {
	return &TicketsHandler{service: ticketService, prefs: prefs}
}

// CreateTicket POST /tickets.
func (h *TicketsHandler) CreateTicket(c *fiber.Ctx) error {
	var req dto.CreateTicketRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	ticket, err := h.service.CreateTicket(c.UserContext(), service.TicketCreateInput{
		Title:       req.Title,
		Description: req.Description,
		Category:    req.Category,
		Priority:    domain.TicketPriority(req.Priority),
		SLAHours:    req.SLAHoursValue(),
	})
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": dto.NewTicketView(*ticket, h.service.Now())})
}

// ListTickets GET /tickets.
func (h *TicketsHandler) ListTickets(c *fiber.Ctx) error {
	ctx := c.UserContext()
	sortKey := h.prefs.SortKey(ctx)
	if raw := strings.TrimSpace(c.Query("sort")); raw != "" {
		parsed, ok := query.ParseSortKey(raw)
		if !ok {
			return apperrors.NewValidationError("unknown sort key", map[string]any{"sort": raw})
		}
		sortKey = parsed
	}
	filter := query.Filter{
		Category: c.Query("category"),
		Status:   c.Query("status"),
		Priority: c.Query("priority"),
		Search:   c.Query("q"),
	}

	now := h.service.Now()
	projected := query.Project(h.service.List(ctx), filter, sortKey, now)
	items := make([]dto.TicketView, 0, len(projected))
	for _, t := range projected {
		items = append(items, dto.NewTicketView(t, now))
	}
	return c.JSON(fiber.Map{"data": dto.TicketListResponse{Items: items, Total: len(items), SortBy: sortKey}})
}

// GetTicket GET /tickets/:id.
func (h *TicketsHandler) GetTicket(c *fiber.Ctx) error {
	ticket, err := h.service.GetTicket(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewTicketView(*ticket, h.service.Now())})
}

// EditTicket PATCH /tickets/:id.
func (h *TicketsHandler) EditTicket(c *fiber.Ctx) error {
	var req dto.EditTicketRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	changed, err := h.service.EditTicket(c.UserContext(), c.Params("id"), req.Title, req.Description)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.ChangedResponse{Changed: changed}})
}

// UpdateStatus PUT /tickets/:id/status.
func (h *TicketsHandler) UpdateStatus(c *fiber.Ctx) error {
	var req dto.UpdateStatusRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	changed, err := h.service.UpdateStatus(c.UserContext(), c.Params("id"), domain.TicketStatus(req.Status))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.ChangedResponse{Changed: changed}})
}

// AssignTicket PUT /tickets/:id/assignee.
func (h *TicketsHandler) AssignTicket(c *fiber.Ctx) error {
	var req dto.AssignTicketRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	changed, err := h.service.AssignTicket(c.UserContext(), c.Params("id"), req.AssignedTo)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.ChangedResponse{Changed: changed}})
}

// DeleteTicket DELETE /tickets/:id.
func (h *TicketsHandler) DeleteTicket(c *fiber.Ctx) error {
	changed, err := h.service.DeleteTicket(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.ChangedResponse{Changed: changed}})
}

// ClearTickets DELETE /tickets.
func (h *TicketsHandler) ClearTickets(c *fiber.Ctx) error {
	changed, err := h.service.ClearAll(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.ChangedResponse{Changed: changed}})
}

// BulkUpdateStatus POST /tickets/bulk/status.
func (h *TicketsHandler) BulkUpdateStatus(c *fiber.Ctx) error {
	var req dto.BulkStatusRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	updated, err := h.service.BulkUpdateStatus(c.UserContext(), req.IDs, domain.TicketStatus(req.Status))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.BulkStatusResponse{Updated: updated}})
}

// ExportTickets GET /tickets/export.
func (h *TicketsHandler) ExportTickets(c *fiber.Ctx) error {
	file, err := h.service.ExportTickets(c.UserContext())
	if err != nil {
		return err
	}
	c.Attachment(file.Name)
	c.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	return c.Send(file.Data)
}

// ImportTickets POST /tickets/import. Accepts the JSON array as the request
// body or as a multipart upload named "file".
func (h *TicketsHandler) ImportTickets(c *fiber.Ctx) error {
	payload, err := importPayload(c)
	if err != nil {
		return err
	}
	imported, err := h.service.ImportTickets(c.UserContext(), payload)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.ImportResponse{Imported: imported}})
}

func importPayload(c *fiber.Ctx) ([]byte, error) {
	if !strings.HasPrefix(c.Get(fiber.HeaderContentType), fiber.MIMEMultipartForm) {
		return c.Body(), nil
	}
	header, err := c.FormFile("file")
	if err != nil {
		return nil, apperrors.NewImportError("file field required", err)
	}
	f, err := header.Open()
	if err != nil {
		return nil, apperrors.NewImportError("cannot open upload", err)
	}
	defer f.Close()
	data, err := io.ReadAll(f)
	if err != nil {
		return nil, apperrors.NewImportError("cannot read upload", err)
	}
	return data, nil
}
