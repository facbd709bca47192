package handlers

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk/internal/api/dto"
	"github.com/spec-kit/helpdesk/internal/auth"
	"github.com/spec-kit/helpdesk/internal/domain"
	"github.com/spec-kit/helpdesk/internal/events"
	"github.com/spec-kit/helpdesk/internal/query"
	"github.com/spec-kit/helpdesk/internal/repository"
	"github.com/spec-kit/helpdesk/internal/service"
	apperrors "github.com/spec-kit/helpdesk/pkg/util"
)

// SessionHandler covers login and the per-process view preferences.
type SessionHandler struct {
	auth       *service.AuthService
	roles      *auth.RoleGate
	prefs      repository.PreferenceRepository
	dispatcher events.Dispatcher
	logger     *zap.Logger
}

// NewSessionHandler constructs handler.
func NewSessionHandler(authService *service.AuthService, roles *auth.RoleGate, prefs repository.PreferenceRepository, dispatcher events.Dispatcher, logger *zap.Logger) *SessionHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SessionHandler{auth: authService, roles: roles, prefs: prefs, dispatcher: dispatcher, logger: logger}
}

// Login POST /auth/login.
func (h *SessionHandler) Login(c *fiber.Ctx) error {
	var req dto.LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	result, err := h.auth.Login(req.Username, req.Password)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.LoginResponse{
		Token:     result.Token,
		ExpiresAt: result.ExpiresAt,
		Username:  result.Account.Username,
		Role:      result.Account.Role,
	}})
}

// GetRole GET /session/role.
func (h *SessionHandler) GetRole(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"data": roleResponse(h.roles.Current(c.UserContext()))})
}

// SetRole PUT /session/role.
func (h *SessionHandler) SetRole(c *fiber.Ctx) error {
	var req dto.RoleRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	role, err := h.roles.Set(c.UserContext(), domain.Role(req.Role))
	if err != nil {
		return apperrors.NewInternalError(err)
	}
	h.roleChanged(c, role)
	return c.JSON(fiber.Map{"data": roleResponse(role)})
}

// ToggleRole POST /session/role/toggle.
func (h *SessionHandler) ToggleRole(c *fiber.Ctx) error {
	role, err := h.roles.Toggle(c.UserContext())
	if err != nil {
		return apperrors.NewInternalError(err)
	}
	h.roleChanged(c, role)
	return c.JSON(fiber.Map{"data": roleResponse(role)})
}

// GetSort GET /session/sort.
func (h *SessionHandler) GetSort(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"data": dto.SortResponse{SortBy: h.prefs.SortKey(c.UserContext())}})
}

// SetSort PUT /session/sort.
func (h *SessionHandler) SetSort(c *fiber.Ctx) error {
	var req dto.SortRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	key, ok := query.ParseSortKey(req.SortBy)
	if !ok {
		return apperrors.NewValidationError("unknown sort key", map[string]any{"sortBy": req.SortBy})
	}
	if err := h.prefs.SetSortKey(c.UserContext(), key); err != nil {
		return apperrors.NewInternalError(err)
	}
	return c.JSON(fiber.Map{"data": dto.SortResponse{SortBy: key}})
}

func (h *SessionHandler) roleChanged(c *fiber.Ctx, role domain.Role) {
	if h.dispatcher == nil {
		return
	}
	event := events.Event{
		ID:        uuid.NewString(),
		Type:      events.EventRoleChanged,
		Role:      role,
		Timestamp: time.Now(),
	}
	if err := h.dispatcher.Publish(c.UserContext(), event); err != nil {
		h.logger.Warn("role change handler failed", zap.Error(err))
	}
}

func roleResponse(role domain.Role) dto.RoleResponse {
	return dto.RoleResponse{Role: role, IsAdmin: role.IsAdmin()}
}
