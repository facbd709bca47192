package http

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/spec-kit/helpdesk/internal/api/http/handlers"
	"github.com/spec-kit/helpdesk/internal/auth"
	"github.com/spec-kit/helpdesk/internal/clock"
	"github.com/spec-kit/helpdesk/internal/config"
	"github.com/spec-kit/helpdesk/internal/domain"
	"github.com/spec-kit/helpdesk/internal/events"
	"github.com/spec-kit/helpdesk/internal/observability"
	"github.com/spec-kit/helpdesk/internal/persistence"
	"github.com/spec-kit/helpdesk/internal/repository"
	"github.com/spec-kit/helpdesk/internal/service"
)

type testServer struct {
	app   *fiber.App
	store *persistence.Memory
	clock *clock.Manual
	token string
}

func newTestServer(t *testing.T, requireLogin bool) *testServer {
	t.Helper()
	logger := zap.NewNop()
	store := persistence.NewMemory()
	clk := clock.NewManual(time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC))
	metrics := observability.NewMetrics()
	dispatcher := events.NewInMemoryDispatcher()

	prefs := repository.NewPreferenceRepository(store, logger)
	roles := auth.NewRoleGate(prefs)
	tickets := service.NewTicketService(service.TicketDependencies{
		TicketRepo: repository.NewTicketRepository(store, logger),
		Roles:      roles,
		Dispatcher: dispatcher,
		Clock:      clk,
		Logger:     logger,
	})
	directory, err := auth.SeedDefaults("1234", "123", bcrypt.MinCost)
	require.NoError(t, err)
	authService := service.NewAuthService(config.AuthConfig{JWTSecret: "test", AccessTokenTTLMinutes: 5}, directory)

	app := fiber.New()
	RegisterMiddlewares(app, logger, metrics, time.Second)
	RegisterRoutes(app, RouteConfig{
		Health:      handlers.NewHealthHandler("helpdesk", "test", config.StoreBackendMemory, store, metrics),
		Tickets:     handlers.NewTicketsHandler(tickets, prefs),
		Session:     handlers.NewSessionHandler(authService, roles, prefs, dispatcher, logger),
		SessionGate: auth.NewSessionGate(authService.Sessions(), requireLogin),
	})
	return &testServer{app: app, store: store, clock: clk}
}

func (s *testServer) do(t *testing.T, method, path string, body any) (int, map[string]any) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if s.token != "" {
		req.Header.Set("Authorization", "Bearer "+s.token)
	}
	return s.send(t, req)
}

func (s *testServer) send(t *testing.T, req *http.Request) (int, map[string]any) {
	t.Helper()
	resp, err := s.app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()
	var out map[string]any
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	if len(raw) > 0 && strings.HasPrefix(resp.Header.Get("Content-Type"), "application/json") {
		require.NoError(t, json.Unmarshal(raw, &out))
	}
	return resp.StatusCode, out
}

func data(t *testing.T, body map[string]any) map[string]any {
	t.Helper()
	d, ok := body["data"].(map[string]any)
	require.True(t, ok, "response has no data object: %v", body)
	return d
}

func TestLoginGate(t *testing.T) {
	srv := newTestServer(t, true)

	status, body := srv.do(t, http.MethodGet, "/tickets", nil)
	require.Equal(t, http.StatusUnauthorized, status)
	require.Equal(t, "UNAUTHORIZED", body["error"].(map[string]any)["code"])

	status, _ = srv.do(t, http.MethodPost, "/auth/login", map[string]string{"username": "admin", "password": "123"})
	require.Equal(t, http.StatusUnauthorized, status)

	status, body = srv.do(t, http.MethodPost, "/auth/login", map[string]string{"username": "admin", "password": "1234"})
	require.Equal(t, http.StatusOK, status)
	login := data(t, body)
	require.Equal(t, "admin", login["role"])
	srv.token = login["token"].(string)

	status, _ = srv.do(t, http.MethodGet, "/tickets", nil)
	require.Equal(t, http.StatusOK, status)
}

func TestTicketLifecycleOverHTTP(t *testing.T) {
	srv := newTestServer(t, false)

	status, body := srv.do(t, http.MethodPost, "/tickets", map[string]any{
		"title": "VPN down", "description": "cannot connect", "priority": "High", "slaHours": "2",
	})
	require.Equal(t, http.StatusCreated, status)
	created := data(t, body)
	id := created["id"].(string)
	require.Equal(t, "02:00:00", created["remaining"])
	require.Equal(t, float64(2), created["slaHours"])
	require.Equal(t, "Other", created["category"])

	status, body = srv.do(t, http.MethodPut, "/tickets/"+id+"/status", map[string]string{"status": "Closed"})
	require.Equal(t, http.StatusOK, status)
	require.Equal(t, false, data(t, body)["changed"], "default role is User")

	status, body = srv.do(t, http.MethodPost, "/session/role/toggle", nil)
	require.Equal(t, http.StatusOK, status)
	require.Equal(t, "Admin", data(t, body)["role"])

	status, body = srv.do(t, http.MethodPut, "/tickets/"+id+"/assignee", map[string]string{"assignedTo": "Alice"})
	require.Equal(t, http.StatusOK, status)
	require.Equal(t, true, data(t, body)["changed"])

	status, body = srv.do(t, http.MethodPut, "/tickets/"+id+"/status", map[string]string{"status": "Bogus"})
	require.Equal(t, http.StatusBadRequest, status)
	require.Equal(t, "VALIDATION_FAILED", body["error"].(map[string]any)["code"])

	status, body = srv.do(t, http.MethodPatch, "/tickets/"+id, map[string]string{"title": "VPN flaky", "description": "cannot connect"})
	require.Equal(t, http.StatusOK, status)
	require.Equal(t, true, data(t, body)["changed"])

	srv.clock.Advance(3 * time.Hour)
	status, body = srv.do(t, http.MethodGet, "/tickets/"+id, nil)
	require.Equal(t, http.StatusOK, status)
	got := data(t, body)
	require.Equal(t, "VPN flaky", got["title"])
	require.Equal(t, "Alice", got["assignedTo"])
	require.Equal(t, true, got["overdue"])
	require.Equal(t, "-01:00:00", got["remaining"])
	require.Len(t, got["history"], 3)

	status, body = srv.do(t, http.MethodDelete, "/tickets/"+id, nil)
	require.Equal(t, http.StatusOK, status)
	require.Equal(t, true, data(t, body)["changed"])

	status, _ = srv.do(t, http.MethodGet, "/tickets/"+id, nil)
	require.Equal(t, http.StatusNotFound, status)
}

func TestListFiltersAndSort(t *testing.T) {
	srv := newTestServer(t, false)
	for _, p := range []string{"Low", "Critical", "Medium"} {
		status, _ := srv.do(t, http.MethodPost, "/tickets", map[string]any{
			"title": p + " issue", "description": "printer", "priority": p, "category": "Hardware",
		})
		require.Equal(t, http.StatusCreated, status)
		srv.clock.Advance(time.Second)
	}

	status, body := srv.do(t, http.MethodGet, "/tickets?sort=priority_desc", nil)
	require.Equal(t, http.StatusOK, status)
	items := data(t, body)["items"].([]any)
	require.Len(t, items, 3)
	require.Equal(t, "Critical", items[0].(map[string]any)["priority"])
	require.Equal(t, "Low", items[2].(map[string]any)["priority"])

	status, body = srv.do(t, http.MethodGet, "/tickets?q=MEDIUM&category=Hardware", nil)
	require.Equal(t, http.StatusOK, status)
	require.Equal(t, float64(1), data(t, body)["total"])

	status, _ = srv.do(t, http.MethodGet, "/tickets?sort=sideways", nil)
	require.Equal(t, http.StatusBadRequest, status)

	status, _ = srv.do(t, http.MethodPut, "/session/sort", map[string]string{"sortBy": "created_asc"})
	require.Equal(t, http.StatusOK, status)
	status, body = srv.do(t, http.MethodGet, "/tickets", nil)
	require.Equal(t, http.StatusOK, status)
	list := data(t, body)
	require.Equal(t, "created_asc", list["sortBy"])
	require.Equal(t, "Low issue", list["items"].([]any)[0].(map[string]any)["title"])
}

func TestExportImportRoundTrip(t *testing.T) {
	srv := newTestServer(t, false)
	status, _ := srv.do(t, http.MethodPut, "/session/role", map[string]string{"role": "Admin"})
	require.Equal(t, http.StatusOK, status)
	status, _ = srv.do(t, http.MethodPost, "/tickets", map[string]any{"title": "A", "description": "B"})
	require.Equal(t, http.StatusCreated, status)

	resp, err := srv.app.Test(httptest.NewRequest(http.MethodGet, "/tickets/export", nil), -1)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Contains(t, resp.Header.Get("Content-Disposition"), "helpdesk-tickets-2024-01-02-03-04-05.json")
	exported, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.NoError(t, resp.Body.Close())

	status, body := srv.do(t, http.MethodDelete, "/tickets", nil)
	require.Equal(t, http.StatusOK, status)
	require.Equal(t, true, data(t, body)["changed"])

	var form bytes.Buffer
	writer := multipart.NewWriter(&form)
	part, err := writer.CreateFormFile("file", "tickets.json")
	require.NoError(t, err)
	_, err = part.Write(exported)
	require.NoError(t, err)
	require.NoError(t, writer.Close())
	req := httptest.NewRequest(http.MethodPost, "/tickets/import", &form)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	status, body = srv.send(t, req)
	require.Equal(t, http.StatusOK, status)
	require.Equal(t, float64(1), data(t, body)["imported"])

	status, body = srv.do(t, http.MethodGet, "/tickets", nil)
	require.Equal(t, http.StatusOK, status)
	require.Equal(t, float64(1), data(t, body)["total"])

	req = httptest.NewRequest(http.MethodPost, "/tickets/import", strings.NewReader(`{"not":"an array"}`))
	req.Header.Set("Content-Type", "application/json")
	status, body = srv.send(t, req)
	require.Equal(t, http.StatusBadRequest, status)
	require.Equal(t, "IMPORT_FAILED", body["error"].(map[string]any)["code"])
}

func TestBulkStatusOverHTTP(t *testing.T) {
	srv := newTestServer(t, false)
	_, err := auth.NewRoleGate(repository.NewPreferenceRepository(srv.store, nil)).Set(context.Background(), domain.RoleAdmin)
	require.NoError(t, err)

	var ids []string
	for _, title := range []string{"one", "two"} {
		_, body := srv.do(t, http.MethodPost, "/tickets", map[string]any{"title": title, "description": "x"})
		ids = append(ids, data(t, body)["id"].(string))
	}
	status, body := srv.do(t, http.MethodPost, "/tickets/bulk/status", map[string]any{"ids": ids, "status": "Resolved"})
	require.Equal(t, http.StatusOK, status)
	require.Equal(t, float64(2), data(t, body)["updated"])
}

func TestHealthEndpoints(t *testing.T) {
	srv := newTestServer(t, true)

	status, body := srv.do(t, http.MethodGet, "/health/ready", nil)
	require.Equal(t, http.StatusOK, status)
	require.Equal(t, "ready", body["status"])

	status, _ = srv.do(t, http.MethodGet, "/health/live", nil)
	require.Equal(t, http.StatusOK, status)

	status, body = srv.do(t, http.MethodGet, "/health/metrics", nil)
	require.Equal(t, http.StatusOK, status)
	require.Contains(t, data(t, body), "requests")

	status, body = srv.do(t, http.MethodGet, "/nowhere", nil)
	require.Equal(t, http.StatusNotFound, status)
	require.Equal(t, "NOT_FOUND", body["error"].(map[string]any)["code"])
}
