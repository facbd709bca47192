package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk/internal/auth"
	"github.com/spec-kit/helpdesk/internal/clock"
	"github.com/spec-kit/helpdesk/internal/domain"
	"github.com/spec-kit/helpdesk/internal/events"
	"github.com/spec-kit/helpdesk/internal/repository"
	apperrors "github.com/spec-kit/helpdesk/pkg/util"
)

const (
	actionCreated     = "Ticket created"
	actionEscalated   = "Auto-escalated: SLA breached"
	actionTitle       = "Title edited"
	actionDescription = "Description edited"
)

// TicketService coordinates ticket workflows. Every mutation loads the whole
// list, changes it in memory and saves it once, all under one lock so the
// sweeper and request handlers observe a single timeline.
type TicketService struct {
	mu         sync.Mutex
	tickets    repository.TicketRepository
	roles      auth.RoleSource
	dispatcher events.Dispatcher
	clock      clock.Clock
	logger     *zap.Logger
	newID      func(now time.Time) string
}

// TicketDependencies bundles collaborators for ticket service.
type TicketDependencies struct {
	TicketRepo repository.TicketRepository
	Roles      auth.RoleSource
	Dispatcher events.Dispatcher
	Clock      clock.Clock
	Logger     *zap.Logger
	// IDGenerator overrides ticket id generation; tests use it for stable ids.
	IDGenerator func(now time.Time) string
}

// TicketCreateInput describes ticket creation payload. Zero values select
// the defaults.
type TicketCreateInput struct {
	Title       string
	Description string
	Category    string
	Priority    domain.TicketPriority
	SLAHours    float64
}

// ExportFile is a downloadable snapshot of the ticket list.
type ExportFile struct {
	Name string
	Data []byte
}

// SweepOutcome reports one escalation pass.
type SweepOutcome struct {
	Now       time.Time
	Escalated []domain.Ticket
	Tickets   []domain.Ticket
}

// NewTicketService constructs the service.
func NewTicketService(deps TicketDependencies) *TicketService {
	s := &TicketService{
		tickets:    deps.TicketRepo,
		roles:      deps.Roles,
		dispatcher: deps.Dispatcher,
		clock:      deps.Clock,
		logger:     deps.Logger,
		newID:      deps.IDGenerator,
	}
	if s.roles == nil {
		s.roles = auth.StaticRole(domain.RoleUser)
	}
	if s.clock == nil {
		s.clock = clock.Real()
	}
	if s.logger == nil {
		s.logger = zap.NewNop()
	}
	if s.newID == nil {
		s.newID = generateTicketID
	}
	return s
}

// List returns the current ticket list in stored order.
func (s *TicketService) List(ctx context.Context) []domain.Ticket {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tickets.Load(ctx)
}

// GetTicket returns one ticket by id.
func (s *TicketService) GetTicket(ctx context.Context, ticketID string) (*domain.Ticket, error) {
	for _, t := range s.List(ctx) {
		if t.ID == ticketID {
			return &t, nil
		}
	}
	return nil, apperrors.NewNotFound("ticket", map[string]any{"id": ticketID})
}

// Now returns the service clock's current time.
func (s *TicketService) Now() time.Time {
	return s.clock.Now()
}

// CreateTicket validates input, applies defaults and prepends the new ticket.
// Creation is open to every role.
func (s *TicketService) CreateTicket(ctx context.Context, input TicketCreateInput) (*domain.Ticket, error) {
	title := strings.TrimSpace(input.Title)
	description := strings.TrimSpace(input.Description)
	if title == "" || description == "" {
		return nil, apperrors.NewValidationError("title and description are required", nil)
	}

	var created domain.Ticket
	_, err := s.mutate(ctx, "", func(tickets []domain.Ticket, now time.Time) ([]domain.Ticket, []events.Event, error) {
		createdAt := now.UnixMilli()
		slaHours := domain.NormalizeSLAHours(input.SLAHours)
		created = domain.Ticket{
			ID:          s.newID(now),
			Title:       title,
			Description: description,
			Category:    domain.NormalizeCategory(input.Category),
			Priority:    domain.NormalizePriority(input.Priority),
			Status:      domain.TicketStatusOpen,
			SLAHours:    slaHours,
			CreatedAt:   createdAt,
			DueAt:       domain.DueAtFor(createdAt, slaHours),
			History:     []domain.HistoryEntry{{Action: actionCreated, At: createdAt}},
		}
		next := make([]domain.Ticket, 0, len(tickets)+1)
		next = append(next, created)
		next = append(next, tickets...)
		return next, []events.Event{{
			Type:     events.EventTicketCreated,
			TicketID: created.ID,
			Payload: events.TicketCreatedPayload{
				Title:    created.Title,
				Category: created.Category,
				Priority: created.Priority,
				DueAt:    created.DueAt,
			},
		}}, nil
	})
	if err != nil {
		return nil, err
	}
	out := created.Clone()
	return &out, nil
}

// UpdateStatus moves a ticket to status. Missing tickets and self-transitions
// are no-ops. Any status other than Escalated clears the escalated flag;
// choosing Escalated by hand never sets it.
func (s *TicketService) UpdateStatus(ctx context.Context, ticketID string, status domain.TicketStatus) (bool, error) {
	return s.mutate(ctx, "update_status", func(tickets []domain.Ticket, now time.Time) ([]domain.Ticket, []events.Event, error) {
		if !status.Valid() {
			return nil, nil, apperrors.NewValidationError("unknown status", map[string]any{"status": status})
		}
		t := findTicket(tickets, ticketID)
		if t == nil || t.Status == status {
			return nil, nil, nil
		}
		old := t.Status
		t.Status = status
		t.Record("Status changed to "+string(status), now)
		if status != domain.TicketStatusEscalated {
			t.Escalated = false
		}
		return tickets, []events.Event{{
			Type:     events.EventTicketStatusChanged,
			TicketID: t.ID,
			Payload:  events.TicketStatusChangedPayload{OldStatus: old, NewStatus: status},
		}}, nil
	})
}

// AssignTicket records person as the assignee. Blank names are ignored.
func (s *TicketService) AssignTicket(ctx context.Context, ticketID, person string) (bool, error) {
	person = strings.TrimSpace(person)
	return s.mutate(ctx, "assign", func(tickets []domain.Ticket, now time.Time) ([]domain.Ticket, []events.Event, error) {
		t := findTicket(tickets, ticketID)
		if t == nil || person == "" {
			return nil, nil, nil
		}
		t.AssignedTo = person
		t.Record("Assigned to "+person, now)
		return tickets, []events.Event{{
			Type:     events.EventTicketAssigned,
			TicketID: t.ID,
			Payload:  events.TicketAssignedPayload{AssignedTo: person},
		}}, nil
	})
}

// DeleteTicket removes one ticket. An unknown id changes nothing.
func (s *TicketService) DeleteTicket(ctx context.Context, ticketID string) (bool, error) {
	return s.mutate(ctx, "delete", func(tickets []domain.Ticket, _ time.Time) ([]domain.Ticket, []events.Event, error) {
		next := make([]domain.Ticket, 0, len(tickets))
		for _, t := range tickets {
			if t.ID != ticketID {
				next = append(next, t)
			}
		}
		if len(next) == len(tickets) {
			return nil, nil, nil
		}
		return next, []events.Event{{Type: events.EventTicketDeleted, TicketID: ticketID}}, nil
	})
}

// ClearAll removes every ticket.
func (s *TicketService) ClearAll(ctx context.Context) (bool, error) {
	return s.mutate(ctx, "clear_all", func([]domain.Ticket, time.Time) ([]domain.Ticket, []events.Event, error) {
		return []domain.Ticket{}, []events.Event{{Type: events.EventTicketsCleared}}, nil
	})
}

// BulkUpdateStatus sets status on every listed ticket whose status differs,
// appending one history entry per affected ticket and saving once. The
// escalated flag is left untouched.
func (s *TicketService) BulkUpdateStatus(ctx context.Context, ticketIDs []string, status domain.TicketStatus) (int, error) {
	selected := make(map[string]struct{}, len(ticketIDs))
	for _, id := range ticketIDs {
		selected[id] = struct{}{}
	}

	affected := 0
	_, err := s.mutate(ctx, "bulk_update_status", func(tickets []domain.Ticket, now time.Time) ([]domain.Ticket, []events.Event, error) {
		if status == "" {
			return nil, nil, nil
		}
		if !status.Valid() {
			return nil, nil, apperrors.NewValidationError("unknown status", map[string]any{"status": status})
		}
		var evts []events.Event
		for i := range tickets {
			t := &tickets[i]
			if _, ok := selected[t.ID]; !ok || t.Status == status {
				continue
			}
			old := t.Status
			t.Status = status
			t.Record("Status changed to "+string(status)+" (bulk)", now)
			evts = append(evts, events.Event{
				Type:     events.EventTicketStatusChanged,
				TicketID: t.ID,
				Payload:  events.TicketStatusChangedPayload{OldStatus: old, NewStatus: status, Bulk: true},
			})
		}
		affected = len(evts)
		if affected == 0 {
			return nil, nil, nil
		}
		return tickets, evts, nil
	})
	if err != nil {
		return 0, err
	}
	return affected, nil
}

// EditTicket replaces title and description. Both must be non-blank; one
// history entry is appended per field that actually changed.
func (s *TicketService) EditTicket(ctx context.Context, ticketID, title, description string) (bool, error) {
	title = strings.TrimSpace(title)
	description = strings.TrimSpace(description)
	return s.mutate(ctx, "edit", func(tickets []domain.Ticket, now time.Time) ([]domain.Ticket, []events.Event, error) {
		if title == "" || description == "" {
			return nil, nil, apperrors.NewValidationError("title and description cannot be empty", nil)
		}
		t := findTicket(tickets, ticketID)
		if t == nil {
			return nil, nil, nil
		}
		payload := events.TicketEditedPayload{
			TitleChanged:       t.Title != title,
			DescriptionChanged: t.Description != description,
		}
		if !payload.TitleChanged && !payload.DescriptionChanged {
			return nil, nil, nil
		}
		if payload.TitleChanged {
			t.Record(actionTitle, now)
		}
		if payload.DescriptionChanged {
			t.Record(actionDescription, now)
		}
		t.Title = title
		t.Description = description
		return tickets, []events.Event{{Type: events.EventTicketEdited, TicketID: t.ID, Payload: payload}}, nil
	})
}

// ExportTickets renders the current list as indented JSON with a timestamped
// file name.
func (s *TicketService) ExportTickets(ctx context.Context) (*ExportFile, error) {
	tickets := s.List(ctx)
	data, err := json.MarshalIndent(tickets, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode export: %w", err)
	}
	name := "helpdesk-tickets-" + s.clock.Now().UTC().Format("2006-01-02-15-04-05") + ".json"
	return &ExportFile{Name: name, Data: data}, nil
}

// EscalateOverdue promotes every overdue ticket that is not Resolved, Closed
// or already Escalated. It runs on behalf of the system and is never gated.
func (s *TicketService) EscalateOverdue(ctx context.Context) (SweepOutcome, error) {
	var outcome SweepOutcome
	_, err := s.mutate(ctx, "", func(tickets []domain.Ticket, now time.Time) ([]domain.Ticket, []events.Event, error) {
		outcome.Now = now
		var evts []events.Event
		for i := range tickets {
			t := &tickets[i]
			if !t.Overdue(now) || !t.Status.Escalatable() {
				continue
			}
			previous := t.Status
			t.Status = domain.TicketStatusEscalated
			t.Escalated = true
			t.Record(actionEscalated, now)
			outcome.Escalated = append(outcome.Escalated, t.Clone())
			evts = append(evts, events.Event{
				Type:     events.EventTicketEscalated,
				TicketID: t.ID,
				Payload:  events.TicketEscalatedPayload{PreviousStatus: previous, DueAt: t.DueAt},
			})
		}
		outcome.Tickets = cloneAll(tickets)
		if len(evts) == 0 {
			return nil, nil, nil
		}
		return tickets, evts, nil
	})
	if err != nil {
		return SweepOutcome{}, err
	}
	return outcome, nil
}

// mutate runs fn against the freshly loaded list under the engine lock. fn
// returns the list to persist, or nil when nothing changed. Events are
// published after the lock is released and only when the save succeeded.
//
// A non-empty operation is admin-only. The role is read under the same lock,
// so a role switch lands either before or after the whole mutation, and a
// refused caller gets a silent no-op before fn validates anything.
func (s *TicketService) mutate(ctx context.Context, operation string, fn func(tickets []domain.Ticket, now time.Time) ([]domain.Ticket, []events.Event, error)) (bool, error) {
	s.mu.Lock()
	if operation != "" && !s.permitted(ctx, operation) {
		s.mu.Unlock()
		return false, nil
	}
	now := s.clock.Now()
	next, evts, err := fn(s.tickets.Load(ctx), now)
	if err != nil || next == nil {
		s.mu.Unlock()
		return false, err
	}
	if err := s.tickets.Save(ctx, next); err != nil {
		s.mu.Unlock()
		return false, apperrors.NewInternalError(err)
	}
	s.mu.Unlock()

	for _, event := range evts {
		event.Timestamp = now
		s.publishEvent(ctx, event)
	}
	return true, nil
}

// permitted must be called with s.mu held.
func (s *TicketService) permitted(ctx context.Context, operation string) bool {
	role := s.roles.Current(ctx)
	if role.IsAdmin() {
		return true
	}
	s.logger.Debug("operation refused for role", zap.String("operation", operation), zap.String("role", string(role)))
	return false
}

func (s *TicketService) publishEvent(ctx context.Context, event events.Event) {
	if s.dispatcher == nil {
		return
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = s.clock.Now()
	}
	if err := s.dispatcher.Publish(ctx, event); err != nil {
		s.logger.Warn("event handler failed", zap.String("event_type", string(event.Type)), zap.Error(err))
	}
}

func findTicket(tickets []domain.Ticket, id string) *domain.Ticket {
	for i := range tickets {
		if tickets[i].ID == id {
			return &tickets[i]
		}
	}
	return nil
}

func cloneAll(tickets []domain.Ticket) []domain.Ticket {
	out := make([]domain.Ticket, len(tickets))
	for i := range tickets {
		out[i] = tickets[i].Clone()
	}
	return out
}

// generateTicketID combines the creation time with a short random suffix.
func generateTicketID(now time.Time) string {
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:6]
	return fmt.Sprintf("T-%d-%s", now.UnixMilli(), suffix)
}
