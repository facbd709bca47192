package events

import (
	"time"

	"github.com/spec-kit/helpdesk/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventTicketCreated       EventType = "ticket_created"
	EventTicketStatusChanged EventType = "ticket_status_changed"
	EventTicketAssigned      EventType = "ticket_assigned"
	EventTicketEdited        EventType = "ticket_edited"
	EventTicketDeleted       EventType = "ticket_deleted"
	EventTicketsCleared      EventType = "tickets_cleared"
	EventTicketsImported     EventType = "tickets_imported"
	EventTicketEscalated     EventType = "ticket_escalated"
	EventRoleChanged         EventType = "role_changed"

	// EventViewRefresh asks the view to re-project the whole list.
	EventViewRefresh EventType = "view_refresh"
	// EventSLATick carries countdown text only; nothing was persisted.
	EventSLATick EventType = "sla_tick"
)

// Event represents a domain event emitted by services.
type Event struct {
	ID        string      `json:"id"`
	Type      EventType   `json:"type"`
	TicketID  string      `json:"ticket_id,omitempty"`
	Role      domain.Role `json:"role,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload"`
}

// TicketCreatedPayload payload.
type TicketCreatedPayload struct {
	Title    string                `json:"title"`
	Category string                `json:"category"`
	Priority domain.TicketPriority `json:"priority"`
	DueAt    int64                 `json:"due_at"`
}

// TicketStatusChangedPayload payload.
type TicketStatusChangedPayload struct {
	OldStatus domain.TicketStatus `json:"old_status"`
	NewStatus domain.TicketStatus `json:"new_status"`
	Bulk      bool                `json:"bulk,omitempty"`
}

// TicketAssignedPayload payload.
type TicketAssignedPayload struct {
	AssignedTo string `json:"assigned_to"`
}

// TicketEditedPayload payload.
type TicketEditedPayload struct {
	TitleChanged       bool `json:"title_changed"`
	DescriptionChanged bool `json:"description_changed"`
}

// TicketsImportedPayload payload.
type TicketsImportedPayload struct {
	Imported int `json:"imported"`
	Total    int `json:"total"`
}

// TicketEscalatedPayload payload.
type TicketEscalatedPayload struct {
	PreviousStatus domain.TicketStatus `json:"previous_status"`
	DueAt          int64               `json:"due_at"`
}

// SLATickPayload carries the live countdown for every ticket and the ids
// whose deadline passed since the previous tick.
type SLATickPayload struct {
	Countdowns   map[string]string `json:"countdowns"`
	NewlyOverdue []string          `json:"newly_overdue"`
}
