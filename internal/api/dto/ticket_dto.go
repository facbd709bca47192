package dto

import (
	"strconv"
	"strings"
	"time"

	"github.com/spec-kit/helpdesk/internal/domain"
	"github.com/spec-kit/helpdesk/internal/query"
)

// CreateTicketRequest payload. SLAHours accepts a number or numeric string;
// anything else selects the default.
type CreateTicketRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Category    string `json:"category"`
	Priority    string `json:"priority"`
	SLAHours    any    `json:"slaHours"`
}

// SLAHoursValue coerces the loosely typed SLA field.
func (r CreateTicketRequest) SLAHoursValue() float64 {
	switch v := r.SLAHours.(type) {
	case float64:
		return v
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return 0
		}
		return parsed
	default:
		return 0
	}
}

// EditTicketRequest payload.
type EditTicketRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
}

// UpdateStatusRequest payload.
type UpdateStatusRequest struct {
	Status string `json:"status"`
}

// AssignTicketRequest payload.
type AssignTicketRequest struct {
	AssignedTo string `json:"assignedTo"`
}

// BulkStatusRequest payload.
type BulkStatusRequest struct {
	IDs    []string `json:"ids"`
	Status string   `json:"status"`
}

// TicketView is a ticket as rendered in lists, with its live countdown.
type TicketView struct {
	domain.Ticket
	Remaining string `json:"remaining"`
	Overdue   bool   `json:"overdue"`
}

// NewTicketView renders t relative to now.
func NewTicketView(t domain.Ticket, now time.Time) TicketView {
	return TicketView{
		Ticket:    t,
		Remaining: query.FormatRemaining(t.Remaining(now)),
		Overdue:   t.Overdue(now),
	}
}

// TicketListResponse wraps a projected list.
type TicketListResponse struct {
	Items  []TicketView  `json:"items"`
	Total  int           `json:"total"`
	SortBy query.SortKey `json:"sortBy"`
}

// ChangedResponse reports whether a mutation took effect. Requests refused
// for the current role report false.
type ChangedResponse struct {
	Changed bool `json:"changed"`
}

// BulkStatusResponse reports how many tickets a bulk update touched.
type BulkStatusResponse struct {
	Updated int `json:"updated"`
}

// ImportResponse reports an import merge.
type ImportResponse struct {
	Imported int `json:"imported"`
}
