package domain

import (
	"math"
	"strings"
	"time"
)

// TicketStatus enumerates lifecycle states for tickets.
type TicketStatus string

const (
	TicketStatusOpen       TicketStatus = "Open"
	TicketStatusInProgress TicketStatus = "In Progress"
	TicketStatusResolved   TicketStatus = "Resolved"
	TicketStatusClosed     TicketStatus = "Closed"
	TicketStatusEscalated  TicketStatus = "Escalated"
)

// TicketStatuses lists every status in display order.
var TicketStatuses = []TicketStatus{
	TicketStatusOpen,
	TicketStatusInProgress,
	TicketStatusResolved,
	TicketStatusClosed,
	TicketStatusEscalated,
}

// Valid reports whether s is one of the known statuses.
func (s TicketStatus) Valid() bool {
	for _, candidate := range TicketStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// Escalatable reports whether the SLA sweeper may promote a ticket in this
// status to Escalated.
func (s TicketStatus) Escalatable() bool {
	return s != TicketStatusResolved && s != TicketStatusClosed && s != TicketStatusEscalated
}

// TicketPriority enumerates SLA urgency.
type TicketPriority string

const (
	TicketPriorityLow      TicketPriority = "Low"
	TicketPriorityMedium   TicketPriority = "Medium"
	TicketPriorityHigh     TicketPriority = "High"
	TicketPriorityCritical TicketPriority = "Critical"
)

// Rank orders priorities for sorting. Unknown priorities rank 0.
func (p TicketPriority) Rank() int {
	switch p {
	case TicketPriorityLow:
		return 1
	case TicketPriorityMedium:
		return 2
	case TicketPriorityHigh:
		return 3
	case TicketPriorityCritical:
		return 4
	default:
		return 0
	}
}

const (
	DefaultCategory = "Other"
	DefaultSLAHours = 24.0
)

// HistoryEntry is an immutable audit trail entry.
type HistoryEntry struct {
	Action string `json:"action"`
	At     int64  `json:"at"`
}

// Ticket is the aggregate for support requests. Timestamps are unix
// milliseconds so the persisted layout stays stable across stores.
type Ticket struct {
	ID          string         `json:"id"`
	Title       string         `json:"title"`
	Description string         `json:"description"`
	Category    string         `json:"category"`
	Priority    TicketPriority `json:"priority"`
	Status      TicketStatus   `json:"status"`
	SLAHours    float64        `json:"slaHours"`
	CreatedAt   int64          `json:"createdAt"`
	DueAt       int64          `json:"dueAt"`
	AssignedTo  string         `json:"assignedTo"`
	Escalated   bool           `json:"escalated"`
	History     []HistoryEntry `json:"history"`
}

// Remaining returns the time left until the SLA deadline at now. Negative
// values mean the deadline has passed.
func (t *Ticket) Remaining(now time.Time) int64 {
	n := now.UnixMilli()
	r := t.DueAt - n
	// saturate instead of wrapping for deadlines near the int64 limits
	if n > 0 && r > t.DueAt {
		return math.MinInt64
	}
	if n < 0 && r < t.DueAt {
		return math.MaxInt64
	}
	return r
}

// Overdue reports whether the deadline passed before now.
func (t *Ticket) Overdue(now time.Time) bool {
	return t.Remaining(now) < 0
}

// Record appends an audit entry.
func (t *Ticket) Record(action string, at time.Time) {
	t.History = append(t.History, HistoryEntry{Action: action, At: at.UnixMilli()})
}

// Clone returns a deep copy so callers can mutate without aliasing history.
func (t Ticket) Clone() Ticket {
	history := make([]HistoryEntry, len(t.History))
	copy(history, t.History)
	t.History = history
	return t
}

// DueAtFor computes the SLA deadline for a creation time.
// Deadlines beyond the int64 millisecond range saturate at its limits.
func DueAtFor(createdAt int64, slaHours float64) int64 {
	ms := slaHours * float64(time.Hour/time.Millisecond)
	if math.Abs(ms) < maxExactMillis && math.Abs(float64(createdAt)) < maxExactMillis {
		return createdAt + int64(ms)
	}
	return ClampMillis(float64(createdAt) + ms)
}

// maxExactMillis bounds values whose sum cannot overflow int64 and that
// float64 represents exactly.
const maxExactMillis = 1 << 53

// ClampMillis converts a float timestamp or duration to int64 milliseconds,
// saturating at the int64 limits. NaN maps to zero.
func ClampMillis(v float64) int64 {
	switch {
	case math.IsNaN(v):
		return 0
	case v >= math.MaxInt64:
		return math.MaxInt64
	case v <= math.MinInt64:
		return math.MinInt64
	default:
		return int64(v)
	}
}

// NormalizeSLAHours replaces absent, non-finite or non-positive values with
// the default.
func NormalizeSLAHours(hours float64) float64 {
	if math.IsNaN(hours) || math.IsInf(hours, 0) || hours <= 0 {
		return DefaultSLAHours
	}
	return hours
}

// NormalizePriority falls back to Low for anything outside the known set.
func NormalizePriority(p TicketPriority) TicketPriority {
	if p.Rank() == 0 {
		return TicketPriorityLow
	}
	return p
}

// NormalizeCategory falls back to the default category when blank.
func NormalizeCategory(category string) string {
	if strings.TrimSpace(category) == "" {
		return DefaultCategory
	}
	return category
}
