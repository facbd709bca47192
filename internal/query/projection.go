// Package query derives the ordered display list from stored tickets. Nothing
// here mutates its input or touches storage.
package query

import (
	"sort"
	"strings"
	"time"

	"github.com/spec-kit/helpdesk/internal/domain"
)

// SortKey selects the display order.
type SortKey string

const (
	SortCreatedAsc   SortKey = "created_asc"
	SortCreatedDesc  SortKey = "created_desc"
	SortSLAAsc       SortKey = "sla_asc"
	SortSLADesc      SortKey = "sla_desc"
	SortPriorityAsc  SortKey = "priority_asc"
	SortPriorityDesc SortKey = "priority_desc"

	DefaultSortKey = SortCreatedDesc
)

var sortKeys = []SortKey{
	SortCreatedAsc, SortCreatedDesc,
	SortSLAAsc, SortSLADesc,
	SortPriorityAsc, SortPriorityDesc,
}

// ParseSortKey accepts one of the six sort tokens.
func ParseSortKey(value string) (SortKey, bool) {
	for _, key := range sortKeys {
		if string(key) == value {
			return key, true
		}
	}
	return "", false
}

// Filter narrows the ticket list. Blank fields match everything.
type Filter struct {
	Category string
	Status   string
	Priority string
	Search   string
}

// Matches reports whether t passes every non-blank criterion.
func (f Filter) Matches(t *domain.Ticket) bool {
	if f.Category != "" && t.Category != f.Category {
		return false
	}
	if f.Status != "" && string(t.Status) != f.Status {
		return false
	}
	if f.Priority != "" && string(t.Priority) != f.Priority {
		return false
	}
	q := strings.ToLower(strings.TrimSpace(f.Search))
	if q == "" {
		return true
	}
	text := strings.ToLower(t.Title + " " + t.Description)
	return strings.Contains(text, q)
}

// Project filters and orders tickets for display. Ties keep the input order.
// An unrecognized sort key leaves the filtered list in input order.
func Project(tickets []domain.Ticket, filter Filter, key SortKey, now time.Time) []domain.Ticket {
	out := make([]domain.Ticket, 0, len(tickets))
	for i := range tickets {
		if filter.Matches(&tickets[i]) {
			out = append(out, tickets[i])
		}
	}

	less := comparator(key, now)
	if less == nil {
		return out
	}
	sort.SliceStable(out, func(i, j int) bool {
		return less(&out[i], &out[j])
	})
	return out
}

func comparator(key SortKey, now time.Time) func(a, b *domain.Ticket) bool {
	switch key {
	case SortCreatedAsc:
		return func(a, b *domain.Ticket) bool { return a.CreatedAt < b.CreatedAt }
	case SortCreatedDesc:
		return func(a, b *domain.Ticket) bool { return a.CreatedAt > b.CreatedAt }
	case SortSLAAsc:
		return func(a, b *domain.Ticket) bool { return a.Remaining(now) < b.Remaining(now) }
	case SortSLADesc:
		return func(a, b *domain.Ticket) bool { return a.Remaining(now) > b.Remaining(now) }
	case SortPriorityAsc:
		return func(a, b *domain.Ticket) bool { return a.Priority.Rank() < b.Priority.Rank() }
	case SortPriorityDesc:
		return func(a, b *domain.Ticket) bool { return a.Priority.Rank() > b.Priority.Rank() }
	default:
		return nil
	}
}
