package service

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/spec-kit/helpdesk/internal/domain"
	"github.com/spec-kit/helpdesk/internal/events"
	apperrors "github.com/spec-kit/helpdesk/pkg/util"
)

// ImportTickets merges a JSON array of ticket-shaped records into the stored
// list. Records are keyed by id: an imported id replaces the stored ticket in
// place, new ids are appended, and the result is ordered newest first. It
// returns the number of records that were applied.
func (s *TicketService) ImportTickets(ctx context.Context, payload []byte) (int, error) {
	imported := 0
	_, err := s.mutate(ctx, "import", func(tickets []domain.Ticket, now time.Time) ([]domain.Ticket, []events.Event, error) {
		var raw []json.RawMessage
		if err := json.Unmarshal(payload, &raw); err != nil {
			return nil, nil, apperrors.NewImportError("Invalid file format", err)
		}
		if raw == nil {
			return nil, nil, apperrors.NewImportError("Invalid file format", nil)
		}

		merged := newTicketIndex(tickets)
		for _, element := range raw {
			// only JSON objects are records; arrays and scalars are skipped
			var record map[string]any
			if err := json.Unmarshal(element, &record); err != nil || record == nil {
				continue
			}
			merged.put(s.normalizeImported(record, now))
			imported++
		}

		result := merged.list()
		sort.SliceStable(result, func(i, j int) bool {
			return result[i].CreatedAt > result[j].CreatedAt
		})
		return result, []events.Event{{
			Type:    events.EventTicketsImported,
			Payload: events.TicketsImportedPayload{Imported: imported, Total: len(result)},
		}}, nil
	})
	if err != nil {
		return 0, err
	}
	return imported, nil
}

// normalizeImported fills every missing or falsy field with its default.
// Priority and status strings are kept verbatim even when unknown.
func (s *TicketService) normalizeImported(record map[string]any, now time.Time) domain.Ticket {
	id, ok := textValue(record["id"])
	if !ok {
		id = s.newID(now)
	}

	createdAt := now.UnixMilli()
	if v, ok := numberValue(record["createdAt"]); ok {
		createdAt = domain.ClampMillis(v)
	}
	slaHours := domain.DefaultSLAHours
	if v, ok := numberValue(record["slaHours"]); ok && v > 0 {
		slaHours = v
	}
	dueAt := domain.DueAtFor(createdAt, slaHours)
	if v, ok := numberValue(record["dueAt"]); ok {
		dueAt = domain.ClampMillis(v)
	}

	return domain.Ticket{
		ID:          id,
		Title:       textOr(record["title"], "Untitled"),
		Description: textOr(record["description"], ""),
		Category:    textOr(record["category"], domain.DefaultCategory),
		Priority:    domain.TicketPriority(textOr(record["priority"], string(domain.TicketPriorityLow))),
		Status:      domain.TicketStatus(textOr(record["status"], string(domain.TicketStatusOpen))),
		SLAHours:    slaHours,
		CreatedAt:   createdAt,
		DueAt:       dueAt,
		AssignedTo:  textOr(record["assignedTo"], ""),
		Escalated:   truthy(record["escalated"]),
		History:     historyValue(record["history"]),
	}
}

// ticketIndex preserves first-seen order while letting later records replace
// earlier ones with the same id.
type ticketIndex struct {
	order []string
	byID  map[string]domain.Ticket
}

func newTicketIndex(tickets []domain.Ticket) *ticketIndex {
	idx := &ticketIndex{byID: make(map[string]domain.Ticket, len(tickets))}
	for _, t := range tickets {
		idx.put(t)
	}
	return idx
}

func (i *ticketIndex) put(t domain.Ticket) {
	if _, exists := i.byID[t.ID]; !exists {
		i.order = append(i.order, t.ID)
	}
	i.byID[t.ID] = t
}

func (i *ticketIndex) list() []domain.Ticket {
	out := make([]domain.Ticket, 0, len(i.order))
	for _, id := range i.order {
		out = append(out, i.byID[id])
	}
	return out
}

// truthy follows the loose boolean rules of JSON-producing browser code: zero,
// NaN, empty strings, false and null are false; everything else is true.
func truthy(v any) bool {
	switch val := v.(type) {
	case nil:
		return false
	case bool:
		return val
	case float64:
		return val != 0 && !math.IsNaN(val)
	case string:
		return val != ""
	default:
		return true
	}
}

// textValue renders a truthy scalar as text.
func textValue(v any) (string, bool) {
	if !truthy(v) {
		return "", false
	}
	switch val := v.(type) {
	case string:
		return val, true
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64), true
	case bool:
		return strconv.FormatBool(val), true
	default:
		return fmt.Sprint(val), true
	}
}

func textOr(v any, fallback string) string {
	if s, ok := textValue(v); ok {
		return s
	}
	return fallback
}

// numberValue coerces a truthy value to a finite number. Numeric strings are
// accepted; anything that does not parse is treated as absent.
func numberValue(v any) (float64, bool) {
	if !truthy(v) {
		return 0, false
	}
	var n float64
	switch val := v.(type) {
	case float64:
		n = val
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(val), 64)
		if err != nil {
			return 0, false
		}
		n = parsed
	case bool:
		n = 1
	default:
		return 0, false
	}
	if math.IsNaN(n) || math.IsInf(n, 0) || n == 0 {
		return 0, false
	}
	return n, true
}

// historyValue keeps history only when it is an array; entries that are not
// objects are dropped.
func historyValue(v any) []domain.HistoryEntry {
	items, ok := v.([]any)
	if !ok {
		return []domain.HistoryEntry{}
	}
	out := make([]domain.HistoryEntry, 0, len(items))
	for _, item := range items {
		entry, ok := item.(map[string]any)
		if !ok {
			continue
		}
		he := domain.HistoryEntry{Action: textOr(entry["action"], "")}
		if at, ok := numberValue(entry["at"]); ok {
			he.At = domain.ClampMillis(at)
		}
		out = append(out, he)
	}
	return out
}
