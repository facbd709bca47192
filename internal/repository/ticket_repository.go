package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk/internal/domain"
	"github.com/spec-kit/helpdesk/internal/persistence"
)

// TicketsKey is the store key holding the serialized ticket list.
const TicketsKey = "helpdeskTickets"

// TicketRepository loads and saves the whole ticket list as one blob.
type TicketRepository interface {
	// Load never fails: absent or unreadable data yields an empty list.
	Load(ctx context.Context) []domain.Ticket
	Save(ctx context.Context, tickets []domain.Ticket) error
}

type ticketRepository struct {
	store  persistence.Store
	logger *zap.Logger
}

// NewTicketRepository instantiates repository.
func NewTicketRepository(store persistence.Store, logger *zap.Logger) TicketRepository {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ticketRepository{store: store, logger: logger}
}

func (r *ticketRepository) Load(ctx context.Context) []domain.Ticket {
	raw, ok, err := r.store.Get(ctx, TicketsKey)
	if err != nil {
		r.logger.Warn("load tickets: store read failed", zap.Error(err))
		return []domain.Ticket{}
	}
	if !ok || raw == "" {
		return []domain.Ticket{}
	}
	var tickets []domain.Ticket
	if err := json.Unmarshal([]byte(raw), &tickets); err != nil {
		r.logger.Warn("load tickets: discarding corrupt payload", zap.Error(err))
		return []domain.Ticket{}
	}
	if tickets == nil {
		return []domain.Ticket{}
	}
	for i := range tickets {
		if tickets[i].History == nil {
			tickets[i].History = []domain.HistoryEntry{}
		}
	}
	return tickets
}

func (r *ticketRepository) Save(ctx context.Context, tickets []domain.Ticket) error {
	if tickets == nil {
		tickets = []domain.Ticket{}
	}
	data, err := json.Marshal(tickets)
	if err != nil {
		return fmt.Errorf("encode tickets: %w", err)
	}
	if err := r.store.Set(ctx, TicketsKey, string(data)); err != nil {
		return fmt.Errorf("save tickets: %w", err)
	}
	return nil
}
