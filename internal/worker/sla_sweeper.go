package worker

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk/internal/events"
	"github.com/spec-kit/helpdesk/internal/observability"
	"github.com/spec-kit/helpdesk/internal/query"
	"github.com/spec-kit/helpdesk/internal/service"
)

// SweepReport summarizes a single sweep.
type SweepReport struct {
	At           time.Time
	Escalated    []string
	Countdowns   map[string]string
	NewlyOverdue []string
	Refreshed    bool
}

// SLASweeper periodically escalates overdue tickets. Only one loop runs at a
// time; Start replaces any loop that is already running.
type SLASweeper struct {
	tickets    *service.TicketService
	dispatcher events.Dispatcher
	metrics    *observability.Metrics
	logger     *zap.Logger
	interval   time.Duration

	lifecycle sync.Mutex
	cancel    context.CancelFunc
	done      chan struct{}

	stateMu sync.Mutex
	overdue map[string]struct{}
}

// NewSLASweeper constructs a sweeper.
func NewSLASweeper(tickets *service.TicketService, dispatcher events.Dispatcher, metrics *observability.Metrics, logger *zap.Logger, interval time.Duration) *SLASweeper {
	if logger == nil {
		logger = zap.NewNop()
	}
	if interval <= 0 {
		interval = time.Minute
	}
	return &SLASweeper{
		tickets:    tickets,
		dispatcher: dispatcher,
		metrics:    metrics,
		logger:     logger,
		interval:   interval,
		overdue:    make(map[string]struct{}),
	}
}

// Start runs one sweep immediately and then one per interval until ctx is
// cancelled or Stop is called.
func (s *SLASweeper) Start(ctx context.Context) {
	s.lifecycle.Lock()
	defer s.lifecycle.Unlock()
	s.stopLocked()

	loopCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	s.cancel = cancel
	s.done = done

	if _, err := s.RunOnce(loopCtx); err != nil {
		s.logger.Error("sla sweep failed", zap.Error(err))
	}
	go s.loop(loopCtx, done)
	s.logger.Info("sla sweeper started", zap.Duration("interval", s.interval))
}

// Stop cancels the running loop and waits for it to exit.
func (s *SLASweeper) Stop() {
	s.lifecycle.Lock()
	defer s.lifecycle.Unlock()
	s.stopLocked()
}

// Running reports whether a loop is active.
func (s *SLASweeper) Running() bool {
	s.lifecycle.Lock()
	defer s.lifecycle.Unlock()
	return s.cancel != nil
}

func (s *SLASweeper) stopLocked() {
	if s.cancel == nil {
		return
	}
	s.cancel()
	<-s.done
	s.cancel = nil
	s.done = nil
}

func (s *SLASweeper) loop(ctx context.Context, done chan struct{}) {
	defer close(done)
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := s.RunOnce(ctx); err != nil {
				s.logger.Error("sla sweep failed", zap.Error(err))
			}
		}
	}
}

// RunOnce escalates overdue tickets. When something changed it asks views to
// refresh; otherwise it publishes countdown text only.
func (s *SLASweeper) RunOnce(ctx context.Context) (*SweepReport, error) {
	outcome, err := s.tickets.EscalateOverdue(ctx)
	if err != nil {
		return nil, err
	}

	report := &SweepReport{At: outcome.Now}
	for _, t := range outcome.Escalated {
		report.Escalated = append(report.Escalated, t.ID)
	}
	report.NewlyOverdue = s.trackOverdue(outcome)
	s.metrics.RecordSweep(outcome.Now, len(report.Escalated))

	if len(report.Escalated) > 0 {
		report.Refreshed = true
		s.logger.Info("sla sweep escalated tickets", zap.Strings("ticket_ids", report.Escalated))
		s.publish(ctx, events.Event{Type: events.EventViewRefresh, Timestamp: outcome.Now})
		return report, nil
	}

	report.Countdowns = make(map[string]string, len(outcome.Tickets))
	for i := range outcome.Tickets {
		t := &outcome.Tickets[i]
		report.Countdowns[t.ID] = query.FormatRemaining(t.Remaining(outcome.Now))
	}
	s.publish(ctx, events.Event{
		Type:      events.EventSLATick,
		Timestamp: outcome.Now,
		Payload: events.SLATickPayload{
			Countdowns:   report.Countdowns,
			NewlyOverdue: report.NewlyOverdue,
		},
	})
	return report, nil
}

// trackOverdue returns ids whose deadline passed since the previous sweep.
func (s *SLASweeper) trackOverdue(outcome service.SweepOutcome) []string {
	s.stateMu.Lock()
	defer s.stateMu.Unlock()

	current := make(map[string]struct{}, len(s.overdue))
	var fresh []string
	for i := range outcome.Tickets {
		t := &outcome.Tickets[i]
		if !t.Overdue(outcome.Now) {
			continue
		}
		current[t.ID] = struct{}{}
		if _, seen := s.overdue[t.ID]; !seen {
			fresh = append(fresh, t.ID)
		}
	}
	s.overdue = current
	return fresh
}

func (s *SLASweeper) publish(ctx context.Context, event events.Event) {
	if s.dispatcher == nil {
		return
	}
	event.ID = uuid.NewString()
	if err := s.dispatcher.Publish(ctx, event); err != nil {
		s.logger.Warn("sweep event handler failed", zap.String("event_type", string(event.Type)), zap.Error(err))
	}
}
