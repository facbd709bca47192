package worker

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

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

type sweepFixture struct {
	tickets    *service.TicketService
	store      *persistence.Memory
	clock      *clock.Manual
	dispatcher events.Dispatcher
	metrics    *observability.Metrics
	sweeper    *SLASweeper

	mu   sync.Mutex
	seen []events.Event
}

func newSweepFixture(t *testing.T) *sweepFixture {
	t.Helper()
	f := &sweepFixture{
		store:      persistence.NewMemory(),
		clock:      clock.NewManual(time.UnixMilli(0)),
		dispatcher: events.NewInMemoryDispatcher(),
		metrics:    observability.NewMetrics(),
	}
	f.tickets = service.NewTicketService(service.TicketDependencies{
		TicketRepo: repository.NewTicketRepository(f.store, zap.NewNop()),
		Roles:      auth.StaticRole(domain.RoleAdmin),
		Dispatcher: f.dispatcher,
		Clock:      f.clock,
	})
	for _, et := range []events.EventType{events.EventViewRefresh, events.EventSLATick, events.EventTicketEscalated} {
		f.dispatcher.Subscribe(et, func(_ context.Context, e events.Event) error {
			f.mu.Lock()
			defer f.mu.Unlock()
			f.seen = append(f.seen, e)
			return nil
		})
	}
	f.sweeper = NewSLASweeper(f.tickets, f.dispatcher, f.metrics, zap.NewNop(), time.Hour)
	return f
}

func (f *sweepFixture) eventTypes() []events.EventType {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]events.EventType, 0, len(f.seen))
	for _, e := range f.seen {
		out = append(out, e.Type)
	}
	return out
}

func (f *sweepFixture) reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.seen = nil
}

func TestRunOnceEscalatesOverdueTicket(t *testing.T) {
	ctx := context.Background()
	f := newSweepFixture(t)
	ticket, err := f.tickets.CreateTicket(ctx, service.TicketCreateInput{Title: "A", Description: "B", SLAHours: 1})
	require.NoError(t, err)

	f.clock.Set(time.UnixMilli(3600001))
	writes := f.store.Writes()
	report, err := f.sweeper.RunOnce(ctx)
	require.NoError(t, err)
	require.Equal(t, []string{ticket.ID}, report.Escalated)
	require.True(t, report.Refreshed)
	require.Equal(t, []string{ticket.ID}, report.NewlyOverdue)
	require.Equal(t, writes+1, f.store.Writes())
	require.Equal(t, []events.EventType{events.EventTicketEscalated, events.EventViewRefresh}, f.eventTypes())

	got := f.tickets.List(ctx)[0]
	require.Equal(t, domain.TicketStatusEscalated, got.Status)
	require.Len(t, got.History, 2)

	f.reset()
	report, err = f.sweeper.RunOnce(ctx)
	require.NoError(t, err)
	require.Empty(t, report.Escalated)
	require.False(t, report.Refreshed)
	require.Empty(t, report.NewlyOverdue)
	require.Equal(t, "-00:00:00", report.Countdowns[ticket.ID])
	require.Equal(t, writes+1, f.store.Writes())
	require.Len(t, f.tickets.List(ctx)[0].History, 2)
	require.Equal(t, []events.EventType{events.EventSLATick}, f.eventTypes())

	snap := f.metrics.Snapshot()
	require.Equal(t, int64(2), snap.Sweeps)
	require.Equal(t, int64(1), snap.Escalations)
}

func TestRunOnceTicksWithoutPersisting(t *testing.T) {
	ctx := context.Background()
	f := newSweepFixture(t)
	ticket, err := f.tickets.CreateTicket(ctx, service.TicketCreateInput{Title: "A", Description: "B", SLAHours: 2})
	require.NoError(t, err)
	_, err = f.tickets.UpdateStatus(ctx, ticket.ID, domain.TicketStatusResolved)
	require.NoError(t, err)

	f.clock.Set(time.UnixMilli(90 * 60 * 1000))
	writes := f.store.Writes()
	report, err := f.sweeper.RunOnce(ctx)
	require.NoError(t, err)
	require.Equal(t, "00:30:00", report.Countdowns[ticket.ID])
	require.Empty(t, report.NewlyOverdue)

	f.clock.Advance(time.Hour)
	report, err = f.sweeper.RunOnce(ctx)
	require.NoError(t, err)
	require.Empty(t, report.Escalated, "resolved tickets are never escalated")
	require.Equal(t, []string{ticket.ID}, report.NewlyOverdue)
	require.Equal(t, "-00:30:00", report.Countdowns[ticket.ID])
	require.Equal(t, writes, f.store.Writes())
}

func TestStartRestartAndStop(t *testing.T) {
	f := newSweepFixture(t)
	ctx := context.Background()

	f.sweeper.Start(ctx)
	require.True(t, f.sweeper.Running())
	require.Equal(t, int64(1), f.metrics.Snapshot().Sweeps, "start sweeps immediately")

	f.sweeper.Start(ctx)
	require.True(t, f.sweeper.Running())
	require.Equal(t, int64(2), f.metrics.Snapshot().Sweeps)

	f.sweeper.Stop()
	require.False(t, f.sweeper.Running())
	f.sweeper.Stop()
}

func TestSweeperTicksOnInterval(t *testing.T) {
	f := newSweepFixture(t)
	f.sweeper.interval = 10 * time.Millisecond

	stop := StartBackground(context.Background(), Background{
		Notifications: service.NewNotificationService(f.dispatcher, zap.NewNop(), config.NotificationConfig{}),
		Sweeper:       f.sweeper,
	})
	defer stop()

	require.Eventually(t, func() bool {
		return f.metrics.Snapshot().Sweeps >= 3
	}, time.Second, 5*time.Millisecond)
}

func TestStopOnContextCancel(t *testing.T) {
	f := newSweepFixture(t)
	ctx, cancel := context.WithCancel(context.Background())
	f.sweeper.Start(ctx)
	cancel()

	f.sweeper.lifecycle.Lock()
	done := f.sweeper.done
	f.sweeper.lifecycle.Unlock()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("loop did not exit after context cancellation")
	}
	f.sweeper.Stop()
	require.False(t, f.sweeper.Running())
}
