package query

import (
	"math"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/helpdesk/internal/domain"
)

var epoch = time.UnixMilli(0)

func ids(tickets []domain.Ticket) []string {
	out := make([]string, len(tickets))
	for i, t := range tickets {
		out[i] = t.ID
	}
	return out
}

func sample() []domain.Ticket {
	return []domain.Ticket{
		{ID: "a", Title: "Printer jam", Description: "Floor 2", Category: "Hardware", Priority: domain.TicketPriorityLow, Status: domain.TicketStatusOpen, CreatedAt: 300, DueAt: 5000},
		{ID: "b", Title: "VPN down", Description: "Cannot connect", Category: "Network", Priority: domain.TicketPriorityCritical, Status: domain.TicketStatusEscalated, CreatedAt: 200, DueAt: 1000},
		{ID: "c", Title: "Password reset", Description: "Locked out of VPN", Category: "Access", Priority: domain.TicketPriorityHigh, Status: domain.TicketStatusOpen, CreatedAt: 200, DueAt: 9000},
		{ID: "d", Title: "New laptop", Description: "Onboarding", Category: "Hardware", Priority: "Urgent", Status: domain.TicketStatusClosed, CreatedAt: 100, DueAt: 3000},
	}
}

func TestProjectCreatedDescIsStable(t *testing.T) {
	got := Project(sample(), Filter{}, SortCreatedDesc, epoch)
	require.Equal(t, []string{"a", "b", "c", "d"}, ids(got))
	for i := 1; i < len(got); i++ {
		require.LessOrEqual(t, got[i].CreatedAt, got[i-1].CreatedAt)
	}
}

func TestProjectSortKeys(t *testing.T) {
	tests := []struct {
		key  SortKey
		want []string
	}{
		{SortCreatedAsc, []string{"d", "b", "c", "a"}},
		{SortSLAAsc, []string{"b", "d", "a", "c"}},
		{SortSLADesc, []string{"c", "a", "d", "b"}},
		{SortPriorityAsc, []string{"d", "a", "c", "b"}},
		{SortPriorityDesc, []string{"b", "c", "a", "d"}},
		{SortKey("bogus"), []string{"a", "b", "c", "d"}},
	}
	for _, tt := range tests {
		t.Run(string(tt.key), func(t *testing.T) {
			got := Project(sample(), Filter{}, tt.key, epoch)
			if diff := cmp.Diff(tt.want, ids(got)); diff != "" {
				t.Fatalf("order mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestProjectFilters(t *testing.T) {
	tests := []struct {
		name   string
		filter Filter
		want   []string
	}{
		{"category", Filter{Category: "Hardware"}, []string{"a", "d"}},
		{"status", Filter{Status: "Open"}, []string{"a", "c"}},
		{"priority", Filter{Priority: "Critical"}, []string{"b"}},
		{"search title and description case-insensitively", Filter{Search: "  vpn "}, []string{"b", "c"}},
		{"conjunctive", Filter{Category: "Hardware", Status: "Closed"}, []string{"d"}},
		{"no match", Filter{Search: "coffee"}, []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Project(sample(), tt.filter, SortCreatedDesc, epoch)
			require.Equal(t, tt.want, ids(got))
		})
	}
}

func TestProjectDoesNotMutateInput(t *testing.T) {
	input := sample()
	before := sample()
	_ = Project(input, Filter{Search: "vpn"}, SortPriorityDesc, epoch)
	if diff := cmp.Diff(before, input); diff != "" {
		t.Fatalf("input mutated (-before +after):\n%s", diff)
	}
}

func TestParseSortKey(t *testing.T) {
	key, ok := ParseSortKey("sla_desc")
	require.True(t, ok)
	require.Equal(t, SortSLADesc, key)

	_, ok = ParseSortKey("")
	require.False(t, ok)
	_, ok = ParseSortKey("title_asc")
	require.False(t, ok)
}

func TestFormatRemaining(t *testing.T) {
	require.Equal(t, "24:00:00", FormatRemaining(86_400_000))
	require.Equal(t, "00:01:01", FormatRemaining(61_999))
	require.Equal(t, "-00:00:01", FormatRemaining(-1_000))
	require.Equal(t, "-00:00:00", FormatRemaining(-999))
	require.Equal(t, "123:45:06", FormatRemaining((123*3600+45*60+6)*1000))
	require.Equal(t, "2562047788015:12:55", FormatRemaining(math.MaxInt64))
	require.Equal(t, "-2562047788015:12:55", FormatRemaining(math.MinInt64))
}
