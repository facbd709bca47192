package worker

import (
	"context"

	"github.com/spec-kit/helpdesk/internal/service"
)

// Background groups the long-running collaborators started with the server.
type Background struct {
	Notifications *service.NotificationService
	Sweeper       *SLASweeper
}

// StartBackground registers notification handlers before the first sweep so
// early escalations are delivered, then starts the sweeper. The returned func
// stops the sweeper and blocks until its loop exits.
func StartBackground(ctx context.Context, bg Background) (stop func()) {
	if bg.Notifications != nil {
		bg.Notifications.RegisterHandlers()
	}
	if bg.Sweeper == nil {
		return func() {}
	}
	bg.Sweeper.Start(ctx)
	return bg.Sweeper.Stop
}
