package invalidation

import (
	"context"

	"github.com/yanqian/points-dashboard/internal/domain/dashboard"
)

// Handler consumes invalidations published by any replica.
type Handler func(dashboard.Invalidation)

// Bus publishes invalidations and delivers them to a listener.
type Bus interface {
	dashboard.Broadcaster
	// Listen blocks, delivering messages to fn until ctx is done.
	Listen(ctx context.Context, fn Handler) error
}
