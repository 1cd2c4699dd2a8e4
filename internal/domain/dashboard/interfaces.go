package dashboard

import (
	"context"
	"encoding/json"
	"time"
)

// RemoteClient is the authenticated points backend. Payloads are returned
// undecoded; shape handling belongs to the Normalizer.
type RemoteClient interface {
	ActivityFeed(ctx context.Context, token string) (json.RawMessage, error)
	LegacyActivities(ctx context.Context, token string) (json.RawMessage, error)
	LegacyRedemptions(ctx context.Context, token string) (json.RawMessage, error)
	PointsTimeline(ctx context.Context, granularity string, days int, token string) (json.RawMessage, error)
	DashboardStats(ctx context.Context, period, token string) (json.RawMessage, error)
	AvailableRewards(ctx context.Context, token string) (json.RawMessage, error)
	RedeemReward(ctx context.Context, rewardID int64, token string) (json.RawMessage, error)
}

// InvalidationKind says what a peer replica should do with its copy of a session.
type InvalidationKind string

const (
	// InvalidateStale marks the session stale so the next refresh refetches.
	InvalidateStale InvalidationKind = "stale"
	// InvalidateClear resets the session to empty (logout).
	InvalidateClear InvalidationKind = "clear"
)

// Invalidation is exchanged between replicas serving the same sessions.
type Invalidation struct {
	SessionKey string           `json:"sessionKey"`
	Kind       InvalidationKind `json:"kind"`
	Origin     string           `json:"origin"`
}

// Broadcaster fans invalidations out to peer replicas.
type Broadcaster interface {
	Publish(ctx context.Context, msg Invalidation) error
}

// PartialFailurePolicy decides what happens to a snapshot field whose call failed.
type PartialFailurePolicy string

const (
	// PreserveOnFailure keeps the last known good value.
	PreserveOnFailure PartialFailurePolicy = "preserve"
	// ResetOnFailure clears the field.
	ResetOnFailure PartialFailurePolicy = "reset"
)

// Config holds runtime knobs for the dashboard service.
type Config struct {
	// StaleAfter is how long a snapshot is reused by non-forced refreshes.
	// Zero means every refresh refetches.
	StaleAfter          time.Duration
	FetchTimeout        time.Duration
	FocusDebounce       time.Duration
	SessionIdleTTL      time.Duration
	RecentLimit         int
	TimelineGranularity string
	TimelineDays        int
	StatsPeriod         string
	UnifiedFeed         bool
	PartialFailure      PartialFailurePolicy
	Location            *time.Location
}
