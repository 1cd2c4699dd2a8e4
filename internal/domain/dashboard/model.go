package dashboard

import (
	"encoding/json"
	"time"

	"github.com/yanqian/points-dashboard/pkg/metrics"
)

// EntryKind tags a feed entry as earned activity or reward redemption.
type EntryKind string

const (
	// KindActivity is an earned-points activity.
	KindActivity EntryKind = "activity"
	// KindRedemption is a reward redemption (points spent).
	KindRedemption EntryKind = "redemption"
)

// Label is the human form used in synthesized descriptions.
func (k EntryKind) Label() string {
	if k == KindRedemption {
		return "Reward"
	}
	return "Activity"
}

// Status tracks where a snapshot sits in its fetch lifecycle.
type Status string

const (
	StatusEmpty           Status = "empty"
	StatusLoading         Status = "loading"
	StatusReady           Status = "ready"
	StatusPartiallyFailed Status = "partially_failed"
)

// FeedEntry is one row of user history.
type FeedEntry struct {
	ID           int64     `json:"id"`
	Kind         EntryKind `json:"kind"`
	Timestamp    time.Time `json:"timestamp"`
	RawTimestamp string    `json:"rawTimestamp,omitempty"`
	PointsChange int       `json:"pointsChange"`
	Description  string    `json:"description"`
	Category     string    `json:"category"`

	categoryHint    string
	altCategoryHint string
}

// TimelineRow is one backend-computed day of points activity.
type TimelineRow struct {
	Date             string `json:"date"`
	PointsEarned     int    `json:"pointsEarned"`
	PointsRedeemed   int    `json:"pointsRedeemed"`
	NetPoints        int    `json:"netPoints"`
	RedemptionsCount int    `json:"redemptionsCount"`
}

// Reward is a redeemable reward definition.
type Reward struct {
	ID             int64  `json:"id"`
	Name           string `json:"name"`
	PointsRequired int    `json:"pointsRequired"`
	StockAvailable *int   `json:"stockAvailable,omitempty"`
	Sponsor        string `json:"sponsor,omitempty"`
}

// PeriodTotals are the authoritative backend totals for the current period.
type PeriodTotals struct {
	TotalPoints      int `json:"totalPoints"`
	TotalActivities  int `json:"totalActivities"`
	TotalRedemptions int `json:"totalRedemptions"`
}

// Stats wraps the opaque backend stats payload. Raw is passed through
// untouched; Current is only set when the payload carried current_period.
type Stats struct {
	Raw     json.RawMessage `json:"raw,omitempty"`
	Current *PeriodTotals   `json:"currentPeriod,omitempty"`
}

// FeedTotals are the counters the unified feed endpoint reports alongside the feed.
type FeedTotals struct {
	TotalActivities  int `json:"totalActivities"`
	TotalRedemptions int `json:"totalRedemptions"`
}

// Snapshot is the full aggregation cache state of one session.
type Snapshot struct {
	Feed          []FeedEntry         `json:"feed"`
	FeedTotals    *FeedTotals         `json:"feedTotals,omitempty"`
	Timeline      []TimelineRow       `json:"timeline"`
	Stats         *Stats              `json:"stats,omitempty"`
	Rewards       []Reward            `json:"rewards"`
	Version       uint64              `json:"version"`
	Status        Status              `json:"status"`
	IsLoading     bool                `json:"isLoading"`
	Error         string              `json:"error,omitempty"`
	ErrorCode     string              `json:"errorCode,omitempty"`
	LastFetchTime time.Time           `json:"lastFetchTime"`
	LastFetch     metrics.FetchTiming `json:"lastFetch"`
}

func emptySnapshot(version uint64) Snapshot {
	return Snapshot{
		Feed:     []FeedEntry{},
		Timeline: []TimelineRow{},
		Rewards:  []Reward{},
		Version:  version,
		Status:   StatusEmpty,
	}
}

// clone returns a deep copy safe to hand to readers.
func (s Snapshot) clone() Snapshot {
	out := s
	out.Feed = append([]FeedEntry(nil), s.Feed...)
	out.Timeline = append([]TimelineRow(nil), s.Timeline...)
	out.Rewards = make([]Reward, len(s.Rewards))
	for i, r := range s.Rewards {
		if r.StockAvailable != nil {
			stock := *r.StockAvailable
			r.StockAvailable = &stock
		}
		out.Rewards[i] = r
	}
	if s.Stats != nil {
		stats := Stats{Raw: append(json.RawMessage(nil), s.Stats.Raw...)}
		if s.Stats.Current != nil {
			current := *s.Stats.Current
			stats.Current = &current
		}
		out.Stats = &stats
	}
	if s.FeedTotals != nil {
		totals := *s.FeedTotals
		out.FeedTotals = &totals
	}
	return out
}

// ChartPoint is one day of the points chart.
type ChartPoint struct {
	Date       string `json:"date"`
	Earned     int    `json:"earned"`
	Redeemed   int    `json:"redeemed"`
	Net        int    `json:"net"`
	Cumulative int    `json:"cumulative"`
}

// CategoryDatum is a category total formatted for the category chart.
type CategoryDatum struct {
	Name     string `json:"name"`
	Points   int    `json:"points"`
	Color    string `json:"color"`
	Gradient string `json:"gradient"`
}

// Projection is the derived, chart-ready view of a snapshot.
type Projection struct {
	SourceVersion    uint64          `json:"-"`
	ChartSeries      []ChartPoint    `json:"chartSeries"`
	RecentActivity   []FeedEntry     `json:"recentActivity"`
	CategoryTotals   map[string]int  `json:"categoryTotals"`
	CategoryData     []CategoryDatum `json:"categoryData"`
	TotalPoints      int             `json:"totalPoints"`
	TotalActivities  int             `json:"totalActivities"`
	TotalRedemptions int             `json:"totalRedemptions"`
}

// View is what consumers receive: the snapshot with the projection flattened onto it.
type View struct {
	Snapshot
	*Projection
}

// Credentials identify the session a caller belongs to.
type Credentials struct {
	Token     string
	Subject   string
	ExpiresAt time.Time
}

// RedemptionResult is the backend answer to a reward redemption.
type RedemptionResult struct {
	RewardID int64           `json:"rewardId"`
	Raw      json.RawMessage `json:"result,omitempty"`
	View     View            `json:"dashboard"`
}
