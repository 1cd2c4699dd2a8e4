package dashboard

import (
	"sort"
	"sync"
	"time"

	"github.com/yanqian/points-dashboard/pkg/util"
)

const defaultRecentLimit = 10

// Projector derives chart-ready data from a snapshot and memoizes the result
// on the snapshot version: the same pointer is returned until the version moves.
type Projector struct {
	recentLimit int
	location    *time.Location

	mu      sync.Mutex
	last    *Projection
	lastVer uint64
}

// NewProjector builds a projector. recentLimit <= 0 uses 10.
func NewProjector(recentLimit int, loc *time.Location) *Projector {
	if recentLimit <= 0 {
		recentLimit = defaultRecentLimit
	}
	if loc == nil {
		loc = time.Local
	}
	return &Projector{recentLimit: recentLimit, location: loc}
}

// Project returns the projection for snap, recomputing only when snap.Version
// differs from the last computed version.
func (p *Projector) Project(snap Snapshot) *Projection {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.last != nil && p.lastVer == snap.Version {
		return p.last
	}
	p.last = project(snap, p.recentLimit, p.location)
	p.lastVer = snap.Version
	return p.last
}

func project(snap Snapshot, recentLimit int, loc *time.Location) *Projection {
	totals, data := categoryBreakdown(snap.Feed)
	points, activities, redemptions := summaryTotals(snap)
	return &Projection{
		SourceVersion:    snap.Version,
		ChartSeries:      chartSeries(snap, loc),
		RecentActivity:   recentActivity(snap.Feed, recentLimit),
		CategoryTotals:   totals,
		CategoryData:     data,
		TotalPoints:      points,
		TotalActivities:  activities,
		TotalRedemptions: redemptions,
	}
}

// categoryBreakdown sums positive activity points per category. Redemptions
// never contribute.
func categoryBreakdown(feed []FeedEntry) (map[string]int, []CategoryDatum) {
	totals := make(map[string]int)
	var order []string
	for _, entry := range feed {
		if entry.Kind != KindActivity || entry.PointsChange <= 0 {
			continue
		}
		if _, seen := totals[entry.Category]; !seen {
			order = append(order, entry.Category)
		}
		totals[entry.Category] += entry.PointsChange
	}

	colors := newColorAssigner()
	data := make([]CategoryDatum, 0, len(order))
	for _, name := range order {
		s := colors.assign(name)
		data = append(data, CategoryDatum{
			Name:     name,
			Points:   totals[name],
			Color:    s.Color,
			Gradient: s.Gradient,
		})
	}
	sort.SliceStable(data, func(i, j int) bool {
		return data[i].Points > data[j].Points
	})
	return totals, data
}

func recentActivity(feed []FeedEntry, limit int) []FeedEntry {
	sorted := append([]FeedEntry(nil), feed...)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].Timestamp.Equal(sorted[j].Timestamp) {
			return sorted[i].ID > sorted[j].ID
		}
		return sorted[i].Timestamp.After(sorted[j].Timestamp)
	})
	if len(sorted) > limit {
		sorted = sorted[:limit]
	}
	return sorted
}

// summaryTotals prefers the backend's current_period numbers, then the
// counters of the feed envelope, then local sums over the feed. Points are
// earned points, so redemptions are counted but never subtracted.
func summaryTotals(snap Snapshot) (points, activities, redemptions int) {
	if snap.Stats != nil && snap.Stats.Current != nil {
		c := snap.Stats.Current
		return c.TotalPoints, c.TotalActivities, c.TotalRedemptions
	}
	for _, entry := range snap.Feed {
		switch entry.Kind {
		case KindActivity:
			if entry.PointsChange > 0 {
				points += entry.PointsChange
			}
			activities++
		case KindRedemption:
			redemptions++
		}
	}
	if snap.FeedTotals != nil {
		activities = snap.FeedTotals.TotalActivities
		redemptions = snap.FeedTotals.TotalRedemptions
	}
	return points, activities, redemptions
}

// chartSeries uses the backend timeline when present and otherwise buckets
// the feed per calendar day in loc.
func chartSeries(snap Snapshot, loc *time.Location) []ChartPoint {
	if len(snap.Timeline) > 0 {
		series := make([]ChartPoint, 0, len(snap.Timeline))
		running := 0
		for _, row := range snap.Timeline {
			running += row.NetPoints
			series = append(series, ChartPoint{
				Date:       row.Date,
				Earned:     row.PointsEarned,
				Redeemed:   row.PointsRedeemed,
				Net:        row.NetPoints,
				Cumulative: running,
			})
		}
		return series
	}

	buckets := make(map[string]*ChartPoint)
	for _, entry := range snap.Feed {
		if entry.Timestamp.IsZero() {
			continue
		}
		day := util.CalendarDate(entry.Timestamp, loc)
		point, ok := buckets[day]
		if !ok {
			point = &ChartPoint{Date: day}
			buckets[day] = point
		}
		switch {
		case entry.Kind == KindActivity && entry.PointsChange > 0:
			point.Earned += entry.PointsChange
		case entry.Kind == KindRedemption && entry.PointsChange < 0:
			point.Redeemed -= entry.PointsChange
		}
	}
	series := make([]ChartPoint, 0, len(buckets))
	for _, point := range buckets {
		point.Net = point.Earned - point.Redeemed
		series = append(series, *point)
	}
	sort.Slice(series, func(i, j int) bool { return series[i].Date < series[j].Date })
	running := 0
	for i := range series {
		running += series[i].Net
		series[i].Cumulative = running
	}
	return series
}
