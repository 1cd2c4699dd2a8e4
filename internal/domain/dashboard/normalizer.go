package dashboard

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/yanqian/points-dashboard/pkg/util"
)

var (
	unifiedFeedKeys      = []string{"feed"}
	legacyActivityKeys   = []string{"activities", "feed"}
	legacyRedemptionKeys = []string{"redemptions", "rewards"}
)

type rawFeedEntry struct {
	ID               flexInt `json:"id"`
	Type             string  `json:"type"`
	Kind             string  `json:"kind"`
	Timestamp        string  `json:"timestamp"`
	CreatedAt        string  `json:"created_at"`
	RedeemedAt       string  `json:"redeemed_at"`
	Date             string  `json:"date"`
	PointsChange     flexInt `json:"points_change"`
	Points           flexInt `json:"points"`
	PointsEarned     flexInt `json:"points_earned"`
	PointsSpent      flexInt `json:"points_spent"`
	ActivityName     string  `json:"activity_name"`
	RewardName       string  `json:"reward_name"`
	Description      string  `json:"description"`
	Category         string  `json:"category"`
	ActivityCategory string  `json:"activity_category"`
}

// Normalizer turns backend feed payloads into canonical feed entries.
type Normalizer struct {
	classifier *Classifier
	location   *time.Location
	logger     *slog.Logger
}

// NewNormalizer builds a normalizer. loc is the calendar used for bare dates.
func NewNormalizer(classifier *Classifier, loc *time.Location, logger *slog.Logger) *Normalizer {
	if classifier == nil {
		classifier = NewClassifier(nil)
	}
	if loc == nil {
		loc = time.Local
	}
	return &Normalizer{
		classifier: classifier,
		location:   loc,
		logger:     logger.With("component", "dashboard.normalizer"),
	}
}

// Unified normalizes the unified activity feed endpoint. Totals are returned
// when the envelope carried them.
func (n *Normalizer) Unified(raw json.RawMessage) ([]FeedEntry, *FeedTotals) {
	rows, obj, shape := unwrapList(raw, unifiedFeedKeys...)
	if shape == shapeUnknown {
		n.warnShape("activity_feed", raw, unifiedFeedKeys)
	}
	entries := make([]FeedEntry, 0, len(rows))
	for _, row := range rows {
		entry, ok := n.decode(row, "")
		if ok {
			entries = append(entries, entry)
		}
	}

	var totals *FeedTotals
	if obj != nil {
		activities, okA := readInt(obj, "totalActivities", "total_activities")
		redemptions, okR := readInt(obj, "totalRedemptions", "total_redemptions")
		if okA || okR {
			totals = &FeedTotals{TotalActivities: activities, TotalRedemptions: redemptions}
		}
	}
	return entries, totals
}

// Legacy merges the split activities and redemptions endpoints. Rows are not
// deduplicated across the two sources.
func (n *Normalizer) Legacy(activities, redemptions json.RawMessage) []FeedEntry {
	actRows, _, actShape := unwrapList(activities, legacyActivityKeys...)
	if actShape == shapeUnknown {
		n.warnShape("activities", activities, legacyActivityKeys)
	}
	redRows, _, redShape := unwrapList(redemptions, legacyRedemptionKeys...)
	if redShape == shapeUnknown {
		n.warnShape("redemptions", redemptions, legacyRedemptionKeys)
	}

	entries := make([]FeedEntry, 0, len(actRows)+len(redRows))
	for _, row := range actRows {
		if entry, ok := n.decode(row, KindActivity); ok {
			entries = append(entries, entry)
		}
	}
	for _, row := range redRows {
		if entry, ok := n.decode(row, KindRedemption); ok {
			entries = append(entries, entry)
		}
	}
	return entries
}

// decode converts one row. forced pins the kind for legacy endpoints; an
// empty forced kind reads it from the row.
func (n *Normalizer) decode(row json.RawMessage, forced EntryKind) (FeedEntry, bool) {
	var raw rawFeedEntry
	if err := json.Unmarshal(row, &raw); err != nil {
		n.logger.Warn("feed row skipped", "error", err)
		return FeedEntry{}, false
	}

	kind := forced
	if kind == "" {
		kind = inferKind(raw)
	}

	rawTS := firstNonEmpty(raw.Timestamp, raw.CreatedAt, raw.RedeemedAt, raw.Date)
	ts, _ := util.ParseTimestamp(rawTS, n.location)

	entry := FeedEntry{
		ID:              raw.ID.value,
		Kind:            kind,
		Timestamp:       ts,
		RawTimestamp:    rawTS,
		PointsChange:    pointsChange(raw, kind),
		categoryHint:    raw.Category,
		altCategoryHint: raw.ActivityCategory,
	}
	entry.Description = firstNonEmpty(raw.ActivityName, raw.RewardName, raw.Description)
	if entry.Description == "" {
		entry.Description = fmt.Sprintf("%s %d", kind.Label(), entry.ID)
	}
	entry.Category = n.classifier.Classify(entry)
	return entry, true
}

func (n *Normalizer) warnShape(source string, raw json.RawMessage, keys []string) {
	preview := strings.TrimSpace(string(raw))
	if len(preview) > 64 {
		preview = preview[:64]
	}
	n.logger.Warn("shape mismatch, treating response as empty",
		"source", source,
		"expected_keys", keys,
		"preview", preview)
}

func inferKind(raw rawFeedEntry) EntryKind {
	tag := strings.ToLower(firstNonEmpty(raw.Type, raw.Kind))
	switch {
	case strings.Contains(tag, "redemption"), strings.Contains(tag, "redeem"), tag == "reward":
		return KindRedemption
	case tag != "":
		return KindActivity
	case raw.RewardName != "" && raw.ActivityName == "":
		return KindRedemption
	default:
		return KindActivity
	}
}

// pointsChange prefers the signed points_change field. Legacy redemption rows
// only carry an unsigned spend, which is stored negative.
func pointsChange(raw rawFeedEntry, kind EntryKind) int {
	if raw.PointsChange.set {
		return raw.PointsChange.int()
	}
	if kind == KindRedemption {
		if v, ok := firstSet(raw.PointsSpent, raw.Points); ok {
			spent := v.int()
			if spent > 0 {
				spent = -spent
			}
			return spent
		}
		return 0
	}
	if v, ok := firstSet(raw.Points, raw.PointsEarned); ok {
		return v.int()
	}
	return 0
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if trimmed := strings.TrimSpace(v); trimmed != "" {
			return trimmed
		}
	}
	return ""
}
