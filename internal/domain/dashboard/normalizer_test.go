package dashboard

import (
	"encoding/json"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestNormalizer() *Normalizer {
	return NewNormalizer(NewClassifier(nil), time.UTC, newTestLogger())
}

func TestLegacyRedemptionsAcceptBothShapes(t *testing.T) {
	n := newTestNormalizer()
	row := `{"id":7,"reward_name":"Coffee voucher","points_spent":30,"redeemed_at":"2024-03-02T10:00:00Z"}`

	bare := n.Legacy(nil, json.RawMessage(`[`+row+`]`))
	wrapped := n.Legacy(nil, json.RawMessage(`{"rewards":[`+row+`]}`))
	keyed := n.Legacy(nil, json.RawMessage(`{"redemptions":[`+row+`]}`))

	require.Len(t, bare, 1)
	require.Equal(t, bare, wrapped)
	require.Equal(t, bare, keyed)
	require.Equal(t, KindRedemption, bare[0].Kind)
	require.Equal(t, -30, bare[0].PointsChange)
	require.Equal(t, CategoryRewards, bare[0].Category)
}

func TestUnifiedFeedAcceptsBothShapes(t *testing.T) {
	n := newTestNormalizer()
	rows := `[{"id":1,"type":"activity","timestamp":"2024-01-01","points_change":100,"activity_name":"Completed workshop"},` +
		`{"id":2,"type":"redemption","timestamp":"2024-01-02T09:30:00Z","points_change":-40,"reward_name":"Hoodie"}]`

	bare, bareTotals := n.Unified(json.RawMessage(rows))
	wrapped, totals := n.Unified(json.RawMessage(`{"feed":` + rows + `,"totalActivities":12,"total_redemptions":"3"}`))

	require.Equal(t, bare, wrapped)
	require.Nil(t, bareTotals)
	require.Equal(t, &FeedTotals{TotalActivities: 12, TotalRedemptions: 3}, totals)
	require.Equal(t, CategoryEvents, bare[0].Category)
	require.Equal(t, KindRedemption, bare[1].Kind)
}

func TestFallbackDescription(t *testing.T) {
	n := newTestNormalizer()

	entries := n.Legacy(nil, json.RawMessage(`[{"id":42}]`))
	require.Len(t, entries, 1)
	require.Equal(t, "Reward 42", entries[0].Description)

	entries = n.Legacy(json.RawMessage(`[{"id":"9"}]`), nil)
	require.Len(t, entries, 1)
	require.Equal(t, "Activity 9", entries[0].Description)
}

func TestBareDateIsLocalCalendarDay(t *testing.T) {
	loc := time.FixedZone("PST", -8*60*60)
	n := NewNormalizer(NewClassifier(nil), loc, newTestLogger())

	entries := n.Legacy(json.RawMessage(`[{"id":1,"date":"2024-01-01","points":5}]`), nil)
	require.Len(t, entries, 1)
	require.Equal(t, "2024-01-01", entries[0].Timestamp.In(loc).Format("2006-01-02"))
	require.Equal(t, "2024-01-01", entries[0].RawTimestamp)
}

func TestUnknownShapeIsEmpty(t *testing.T) {
	n := newTestNormalizer()

	entries, totals := n.Unified(json.RawMessage(`{"items":[{"id":1}]}`))
	require.Empty(t, entries)
	require.Nil(t, totals)

	entries, _ = n.Unified(json.RawMessage(`null`))
	require.Empty(t, entries)

	require.Empty(t, n.Legacy(json.RawMessage(`"oops"`), json.RawMessage(`42`)))
}

func TestBackendCategoryHintWins(t *testing.T) {
	n := newTestNormalizer()

	entries := n.Legacy(json.RawMessage(`[
		{"id":1,"activity_name":"LinkedIn post","category":"Marketing"},
		{"id":2,"activity_name":"LinkedIn post","activity_category":"Outreach"},
		{"id":3,"activity_name":"LinkedIn post"}
	]`), nil)

	require.Len(t, entries, 3)
	require.Equal(t, "Marketing", entries[0].Category)
	require.Equal(t, "Outreach", entries[1].Category)
	require.Equal(t, CategorySocial, entries[2].Category)
}

func TestMalformedRowIsSkipped(t *testing.T) {
	n := newTestNormalizer()

	entries := n.Legacy(json.RawMessage(`[{"id":"not-a-number"},{"id":2,"points":10}]`), nil)
	require.Len(t, entries, 1)
	require.Equal(t, int64(2), entries[0].ID)
	require.Equal(t, 10, entries[0].PointsChange)
}

func TestPayloadDecoders(t *testing.T) {
	n := newTestNormalizer()

	timeline := n.Timeline(json.RawMessage(`{"timeline":[{"date":"2024-01-01","points_earned":50,"points_redeemed":20,"redemptions_count":1}]}`))
	require.Equal(t, []TimelineRow{{Date: "2024-01-01", PointsEarned: 50, PointsRedeemed: 20, NetPoints: 30, RedemptionsCount: 1}}, timeline)

	rewards := n.Rewards(json.RawMessage(`[{"id":3,"title":"Mug","point_cost":"150","stock_available":0,"sponsor":{"name":"Acme"}},{"id":4,"name":"Sticker","points_required":10,"sponsor":"Beta"}]`))
	require.Len(t, rewards, 2)
	require.Equal(t, "Mug", rewards[0].Name)
	require.Equal(t, 150, rewards[0].PointsRequired)
	require.NotNil(t, rewards[0].StockAvailable)
	require.Equal(t, 0, *rewards[0].StockAvailable)
	require.Equal(t, "Acme", rewards[0].Sponsor)
	require.Nil(t, rewards[1].StockAvailable)
	require.Equal(t, "Beta", rewards[1].Sponsor)

	stats := n.Stats(json.RawMessage(`{"current_period":{"points_earned":90,"total_activities":4,"total_redemptions":1},"trend":{"points":0.2}}`))
	require.NotNil(t, stats)
	require.Equal(t, &PeriodTotals{TotalPoints: 90, TotalActivities: 4, TotalRedemptions: 1}, stats.Current)
	require.JSONEq(t, `{"current_period":{"points_earned":90,"total_activities":4,"total_redemptions":1},"trend":{"points":0.2}}`, string(stats.Raw))

	require.Nil(t, n.Stats(json.RawMessage(`null`)))
}
