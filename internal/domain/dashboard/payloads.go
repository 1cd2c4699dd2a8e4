package dashboard

import (
	"bytes"
	"encoding/json"
	"strings"
)

type rawTimelineRow struct {
	Date             string  `json:"date"`
	PointsEarned     flexInt `json:"points_earned"`
	PointsRedeemed   flexInt `json:"points_redeemed"`
	NetPoints        flexInt `json:"net_points"`
	RedemptionsCount flexInt `json:"redemptions_count"`
}

type rawReward struct {
	ID             flexInt         `json:"id"`
	Name           string          `json:"name"`
	Title          string          `json:"title"`
	PointsRequired flexInt         `json:"points_required"`
	PointCost      flexInt         `json:"point_cost"`
	StockAvailable flexInt         `json:"stock_available"`
	Sponsor        json.RawMessage `json:"sponsor"`
}

type rawPeriodTotals struct {
	TotalPoints      flexInt `json:"total_points"`
	PointsEarned     flexInt `json:"points_earned"`
	TotalActivities  flexInt `json:"total_activities"`
	TotalRedemptions flexInt `json:"total_redemptions"`
}

// Timeline decodes the points timeline; rows keep backend order.
func (n *Normalizer) Timeline(raw json.RawMessage) []TimelineRow {
	keys := []string{"timeline"}
	rows, _, shape := unwrapList(raw, keys...)
	if shape == shapeUnknown {
		n.warnShape("timeline", raw, keys)
	}
	out := make([]TimelineRow, 0, len(rows))
	for _, row := range rows {
		var r rawTimelineRow
		if err := json.Unmarshal(row, &r); err != nil {
			n.logger.Warn("timeline row skipped", "error", err)
			continue
		}
		net := r.NetPoints.int()
		if !r.NetPoints.set {
			net = r.PointsEarned.int() - r.PointsRedeemed.int()
		}
		out = append(out, TimelineRow{
			Date:             strings.TrimSpace(r.Date),
			PointsEarned:     r.PointsEarned.int(),
			PointsRedeemed:   r.PointsRedeemed.int(),
			NetPoints:        net,
			RedemptionsCount: r.RedemptionsCount.int(),
		})
	}
	return out
}

// Rewards decodes the available rewards list from either response shape.
func (n *Normalizer) Rewards(raw json.RawMessage) []Reward {
	keys := []string{"rewards"}
	rows, _, shape := unwrapList(raw, keys...)
	if shape == shapeUnknown {
		n.warnShape("rewards", raw, keys)
	}
	out := make([]Reward, 0, len(rows))
	for _, row := range rows {
		var r rawReward
		if err := json.Unmarshal(row, &r); err != nil {
			n.logger.Warn("reward row skipped", "error", err)
			continue
		}
		cost, _ := firstSet(r.PointsRequired, r.PointCost)
		reward := Reward{
			ID:             r.ID.value,
			Name:           firstNonEmpty(r.Name, r.Title),
			PointsRequired: cost.int(),
			Sponsor:        sponsorName(r.Sponsor),
		}
		if r.StockAvailable.set {
			stock := r.StockAvailable.int()
			reward.StockAvailable = &stock
		}
		out = append(out, reward)
	}
	return out
}

// Stats keeps the payload verbatim and lifts current_period totals when present.
func (n *Normalizer) Stats(raw json.RawMessage) *Stats {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil
	}
	stats := &Stats{Raw: append(json.RawMessage(nil), trimmed...)}
	var envelope struct {
		CurrentPeriod *rawPeriodTotals `json:"current_period"`
	}
	if err := json.Unmarshal(trimmed, &envelope); err != nil {
		n.logger.Warn("stats payload not an object", "error", err)
		return stats
	}
	if cp := envelope.CurrentPeriod; cp != nil {
		points, _ := firstSet(cp.TotalPoints, cp.PointsEarned)
		stats.Current = &PeriodTotals{
			TotalPoints:      points.int(),
			TotalActivities:  cp.TotalActivities.int(),
			TotalRedemptions: cp.TotalRedemptions.int(),
		}
	}
	return stats
}

func sponsorName(raw json.RawMessage) string {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return ""
	}
	var name string
	if err := json.Unmarshal(trimmed, &name); err == nil {
		return strings.TrimSpace(name)
	}
	var obj struct {
		Name string `json:"name"`
	}
	if err := json.Unmarshal(trimmed, &obj); err == nil {
		return strings.TrimSpace(obj.Name)
	}
	return ""
}
