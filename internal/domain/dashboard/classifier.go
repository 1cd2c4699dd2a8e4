package dashboard

import (
	"context"
	"strings"
)

// Category labels produced by the classifier.
const (
	CategorySocial       = "Social"
	CategoryEngagement   = "Engagement"
	CategoryEvents       = "Events"
	CategoryLearning     = "Learning"
	CategoryProfessional = "Professional"
	CategoryContent      = "Content"
	CategoryRewards      = "Rewards"
	CategoryOther        = "Other"
)

// CategoryRule maps description keywords to a category. Rules are evaluated
// in order and the first rule with a matching keyword wins.
type CategoryRule struct {
	Category string
	Keywords []string
}

// RuleSource loads the keyword rule table, e.g. from Postgres.
type RuleSource interface {
	LoadRules(ctx context.Context) ([]CategoryRule, error)
}

// DefaultRules is the built-in keyword table.
func DefaultRules() []CategoryRule {
	return []CategoryRule{
		{Category: CategorySocial, Keywords: []string{"linkedin", "social media", "twitter", "instagram"}},
		{Category: CategoryEngagement, Keywords: []string{"discord", "community", "engagement"}},
		{Category: CategoryEvents, Keywords: []string{"event", "workshop", "hackathon", "webinar"}},
		{Category: CategoryLearning, Keywords: []string{"course", "learning", "tutorial", "lesson"}},
		{Category: CategoryProfessional, Keywords: []string{"professional", "career", "resume", "interview"}},
		{Category: CategoryContent, Keywords: []string{"content", "blog", "article", "video"}},
	}
}

// Classifier assigns categories to feed entries. It is immutable after
// construction, so Classify is deterministic for a given instance.
type Classifier struct {
	rules []CategoryRule
}

// NewClassifier freezes a copy of rules. An empty table falls back to DefaultRules.
func NewClassifier(rules []CategoryRule) *Classifier {
	if len(rules) == 0 {
		rules = DefaultRules()
	}
	frozen := make([]CategoryRule, 0, len(rules))
	for _, rule := range rules {
		category := strings.TrimSpace(rule.Category)
		if category == "" {
			continue
		}
		keywords := make([]string, 0, len(rule.Keywords))
		for _, kw := range rule.Keywords {
			if kw = strings.ToLower(strings.TrimSpace(kw)); kw != "" {
				keywords = append(keywords, kw)
			}
		}
		if len(keywords) == 0 {
			continue
		}
		frozen = append(frozen, CategoryRule{Category: category, Keywords: keywords})
	}
	return &Classifier{rules: frozen}
}

// Classify resolves the category of entry: backend hints first, then
// keyword rules over the description, then Rewards for redemptions, else Other.
func (c *Classifier) Classify(entry FeedEntry) string {
	if hint := strings.TrimSpace(entry.categoryHint); hint != "" {
		return hint
	}
	if hint := strings.TrimSpace(entry.altCategoryHint); hint != "" {
		return hint
	}
	desc := strings.ToLower(entry.Description)
	for _, rule := range c.rules {
		for _, kw := range rule.Keywords {
			if strings.Contains(desc, kw) {
				return rule.Category
			}
		}
	}
	if entry.Kind == KindRedemption {
		return CategoryRewards
	}
	return CategoryOther
}
