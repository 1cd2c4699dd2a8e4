package dashboard

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestClassifyKeywordRules(t *testing.T) {
	c := NewClassifier(nil)

	cases := map[string]string{
		"Shared on LinkedIn":         CategorySocial,
		"Helped in the Discord":      CategoryEngagement,
		"Completed workshop":         CategoryEvents,
		"Finished the Go course":     CategoryLearning,
		"Resume review":              CategoryProfessional,
		"Wrote a blog article":       CategoryContent,
		"Something nobody predicted": CategoryOther,
	}
	for desc, want := range cases {
		got := c.Classify(FeedEntry{Kind: KindActivity, Description: desc})
		require.Equal(t, want, got, desc)
	}
}

func TestClassifyRedemptionWithoutKeyword(t *testing.T) {
	c := NewClassifier(nil)

	require.Equal(t, CategoryRewards, c.Classify(FeedEntry{Kind: KindRedemption, Description: "Hoodie"}))
	// keywords still win for redemptions
	require.Equal(t, CategoryEvents, c.Classify(FeedEntry{Kind: KindRedemption, Description: "Hackathon ticket"}))
}

func TestClassifyFirstRuleWins(t *testing.T) {
	c := NewClassifier([]CategoryRule{
		{Category: "First", Keywords: []string{" Video "}},
		{Category: "Second", Keywords: []string{"video"}},
		{Category: "", Keywords: []string{"ignored"}},
	})

	require.Equal(t, "First", c.Classify(FeedEntry{Description: "Recorded a VIDEO"}))
	require.Equal(t, CategoryOther, c.Classify(FeedEntry{Description: "ignored"}))
}
