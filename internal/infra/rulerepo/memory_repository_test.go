package rulerepo

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/yanqian/points-dashboard/internal/domain/dashboard"
)

func TestMemoryRepositoryDefaultsAndCopies(t *testing.T) {
	repo := NewMemoryRepository()

	rules, err := repo.LoadRules(context.Background())
	require.NoError(t, err)
	require.Equal(t, dashboard.DefaultRules(), rules)

	rules[0].Keywords[0] = "mutated"
	again, err := repo.LoadRules(context.Background())
	require.NoError(t, err)
	require.Equal(t, dashboard.DefaultRules()[0].Keywords[0], again[0].Keywords[0])
}

func TestMemoryRepositoryFeedsClassifier(t *testing.T) {
	repo := NewMemoryRepository(dashboard.CategoryRule{Category: "Mentoring", Keywords: []string{"mentor"}})

	rules, err := repo.LoadRules(context.Background())
	require.NoError(t, err)
	classifier := dashboard.NewClassifier(rules)
	require.Equal(t, "Mentoring", classifier.Classify(dashboard.FeedEntry{Description: "Mentored a newcomer"}))

	repo.Replace(nil)
	rules, err = repo.LoadRules(context.Background())
	require.NoError(t, err)
	require.Empty(t, rules)
}
