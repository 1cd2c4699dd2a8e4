package rulerepo

import (
	"context"
	"sync"

	"github.com/yanqian/points-dashboard/internal/domain/dashboard"
)

// MemoryRepository serves the keyword rules from memory, used for tests/dev.
type MemoryRepository struct {
	mu    sync.RWMutex
	rules []dashboard.CategoryRule
}

// NewMemoryRepository seeds the repository. No rules means the built-in table.
func NewMemoryRepository(rules ...dashboard.CategoryRule) *MemoryRepository {
	if len(rules) == 0 {
		rules = dashboard.DefaultRules()
	}
	return &MemoryRepository{rules: copyRules(rules)}
}

// LoadRules implements dashboard.RuleSource.
func (r *MemoryRepository) LoadRules(_ context.Context) ([]dashboard.CategoryRule, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return copyRules(r.rules), nil
}

// Replace swaps the whole table.
func (r *MemoryRepository) Replace(rules []dashboard.CategoryRule) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rules = copyRules(rules)
}

func copyRules(rules []dashboard.CategoryRule) []dashboard.CategoryRule {
	out := make([]dashboard.CategoryRule, len(rules))
	for i, rule := range rules {
		out[i] = dashboard.CategoryRule{
			Category: rule.Category,
			Keywords: append([]string(nil), rule.Keywords...),
		}
	}
	return out
}
