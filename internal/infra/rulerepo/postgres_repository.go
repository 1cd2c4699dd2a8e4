package rulerepo

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/yanqian/points-dashboard/internal/domain/dashboard"
)

// PostgresRepository loads category keyword rules from the category_rules table:
//
//	CREATE TABLE category_rules (
//	    id        BIGSERIAL PRIMARY KEY,
//	    category  TEXT    NOT NULL,
//	    keywords  TEXT[]  NOT NULL,
//	    priority  INT     NOT NULL DEFAULT 100,
//	    active    BOOLEAN NOT NULL DEFAULT TRUE
//	);
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRepository constructs the repository.
func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{pool: pool}
}

// LoadRules implements dashboard.RuleSource. Lower priority values are evaluated first.
func (r *PostgresRepository) LoadRules(ctx context.Context) ([]dashboard.CategoryRule, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT category, keywords
		FROM category_rules
		WHERE active
		ORDER BY priority, id
	`)
	if err != nil {
		return nil, fmt.Errorf("query category rules: %w", err)
	}
	defer rows.Close()

	var rules []dashboard.CategoryRule
	for rows.Next() {
		var rule dashboard.CategoryRule
		if err := rows.Scan(&rule.Category, &rule.Keywords); err != nil {
			return nil, fmt.Errorf("scan category rule: %w", err)
		}
		rules = append(rules, rule)
	}
	return rules, rows.Err()
}
