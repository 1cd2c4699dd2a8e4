package main

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/valkey-io/valkey-go"

	"github.com/yanqian/points-dashboard/internal/domain/dashboard"
	"github.com/yanqian/points-dashboard/internal/infra/backend"
	"github.com/yanqian/points-dashboard/internal/infra/config"
	"github.com/yanqian/points-dashboard/internal/infra/identity"
	"github.com/yanqian/points-dashboard/internal/infra/invalidation"
	"github.com/yanqian/points-dashboard/internal/infra/rulerepo"
	httpiface "github.com/yanqian/points-dashboard/internal/interface/http"
)

func provideDashboardConfig(cfg *config.Config) (dashboard.Config, error) {
	loc, err := cfg.Location()
	if err != nil {
		return dashboard.Config{}, fmt.Errorf("load dashboard timezone: %w", err)
	}
	return dashboard.Config{
		StaleAfter:          cfg.Dashboard.StaleAfter,
		FetchTimeout:        cfg.Dashboard.FetchTimeout,
		FocusDebounce:       cfg.Dashboard.FocusDebounce,
		SessionIdleTTL:      cfg.Dashboard.SessionIdleTTL,
		RecentLimit:         cfg.Dashboard.RecentLimit,
		TimelineGranularity: cfg.Dashboard.TimelineGranularity,
		TimelineDays:        cfg.Dashboard.TimelineDays,
		StatsPeriod:         cfg.Dashboard.StatsPeriod,
		UnifiedFeed:         cfg.Backend.UnifiedFeed,
		PartialFailure:      dashboard.PartialFailurePolicy(cfg.Dashboard.PartialFailure),
		Location:            loc,
	}, nil
}

func provideBackendClient(cfg *config.Config, logger *slog.Logger) *backend.Client {
	opts := backend.Options{
		BaseURL:    cfg.Backend.BaseURL,
		Timeout:    cfg.Backend.Timeout,
		RatePerSec: cfg.Backend.RatePerSec,
		Burst:      cfg.Backend.Burst,
	}
	if cfg.Backend.Retry.Enabled {
		opts.MaxAttempts = cfg.Backend.Retry.MaxAttempts
		opts.BaseBackoff = cfg.Backend.Retry.BaseBackoff
	}
	return backend.NewClient(opts, logger)
}

func provideRuleSource(cfg *config.Config, logger *slog.Logger) dashboard.RuleSource {
	fallback := rulerepo.NewMemoryRepository()
	dsn := strings.TrimSpace(cfg.Categories.Postgres.DSN)
	if dsn == "" {
		logger.Info("category postgres dsn not set, using built-in rules")
		return fallback
	}
	poolConfig, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		logger.Error("invalid postgres dsn, using built-in rules", "error", err)
		return fallback
	}
	if cfg.Categories.Postgres.MaxConns > 0 {
		poolConfig.MaxConns = cfg.Categories.Postgres.MaxConns
	}
	if cfg.Categories.Postgres.MinConns > 0 {
		poolConfig.MinConns = cfg.Categories.Postgres.MinConns
	}
	pool, err := pgxpool.NewWithConfig(context.Background(), poolConfig)
	if err != nil {
		logger.Error("failed to initialize postgres pool, using built-in rules", "error", err)
		return fallback
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := pool.Ping(ctx); err != nil {
		logger.Error("postgres ping failed, using built-in rules", "error", err)
		pool.Close()
		return fallback
	}
	logger.Info("category rules loaded from postgres")
	return rulerepo.NewPostgresRepository(pool)
}

// provideClassifier loads the rule table once; the classifier is immutable afterwards.
func provideClassifier(source dashboard.RuleSource, logger *slog.Logger) *dashboard.Classifier {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	rules, err := source.LoadRules(ctx)
	if err != nil {
		logger.Error("loading category rules failed, using built-in rules", "error", err)
		return dashboard.NewClassifier(nil)
	}
	if len(rules) == 0 {
		logger.Warn("category rule table empty, using built-in rules")
	}
	return dashboard.NewClassifier(rules)
}

func provideNormalizer(classifier *dashboard.Classifier, cfg dashboard.Config, logger *slog.Logger) *dashboard.Normalizer {
	return dashboard.NewNormalizer(classifier, cfg.Location, logger)
}

func provideInvalidationBus(cfg *config.Config, logger *slog.Logger) invalidation.Bus {
	vcfg := cfg.Invalidation.Valkey
	if vcfg.Enabled {
		opt, err := buildValkeyOptions(vcfg.Addr)
		if err != nil {
			logger.Error("invalid valkey configuration, falling back to in-process invalidation", "error", err)
			return invalidation.NewMemoryBus()
		}
		client, err := valkey.NewClient(opt)
		if err != nil {
			logger.Error("failed to create valkey client, falling back to in-process invalidation", "error", err)
			return invalidation.NewMemoryBus()
		}
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := client.Do(ctx, client.B().Ping().Build()).Error(); err != nil {
			logger.Error("valkey ping failed, falling back to in-process invalidation", "error", err)
			client.Close()
		} else {
			logger.Info("valkey invalidation enabled", "addr", vcfg.Addr, "channel", vcfg.Channel)
			return invalidation.NewValkeyBus(client, vcfg.Channel, logger)
		}
	}
	return invalidation.NewMemoryBus()
}

func provideBroadcaster(bus invalidation.Bus) dashboard.Broadcaster {
	return bus
}

func provideVerifier(cfg *config.Config, logger *slog.Logger) (httpiface.TokenVerifier, error) {
	issuer := strings.TrimSpace(cfg.Identity.Issuer)
	if issuer == "" {
		logger.Info("identity issuer not set, reading bearer claims without verification")
		return identity.NewClaimsReader(), nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	verifier, err := identity.NewOIDCVerifier(ctx, issuer, cfg.Identity.ClientID)
	if err != nil {
		return nil, err
	}
	logger.Info("oidc token verification enabled", "issuer", issuer)
	return verifier, nil
}

func buildValkeyOptions(addr string) (valkey.ClientOption, error) {
	if strings.Contains(addr, "://") {
		return valkey.ParseURL(addr)
	}
	return valkey.ClientOption{InitAddress: []string{addr}}, nil
}
