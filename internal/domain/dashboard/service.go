package dashboard

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"

	apperrors "github.com/yanqian/points-dashboard/pkg/errors"
	"github.com/yanqian/points-dashboard/pkg/util"
)

const (
	defaultFetchTimeout  = 15 * time.Second
	defaultFocusDebounce = 100 * time.Millisecond
	defaultTimelineDays  = 30
)

// Service is the dashboard aggregation cache and refresh orchestrator.
type Service interface {
	// Refresh runs (or joins) the coordinated fetch for the caller's session.
	// Backend failures land in the snapshot; the error is reserved for caller
	// mistakes and the caller's own cancellation.
	Refresh(ctx context.Context, creds Credentials, force bool) (View, error)
	// Current returns the cached view without fetching.
	Current(creds Credentials) (View, error)
	Subscribe(creds Credentials, fn Observer) (func(), error)
	// NotifyVisible coalesces focus and visibility events into one refresh.
	NotifyVisible(creds Credentials) error
	ClearCache(ctx context.Context, creds Credentials) error
	Redeem(ctx context.Context, creds Credentials, rewardID int64) (RedemptionResult, error)
	// Invalidate applies a peer invalidation. Own messages are ignored.
	Invalidate(msg Invalidation) bool
	// Sweep drops expired and idle sessions and reports how many went.
	Sweep(now time.Time) int
}

type service struct {
	cfg        Config
	remote     RemoteClient
	normalizer *Normalizer
	peers      Broadcaster
	logger     *slog.Logger
	instanceID string
	now        func() time.Time

	flight singleflight.Group

	mu       sync.Mutex
	sessions map[string]*session
}

// NewService wires up the dashboard domain. peers may be nil for a single replica.
func NewService(cfg Config, remote RemoteClient, normalizer *Normalizer, peers Broadcaster, logger *slog.Logger) Service {
	if cfg.FetchTimeout <= 0 {
		cfg.FetchTimeout = defaultFetchTimeout
	}
	if cfg.FocusDebounce <= 0 {
		cfg.FocusDebounce = defaultFocusDebounce
	}
	if cfg.TimelineDays <= 0 {
		cfg.TimelineDays = defaultTimelineDays
	}
	if strings.TrimSpace(cfg.TimelineGranularity) == "" {
		cfg.TimelineGranularity = "daily"
	}
	if strings.TrimSpace(cfg.StatsPeriod) == "" {
		cfg.StatsPeriod = "month"
	}
	if cfg.PartialFailure == "" {
		cfg.PartialFailure = PreserveOnFailure
	}
	if cfg.Location == nil {
		cfg.Location = time.Local
	}
	return &service{
		cfg:        cfg,
		remote:     remote,
		normalizer: normalizer,
		peers:      peers,
		logger:     logger.With("component", "dashboard.service"),
		instanceID: uuid.NewString(),
		now:        util.NowUTC,
		sessions:   make(map[string]*session),
	}
}

func (s *service) Refresh(ctx context.Context, creds Credentials, force bool) (View, error) {
	sess, err := s.session(creds)
	if err != nil {
		return View{}, err
	}
	if !force && sess.fresh(s.cfg.StaleAfter, s.now()) {
		return sess.view(), nil
	}

	select {
	case <-s.join(sess, creds.Token):
		return sess.view(), nil
	case <-ctx.Done():
		return sess.view(), ctx.Err()
	}
}

func (s *service) Current(creds Credentials) (View, error) {
	sess, err := s.session(creds)
	if err != nil {
		return View{}, err
	}
	return sess.view(), nil
}

func (s *service) Subscribe(creds Credentials, fn Observer) (func(), error) {
	if fn == nil {
		return nil, apperrors.Wrap(apperrors.CodeInvalidInput, "observer cannot be nil", nil)
	}
	sess, err := s.session(creds)
	if err != nil {
		return nil, err
	}
	return sess.bus.Subscribe(fn), nil
}

func (s *service) NotifyVisible(creds Credentials) error {
	sess, err := s.session(creds)
	if err != nil {
		return err
	}
	sess.schedule(s.cfg.FocusDebounce, func() {
		ctx, cancel := context.WithTimeout(context.Background(), s.cfg.FetchTimeout)
		defer cancel()
		if _, err := s.Refresh(ctx, creds, false); err != nil {
			s.logger.Warn("visibility refresh failed", "session", sess.key, "error", err)
		}
	})
	return nil
}

func (s *service) ClearCache(ctx context.Context, creds Credentials) error {
	sess, err := s.session(creds)
	if err != nil {
		return err
	}
	sess.clear()
	sess.publish()
	s.logger.Info("dashboard cache cleared", "session", sess.key)
	s.broadcast(ctx, sess.key, InvalidateClear)
	return nil
}

func (s *service) Redeem(ctx context.Context, creds Credentials, rewardID int64) (RedemptionResult, error) {
	if rewardID <= 0 {
		return RedemptionResult{}, apperrors.Wrap(apperrors.CodeInvalidInput, "reward id must be positive", nil)
	}
	sess, err := s.session(creds)
	if err != nil {
		return RedemptionResult{}, err
	}
	raw, err := s.remote.RedeemReward(ctx, rewardID, creds.Token)
	if err != nil {
		return RedemptionResult{}, err
	}
	s.logger.Info("reward redeemed", "session", sess.key, "reward_id", rewardID)

	// a fetch that started before the redemption must not satisfy this refresh
	s.flight.Forget(sess.key)
	view, err := s.Refresh(ctx, creds, true)
	if err != nil {
		return RedemptionResult{}, err
	}
	s.broadcast(ctx, sess.key, InvalidateStale)
	return RedemptionResult{RewardID: rewardID, Raw: raw, View: view}, nil
}

func (s *service) Invalidate(msg Invalidation) bool {
	if msg.Origin == s.instanceID {
		return false
	}
	s.mu.Lock()
	sess, ok := s.sessions[msg.SessionKey]
	s.mu.Unlock()
	if !ok {
		return false
	}
	switch msg.Kind {
	case InvalidateClear:
		sess.clear()
	default:
		sess.invalidate()
	}
	sess.publish()
	s.logger.Debug("peer invalidation applied", "session", msg.SessionKey, "kind", msg.Kind)
	if msg.Kind != InvalidateClear && sess.bus.Len() > 0 {
		go s.refetch(sess)
	}
	return true
}

// refetch replaces data a peer marked stale for sessions someone is watching.
// A fetch already in flight may predate the peer's change, so it is not joined.
func (s *service) refetch(sess *session) {
	token := sess.bearer()
	if token == "" {
		return
	}
	s.flight.Forget(sess.key)
	<-s.join(sess, token)
}

// join attaches to the session's in-flight fetch or starts one.
func (s *service) join(sess *session, token string) <-chan singleflight.Result {
	return s.flight.DoChan(sess.key, func() (any, error) {
		s.fetch(sess, token)
		return nil, nil
	})
}

func (s *service) Sweep(now time.Time) int {
	s.mu.Lock()
	var dropped []*session
	for key, sess := range s.sessions {
		if sess.expired(now, s.cfg.SessionIdleTTL) {
			delete(s.sessions, key)
			dropped = append(dropped, sess)
		}
	}
	s.mu.Unlock()
	for _, sess := range dropped {
		sess.stop()
	}
	if len(dropped) > 0 {
		s.logger.Info("dashboard sessions swept", "count", len(dropped))
	}
	return len(dropped)
}

func (s *service) session(creds Credentials) (*session, error) {
	token := strings.TrimSpace(creds.Token)
	if token == "" {
		return nil, apperrors.Wrap(apperrors.CodeUnauthorized, "bearer token required", nil)
	}
	key := SessionKey(token)
	now := s.now()

	s.mu.Lock()
	sess, ok := s.sessions[key]
	if !ok {
		sess = newSession(key, NewProjector(s.cfg.RecentLimit, s.cfg.Location), now)
		s.sessions[key] = sess
	}
	s.mu.Unlock()

	if !ok {
		s.logger.Debug("dashboard session created", "session", key, "subject", creds.Subject)
	}
	sess.touch(creds, now)
	return sess, nil
}

// fetch is the body of the single in-flight fetch of a session. It runs on
// its own deadline so a departing caller does not cancel it for the others.
func (s *service) fetch(sess *session, token string) {
	seq := sess.beginLoading()
	sess.publish()

	ctx, cancel := context.WithTimeout(context.Background(), s.cfg.FetchTimeout)
	defer cancel()

	start := time.Now()
	res := s.fanOut(ctx, token)
	res.elapsed = time.Since(start)

	applied := sess.apply(seq, res, s.cfg.PartialFailure, s.now())
	if failures := res.failures(); failures > 0 {
		s.logger.Warn("dashboard refresh partially failed",
			"session", sess.key,
			"failures", failures,
			"error", res.firstErr())
	}
	s.logger.Info("dashboard refreshed",
		"session", sess.key,
		"applied", applied,
		"calls", res.calls,
		"latency_ms", res.elapsed.Milliseconds())
	sess.publish()
}

// fanOut issues the feed, timeline, stats and rewards calls concurrently and
// waits for all of them; one failing does not stop the others.
func (s *service) fanOut(ctx context.Context, token string) fetchResult {
	var (
		res fetchResult
		wg  sync.WaitGroup
	)
	wg.Add(4)
	go func() {
		defer wg.Done()
		res.feed, res.feedTotals, res.feedErr = s.fetchFeed(ctx, token)
	}()
	go func() {
		defer wg.Done()
		raw, err := s.remote.PointsTimeline(ctx, s.cfg.TimelineGranularity, s.cfg.TimelineDays, token)
		if err != nil {
			res.timelineErr = err
			return
		}
		res.timeline = s.normalizer.Timeline(raw)
	}()
	go func() {
		defer wg.Done()
		raw, err := s.remote.DashboardStats(ctx, s.cfg.StatsPeriod, token)
		if err != nil {
			res.statsErr = err
			return
		}
		res.stats = s.normalizer.Stats(raw)
	}()
	go func() {
		defer wg.Done()
		raw, err := s.remote.AvailableRewards(ctx, token)
		if err != nil {
			res.rewardsErr = err
			return
		}
		res.rewards = s.normalizer.Rewards(raw)
	}()
	wg.Wait()

	res.calls = 4
	if !s.cfg.UnifiedFeed {
		res.calls++
	}
	return res
}

func (s *service) fetchFeed(ctx context.Context, token string) ([]FeedEntry, *FeedTotals, error) {
	if s.cfg.UnifiedFeed {
		raw, err := s.remote.ActivityFeed(ctx, token)
		if err != nil {
			return nil, nil, err
		}
		entries, totals := s.normalizer.Unified(raw)
		return entries, totals, nil
	}

	var (
		activities, redemptions json.RawMessage
		actErr, redErr          error
		wg                      sync.WaitGroup
	)
	wg.Add(2)
	go func() {
		defer wg.Done()
		activities, actErr = s.remote.LegacyActivities(ctx, token)
	}()
	go func() {
		defer wg.Done()
		redemptions, redErr = s.remote.LegacyRedemptions(ctx, token)
	}()
	wg.Wait()
	if actErr != nil {
		return nil, nil, actErr
	}
	if redErr != nil {
		return nil, nil, redErr
	}
	return s.normalizer.Legacy(activities, redemptions), nil, nil
}

func (s *service) broadcast(ctx context.Context, key string, kind InvalidationKind) {
	if s.peers == nil {
		return
	}
	msg := Invalidation{SessionKey: key, Kind: kind, Origin: s.instanceID}
	if err := s.peers.Publish(context.WithoutCancel(ctx), msg); err != nil {
		s.logger.Warn("peer invalidation publish failed", "session", key, "error", err)
	}
}
