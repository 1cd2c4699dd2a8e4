package dashboard

import (
	"encoding/hex"
	"sync"
	"time"

	"golang.org/x/crypto/blake2b"

	apperrors "github.com/yanqian/points-dashboard/pkg/errors"
	"github.com/yanqian/points-dashboard/pkg/metrics"
)

// SessionKey derives the cache key of a bearer token. Tokens never leave the
// process as keys, so peers and logs only see the digest.
func SessionKey(token string) string {
	sum := blake2b.Sum256([]byte(token))
	return hex.EncodeToString(sum[:16])
}

// session is the aggregation cache of one bearer token.
type session struct {
	key       string
	bus       *Bus
	projector *Projector

	mu        sync.Mutex
	token     string
	snap      Snapshot
	seq       uint64 // last fetch sequence handed out
	floor     uint64 // fetches with seq <= floor are discarded
	inflight  int
	expiresAt time.Time
	lastSeen  time.Time
	debounce  *time.Timer

	// serializes publication so observers see snapshots in version order
	notifyMu sync.Mutex
}

func newSession(key string, projector *Projector, now time.Time) *session {
	return &session{
		key:       key,
		bus:       NewBus(),
		projector: projector,
		snap:      emptySnapshot(0),
		lastSeen:  now,
	}
}

func (s *session) touch(creds Credentials, now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastSeen = now
	s.token = creds.Token
	if !creds.ExpiresAt.IsZero() {
		s.expiresAt = creds.ExpiresAt
	}
}

// bearer returns the token of the latest caller, used for fetches no caller started.
func (s *session) bearer() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.token
}

func (s *session) snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snap.clone()
}

func (s *session) view() View {
	snap := s.snapshot()
	return View{Snapshot: snap, Projection: s.projector.Project(snap)}
}

func (s *session) publish() {
	s.notifyMu.Lock()
	defer s.notifyMu.Unlock()
	s.bus.NotifyAll(s.view())
}

// fresh reports whether a non-forced refresh may reuse the snapshot.
func (s *session) fresh(staleAfter time.Duration, now time.Time) bool {
	if staleAfter <= 0 {
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.snap.LastFetchTime.IsZero() || s.snap.Status != StatusReady {
		return false
	}
	return now.Sub(s.snap.LastFetchTime) < staleAfter
}

// beginLoading hands out a fetch sequence and flips the loading state.
func (s *session) beginLoading() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seq++
	s.inflight++
	s.snap.IsLoading = true
	s.snap.Status = StatusLoading
	return s.seq
}

type fetchResult struct {
	feed        []FeedEntry
	feedTotals  *FeedTotals
	feedErr     error
	timeline    []TimelineRow
	timelineErr error
	stats       *Stats
	statsErr    error
	rewards     []Reward
	rewardsErr  error
	calls       int
	elapsed     time.Duration
}

func (r fetchResult) failures() int {
	n := 0
	for _, err := range []error{r.feedErr, r.timelineErr, r.statsErr, r.rewardsErr} {
		if err != nil {
			n++
		}
	}
	return n
}

func (r fetchResult) firstErr() error {
	for _, err := range []error{r.feedErr, r.timelineErr, r.statsErr, r.rewardsErr} {
		if err != nil {
			return err
		}
	}
	return nil
}

// apply folds a finished fetch into the snapshot. Results of a fetch that was
// overtaken by a newer one, or by a cache clear, are dropped.
func (s *session) apply(seq uint64, res fetchResult, policy PartialFailurePolicy, now time.Time) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.inflight--
	s.snap.IsLoading = s.inflight > 0
	if seq <= s.floor {
		if !s.snap.IsLoading && s.snap.Status == StatusLoading {
			s.snap.Status = settledStatus(s.snap)
		}
		return false
	}
	s.floor = seq

	reset := policy == ResetOnFailure
	snap := &s.snap
	succeeded := 0

	if res.feedErr == nil {
		snap.Feed, snap.FeedTotals = res.feed, res.feedTotals
		succeeded++
	} else if reset {
		snap.Feed, snap.FeedTotals = []FeedEntry{}, nil
	}
	if res.timelineErr == nil {
		snap.Timeline = res.timeline
		succeeded++
	} else if reset {
		snap.Timeline = []TimelineRow{}
	}
	if res.statsErr == nil {
		snap.Stats = res.stats
		succeeded++
	} else if reset {
		snap.Stats = nil
	}
	if res.rewardsErr == nil {
		snap.Rewards = res.rewards
		succeeded++
	} else if reset {
		snap.Rewards = []Reward{}
	}

	failures := res.failures()
	snap.LastFetch = metrics.FetchTiming{
		DurationMs: res.elapsed.Milliseconds(),
		Calls:      res.calls,
		Failures:   failures,
	}
	if err := res.firstErr(); err != nil {
		snap.Error = apperrors.MessageOf(err)
		snap.ErrorCode = apperrors.CodeOf(err)
		snap.Status = StatusPartiallyFailed
	} else {
		snap.Error, snap.ErrorCode = "", ""
		snap.Status = StatusReady
	}
	if snap.IsLoading {
		snap.Status = StatusLoading
	}

	if succeeded > 0 {
		snap.LastFetchTime = now
	}
	if succeeded > 0 || (reset && failures > 0) {
		snap.Version++
	}
	return true
}

func settledStatus(snap Snapshot) Status {
	switch {
	case snap.Error != "":
		return StatusPartiallyFailed
	case snap.LastFetchTime.IsZero():
		return StatusEmpty
	default:
		return StatusReady
	}
}

// clear resets to empty and discards every fetch handed out so far.
func (s *session) clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.floor = s.seq
	s.snap = emptySnapshot(s.snap.Version + 1)
	s.snap.IsLoading = s.inflight > 0
}

// invalidate bumps the version and marks the data stale.
func (s *session) invalidate() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snap.Version++
	s.snap.LastFetchTime = time.Time{}
}

func (s *session) schedule(delay time.Duration, fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.debounce != nil {
		s.debounce.Stop()
	}
	s.debounce = time.AfterFunc(delay, fn)
}

func (s *session) expired(now time.Time, idleTTL time.Duration) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.expiresAt.IsZero() && now.After(s.expiresAt) {
		return true
	}
	if idleTTL <= 0 || s.inflight > 0 || s.bus.Len() > 0 {
		return false
	}
	return now.Sub(s.lastSeen) > idleTTL
}

func (s *session) stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.debounce != nil {
		s.debounce.Stop()
		s.debounce = nil
	}
}
