// Package tracker turns tab navigations into deduplicated visit events.
package tracker

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/vincentbai/visittrace-agent/internal/metrics"
	"github.com/vincentbai/visittrace-agent/internal/models"
)

type Classifier interface {
	Classify(rawURL string) (domain string, tracked bool)
}

// CookieStore lists the cookies visible for a domain and its subdomains.
type CookieStore interface {
	Cookies(ctx context.Context, domain string) ([]models.Cookie, error)
}

type AuthHeuristic interface {
	Authenticated(cookies []models.Cookie) bool
}

type Reporter interface {
	Report(ctx context.Context, event models.VisitEvent) error
}

// Outcome is what happened to one navigation.
type Outcome string

const (
	Untracked  Outcome = metrics.OutcomeUntracked
	Suppressed Outcome = metrics.OutcomeSuppressed
	Emitted    Outcome = metrics.OutcomeEmitted
	Failed     Outcome = metrics.OutcomeFailed
)

type Deps struct {
	Classifier Classifier
	Cookies    CookieStore
	Heuristic  AuthHeuristic
	Reporter   Reporter
	Metrics    *metrics.Metrics
	Logger     *zap.Logger
	Now        func() time.Time
}

// Tracker owns the identity and dedup cache for one user.
type Tracker struct {
	identity models.Identity
	policy   Policy
	deps     Deps

	mu      sync.Mutex
	records map[string]models.VisitRecord
}

func New(identity models.Identity, policy Policy, deps Deps) *Tracker {
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	return &Tracker{
		identity: identity,
		policy:   policy,
		deps:     deps,
		records:  make(map[string]models.VisitRecord),
	}
}

// HandleNavigation processes one tab URL change.
//
// The cache lock is only held around reads and writes, never across the cookie
// lookup or the report, so two concurrent navigations to the same domain can
// both emit; the last successful write wins.
func (t *Tracker) HandleNavigation(ctx context.Context, rawURL string) Outcome {
	domain, tracked := t.deps.Classifier.Classify(rawURL)
	if !tracked {
		t.deps.Metrics.ObserveNavigation(string(Untracked))
		return Untracked
	}

	authenticated := t.authenticated(ctx, domain)
	now := t.deps.Now()

	previous, found := t.Record(domain)
	if !t.policy.ShouldEmit(previous, found, authenticated, now) {
		t.deps.Metrics.ObserveNavigation(string(Suppressed))
		return Suppressed
	}

	outcome := t.deliver(ctx, domain, authenticated, now)
	t.deps.Metrics.ObserveNavigation(string(outcome))
	return outcome
}

// deliver reports the visit and commits the new record only on success. A
// failed delivery keeps the previous record, so the next qualifying
// navigation to the domain emits again. There is no other retry.
func (t *Tracker) deliver(ctx context.Context, domain string, authenticated bool, now time.Time) Outcome {
	event := models.VisitEvent{
		UserID:         t.identity.UserID,
		UserEmail:      t.identity.UserEmail,
		Domain:         domain,
		HasAuthCookies: authenticated,
		Date:           now.UTC().Truncate(time.Millisecond),
	}
	if err := t.deps.Reporter.Report(ctx, event); err != nil {
		t.deps.Logger.Warn("visit delivery failed",
			zap.String("domain", domain),
			zap.Bool("has_auth_cookies", authenticated),
			zap.Error(err))
		return Failed
	}

	t.mu.Lock()
	t.records[domain] = models.VisitRecord{LastVisit: now, HasAuthCookies: authenticated}
	size := len(t.records)
	t.mu.Unlock()
	t.deps.Metrics.SetDedupRecords(size)

	t.deps.Logger.Debug("visit emitted",
		zap.String("domain", domain),
		zap.Bool("has_auth_cookies", authenticated))
	return Emitted
}

// authenticated fails closed: a cookie store error means "not signed in".
func (t *Tracker) authenticated(ctx context.Context, domain string) bool {
	cookies, err := t.deps.Cookies.Cookies(ctx, domain)
	if err != nil {
		t.deps.Logger.Debug("cookie lookup failed", zap.String("domain", domain), zap.Error(err))
		return false
	}
	return t.deps.Heuristic.Authenticated(cookies)
}

// Record returns the cached visit record for domain.
func (t *Tracker) Record(domain string) (models.VisitRecord, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	record, ok := t.records[domain]
	return record, ok
}

func (t *Tracker) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.records)
}

// Prune drops records last emitted more than maxAge before now and returns
// how many were removed.
func (t *Tracker) Prune(now time.Time, maxAge time.Duration) int {
	t.mu.Lock()
	removed := 0
	for domain, record := range t.records {
		if now.Sub(record.LastVisit) > maxAge {
			delete(t.records, domain)
			removed++
		}
	}
	size := len(t.records)
	t.mu.Unlock()

	t.deps.Metrics.SetDedupRecords(size)
	return removed
}

// RunJanitor prunes the cache every interval until ctx is cancelled.
func (t *Tracker) RunJanitor(ctx context.Context, interval, maxAge time.Duration) {
	t.deps.Logger.Info("dedup janitor started",
		zap.Duration("interval", interval),
		zap.Duration("max_age", maxAge))

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			t.deps.Logger.Info("dedup janitor stopped")
			return
		case <-ticker.C:
			if removed := t.Prune(t.deps.Now(), maxAge); removed > 0 {
				t.deps.Logger.Debug("pruned dedup records", zap.Int("removed", removed))
			}
		}
	}
}
