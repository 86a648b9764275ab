package main

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/vincentbai/visittrace-agent/internal/authcookie"
	"github.com/vincentbai/visittrace-agent/internal/config"
	"github.com/vincentbai/visittrace-agent/internal/domains"
	"github.com/vincentbai/visittrace-agent/internal/identity"
	"github.com/vincentbai/visittrace-agent/internal/logger"
	"github.com/vincentbai/visittrace-agent/internal/metrics"
	"github.com/vincentbai/visittrace-agent/internal/reporter"
	"github.com/vincentbai/visittrace-agent/internal/tracker"
)

// buildTracker acquires the user identity and assembles the tracker around it.
func buildTracker(ctx context.Context, cfg *config.AppConfig, cookies tracker.CookieStore, m *metrics.Metrics, lg *zap.Logger) (*tracker.Tracker, error) {
	heuristic, err := authcookie.New(cfg.Tracking.AuthCookiePatterns, authcookie.ValuePredicate{
		FalsyValues:     cfg.Tracking.FalsyValues,
		FalsySubstrings: cfg.Tracking.FalsySubstrings,
	})
	if err != nil {
		return nil, err
	}
	days, err := tracker.ParseDayComparison(cfg.Dedup.DayComparison)
	if err != nil {
		return nil, err
	}

	provider, err := identity.FromConfig(cfg.Identity)
	if err != nil {
		return nil, err
	}
	id, err := provider.Identity(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquire identity: %w", err)
	}

	tracked := domains.NewSet(cfg.Tracking.Domains)
	lg.Info("visit tracking enabled",
		zap.String("user_id", id.UserID),
		zap.String("user_email", logger.MaskEmail(id.UserEmail)),
		zap.Int("tracked_domains", tracked.Len()),
		zap.Stringer("day_comparison", days))

	return tracker.New(id, tracker.Policy{Days: days}, tracker.Deps{
		Classifier: domains.NewClassifier(tracked),
		Cookies:    cookies,
		Heuristic:  heuristic,
		Reporter:   reporter.NewHTTPReporter(cfg.Collector.URL, cfg.Reporter.Timeout),
		Metrics:    m,
		Logger:     lg,
	}), nil
}
