// Package authcookie guesses whether the user is signed in to a site from the
// names and values of its cookies. It is a reporting heuristic, not a
// security check: false positives and negatives are acceptable.
package authcookie

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/vincentbai/visittrace-agent/internal/models"
)

// ValuePredicate rejects cookie values that look like a "logged out" marker.
type ValuePredicate struct {
	FalsyValues     []string // exact, case-sensitive
	FalsySubstrings []string // substring, case-sensitive
}

func DefaultValuePredicate() ValuePredicate {
	return ValuePredicate{
		FalsyValues:     []string{"false", "no", "n"},
		FalsySubstrings: []string{"false", "undefined", "null", "unspecified"},
	}
}

// Accepts reports whether value is plausible for a signed-in session.
func (p ValuePredicate) Accepts(value string) bool {
	if value == "" {
		return false
	}
	for _, falsy := range p.FalsyValues {
		if value == falsy {
			return false
		}
	}
	for _, falsy := range p.FalsySubstrings {
		if strings.Contains(value, falsy) {
			return false
		}
	}
	return true
}

type Heuristic struct {
	patterns  []*regexp.Regexp
	predicate ValuePredicate
}

// New compiles patterns case-insensitively, keeping their order.
func New(patterns []string, predicate ValuePredicate) (*Heuristic, error) {
	compiled := make([]*regexp.Regexp, 0, len(patterns))
	for _, pattern := range patterns {
		re, err := regexp.Compile("(?i)" + pattern)
		if err != nil {
			return nil, fmt.Errorf("compile auth cookie pattern %q: %w", pattern, err)
		}
		compiled = append(compiled, re)
	}
	return &Heuristic{patterns: compiled, predicate: predicate}, nil
}

// Authenticated returns true on the first cookie whose name matches a pattern
// and whose value passes the predicate.
func (h *Heuristic) Authenticated(cookies []models.Cookie) bool {
	for _, cookie := range cookies {
		if h.matchesName(cookie.Name) && h.predicate.Accepts(cookie.Value) {
			return true
		}
	}
	return false
}

func (h *Heuristic) matchesName(name string) bool {
	for _, re := range h.patterns {
		if re.MatchString(name) {
			return true
		}
	}
	return false
}
