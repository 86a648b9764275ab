// Package domains maps navigated URLs to registrable domains and decides
// whether they fall under the tracked allow-list.
package domains

import (
	"net"
	"net/url"
	"strings"

	"golang.org/x/net/publicsuffix"
)

// Set is an immutable set of tracked registrable domains.
type Set struct {
	members map[string]struct{}
}

func NewSet(domains []string) Set {
	members := make(map[string]struct{}, len(domains))
	for _, d := range domains {
		d = normalizeHost(d)
		if d == "" {
			continue
		}
		members[d] = struct{}{}
	}
	return Set{members: members}
}

func (s Set) Contains(domain string) bool {
	_, ok := s.members[domain]
	return ok
}

func (s Set) Len() int {
	return len(s.members)
}

// Classifier resolves URLs against a tracked domain set.
type Classifier struct {
	tracked Set
}

func NewClassifier(tracked Set) *Classifier {
	return &Classifier{tracked: tracked}
}

// Classify returns the registrable domain of rawURL and whether it is tracked.
// Malformed or host-less URLs are reported as not tracked.
func (c *Classifier) Classify(rawURL string) (string, bool) {
	domain, ok := RegistrableDomain(rawURL)
	if !ok || !c.tracked.Contains(domain) {
		return "", false
	}
	return domain, true
}

// RegistrableDomain reduces the hostname of rawURL to eTLD+1
// (app.example.co.uk -> example.co.uk).
func RegistrableDomain(rawURL string) (string, bool) {
	if rawURL == "" {
		return "", false
	}
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return "", false
	}
	host := normalizeHost(parsed.Hostname())
	if host == "" || net.ParseIP(host) != nil {
		return "", false
	}
	domain, err := publicsuffix.EffectiveTLDPlusOne(host)
	if err != nil {
		return "", false
	}
	return domain, true
}

func normalizeHost(host string) string {
	return strings.TrimSuffix(strings.ToLower(strings.TrimSpace(host)), ".")
}
