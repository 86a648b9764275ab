package models

import "time"

// Navigation is one tab URL change forwarded by the extension.
type Navigation struct {
	TabID int    `json:"tab_id"`
	URL   string `json:"url"` // may be empty on some updates
}

type Cookie struct {
	Domain string `json:"domain"`
	Name   string `json:"name"`
	Value  string `json:"value"`
	Path   string `json:"path"`
}

// CookieChange mirrors a single cookies.onChanged notification.
type CookieChange struct {
	Cookie  Cookie `json:"cookie"`
	Removed bool   `json:"removed"`
	Cause   string `json:"cause,omitempty"` // explicit|overwrite|expired|evicted|expired_overwrite
}

type CookieBatch struct {
	Changes []CookieChange `json:"changes"`
}

type Identity struct {
	UserID    string
	UserEmail string
}

// VisitRecord is the dedup state kept for one registrable domain.
type VisitRecord struct {
	LastVisit      time.Time
	HasAuthCookies bool
}

// VisitEvent is the payload posted to the collection endpoint.
type VisitEvent struct {
	UserID         string    `json:"userId"`
	UserEmail      string    `json:"userEmail"`
	Domain         string    `json:"domain"`
	HasAuthCookies bool      `json:"hasAuthCookies"`
	Date           time.Time `json:"date"`
}
