package models

import (
	"time"

	"github.com/google/uuid"
)

// Visit is an append-only record of one redirect.
type Visit struct {
	ID        uuid.UUID `json:"id"`
	LinkID    uuid.UUID `json:"link_id"`
	Namespace Namespace `json:"namespace"`
	VisitedAt time.Time `json:"visited_at"`
	UserAgent *string   `json:"user_agent"`
	Referrer  *string   `json:"referrer"`
	IP        *string   `json:"ip"`
	Country   *string   `json:"country"`
	Region    *string   `json:"region"`
	City      *string   `json:"city"`
}

// RequestMeta is the request metadata captured at redirect time.
type RequestMeta struct {
	IP        string
	UserAgent string
	Referrer  string
	Country   string
	Region    string
	City      string
}

// VisitEvent is the unit of work handed to the side-effect dispatcher.
type VisitEvent struct {
	VisitID    uuid.UUID
	Link       LinkRef
	ShortCode  string
	Meta       RequestMeta
	OccurredAt time.Time
}

type DailyClicks struct {
	Date   string `json:"date"`
	Clicks int64  `json:"clicks"`
}

type CountryClicks struct {
	Name  string `json:"name"`
	Value int64  `json:"value"`
}

type RecentVisit struct {
	ID        uuid.UUID `json:"id"`
	Timestamp time.Time `json:"timestamp"`
	Country   string    `json:"country"`
	Region    *string   `json:"region"`
	City      *string   `json:"city"`
	UserAgent string    `json:"userAgent"`
	IP        *string   `json:"ip"`
}

type LinkAnalytics struct {
	ID           uuid.UUID       `json:"id"`
	ShortCode    string          `json:"shortCode"`
	OriginalURL  string          `json:"originalUrl"`
	CreatedAt    time.Time       `json:"createdAt"`
	Clicks       int64           `json:"clicks"`
	DailyClicks  []DailyClicks   `json:"dailyClicks"`
	Countries    []CountryClicks `json:"countries"`
	RecentVisits []RecentVisit   `json:"recentVisits"`
}
