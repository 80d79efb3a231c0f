package models

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ErrInvalidRecord is returned for records missing a required field.
var ErrInvalidRecord = errors.New("invalid notification record")

type NotificationCategory string

const (
	CategoryHealthAlert       NotificationCategory = "health_alert"
	CategoryWeatherAlert      NotificationCategory = "weather_alert"
	CategoryMarketPrice       NotificationCategory = "market_price"
	CategorySeasonalAdvice    NotificationCategory = "seasonal_advice"
	CategorySystem            NotificationCategory = "system"
	CategoryMessage           NotificationCategory = "message"
	CategoryMarketplaceUpdate NotificationCategory = "marketplace_update"
	CategoryReminder          NotificationCategory = "reminder"
	CategoryForumActivity     NotificationCategory = "forum_activity"
	CategoryFinancialUpdate   NotificationCategory = "financial_update"
)

// Categories lists every known category in display order.
var Categories = []NotificationCategory{
	CategoryHealthAlert,
	CategoryWeatherAlert,
	CategoryMarketPrice,
	CategorySeasonalAdvice,
	CategorySystem,
	CategoryMessage,
	CategoryMarketplaceUpdate,
	CategoryReminder,
	CategoryForumActivity,
	CategoryFinancialUpdate,
}

func (c NotificationCategory) IsValid() bool {
	for _, known := range Categories {
		if c == known {
			return true
		}
	}
	return false
}

// ParseCategory normalises an inbound category. Unknown values are treated as system.
func ParseCategory(raw string) NotificationCategory {
	c := NotificationCategory(strings.ToLower(strings.TrimSpace(raw)))
	if !c.IsValid() {
		return CategorySystem
	}
	return c
}

// NotificationPriority is ordered: low < normal < high < urgent. The zero
// value is normal.
type NotificationPriority int

const (
	PriorityLow NotificationPriority = iota - 1
	PriorityNormal
	PriorityHigh
	PriorityUrgent
)

var priorityNames = map[NotificationPriority]string{
	PriorityLow:    "low",
	PriorityNormal: "normal",
	PriorityHigh:   "high",
	PriorityUrgent: "urgent",
}

func (p NotificationPriority) String() string {
	if name, ok := priorityNames[p]; ok {
		return name
	}
	return fmt.Sprintf("priority(%d)", int(p))
}

// ParsePriority maps absent or unrecognised values to normal.
func ParsePriority(raw string) NotificationPriority {
	name := strings.ToLower(strings.TrimSpace(raw))
	for p, n := range priorityNames {
		if n == name {
			return p
		}
	}
	return PriorityNormal
}

func (p NotificationPriority) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

func (p *NotificationPriority) UnmarshalText(text []byte) error {
	*p = ParsePriority(string(text))
	return nil
}

// Record is a single notification occurrence.
type Record struct {
	ID        string               `json:"id"`
	Category  NotificationCategory `json:"category"`
	Priority  NotificationPriority `json:"priority"`
	Title     string               `json:"title"`
	Body      string               `json:"body"`
	DeepLink  string               `json:"deep_link,omitempty"`
	CreatedAt time.Time            `json:"created_at"`
	ExpiresAt *time.Time           `json:"expires_at,omitempty"`
	Read      bool                 `json:"read"`
}

// NewRecord creates an unread record with a fresh id.
func NewRecord(category NotificationCategory, priority NotificationPriority, title, body string, createdAt time.Time) Record {
	return Record{
		ID:        uuid.NewString(),
		Category:  category,
		Priority:  priority,
		Title:     title,
		Body:      body,
		CreatedAt: createdAt,
	}
}

func (r Record) Validate() error {
	var missing []string
	if strings.TrimSpace(r.ID) == "" {
		missing = append(missing, "id")
	}
	if strings.TrimSpace(r.Title) == "" {
		missing = append(missing, "title")
	}
	if strings.TrimSpace(r.Body) == "" {
		missing = append(missing, "body")
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: missing %s", ErrInvalidRecord, strings.Join(missing, ", "))
	}
	return nil
}

// IsExpired reports whether the record must be discarded rather than delivered.
func (r Record) IsExpired(now time.Time) bool {
	return r.ExpiresAt != nil && !now.Before(*r.ExpiresAt)
}

// OSPriority is the platform priority hint handed to the notification adapter.
type OSPriority string

const (
	OSPriorityNone    OSPriority = "none"
	OSPriorityDefault OSPriority = "default"
	OSPriorityHigh    OSPriority = "high"
)

// Decision is the outcome of evaluating a record against the delivery policy.
type Decision struct {
	ShowAlert         bool       `json:"show_alert"`
	PlaySound         bool       `json:"play_sound"`
	SetBadge          bool       `json:"set_badge"`
	EffectivePriority OSPriority `json:"effective_priority"`
}

// Surfaces reports whether the platform has anything to do for this decision.
func (d Decision) Surfaces() bool {
	return d.ShowAlert || d.PlaySound || d.SetBadge
}

type LedgerEntry struct {
	Record     Record    `json:"record"`
	Decision   Decision  `json:"decision"`
	RecordedAt time.Time `json:"recorded_at"`
}

type DeliveryStatus string

const (
	DeliveryStatusDelivered  DeliveryStatus = "delivered"
	DeliveryStatusSuppressed DeliveryStatus = "suppressed"
	DeliveryStatusDiscarded  DeliveryStatus = "discarded"
)

// Delivery describes what happened to one inbound record.
type Delivery struct {
	NotificationID string         `json:"notification_id"`
	Status         DeliveryStatus `json:"status"`
	Decision       Decision       `json:"decision"`
	Badge          int            `json:"badge"`
}
