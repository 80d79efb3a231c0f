package models

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata" // devices may ship without a zoneinfo database
)

var ErrInvalidSettings = errors.New("invalid notification settings")

const minutesPerDay = 24 * 60

// ClockTime is a wall-clock time of day in minutes since midnight.
type ClockTime int

// ParseClockTime parses "HH:MM" in 24h notation.
func ParseClockTime(raw string) (ClockTime, error) {
	parts := strings.Split(strings.TrimSpace(raw), ":")
	if len(parts) != 2 {
		return 0, fmt.Errorf("clock time %q: expected HH:MM", raw)
	}
	h, err := strconv.Atoi(parts[0])
	if err != nil || h < 0 || h > 23 {
		return 0, fmt.Errorf("clock time %q: invalid hour", raw)
	}
	m, err := strconv.Atoi(parts[1])
	if err != nil || m < 0 || m > 59 {
		return 0, fmt.Errorf("clock time %q: invalid minute", raw)
	}
	return ClockTime(h*60 + m), nil
}

// MustClockTime is ParseClockTime for literals known to be valid.
func MustClockTime(raw string) ClockTime {
	c, err := ParseClockTime(raw)
	if err != nil {
		panic(err)
	}
	return c
}

// ClockTimeOf returns the time of day of t in t's own location.
func ClockTimeOf(t time.Time) ClockTime {
	return ClockTime(t.Hour()*60 + t.Minute())
}

func (c ClockTime) Valid() bool {
	return c >= 0 && c < minutesPerDay
}

func (c ClockTime) String() string {
	return fmt.Sprintf("%02d:%02d", int(c)/60, int(c)%60)
}

func (c ClockTime) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

func (c *ClockTime) UnmarshalText(text []byte) error {
	parsed, err := ParseClockTime(string(text))
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}

type QuietHours struct {
	Enabled bool      `json:"enabled"`
	Start   ClockTime `json:"start"`
	End     ClockTime `json:"end"`
	// Timezone is an IANA zone name; empty evaluates the window in the caller's location.
	Timezone string `json:"timezone,omitempty"`
}

// Settings holds one device's notification preferences.
type Settings struct {
	Enabled         bool                          `json:"enabled"`
	CategoryEnabled map[NotificationCategory]bool `json:"category_enabled"`
	QuietHours      QuietHours                    `json:"quiet_hours"`
	Sound           bool                          `json:"sound"`
	Vibration       bool                          `json:"vibration"`
}

func DefaultSettings() Settings {
	categories := make(map[NotificationCategory]bool, len(Categories))
	for _, c := range Categories {
		categories[c] = true
	}
	return Settings{
		Enabled:         true,
		CategoryEnabled: categories,
		QuietHours: QuietHours{
			Enabled: false,
			Start:   MustClockTime("22:00"),
			End:     MustClockTime("07:00"),
		},
		Sound:     true,
		Vibration: true,
	}
}

// IsCategoryEnabled fails open: a category without an entry is enabled.
func (s Settings) IsCategoryEnabled(c NotificationCategory) bool {
	enabled, ok := s.CategoryEnabled[c]
	if !ok {
		return true
	}
	return enabled
}

func (s Settings) Validate() error {
	if !s.QuietHours.Start.Valid() || !s.QuietHours.End.Valid() {
		return fmt.Errorf("%w: quiet hours out of range", ErrInvalidSettings)
	}
	if tz := s.QuietHours.Timezone; tz != "" {
		if _, err := time.LoadLocation(tz); err != nil {
			return fmt.Errorf("%w: unknown timezone %q", ErrInvalidSettings, tz)
		}
	}
	return nil
}

// Clone returns a copy that shares no map with s.
func (s Settings) Clone() Settings {
	out := s
	out.CategoryEnabled = make(map[NotificationCategory]bool, len(s.CategoryEnabled))
	for k, v := range s.CategoryEnabled {
		out.CategoryEnabled[k] = v
	}
	return out
}

type QuietHoursPatch struct {
	Enabled  *bool      `json:"enabled,omitempty"`
	Start    *ClockTime `json:"start,omitempty"`
	End      *ClockTime `json:"end,omitempty"`
	Timezone *string    `json:"timezone,omitempty"`
}

// SettingsPatch is a partial settings update; nil fields are left unchanged.
type SettingsPatch struct {
	Enabled         *bool                         `json:"enabled,omitempty"`
	CategoryEnabled map[NotificationCategory]bool `json:"category_enabled,omitempty"`
	QuietHours      *QuietHoursPatch              `json:"quiet_hours,omitempty"`
	Sound           *bool                         `json:"sound,omitempty"`
	Vibration       *bool                         `json:"vibration,omitempty"`
}

func (p SettingsPatch) Apply(base Settings) Settings {
	out := base.Clone()
	if p.Enabled != nil {
		out.Enabled = *p.Enabled
	}
	for c, enabled := range p.CategoryEnabled {
		out.CategoryEnabled[c] = enabled
	}
	if q := p.QuietHours; q != nil {
		if q.Enabled != nil {
			out.QuietHours.Enabled = *q.Enabled
		}
		if q.Start != nil {
			out.QuietHours.Start = *q.Start
		}
		if q.End != nil {
			out.QuietHours.End = *q.End
		}
		if q.Timezone != nil {
			out.QuietHours.Timezone = *q.Timezone
		}
	}
	if p.Sound != nil {
		out.Sound = *p.Sound
	}
	if p.Vibration != nil {
		out.Vibration = *p.Vibration
	}
	return out
}
