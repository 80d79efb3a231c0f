package notification

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/stanstork/agri-notify/internal/config"
)

// PlatformNotifier stands in for the OS notification API. It logs the call the
// device would make for a decision.
type PlatformNotifier struct {
	enabled  bool
	platform string
	appID    string
	logger   zerolog.Logger
}

func NewPlatformNotifier(cfg config.PushConfig, logger zerolog.Logger) *PlatformNotifier {
	platform := cfg.Platform
	if platform == "" {
		platform = "mock"
	}
	return &PlatformNotifier{
		enabled:  cfg.Enabled,
		platform: platform,
		appID:    cfg.AppID,
		logger:   logger.With().Str("notifier", "platform").Logger(),
	}
}

func (n *PlatformNotifier) Notify(_ context.Context, d Dispatch) error {
	if !n.enabled {
		return nil
	}
	event := n.logger.Info().
		Str("device_id", d.DeviceID).
		Str("notification_id", d.Record.ID).
		Str("category", string(d.Record.Category)).
		Bool("alert", d.Decision.ShowAlert).
		Bool("sound", d.Decision.PlaySound).
		Str("os_priority", string(d.Decision.EffectivePriority))
	if d.Decision.SetBadge {
		event = event.Int("badge", d.Badge)
	}
	event.Msg("platform notification dispatched (mock)")
	return nil
}

func (n *PlatformNotifier) String() string {
	if !n.enabled {
		return "PlatformNotifier(disabled)"
	}
	return fmt.Sprintf("PlatformNotifier(platform=%s, app=%s)", n.platform, n.appID)
}
