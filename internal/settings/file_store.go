package settings

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"

	"github.com/stanstork/agri-notify/internal/models"
)

// FileStore keeps each device's settings in its own YAML file under dir.
type FileStore struct {
	dir string
}

type fileQuietHours struct {
	Enabled  bool   `mapstructure:"enabled"`
	Start    string `mapstructure:"start"`
	End      string `mapstructure:"end"`
	Timezone string `mapstructure:"timezone"`
}

type fileSettings struct {
	Enabled         bool            `mapstructure:"enabled"`
	CategoryEnabled map[string]bool `mapstructure:"category_enabled"`
	QuietHours      fileQuietHours  `mapstructure:"quiet_hours"`
	Sound           bool            `mapstructure:"sound"`
	Vibration       bool            `mapstructure:"vibration"`
}

func NewFileStore(dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating settings directory %s: %w", dir, err)
	}
	return &FileStore{dir: dir}, nil
}

func (f *FileStore) path(deviceID string) (string, error) {
	if deviceID == "" || strings.ContainsAny(deviceID, `/\`) || strings.HasPrefix(deviceID, ".") {
		return "", fmt.Errorf("invalid device id %q", deviceID)
	}
	return filepath.Join(f.dir, deviceID+".yaml"), nil
}

func (f *FileStore) Get(_ context.Context, deviceID string) (models.Settings, error) {
	path, err := f.path(deviceID)
	if err != nil {
		return models.Settings{}, err
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return models.Settings{}, ErrNotFound
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	if err := v.ReadInConfig(); err != nil {
		return models.Settings{}, fmt.Errorf("reading settings %s: %w", path, err)
	}

	var raw fileSettings
	if err := v.Unmarshal(&raw); err != nil {
		return models.Settings{}, fmt.Errorf("parsing settings %s: %w", path, err)
	}

	start, err := models.ParseClockTime(raw.QuietHours.Start)
	if err != nil {
		return models.Settings{}, fmt.Errorf("parsing settings %s: %w", path, err)
	}
	end, err := models.ParseClockTime(raw.QuietHours.End)
	if err != nil {
		return models.Settings{}, fmt.Errorf("parsing settings %s: %w", path, err)
	}

	categories := make(map[models.NotificationCategory]bool, len(raw.CategoryEnabled))
	for k, enabled := range raw.CategoryEnabled {
		categories[models.NotificationCategory(k)] = enabled
	}

	return models.Settings{
		Enabled:         raw.Enabled,
		CategoryEnabled: categories,
		QuietHours: models.QuietHours{
			Enabled:  raw.QuietHours.Enabled,
			Start:    start,
			End:      end,
			Timezone: raw.QuietHours.Timezone,
		},
		Sound:     raw.Sound,
		Vibration: raw.Vibration,
	}, nil
}

func (f *FileStore) Put(_ context.Context, deviceID string, s models.Settings) error {
	path, err := f.path(deviceID)
	if err != nil {
		return err
	}

	categories := make(map[string]bool, len(s.CategoryEnabled))
	for c, enabled := range s.CategoryEnabled {
		categories[string(c)] = enabled
	}

	v := viper.New()
	v.SetConfigType("yaml")
	v.Set("enabled", s.Enabled)
	v.Set("category_enabled", categories)
	v.Set("quiet_hours", map[string]interface{}{
		"enabled":  s.QuietHours.Enabled,
		"start":    s.QuietHours.Start.String(),
		"end":      s.QuietHours.End.String(),
		"timezone": s.QuietHours.Timezone,
	})
	v.Set("sound", s.Sound)
	v.Set("vibration", s.Vibration)

	if err := v.WriteConfigAs(path); err != nil {
		return fmt.Errorf("writing settings to %s: %w", path, err)
	}
	return nil
}
