package services

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"slices"
	"strings"
	"time"

	"github.com/spf13/cast"

	"github.com/skm-mango/storefront/internal/domain"
	"github.com/skm-mango/storefront/internal/platform/textutil"
	"github.com/skm-mango/storefront/internal/repositories"
)

const settingsEventUpdated = "settings.updated"

var (
	// ErrSettingsInvalidInput signals an unknown key or malformed value.
	ErrSettingsInvalidInput = errors.New("settings: invalid input")
	// ErrSettingsUnavailable indicates the settings store could not be reached.
	ErrSettingsUnavailable = errors.New("settings: unavailable")
)

var settingDefaults = map[string]string{
	domain.SettingSeasonActive:     "false",
	domain.SettingSeasonBannerText: "Mango Season coming soon! 🥭",
	domain.SettingDeliveryZones:    "Tamil Nadu,Pondicherry,Karnataka",
}

// SettingsServiceDeps bundles collaborators required to construct the settings service.
type SettingsServiceDeps struct {
	Settings repositories.SettingsRepository
	Events   SettingsEventPublisher
	Clock    func() time.Time
	Logger   func(ctx context.Context, event string, fields map[string]any)
}

type settingsService struct {
	settings repositories.SettingsRepository
	events   SettingsEventPublisher
	clock    func() time.Time
	logger   func(context.Context, string, map[string]any)
}

var _ SettingsService = (*settingsService)(nil)

// NewSettingsService wires the settings repository into a SettingsService.
func NewSettingsService(deps SettingsServiceDeps) (SettingsService, error) {
	if deps.Settings == nil {
		return nil, errors.New("settings service: settings repository is required")
	}
	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}
	logger := deps.Logger
	if logger == nil {
		logger = func(context.Context, string, map[string]any) {}
	}
	return &settingsService{
		settings: deps.Settings,
		events:   deps.Events,
		clock: func() time.Time {
			return clock().UTC()
		},
		logger: logger,
	}, nil
}

// IsSeasonActive parses season_active loosely: "true", "TRUE" and "1" all open ordering.
func (s *settingsService) IsSeasonActive(ctx context.Context) (bool, error) {
	values, err := s.load(ctx)
	if err != nil {
		return false, err
	}
	return parseSeasonFlag(values[domain.SettingSeasonActive]), nil
}

func (s *settingsService) DeliveryZones(ctx context.Context) ([]string, error) {
	values, err := s.load(ctx)
	if err != nil {
		return nil, err
	}
	return splitZones(values[domain.SettingDeliveryZones]), nil
}

func (s *settingsService) PublicSettings(ctx context.Context) (PublicSettings, error) {
	values, err := s.load(ctx)
	if err != nil {
		return PublicSettings{}, err
	}
	return PublicSettings{
		SeasonActive:     parseSeasonFlag(values[domain.SettingSeasonActive]),
		SeasonBannerText: values[domain.SettingSeasonBannerText],
		DeliveryZones:    splitZones(values[domain.SettingDeliveryZones]),
	}, nil
}

// AllSettings returns stored values merged over the defaults.
func (s *settingsService) AllSettings(ctx context.Context) (map[string]string, error) {
	return s.load(ctx)
}

// UpdateSettings validates and writes the given keys, then emits settings.updated.
func (s *settingsService) UpdateSettings(ctx context.Context, cmd UpdateSettingsCommand) (map[string]string, error) {
	folded, collisions := textutil.FoldKeys(cmd.Values)
	if len(folded) == 0 {
		return nil, fmt.Errorf("%w: at least one setting is required", ErrSettingsInvalidInput)
	}
	if len(collisions) > 0 {
		return nil, fmt.Errorf("%w: setting %q given more than once", ErrSettingsInvalidInput, collisions[0])
	}

	normalized := make(map[string]string, len(folded))
	for key, value := range folded {
		if _, known := settingDefaults[key]; !known {
			return nil, fmt.Errorf("%w: unknown setting %q", ErrSettingsInvalidInput, key)
		}
		switch key {
		case domain.SettingSeasonActive:
			active, err := cast.ToBoolE(value)
			if err != nil {
				return nil, fmt.Errorf("%w: %s must be a boolean", ErrSettingsInvalidInput, key)
			}
			value = cast.ToString(active)
		case domain.SettingDeliveryZones:
			zones := splitZones(value)
			if len(zones) == 0 {
				return nil, fmt.Errorf("%w: %s must list at least one state", ErrSettingsInvalidInput, key)
			}
			value = strings.Join(zones, ",")
		}
		normalized[key] = value
	}

	if err := s.settings.Upsert(ctx, normalized, s.clock()); err != nil {
		return nil, s.mapError(err)
	}

	keys := slices.Sorted(maps.Keys(normalized))
	if s.events != nil {
		event := SettingsEvent{Type: settingsEventUpdated, Keys: keys, ActorID: strings.TrimSpace(cmd.ActorID), OccurredAt: s.clock()}
		if err := s.events.PublishSettingsEvent(ctx, event); err != nil {
			s.logger(ctx, "settings.event.publish.failed", map[string]any{
				"keys":  keys,
				"error": err.Error(),
			})
		}
	}
	return s.load(ctx)
}

func (s *settingsService) load(ctx context.Context) (map[string]string, error) {
	stored, err := s.settings.All(ctx)
	if err != nil {
		return nil, s.mapError(err)
	}
	values := maps.Clone(settingDefaults)
	for key, value := range stored {
		values[key] = value
	}
	return values, nil
}

func (s *settingsService) mapError(err error) error {
	var repoErr repositories.RepositoryError
	if errors.As(err, &repoErr) && repoErr.IsUnavailable() {
		return fmt.Errorf("%w: %v", ErrSettingsUnavailable, err)
	}
	return err
}

func parseSeasonFlag(raw string) bool {
	active, err := cast.ToBoolE(strings.TrimSpace(raw))
	return err == nil && active
}

func splitZones(raw string) []string {
	var zones []string
	for _, part := range strings.Split(raw, ",") {
		if zone := strings.TrimSpace(part); zone != "" {
			zones = append(zones, zone)
		}
	}
	return zones
}
