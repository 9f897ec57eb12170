package services

import (
	"context"
	"errors"
	"testing"

	"github.com/skm-mango/storefront/internal/domain"
)

func newSettingsSvc(t *testing.T, repo *stubSettingsRepo, events SettingsEventPublisher, logged *[]string) SettingsService {
	t.Helper()
	svc, err := NewSettingsService(SettingsServiceDeps{
		Settings: repo,
		Events:   events,
		Clock:    fixedNow,
		Logger: func(_ context.Context, event string, _ map[string]any) {
			if logged != nil {
				*logged = append(*logged, event)
			}
		},
	})
	if err != nil {
		t.Fatalf("NewSettingsService: %v", err)
	}
	return svc
}

func TestSettingsDefaults(t *testing.T) {
	svc := newSettingsSvc(t, &stubSettingsRepo{}, nil, nil)

	public, err := svc.PublicSettings(context.Background())
	if err != nil {
		t.Fatalf("PublicSettings: %v", err)
	}
	if public.SeasonActive {
		t.Fatalf("season must default to closed")
	}
	if public.SeasonBannerText != "Mango Season coming soon! 🥭" {
		t.Fatalf("unexpected banner %q", public.SeasonBannerText)
	}
	if len(public.DeliveryZones) != 3 || public.DeliveryZones[1] != "Pondicherry" {
		t.Fatalf("unexpected zones %v", public.DeliveryZones)
	}
}

func TestIsSeasonActiveParsesLoosely(t *testing.T) {
	for raw, want := range map[string]bool{"true": true, "TRUE": true, "1": true, "false": false, "0": false, "soon": false, "": false} {
		svc := newSettingsSvc(t, &stubSettingsRepo{values: map[string]string{domain.SettingSeasonActive: raw}}, nil, nil)
		got, err := svc.IsSeasonActive(context.Background())
		if err != nil {
			t.Fatalf("IsSeasonActive(%q): %v", raw, err)
		}
		if got != want {
			t.Fatalf("IsSeasonActive(%q) = %v, want %v", raw, got, want)
		}
	}
}

func TestUpdateSettingsNormalisesAndPublishes(t *testing.T) {
	repo := &stubSettingsRepo{}
	events := &recordingSettingsEvents{}
	svc := newSettingsSvc(t, repo, events, nil)

	values, err := svc.UpdateSettings(context.Background(), UpdateSettingsCommand{
		Values: map[string]string{
			"Season_Active":  "1",
			"delivery_zones": " Tamil Nadu , ,Kerala ",
		},
		ActorID: "admin-1",
	})
	if err != nil {
		t.Fatalf("UpdateSettings: %v", err)
	}
	if values[domain.SettingSeasonActive] != "true" || values[domain.SettingDeliveryZones] != "Tamil Nadu,Kerala" {
		t.Fatalf("unexpected values %v", values)
	}
	if values[domain.SettingSeasonBannerText] == "" {
		t.Fatalf("expected defaults merged into result")
	}
	if len(repo.upserted) != 1 || len(repo.upserted[0]) != 2 {
		t.Fatalf("expected a single upsert of two keys, got %v", repo.upserted)
	}
	if len(events.events) != 1 {
		t.Fatalf("expected one event, got %d", len(events.events))
	}
	ev := events.events[0]
	if ev.Type != "settings.updated" || ev.ActorID != "admin-1" || len(ev.Keys) != 2 || ev.Keys[0] != domain.SettingDeliveryZones {
		t.Fatalf("unexpected event %+v", ev)
	}
}

func TestUpdateSettingsRejectsInvalidInput(t *testing.T) {
	repo := &stubSettingsRepo{}
	svc := newSettingsSvc(t, repo, nil, nil)
	cases := []map[string]string{
		nil,
		{"free_shipping": "true"},
		{domain.SettingSeasonActive: "maybe"},
		{domain.SettingDeliveryZones: " , "},
		{" ": "true"},
		{"season_active": "true", "Season_Active": "false"},
	}
	for _, values := range cases {
		if _, err := svc.UpdateSettings(context.Background(), UpdateSettingsCommand{Values: values}); !errors.Is(err, ErrSettingsInvalidInput) {
			t.Fatalf("values %v: expected invalid input, got %v", values, err)
		}
	}
	if len(repo.upserted) != 0 {
		t.Fatalf("expected nothing written")
	}
}

func TestUpdateSettingsPublishFailureIsLogged(t *testing.T) {
	var logged []string
	svc := newSettingsSvc(t, &stubSettingsRepo{}, &recordingSettingsEvents{err: errBoom}, &logged)

	if _, err := svc.UpdateSettings(context.Background(), UpdateSettingsCommand{Values: map[string]string{domain.SettingSeasonBannerText: "Now open"}}); err != nil {
		t.Fatalf("UpdateSettings: %v", err)
	}
	if len(logged) != 1 || logged[0] != "settings.event.publish.failed" {
		t.Fatalf("expected publish failure logged, got %v", logged)
	}
}

func TestSettingsMapsUnavailable(t *testing.T) {
	svc := newSettingsSvc(t, &stubSettingsRepo{allErr: unavailableErr()}, nil, nil)
	if _, err := svc.AllSettings(context.Background()); !errors.Is(err, ErrSettingsUnavailable) {
		t.Fatalf("expected ErrSettingsUnavailable, got %v", err)
	}
}
