package config

import (
	"slices"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg := Load()

	if cfg.Recognition.Tolerance != 0.5 {
		t.Errorf("Tolerance = %v, want 0.5", cfg.Recognition.Tolerance)
	}
	if cfg.Recognition.GapMargin != 0.1 {
		t.Errorf("GapMargin = %v, want 0.1", cfg.Recognition.GapMargin)
	}
	if cfg.Recognition.VotesWindow != 7 || cfg.Recognition.VotesRequired != 3 {
		t.Errorf("votes = %d/%d, want 7/3", cfg.Recognition.VotesWindow, cfg.Recognition.VotesRequired)
	}
	if cfg.Recognition.MinBoxSize != 40 {
		t.Errorf("MinBoxSize = %v, want 40", cfg.Recognition.MinBoxSize)
	}
	if cfg.Presence.AppearSustain != 800*time.Millisecond {
		t.Errorf("AppearSustain = %v, want 800ms", cfg.Presence.AppearSustain)
	}
	if cfg.Presence.MinSession != 15*time.Second {
		t.Errorf("MinSession = %v, want 15s", cfg.Presence.MinSession)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config invalid: %v", err)
	}
}

func TestLoadProfileSelection(t *testing.T) {
	t.Setenv("PRESENCE_PROFILE", "kiosk")

	cfg := Load()
	if cfg.Presence.Profile != "kiosk" {
		t.Errorf("Profile = %q", cfg.Presence.Profile)
	}
	if cfg.Presence.AppearSustain != 400*time.Millisecond {
		t.Errorf("AppearSustain = %v, want 400ms", cfg.Presence.AppearSustain)
	}
	if cfg.Presence.MinSession != 5*time.Second {
		t.Errorf("MinSession = %v, want 5s", cfg.Presence.MinSession)
	}
}

func TestLoadUnknownProfileFallsBack(t *testing.T) {
	t.Setenv("PRESENCE_PROFILE", "does-not-exist")

	cfg := Load()
	if cfg.Presence.AppearSustain != 800*time.Millisecond {
		t.Errorf("AppearSustain = %v, want default 800ms", cfg.Presence.AppearSustain)
	}
}

func TestEnvOverridesProfile(t *testing.T) {
	t.Setenv("PRESENCE_PROFILE", "kiosk")
	t.Setenv("APPEAR_SUSTAIN", "1200ms")
	t.Setenv("TOLERANCE", "0.45")

	cfg := Load()
	if cfg.Presence.AppearSustain != 1200*time.Millisecond {
		t.Errorf("AppearSustain = %v, want 1200ms", cfg.Presence.AppearSustain)
	}
	// Untouched profile values survive the override.
	if cfg.Presence.AbsenceGrace != time.Second {
		t.Errorf("AbsenceGrace = %v, want 1s", cfg.Presence.AbsenceGrace)
	}
	if cfg.Recognition.Tolerance != 0.45 {
		t.Errorf("Tolerance = %v, want 0.45", cfg.Recognition.Tolerance)
	}
}

func TestEnvHelpersIgnoreInvalid(t *testing.T) {
	t.Setenv("VOTES_WINDOW", "not-a-number")
	t.Setenv("TOLERANCE", "-1")
	t.Setenv("APPEAR_SUSTAIN", "soon")

	cfg := Load()
	if cfg.Recognition.VotesWindow != 7 {
		t.Errorf("VotesWindow = %d, want default 7", cfg.Recognition.VotesWindow)
	}
	if cfg.Recognition.Tolerance != 0.5 {
		t.Errorf("Tolerance = %v, want default 0.5", cfg.Recognition.Tolerance)
	}
	if cfg.Presence.AppearSustain != 800*time.Millisecond {
		t.Errorf("AppearSustain = %v, want default 800ms", cfg.Presence.AppearSustain)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero tolerance", func(c *Config) { c.Recognition.Tolerance = 0 }},
		{"zero window", func(c *Config) { c.Recognition.VotesWindow = 0 }},
		{"required above window", func(c *Config) { c.Recognition.VotesRequired = 8 }},
		{"zero grace", func(c *Config) { c.Presence.AbsenceGrace = 0 }},
		{"zero poll interval", func(c *Config) { c.Presence.PollInterval = 0 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Load()
			tt.mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}

func TestProfileNames(t *testing.T) {
	names := ProfileNames()
	for _, want := range []string{"default", "kiosk", "lobby"} {
		if !slices.Contains(names, want) {
			t.Errorf("profile %q missing from %v", want, names)
		}
	}
}
