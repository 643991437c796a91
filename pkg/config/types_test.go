package config

import "testing"

func TestDefaultValues(t *testing.T) {
	fpp := &FPPConfig{}
	setDefaults(fpp)
	if fpp.Timezone != "UTC" {
		t.Errorf("expected Timezone default to be 'UTC', got '%s'", fpp.Timezone)
	}

	gc := &GoogleCalendarConfig{}
	setDefaults(gc)
	if gc.CredentialsPath != "/etc/calendar-scheduler/credentials.json" {
		t.Errorf("expected CredentialsPath default, got '%s'", gc.CredentialsPath)
	}
	if gc.TokenPath != "/etc/calendar-scheduler/token.json" {
		t.Errorf("expected TokenPath default, got '%s'", gc.TokenPath)
	}
	if gc.SyncInterval != "1h" {
		t.Errorf("expected SyncInterval default to be '1h', got '%s'", gc.SyncInterval)
	}

	cfg := &Config{}
	setDefaults(cfg)
	if cfg.SyncMode != ModeBoth {
		t.Errorf("expected SyncMode default to be %q, got %q", ModeBoth, cfg.SyncMode)
	}
	if cfg.StateDir != "/var/lib/calendar-scheduler" {
		t.Errorf("expected StateDir default, got '%s'", cfg.StateDir)
	}
}
