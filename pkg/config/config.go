package config

import (
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strconv"

	"sigs.k8s.io/yaml"
)

// setDefaults sets default values for a struct using 'default' tags.
func setDefaults(v interface{}) {
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Ptr || rv.IsNil() {
		return
	}

	rv = rv.Elem()
	rt := rv.Type()

	for i := 0; i < rt.NumField(); i++ {
		field := rv.Field(i)
		if !field.CanSet() {
			continue
		}

		tag := rt.Field(i).Tag.Get("default")
		if tag == "{}" {
			if field.Kind() == reflect.Ptr && field.IsNil() && field.Type().Elem().Kind() == reflect.Struct {
				field.Set(reflect.New(field.Type().Elem()))
				setDefaults(field.Interface())
			}
			continue
		}
		if tag == "" {
			continue
		}

		switch field.Kind() {
		case reflect.String:
			if field.String() == "" {
				field.SetString(tag)
			}
		case reflect.Bool:
			if !field.Bool() {
				val, _ := strconv.ParseBool(tag)
				field.SetBool(val)
			}
		}
	}
}

// ReadConfigFromBytes parses and validates config from raw bytes.
func ReadConfigFromBytes(data []byte) (Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse config: %v", err)
	}

	setDefaults(&cfg)
	setDefaults(&cfg.FPP)
	if cfg.GoogleCalendar != nil {
		setDefaults(cfg.GoogleCalendar)
	}

	if cfg.FPP.BackupPath == "" {
		cfg.FPP.BackupPath = cfg.FPP.SchedulerPath + ".bak"
	}

	if err := validateFPPConfig(cfg.FPP); err != nil {
		return Config{}, err
	}
	if cfg.GoogleCalendar != nil {
		if err := validateGoogleCalendarConfig(*cfg.GoogleCalendar); err != nil {
			return Config{}, err
		}
	}
	if err := validateSyncMode(cfg.SyncMode); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

// ReadConfig reads config from a file path.
func ReadConfig(path string) (Config, error) {
	if !filepath.IsAbs(path) {
		return Config{}, fmt.Errorf("config path must be absolute: %s", path)
	}
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config file: %v", err)
	}

	return ReadConfigFromBytes(data)
}

// WriteConfig validates and atomically rewrites the config file at path,
// for the CLI's set-calendar/set-sync-mode control-plane commands
// (spec.md §6) to persist a change without touching any other field.
func WriteConfig(path string, cfg Config) error {
	if !filepath.IsAbs(path) {
		return fmt.Errorf("config path must be absolute: %s", path)
	}
	if err := validateFPPConfig(cfg.FPP); err != nil {
		return err
	}
	if cfg.GoogleCalendar != nil {
		if err := validateGoogleCalendarConfig(*cfg.GoogleCalendar); err != nil {
			return err
		}
	}
	if err := validateSyncMode(cfg.SyncMode); err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %v", err)
	}

	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create staging config file: %v", err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write staging config file: %v", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close staging config file: %v", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("failed to replace config file: %v", err)
	}
	return nil
}

func validateFPPConfig(fpp FPPConfig) error {
	if fpp.SchedulerPath == "" {
		return fmt.Errorf("fpp.schedulerPath is required")
	}
	if !filepath.IsAbs(fpp.SchedulerPath) {
		return fmt.Errorf("fpp.schedulerPath must be absolute: %s", fpp.SchedulerPath)
	}
	if fpp.Timezone == "" {
		return fmt.Errorf("fpp.timezone is required")
	}
	return nil
}

func validateGoogleCalendarConfig(gc GoogleCalendarConfig) error {
	if gc.CalendarID == "" {
		return fmt.Errorf("googleCalendar.calendarId is required")
	}
	if gc.CredentialsPath == "" {
		return fmt.Errorf("googleCalendar.credentialsPath is required")
	}
	return nil
}

func validateSyncMode(mode SyncMode) error {
	switch mode {
	case ModeBoth, ModeCalendarToFPP, ModeFPPToCalendar:
		return nil
	default:
		return fmt.Errorf("syncMode must be one of %q, %q, %q; got %q", ModeBoth, ModeCalendarToFPP, ModeFPPToCalendar, mode)
	}
}
