package config

// SyncMode gates which direction of mutation a run is permitted to
// execute (spec.md §6's `set_sync_mode`). The zero value is invalid;
// ReadConfigFromBytes defaults an empty value to ModeBoth.
type SyncMode string

const (
	ModeBoth          SyncMode = "both"
	ModeCalendarToFPP SyncMode = "calendar"
	ModeFPPToCalendar SyncMode = "fpp"
)

// FPPConfig describes the local show-control side: where the scheduler
// file lives, where its atomic-write backup is staged, and the optional
// FPP environment JSON that supplies timezone and holiday tokens.
type FPPConfig struct {
	// SchedulerPath is the absolute path to FPP's on-disk scheduler file.
	SchedulerPath string `yaml:"schedulerPath"`
	// BackupPath is where WriteAtomic stages the single rolling backup
	// before replacing SchedulerPath. Defaults to SchedulerPath+".bak".
	BackupPath string `yaml:"backupPath,omitempty"`
	// EnvironmentPath is the optional FPP environment JSON file path
	// supplying IANA timezone and holiday tokens (spec.md §6).
	EnvironmentPath string `yaml:"environmentPath,omitempty"`
	// Timezone is the IANA timezone used when EnvironmentPath is absent
	// or omits one.
	Timezone string `yaml:"timezone,omitempty" default:"UTC"`
	// Latitude/Longitude feed the symbolic-time display estimator
	// (spec.md §3) used only for ordering comparisons.
	Latitude  float64 `yaml:"latitude,omitempty"`
	Longitude float64 `yaml:"longitude,omitempty"`
}

// GoogleCalendarConfig contains settings for Google Calendar integration.
type GoogleCalendarConfig struct {
	// CalendarID is the ID of the Google Calendar to sync with.
	CalendarID string `yaml:"calendarId"`
	// CredentialsPath is the path where the OAuth2 client credentials
	// file is mounted.
	CredentialsPath string `yaml:"credentialsPath,omitempty" default:"/etc/calendar-scheduler/credentials.json"`
	// TokenPath is where the refreshable OAuth2 token is persisted
	// between runs (pkg/provider.TokenStore).
	TokenPath string `yaml:"tokenPath,omitempty" default:"/etc/calendar-scheduler/token.json"`
	// SyncInterval is how often a long-running watch loop re-lists
	// events (default: 1h). One-shot invocations ignore this field.
	SyncInterval string `yaml:"syncInterval,omitempty" default:"1h"`
}

// HolidayConfig controls how strictly symbolic holiday tokens are
// resolved during Resolution (spec.md §3's holiday resolver).
type HolidayConfig struct {
	// Strict fails resolution (rather than treating the date as a
	// non-holiday) when a configured holiday token cannot be resolved
	// for the year in question.
	Strict bool `yaml:"strict,omitempty"`
}

// Config is the top-level sync engine configuration.
type Config struct {
	FPP            FPPConfig             `yaml:"fpp"`
	GoogleCalendar *GoogleCalendarConfig `yaml:"googleCalendar,omitempty"`
	Holiday        HolidayConfig         `yaml:"holiday,omitempty"`
	SyncMode       SyncMode              `yaml:"syncMode,omitempty" default:"both"`
	FailOnBlocked  bool                  `yaml:"failOnBlocked,omitempty"`
	// StateDir holds the manifest, tombstone, timestamp, and snapshot
	// stores (pkg/store) a run reads and writes.
	StateDir string `yaml:"stateDir,omitempty" default:"/var/lib/calendar-scheduler"`
}
