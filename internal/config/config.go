package config

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"sort"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

//go:embed profiles.yaml
var profilesYAML []byte

type Config struct {
	Recognition RecognitionConfig
	Presence    PresenceConfig
	Detector    DetectorConfig
	Attendance  AttendanceConfig
	Snapshot    SnapshotConfig
	Database    DatabaseConfig
	Web         WebConfig
	EventLogDir string // daily CSV audit logs, empty disables
}

type RecognitionConfig struct {
	Tolerance            float64 // max blended distance for a match (default 0.5)
	GapMargin            float64 // required gap between best and second best (default 0.1)
	VotesWindow          int     // per-slot vote window size (default 7)
	VotesRequired        int     // votes needed for a majority (default 3)
	MinBoxSize           float64 // minimum face box side in pixels (default 40)
	UnknownMergeDistance float64 // merge unknowns within this distance, 0 disables
}

type PresenceConfig struct {
	Profile       string // timing profile name from profiles.yaml
	AppearSustain time.Duration
	AbsenceGrace  time.Duration
	EventDebounce time.Duration
	MinSession    time.Duration
	PollInterval  time.Duration
}

type DetectorConfig struct {
	URL     string // defaults to http://localhost:8000
	Timeout time.Duration
}

type AttendanceConfig struct {
	URL     string
	APIKey  string
	Timeout time.Duration
}

type SnapshotConfig struct {
	BucketURL string // HTTP bucket for unknown-face snapshots
	APIKey    string
	LocalDir  string // local fallback when no bucket is configured
	Timeout   time.Duration
}

type DatabaseConfig struct {
	URL          string // PostgreSQL connection URL
	MaxOpenConns int    // Maximum open connections (default 25)
	MaxIdleConns int    // Maximum idle connections (default 5)
}

type WebConfig struct {
	Port int // ops API port (default 8080)
}

// profile is one named set of presence timings, in milliseconds.
type profile struct {
	AppearSustainMS int `yaml:"appear_sustain_ms"`
	AbsenceGraceMS  int `yaml:"absence_grace_ms"`
	EventDebounceMS int `yaml:"event_debounce_ms"`
	MinSessionMS    int `yaml:"min_session_ms"`
	PollIntervalMS  int `yaml:"poll_interval_ms"`
}

type profilesFile struct {
	Profiles map[string]profile `yaml:"profiles"`
}

// envInt reads an environment variable and parses it as a positive integer.
// Returns the default value if the env var is unset, empty, or invalid.
func envInt(key string, defaultVal int) int {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	if n, err := strconv.Atoi(s); err == nil && n > 0 {
		return n
	}
	return defaultVal
}

// envFloat reads an environment variable and parses it as a non-negative
// float. Returns the default value if the env var is unset, empty, or invalid.
func envFloat(key string, defaultVal float64) float64 {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil && f >= 0 {
		return f
	}
	return defaultVal
}

// envDuration reads an environment variable as a Go duration string
// ("800ms", "15s"). Returns the default value if unset, empty, or invalid.
func envDuration(key string, defaultVal time.Duration) time.Duration {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	if d, err := time.ParseDuration(s); err == nil && d >= 0 {
		return d
	}
	return defaultVal
}

func loadProfiles() map[string]profile {
	var file profilesFile
	if err := yaml.Unmarshal(profilesYAML, &file); err != nil {
		// This is an embedded file so this error should never happen in practice
		panic("failed to unmarshal embedded profiles.yaml: " + err.Error())
	}
	return file.Profiles
}

func ms(n int) time.Duration {
	return time.Duration(n) * time.Millisecond
}

func Load() *Config {
	profiles := loadProfiles()
	name := os.Getenv("PRESENCE_PROFILE")
	if name == "" {
		name = "default"
	}
	base, ok := profiles[name]
	if !ok {
		base = profiles["default"]
	}

	return &Config{
		Recognition: RecognitionConfig{
			Tolerance:            envFloat("TOLERANCE", 0.5),
			GapMargin:            envFloat("GAP_MARGIN", 0.1),
			VotesWindow:          envInt("VOTES_WINDOW", 7),
			VotesRequired:        envInt("VOTES_REQUIRED", 3),
			MinBoxSize:           envFloat("MIN_BOX_SIZE", 40),
			UnknownMergeDistance: envFloat("UNKNOWN_MERGE_DISTANCE", 0),
		},
		Presence: PresenceConfig{
			Profile:       name,
			AppearSustain: envDuration("APPEAR_SUSTAIN", ms(base.AppearSustainMS)),
			AbsenceGrace:  envDuration("ABSENCE_GRACE", ms(base.AbsenceGraceMS)),
			EventDebounce: envDuration("EVENT_DEBOUNCE", ms(base.EventDebounceMS)),
			MinSession:    envDuration("MIN_SESSION", ms(base.MinSessionMS)),
			PollInterval:  envDuration("POLL_INTERVAL", ms(base.PollIntervalMS)),
		},
		Detector: DetectorConfig{
			URL:     os.Getenv("DETECTOR_URL"),
			Timeout: envDuration("DETECTOR_TIMEOUT", 5*time.Second),
		},
		Attendance: AttendanceConfig{
			URL:     os.Getenv("ATTENDANCE_URL"),
			APIKey:  os.Getenv("ATTENDANCE_API_KEY"),
			Timeout: envDuration("ATTENDANCE_TIMEOUT", 10*time.Second),
		},
		Snapshot: SnapshotConfig{
			BucketURL: os.Getenv("SNAPSHOT_BUCKET_URL"),
			APIKey:    os.Getenv("SNAPSHOT_API_KEY"),
			LocalDir:  os.Getenv("SNAPSHOT_LOCAL_DIR"),
			Timeout:   envDuration("SNAPSHOT_TIMEOUT", 10*time.Second),
		},
		Database: DatabaseConfig{
			URL:          os.Getenv("DATABASE_URL"),
			MaxOpenConns: envInt("DATABASE_MAX_OPEN_CONNS", 25),
			MaxIdleConns: envInt("DATABASE_MAX_IDLE_CONNS", 5),
		},
		Web: WebConfig{
			Port: envInt("WEB_PORT", 8080),
		},
		EventLogDir: os.Getenv("EVENT_LOG_DIR"),
	}
}

// Validate checks invariants the pipeline relies on.
func (c *Config) Validate() error {
	r := c.Recognition
	if r.Tolerance <= 0 {
		return errors.New("TOLERANCE must be positive")
	}
	if r.VotesWindow < 1 {
		return errors.New("VOTES_WINDOW must be at least 1")
	}
	if r.VotesRequired < 1 || r.VotesRequired > r.VotesWindow {
		return fmt.Errorf("VOTES_REQUIRED must be between 1 and VOTES_WINDOW (%d)", r.VotesWindow)
	}
	p := c.Presence
	if p.AbsenceGrace <= 0 {
		return errors.New("ABSENCE_GRACE must be positive")
	}
	if p.PollInterval <= 0 {
		return errors.New("POLL_INTERVAL must be positive")
	}
	return nil
}

// ProfileNames returns the timing profiles bundled with the binary.
func ProfileNames() []string {
	profiles := loadProfiles()
	names := make([]string, 0, len(profiles))
	for name := range profiles {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
