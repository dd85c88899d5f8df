package cel

import (
	"fmt"
	"sort"
	"strings"

	"gopkg.in/ini.v1"
)

// Config is the immutable CEL configuration. A loaded Config is never
// mutated; reloads swap in a fresh value atomically.
type Config struct {
	// Enable turns event reporting on. When false every candidate event is
	// dropped before any record is built.
	Enable bool

	// DateFormat is an optional strftime pattern used when rendering event
	// times for fabricated channels. Empty means epoch seconds.microseconds.
	DateFormat string

	// Events is the mask of tracked event types.
	Events EventSet

	// Apps is the set of tracked application names, stored lowercased.
	// Only consulted for APP_START and APP_END.
	Apps map[string]struct{}
}

// DefaultConfig returns the configuration used when no cel.conf could be
// processed: logging disabled, nothing tracked.
func DefaultConfig() *Config {
	return &Config{Apps: map[string]struct{}{}}
}

// TrackApp reports whether the given application is tracked. Matching is
// case-insensitive.
func (c *Config) TrackApp(app string) bool {
	_, ok := c.Apps[strings.ToLower(app)]
	return ok
}

// AppNames returns the tracked application names in sorted order.
func (c *Config) AppNames() []string {
	names := make([]string, 0, len(c.Apps))
	for app := range c.Apps {
		names = append(names, app)
	}
	sort.Strings(names)
	return names
}

// Validate rejects inconsistent configurations before they are applied.
// Listing applications without tracking either APP event is an error because
// the app filter would silently never match anything.
func (c *Config) Validate() error {
	if len(c.Apps) == 0 {
		return nil
	}
	if c.Events.Track(AppStart) || c.Events.Track(AppEnd) {
		return nil
	}
	return fmt.Errorf("applications are listed to be tracked, but APP events are not tracked")
}

// LoadConfig reads and validates a cel.conf file. Only the [general] section
// belongs to the engine; [manager] and [radius] are owned by other modules
// and are skipped entirely.
func LoadConfig(path string) (*Config, error) {
	file, err := ini.LoadSources(ini.LoadOptions{Loose: false}, path)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", path, err)
	}
	return configFromFile(file)
}

// ParseConfig parses cel.conf content from memory. Used by tests and the
// reload path once the file bytes have been read.
func ParseConfig(data []byte) (*Config, error) {
	file, err := ini.Load(data)
	if err != nil {
		return nil, fmt.Errorf("parse cel.conf: %w", err)
	}
	return configFromFile(file)
}

func configFromFile(file *ini.File) (*Config, error) {
	cfg := DefaultConfig()

	general := file.Section("general")

	if general.HasKey("enable") {
		enable, err := general.Key("enable").Bool()
		if err != nil {
			return nil, fmt.Errorf("invalid enable value %q", general.Key("enable").String())
		}
		cfg.Enable = enable
	}

	cfg.DateFormat = general.Key("dateformat").String()

	if general.HasKey("events") {
		events, err := ParseEventSet(general.Key("events").String())
		if err != nil {
			return nil, err
		}
		cfg.Events = events
	}

	for _, app := range strings.Split(general.Key("apps").String(), ",") {
		app = strings.TrimSpace(app)
		if app == "" {
			continue
		}
		cfg.Apps[strings.ToLower(app)] = struct{}{}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}
