package cel

import (
	"os"
	"path/filepath"
	"testing"
)

func TestParseConfig(t *testing.T) {
	tests := []struct {
		name    string
		conf    string
		wantErr bool
		check   func(t *testing.T, cfg *Config)
	}{
		{
			name: "full",
			conf: `[general]
enable = yes
dateformat = %F %T
events = CHAN_START,CHAN_END,APP_START,LINKEDID_END
apps = Dial,Park
`,
			check: func(t *testing.T, cfg *Config) {
				if !cfg.Enable {
					t.Error("Enable = false, want true")
				}
				if cfg.DateFormat != "%F %T" {
					t.Errorf("DateFormat = %q", cfg.DateFormat)
				}
				if !cfg.Events.Track(ChannelStart) || !cfg.Events.Track(LinkedIDEnd) {
					t.Error("configured events not tracked")
				}
				if cfg.Events.Track(Hangup) {
					t.Error("HANGUP tracked without being configured")
				}
				if !cfg.TrackApp("dial") || !cfg.TrackApp("DIAL") {
					t.Error("apps should match case-insensitively")
				}
				if cfg.TrackApp("queue") {
					t.Error("unlisted app tracked")
				}
			},
		},
		{
			name: "empty_general_defaults",
			conf: "[general]\n",
			check: func(t *testing.T, cfg *Config) {
				if cfg.Enable {
					t.Error("Enable should default to false")
				}
				if cfg.Events != 0 {
					t.Errorf("Events = %v, want empty set", cfg.Events)
				}
				if len(cfg.Apps) != 0 {
					t.Errorf("Apps = %v, want empty", cfg.Apps)
				}
			},
		},
		{
			name: "events_all",
			conf: "[general]\nenable = yes\nevents = ALL\n",
			check: func(t *testing.T, cfg *Config) {
				if cfg.Events != EventSetAll {
					t.Errorf("Events = %v, want all", cfg.Events)
				}
			},
		},
		{
			name: "foreign_sections_ignored",
			conf: `[general]
enable = yes
events = HANGUP

[manager]
enabled = yes

[radius]
radiuscfg = /etc/radiusclient/radiusclient.conf
`,
			check: func(t *testing.T, cfg *Config) {
				if !cfg.Enable || !cfg.Events.Track(Hangup) {
					t.Error("[general] not parsed when other sections present")
				}
			},
		},
		{
			name:    "apps_without_app_events",
			conf:    "[general]\nenable = yes\nevents = HANGUP\napps = Dial\n",
			wantErr: true,
		},
		{
			name:    "unknown_event",
			conf:    "[general]\nevents = NOT_REAL\n",
			wantErr: true,
		},
		{
			name:    "bad_enable",
			conf:    "[general]\nenable = maybe\n",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := ParseConfig([]byte(tt.conf))
			if tt.wantErr {
				if err == nil {
					t.Fatalf("ParseConfig() = %+v, want error", cfg)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseConfig() error: %v", err)
			}
			tt.check(t, cfg)
		})
	}
}

func TestLoadConfig(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "cel.conf")
	conf := "[general]\nenable = yes\nevents = CHAN_START,CHAN_END\n"
	if err := os.WriteFile(path, []byte(conf), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig() error: %v", err)
	}
	if !cfg.Enable || !cfg.Events.Track(ChannelEnd) {
		t.Errorf("LoadConfig() = %+v", cfg)
	}

	if _, err := LoadConfig(filepath.Join(dir, "missing.conf")); err == nil {
		t.Error("LoadConfig on missing file should fail")
	}
}

func TestConfigValidate(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Apps["dial"] = struct{}{}
	if err := cfg.Validate(); err == nil {
		t.Error("apps without APP events should not validate")
	}

	cfg.Events = cfg.Events.With(AppEnd)
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate() error: %v", err)
	}
}
