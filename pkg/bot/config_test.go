package bot

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

func TestLoadConfig(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "config.yaml")
	data := `
token: "123:abc"
group_id: -1001
channel_id: -1002
admins: [7, 8]
daily_limit: 3
timezone: "UTC"
`
	if err := os.WriteFile(path, []byte(data), 0o600); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}

	want := DefaultConfig()
	want.Token = "123:abc"
	want.GroupID = -1001
	want.ChannelID = -1002
	want.Admins = []int64{7, 8}
	want.DailyLimit = 3
	want.Timezone = "UTC"
	if diff := cmp.Diff(want, cfg); diff != "" {
		t.Errorf("config mismatch (-want +got):\n%s", diff)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate: %v", err)
	}
}

func TestLoadConfigMissingFile(t *testing.T) {
	t.Parallel()

	if _, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestConfigValidate(t *testing.T) {
	t.Parallel()

	valid := DefaultConfig()
	valid.Token = "123:abc"
	valid.GroupID = -1001
	valid.ChannelID = -1002

	tests := map[string]struct {
		mutate  func(*Config)
		wantErr bool
	}{
		"valid":             {func(c *Config) {}, false},
		"missing token":     {func(c *Config) { c.Token = "" }, true},
		"missing group":     {func(c *Config) { c.GroupID = 0 }, true},
		"missing channel":   {func(c *Config) { c.ChannelID = 0 }, true},
		"zero daily limit":  {func(c *Config) { c.DailyLimit = 0 }, true},
		"reset hour high":   {func(c *Config) { c.ResetHour = 24 }, true},
		"reset hour low":    {func(c *Config) { c.ResetHour = -1 }, true},
		"negative cooldown": {func(c *Config) { c.CooldownMinutes = -5 }, true},
		"zero cooldown":     {func(c *Config) { c.CooldownMinutes = 0 }, false},
		"bad timezone":      {func(c *Config) { c.Timezone = "Mars/Olympus" }, true},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			cfg := valid
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr && err == nil {
				t.Error("expected validation error")
			}
			if !tt.wantErr && err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		})
	}
}

func TestConfigRules(t *testing.T) {
	t.Parallel()

	cfg := DefaultConfig()
	cfg.Admins = []int64{7, 8}
	cfg.DailyLimit = 3
	cfg.CooldownMinutes = 45
	cfg.ResetHour = 6

	rules := cfg.Rules(time.UTC)
	if rules.DailyLimit != 3 {
		t.Errorf("DailyLimit = %d, want 3", rules.DailyLimit)
	}
	if rules.Cooldown != 45*time.Minute {
		t.Errorf("Cooldown = %v, want 45m", rules.Cooldown)
	}
	if rules.ResetHour != 6 {
		t.Errorf("ResetHour = %d, want 6", rules.ResetHour)
	}
	if rules.Location != time.UTC {
		t.Errorf("Location = %v, want UTC", rules.Location)
	}
	if !rules.Admins[7] || !rules.Admins[8] || rules.Admins[9] {
		t.Errorf("Admins = %v, want {7, 8}", rules.Admins)
	}
}
