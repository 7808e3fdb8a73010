package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/theirongolddev/dealdates/internal/model"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadFrom_MissingReturnsDefaults(t *testing.T) {
	cfg, err := LoadFrom(filepath.Join(t.TempDir(), "nope.toml"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.General.UpcomingDays != 14 || cfg.Store.Driver != DriverSQLite || cfg.Calendar.AlarmDays != 1 {
		t.Errorf("defaults = %+v", cfg)
	}
}

func TestLoadFrom_Sections(t *testing.T) {
	path := writeConfig(t, `
[general]
timezone = "America/Los_Angeles"
upcoming_days = 21

[store]
driver = "postgres"
dsn = "postgres://localhost/deals"

[serve]
addr = ":9000"
interval_sec = 60

[calendar]
alarm_days = 2
include_tasks = true

[milestones.closing_date]
offset_days = 45
push_off_weekend = false

[milestones.seller_disclosures_date]
business_days = true
`)
	cfg, err := LoadFrom(path)
	if err != nil {
		t.Fatalf("LoadFrom: %v", err)
	}
	if cfg.General.UpcomingDays != 21 || cfg.Serve.Addr != ":9000" || cfg.PollInterval().Seconds() != 60 {
		t.Errorf("general/serve = %+v %+v", cfg.General, cfg.Serve)
	}
	if !cfg.Calendar.IncludeTasks || cfg.Calendar.AlarmDays != 2 {
		t.Errorf("calendar = %+v", cfg.Calendar)
	}
	if cfg.Location().String() != "America/Los_Angeles" {
		t.Errorf("Location = %s", cfg.Location())
	}

	cat, err := cfg.Catalog()
	if err != nil {
		t.Fatalf("Catalog: %v", err)
	}
	closing, _ := cat.Lookup("closing_date")
	if closing.DefaultOffset == nil || *closing.DefaultOffset != 45 || closing.PushOffWeekend {
		t.Errorf("closing override not applied: %+v", closing)
	}
	sd, _ := cat.Lookup("seller_disclosures_date")
	if !sd.BusinessDays {
		t.Error("seller_disclosures_date business_days override not applied")
	}

	// The package default must stay untouched.
	def, _ := model.DefaultCatalog().Lookup("closing_date")
	if *def.DefaultOffset != 30 || !def.PushOffWeekend {
		t.Errorf("default catalog mutated: %+v", def)
	}
}

func TestCatalog_UnknownKey(t *testing.T) {
	cfg := DefaultConfig()
	n := 3
	cfg.Milestones = map[string]MilestoneOverride{"roof_date": {OffsetDays: &n}}
	if _, err := cfg.Catalog(); !errors.Is(err, model.ErrUnknownMilestone) {
		t.Fatalf("Catalog error = %v, want ErrUnknownMilestone", err)
	}
}

func TestCatalog_RootOffsetRejected(t *testing.T) {
	cfg := DefaultConfig()
	n := 1
	cfg.Milestones = map[string]MilestoneOverride{model.KeyOfferAcceptance: {OffsetDays: &n}}
	if _, err := cfg.Catalog(); err == nil {
		t.Fatal("expected error for root offset override")
	}
}

func TestLoadFrom_Invalid(t *testing.T) {
	tests := map[string]string{
		"bad driver":   "[store]\ndriver = \"mysql\"\n",
		"bad timezone": "[general]\ntimezone = \"Mars/Olympus\"\n",
		"bad toml":     "[general\n",
	}
	for name, body := range tests {
		if _, err := LoadFrom(writeConfig(t, body)); err == nil {
			t.Errorf("%s: expected error", name)
		}
	}
}

func TestSaveToRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sub", "config.toml")
	cfg := DefaultConfig()
	cfg.Serve.Addr = ":7000"
	yes := true
	cfg.Milestones = map[string]MilestoneOverride{"emd_due_date": {BusinessDays: &yes}}

	if err := SaveTo(path, cfg); err != nil {
		t.Fatalf("SaveTo: %v", err)
	}
	got, err := LoadFrom(path)
	if err != nil {
		t.Fatalf("LoadFrom: %v", err)
	}
	if got.Serve.Addr != ":7000" {
		t.Errorf("Addr = %q", got.Serve.Addr)
	}
	if o := got.Milestones["emd_due_date"]; o.BusinessDays == nil || !*o.BusinessDays {
		t.Errorf("override lost: %+v", o)
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("DEALDATES_DB", "/tmp/x.db")
	t.Setenv("DEALDATES_PG_DSN", "postgres://env")
	cfg := DefaultConfig()
	cfg.Store.Path = "/ignored.db"
	cfg.Store.DSN = "postgres://cfg"
	if cfg.DBPath() != "/tmp/x.db" || cfg.PostgresDSN() != "postgres://env" {
		t.Errorf("DBPath=%q DSN=%q", cfg.DBPath(), cfg.PostgresDSN())
	}
}

func TestDataDirXDG(t *testing.T) {
	t.Setenv("XDG_DATA_HOME", "/data")
	t.Setenv("DEALDATES_DB", "")
	if got := DefaultConfig().DBPath(); got != filepath.Join("/data", "dealdates", "dealdates.db") {
		t.Errorf("DBPath = %q", got)
	}
}
