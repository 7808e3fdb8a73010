package cmd

import (
	"fmt"
	"net/url"
	"sort"

	"github.com/spf13/cobra"

	"github.com/theirongolddev/dealdates/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show current configuration",
	RunE:  runConfig,
}

func init() {
	rootCmd.AddCommand(configCmd)
}

func runConfig(_ *cobra.Command, _ []string) error {
	cfg := appCfg

	fmt.Printf("  Config file: %s\n", config.ConfigPath())
	if config.Exists() {
		fmt.Println("  Status: loaded")
	} else {
		fmt.Println("  Status: using defaults (no config file)")
	}
	fmt.Println()

	fmt.Println("  [General]")
	fmt.Printf("    Timezone:      %s\n", cfg.Location())
	fmt.Printf("    Upcoming days: %d\n", cfg.General.UpcomingDays)
	fmt.Println()

	fmt.Println("  [Store]")
	fmt.Printf("    Driver: %s\n", cfg.Store.Driver)
	if cfg.Store.Driver == config.DriverPostgres {
		if cfg.PostgresDSN() != "" {
			fmt.Printf("    DSN:    %s\n", maskDSN(cfg.PostgresDSN()))
		} else {
			fmt.Println("    DSN:    not configured")
		}
	} else {
		fmt.Printf("    Path:   %s\n", cfg.DBPath())
	}
	fmt.Println()

	fmt.Println("  [Serve]")
	fmt.Printf("    Address:  %s\n", cfg.Serve.Addr)
	fmt.Printf("    Interval: %s\n", cfg.PollInterval())
	fmt.Println()

	fmt.Println("  [Calendar]")
	fmt.Printf("    Alarm days:    %d\n", cfg.Calendar.AlarmDays)
	fmt.Printf("    Include tasks: %v\n", cfg.Calendar.IncludeTasks)
	fmt.Println()

	fmt.Println("  [Appearance]")
	fmt.Printf("    Theme: %s\n", cfg.Appearance.Theme)
	fmt.Println()

	if len(cfg.Milestones) > 0 {
		fmt.Println("  [Milestones]")
		keys := make([]string, 0, len(cfg.Milestones))
		for k := range cfg.Milestones {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, key := range keys {
			o := cfg.Milestones[key]
			fmt.Printf("    %s:", key)
			if o.OffsetDays != nil {
				fmt.Printf(" offset=%d", *o.OffsetDays)
			}
			if o.BusinessDays != nil {
				fmt.Printf(" business_days=%v", *o.BusinessDays)
			}
			if o.PushOffWeekend != nil {
				fmt.Printf(" push_off_weekend=%v", *o.PushOffWeekend)
			}
			fmt.Println()
		}
		fmt.Println()
	}

	fmt.Println("  Run `dealdates setup` to reconfigure.")
	return nil
}

// maskDSN hides the password of a postgres URL.
func maskDSN(dsn string) string {
	u, err := url.Parse(dsn)
	if err != nil {
		return dsn
	}
	return u.Redacted()
}
