package cmd

import (
	"context"
	"fmt"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
	"github.com/spf13/cobra"

	"github.com/theirongolddev/dealdates/internal/config"
	"github.com/theirongolddev/dealdates/internal/dates"
	"github.com/theirongolddev/dealdates/internal/store"
	"github.com/theirongolddev/dealdates/internal/tui"
	"github.com/theirongolddev/dealdates/internal/tui/theme"
)

var tuiCmd = &cobra.Command{
	Use:   "tui",
	Short: "Launch the interactive timeline and calendar",
	RunE:  runTUI,
}

func init() {
	rootCmd.AddCommand(tuiCmd)
}

func runTUI(cmd *cobra.Command, _ []string) error {
	theme.SetActive(appCfg.Appearance.Theme)

	// Card backgrounds need ANSI output even when lipgloss detects a dumb terminal.
	lipgloss.SetColorProfile(termenv.TrueColor)

	cat, err := catalog()
	if err != nil {
		return err
	}
	todayFn := func() time.Time { return dates.Today(appCfg.Location()) }
	if flagToday != "" {
		fixed, err := today()
		if err != nil {
			return err
		}
		todayFn = func() time.Time { return fixed }
	}

	return withStore(cmd, func(_ context.Context, st store.Store) error {
		app := tui.NewApp(tui.Options{
			Store:     st,
			Catalog:   cat,
			Config:    appCfg,
			Today:     todayFn,
			NeedSetup: !config.Exists(),
		})
		p := tea.NewProgram(app, tea.WithAltScreen())
		if _, err := p.Run(); err != nil {
			return fmt.Errorf("TUI error: %w", err)
		}
		return nil
	})
}
