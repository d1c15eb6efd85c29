package main

import (
	"errors"
	"fmt"

	"jira-insights-bot/repo"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

var installationsCmd = &cobra.Command{
	Use:   "installations",
	Short: "List the Slack users who installed the app",
	RunE:  runInstallations,
}

func runInstallations(cmd *cobra.Command, _ []string) error {
	if cfg.DatabaseURL == "" {
		return errors.New("DATABASE_URL is required")
	}
	store, db, err := repo.Open(cmd.Context(), cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer db.Close()

	list, err := store.List(cmd.Context())
	if err != nil {
		return err
	}
	t := newTable()
	t.AppendHeader(table.Row{"User", "Team", "Installed"})
	for _, in := range list {
		t.AppendRow(table.Row{in.UserID, in.TeamID, in.InstalledAt.Format("2006-01-02 15:04")})
	}
	fmt.Fprint(cmd.OutOrStdout(), render(t, false))
	return nil
}
