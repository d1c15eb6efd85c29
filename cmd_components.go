package main

import (
	"fmt"

	"jira-insights-bot/directory"
	"jira-insights-bot/tracker"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

var componentsFlags struct {
	match    string
	markdown bool
}

var componentsCmd = &cobra.Command{
	Use:   "components",
	Short: "List the Jira components the bot can analyze",
	RunE:  runComponents,
}

func init() {
	f := componentsCmd.Flags()
	f.StringVar(&componentsFlags.match, "match", "", "Only show components matching this text")
	f.BoolVar(&componentsFlags.markdown, "markdown", false, "Render as a Markdown table")
}

func runComponents(cmd *cobra.Command, _ []string) error {
	if err := cfg.ValidateJira(); err != nil {
		return err
	}
	client, err := tracker.NewClient(cfg, logger)
	if err != nil {
		return err
	}
	dir := newDirectory(cfg, client, logger)

	names, err := dir.Names(cmd.Context())
	if err != nil {
		return fmt.Errorf("list components: %w", err)
	}
	if componentsFlags.match != "" {
		names = directory.Match(componentsFlags.match, names)
	}
	fmt.Fprint(cmd.OutOrStdout(), componentTable(names, componentsFlags.markdown))
	return nil
}

func componentTable(names []string, markdown bool) string {
	t := newTable()
	t.AppendHeader(table.Row{"#", "Component"})
	for i, n := range names {
		t.AppendRow(table.Row{i + 1, n})
	}
	t.AppendFooter(table.Row{"", fmt.Sprintf("%d components", len(names))})
	return render(t, markdown)
}

func newTable() table.Writer {
	t := table.NewWriter()
	t.SetStyle(table.StyleLight)
	return t
}

func render(t table.Writer, markdown bool) string {
	if markdown {
		return t.RenderMarkdown() + "\n"
	}
	return t.Render() + "\n"
}
