package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"jira-insights-bot/format"

	"github.com/spf13/cobra"
)

var exportFlags struct {
	platform string
	impact   bool
	out      string
}

var exportCmd = &cobra.Command{
	Use:   "export <component>",
	Short: "Write a component's analysis as CSV",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runExport,
}

func init() {
	f := exportCmd.Flags()
	f.StringVar(&exportFlags.platform, "platform", "both", "web, mobile or both")
	f.BoolVar(&exportFlags.impact, "impact", false, "Export the distinct impact areas instead of every bug")
	f.StringVarP(&exportFlags.out, "out", "o", ".", "Directory to write the CSV into")
}

func runExport(cmd *cobra.Command, args []string) error {
	component, result, err := analyzeArg(cmd.Context(), strings.Join(args, " "), exportFlags.platform)
	if err != nil {
		return err
	}
	if result.IsEmpty() {
		return fmt.Errorf("no customer bugs found for %s", component)
	}

	file := format.BugsCSV(component, result, time.Now())
	if exportFlags.impact {
		file = format.ImpactCSV(component, result, time.Now())
	}
	path, err := writeExport(exportFlags.out, file)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s (%d rows)\n", path, strings.Count(file.Content, "\n")-1)
	return nil
}

func writeExport(dir string, file format.File) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create %s: %w", dir, err)
	}
	path := filepath.Join(dir, file.Name)
	if err := os.WriteFile(path, []byte(file.Content), 0o644); err != nil {
		return "", fmt.Errorf("write export: %w", err)
	}
	return path, nil
}
