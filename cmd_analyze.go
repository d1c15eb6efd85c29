package main

import (
	"context"
	"fmt"
	"strings"

	"jira-insights-bot/analysis"
	"jira-insights-bot/format"
	"jira-insights-bot/models"
	"jira-insights-bot/summarize"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

var analyzeFlags struct {
	platform string
	impact   bool
	markdown bool
}

var analyzeCmd = &cobra.Command{
	Use:   "analyze <component>",
	Short: "Summarize a component's customer bugs and print them grouped by customer",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runAnalyze,
}

func init() {
	f := analyzeCmd.Flags()
	f.StringVar(&analyzeFlags.platform, "platform", string(models.PlatformBoth), "web, mobile or both")
	f.BoolVar(&analyzeFlags.impact, "impact", false, "Print the key impacts instead of every bug")
	f.BoolVar(&analyzeFlags.markdown, "markdown", false, "Render as a Markdown table")
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	component, result, err := analyzeArg(ctx, strings.Join(args, " "), analyzeFlags.platform)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if result.IsEmpty() {
		fmt.Fprintf(out, "No customer bugs found for %s.\n", component)
		return nil
	}
	if analyzeFlags.impact {
		fmt.Fprint(out, impactTable(component, result, analyzeFlags.markdown))
		return nil
	}
	fmt.Fprint(out, resultTable(component, result, analyzeFlags.markdown))
	return nil
}

type componentResolver interface {
	Exact(ctx context.Context, name string) (string, bool)
	Resolve(ctx context.Context, raw string) ([]string, error)
}

// analyzeArg resolves raw against the directory and runs the analysis for the single match.
func analyzeArg(ctx context.Context, raw, platform string) (string, models.AnalysisResult, error) {
	p, ok := models.ParsePlatform(platform)
	if !ok {
		return "", models.AnalysisResult{}, fmt.Errorf("unknown platform %q", platform)
	}
	pipeline, dir, err := newPipeline(ctx, cfg, nil, logger)
	if err != nil {
		return "", models.AnalysisResult{}, err
	}

	component, err := pick(ctx, dir, raw)
	if err != nil {
		return "", models.AnalysisResult{}, err
	}

	// without a platform filter the plain analysis covers everything
	if p == models.PlatformBoth {
		result, err := pipeline.Analyze(ctx, component)
		return component, result, err
	}
	result, err := pipeline.Run(ctx, analysis.Request{
		Component: component,
		Platform:  p,
		Progress: func(stage analysis.Stage, issues int) {
			logger.Info().Str("where", "main:analyze").Int("stage", int(stage)).Int("issues", issues).Msg("progress")
		},
	})
	return component, result, err
}

// pick returns the one component raw resolves to.
func pick(ctx context.Context, dir componentResolver, raw string) (string, error) {
	if name, ok := dir.Exact(ctx, raw); ok {
		return name, nil
	}
	matches, err := dir.Resolve(ctx, raw)
	if err != nil {
		return "", err
	}
	switch len(matches) {
	case 0:
		return "", fmt.Errorf("%w: %q", models.ErrComponentNotFound, raw)
	case 1:
		return matches[0], nil
	default:
		return "", fmt.Errorf("component %q is ambiguous: %s", raw, strings.Join(matches, ", "))
	}
}

func resultTable(component string, result models.AnalysisResult, markdown bool) string {
	t := newTable()
	t.SetTitle("Customer bugs for " + component)
	t.AppendHeader(table.Row{"Customer", "Class", "Bug", "Impact"})
	t.SetColumnConfigs([]table.ColumnConfig{
		{Number: 3, WidthMax: 60},
		{Number: 4, WidthMax: 60},
	})
	for _, customer := range result.Customers {
		for _, class := range models.SeverityClasses {
			for _, item := range result.Entries(customer, class) {
				impact, _, _ := summarize.Sections(item)
				t.AppendRow(table.Row{customer, class.String(), itemTitle(item), impact})
			}
		}
	}
	t.AppendFooter(table.Row{"", "", fmt.Sprintf("%d bugs", result.Len()), ""})
	return render(t, markdown)
}

func impactTable(component string, result models.AnalysisResult, markdown bool) string {
	t := newTable()
	t.SetTitle("Key impacts for " + component)
	t.AppendHeader(table.Row{"Group", "#", "Impact"})
	t.SetColumnConfigs([]table.ColumnConfig{{Number: 3, WidthMax: 80}})
	for _, g := range format.Impacts(result, format.ByClass) {
		for i, impact := range g.Impacts {
			t.AppendRow(table.Row{g.Title, i + 1, impact})
		}
	}
	return render(t, markdown)
}

// itemTitle is the first line of a summary without Slack markup.
func itemTitle(item string) string {
	title, _, _ := strings.Cut(item, "\n")
	return strings.TrimSpace(strings.ReplaceAll(title, "*", ""))
}
