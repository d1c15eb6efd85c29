package dispatch

import (
	"context"
	"fmt"

	"jira-insights-bot/analysis"
	"jira-insights-bot/format"
	"jira-insights-bot/models"
	"jira-insights-bot/publish"
)

const outcomeOK, outcomeEmpty, outcomeFailed = "ok", "empty", "failed"

// analyze runs the pipeline with progress reported on status, caching the result.
func (d *Dispatcher) analyze(ctx context.Context, status *publish.Status, a Action) (models.AnalysisResult, error) {
	// each pipeline stage is echoed to the status message so the user sees progress
	result, runAnalysisError := d.analyzer.Run(ctx, analysis.Request{
		Component: a.Component,
		Platform:  a.Platform,
		Progress: func(stage analysis.Stage, issues int) {
			switch stage {
			case analysis.StageFetching:
				status.Progress(ctx, fmt.Sprintf("📊 Fetching JIRA data for %s...", a.Component))
			case analysis.StageSummarizing:
				status.Progress(ctx, fmt.Sprintf("🧠 Processing insights for %s (%d issues)...", a.Component, issues))
			case analysis.StageGrouping:
				status.Progress(ctx, fmt.Sprintf("📝 Preparing results for %s...", a.Component))
			}
		},
	})
	if runAnalysisError != nil {
		return result, fmt.Errorf("analyze %s: %w", a.Component, runAnalysisError)
	}

	// keep the result so a later CSV download skips the pipeline
	d.results.put(a.Component, a.Platform, result)
	return result, nil
}

func (d *Dispatcher) runAnalysis(ctx context.Context, scope publish.Scope, status *publish.Status, a Action) error {
	start := d.now()
	f := newFlow(StateAwaitingView, d.log.With().Str("subject", a.Component).Logger())
	f.must(StateAnalyzing)

	result, analyzeError := d.analyze(ctx, status, a)
	if analyzeError != nil {
		f.must(StateFailed)
		d.metrics.Analysis(a.View(), outcomeFailed, d.now().Sub(start))
		return analyzeError
	}

	// Render the chosen view into batches that fit one Slack message each
	f.must(StateRendering)
	var batches []format.Batch
	if a.Kind == ActionViewImpact {
		batches = format.ImpactBatches(a.Component, result, format.ByClass)
	} else {
		batches = format.Batches(result)
	}

	if len(batches) == 0 {
		f.must(StateDone)
		d.metrics.Analysis(a.View(), outcomeEmpty, d.now().Sub(start))
		return status.Set(ctx, fmt.Sprintf("⚠️ No analysis available for %s.", a.Component))
	}

	// Deliver every batch in order; the download button rides on the last one
	for _, b := range batches {
		blocks := b.Blocks
		if b.Final() {
			blocks = append(blocks, downloadBlock(a))
		}
		text := fmt.Sprintf("Analysis results for %s (part %d/%d)", a.Component, b.Index, b.Total)
		if sendBatchError := d.pub.Send(ctx, scope, text, blocks); sendBatchError != nil {
			f.must(StateFailed)
			d.metrics.Analysis(a.View(), outcomeFailed, d.now().Sub(start))
			return fmt.Errorf("deliver part %d/%d: %w", b.Index, b.Total, sendBatchError)
		}
	}
	status.Clear(ctx)

	f.must(StateDone)
	d.metrics.Analysis(a.View(), outcomeOK, d.now().Sub(start))
	d.log.Info().
		Str("where", "dispatch:runAnalysis").
		Str("subject", a.Component).
		Str("view", a.View()).
		Int("batches", len(batches)).
		Dur("took", d.now().Sub(start)).
		Msg("results delivered")
	return nil
}

func (d *Dispatcher) runExport(ctx context.Context, scope publish.Scope, status *publish.Status, a Action) error {
	start := d.now()
	view := a.View() + "_csv"
	status.Progress(ctx, fmt.Sprintf("🔄 Starting CSV export for %s...", a.Component))

	// Reuse the last analysis of this component when there is one
	result, ok := d.results.get(a.Component, a.Platform)
	if !ok {
		status.Progress(ctx, fmt.Sprintf("📊 Analyzing %s...", a.Component))
		var analyzeError error
		if result, analyzeError = d.analyze(ctx, status, a); analyzeError != nil {
			d.metrics.Analysis(view, outcomeFailed, d.now().Sub(start))
			return analyzeError
		}
	}
	if result.IsEmpty() {
		d.metrics.Analysis(view, outcomeEmpty, d.now().Sub(start))
		return status.Set(ctx, fmt.Sprintf("⚠️ No analysis available for %s.", a.Component))
	}

	status.Progress(ctx, "📝 Formatting CSV...")
	var file format.File
	if a.Kind == ActionDownloadBugs {
		file = format.BugsCSV(a.Component, result, d.now())
	} else {
		file = format.ImpactCSV(a.Component, result, d.now())
	}

	status.Progress(ctx, "📤 Uploading CSV...")
	uploadCsvError := d.pub.Messenger().Upload(ctx, scope.Channel, file)
	if uploadCsvError != nil {
		d.metrics.Analysis(view, outcomeFailed, d.now().Sub(start))
		return uploadCsvError
	}
	status.Clear(ctx)
	d.metrics.Analysis(view, outcomeOK, d.now().Sub(start))
	return nil
}
