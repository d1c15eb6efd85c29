package main

import (
	"context"
	"fmt"

	"jira-insights-bot/analysis"
	"jira-insights-bot/config"
	"jira-insights-bot/directory"
	"jira-insights-bot/metrics"
	"jira-insights-bot/summarize"
	"jira-insights-bot/tracker"

	"github.com/rs/zerolog"
)

// newDirectory builds the component cache over the Jira client.
func newDirectory(cfg config.Config, src directory.Source, log zerolog.Logger) *directory.Cache {
	return directory.NewCache(src, directoryOptions(cfg), log)
}

func directoryOptions(cfg config.Config) directory.Options {
	return directory.Options{
		ResolvePolicy: directory.ParsePolicy(cfg.DirectoryResolvePolicy),
		ListPolicy:    directory.ParsePolicy(cfg.DirectoryListPolicy),
		TTL:           cfg.DirectoryTTL,
	}
}

// newPipeline wires tracker, directory and the configured LLM into an analysis pipeline.
// m may be nil.
func newPipeline(ctx context.Context, cfg config.Config, m *metrics.Metrics, log zerolog.Logger) (*analysis.Pipeline, *directory.Cache, error) {
	if err := cfg.ValidateJira(); err != nil {
		return nil, nil, err
	}
	client, err := tracker.NewClient(cfg, log)
	if err != nil {
		return nil, nil, err
	}
	dir := newDirectory(cfg, client, log)

	llm, err := summarize.NewLLM(ctx, cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("llm: %w", err)
	}
	summarizer := summarize.NewSummarizer(llm, cfg.CallTimeout, log)

	opts := analysis.Options{
		MaxRetries: cfg.MaxRetries,
		RetryBase:  cfg.RetryBase,
		Workers:    cfg.SummaryWorkers,
	}
	if m != nil {
		opts.Observer = m
	}
	return analysis.NewPipeline(client, dir, summarizer, opts, log), dir, nil
}
