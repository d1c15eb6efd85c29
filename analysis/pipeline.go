// Package analysis fetches a component's issues, summarizes them concurrently and groups
// the summaries by customer and severity class.
package analysis

import (
	"context"
	"fmt"
	"strings"
	"time"

	"jira-insights-bot/models"
	"jira-insights-bot/tracker"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

type Issue = models.Issue
type IssueRecord = models.IssueRecord
type AnalysisResult = models.AnalysisResult

// Tracker runs issue queries.
type Tracker interface {
	SearchIssues(ctx context.Context, jql string) ([]Issue, error)
}

// Directory resolves the tracker spelling of a component.
type Directory interface {
	Exact(ctx context.Context, name string) (string, bool)
}

// IssueSummarizer always returns a usable summary; a non-nil error marks a degraded one.
type IssueSummarizer interface {
	Summarize(ctx context.Context, issue Issue) (string, error)
}

// Observer is told about degraded summaries. Optional.
type Observer interface {
	SummaryFailed(component string)
}

type Options struct {
	MaxRetries int
	RetryBase  time.Duration
	Workers    int
	Observer   Observer
}

type Pipeline struct {
	tracker    Tracker
	directory  Directory
	summarizer IssueSummarizer
	opts       Options
	log        zerolog.Logger
}

func NewPipeline(t Tracker, d Directory, s IssueSummarizer, opts Options, logger zerolog.Logger) *Pipeline {
	if opts.MaxRetries < 1 {
		opts.MaxRetries = 3
	}
	if opts.Workers < 1 {
		opts.Workers = 8
	}
	return &Pipeline{
		tracker:    t,
		directory:  d,
		summarizer: s,
		opts:       opts,
		log:        logger.With().Str("component", "analysis").Logger(),
	}
}

// Stage is a step of a running analysis, reported through Request.Progress.
type Stage int

const (
	StageFetching Stage = iota
	StageSummarizing
	StageGrouping
)

// Request describes one analysis run.
type Request struct {
	Component string
	Platform  models.Platform
	// Progress, when set, is called as each stage starts with the number of issues in hand.
	Progress func(stage Stage, issues int)
}

func (r Request) report(stage Stage, issues int) {
	if r.Progress != nil {
		r.Progress(stage, issues)
	}
}

// Analyze groups the summarized issues of component. Zero issues yields an empty result.
func (p *Pipeline) Analyze(ctx context.Context, component string) (AnalysisResult, error) {
	return p.Run(ctx, Request{Component: component, Platform: models.PlatformBoth})
}

// Run is Analyze for a platform, reporting each stage to req.Progress.
func (p *Pipeline) Run(ctx context.Context, req Request) (AnalysisResult, error) {
	records, err := p.records(ctx, req)
	if err != nil {
		return models.NewAnalysisResult(), err
	}
	req.report(StageGrouping, len(records))
	result := Group(records)
	p.log.Info().
		Str("where", "analysis:Run").
		Str("subject", req.Component).
		Str("platform", string(req.Platform)).
		Int("issues", len(records)).
		Int("grouped", result.Len()).
		Int("customers", len(result.Customers)).
		Msg("analysis complete")
	return result, nil
}

// records queries and summarizes the issues of req.Component, in query order.
func (p *Pipeline) records(ctx context.Context, req Request) ([]IssueRecord, error) {
	name := req.Component
	if exact, ok := p.directory.Exact(ctx, name); ok {
		name = exact
	} else {
		p.log.Warn().Str("where", "analysis:records").Str("subject", name).Msg("no exact component match, querying as typed")
	}

	req.report(StageFetching, 0)
	issues, err := p.search(ctx, name)
	if err != nil {
		return nil, err
	}
	issues = filterComponent(issues, name)
	issues = filterPlatform(issues, req.Platform)
	if len(issues) == 0 {
		return nil, nil
	}
	req.report(StageSummarizing, len(issues))
	return p.summarizeAll(ctx, name, issues), nil
}

func (p *Pipeline) search(ctx context.Context, component string) ([]Issue, error) {
	jql := tracker.ComponentJQL(component)
	var issues []Issue
	err := tracker.Retry(ctx, p.opts.MaxRetries, p.opts.RetryBase, func(ctx context.Context, attempt int) error {
		var err error
		issues, err = p.tracker.SearchIssues(ctx, jql)
		if err != nil {
			p.log.Warn().Err(err).
				Str("where", "analysis:search").
				Int("attempt", attempt).
				Int("max_attempts", p.opts.MaxRetries).
				Msg("issue query failed")
		}
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("%w: query %q: %v", models.ErrTrackerUnavailable, component, err)
	}
	return issues, nil
}

// summarizeAll fans out one summary per issue on a bounded pool. Results are stored by
// index so completion order does not matter.
func (p *Pipeline) summarizeAll(ctx context.Context, component string, issues []Issue) []IssueRecord {
	records := make([]IssueRecord, len(issues))

	var g errgroup.Group
	g.SetLimit(p.opts.Workers)
	for i, issue := range issues {
		g.Go(func() error {
			summary, err := p.summarizer.Summarize(ctx, issue)
			if err != nil && p.opts.Observer != nil {
				p.opts.Observer.SummaryFailed(component)
			}
			records[i] = IssueRecord{
				Key:         issue.Key,
				Summary:     issue.Summary,
				Components:  issue.Components,
				Customer:    issue.Customer,
				Description: issue.Description,
				Priority:    issue.Priority,
				LLMSummary:  summary,
			}
			return nil
		})
	}
	_ = g.Wait()
	return records
}

// Group buckets records by customer and class in record order. Records without a customer
// or without a determinable class are left out.
func Group(records []IssueRecord) AnalysisResult {
	result := models.NewAnalysisResult()
	for _, r := range records {
		if strings.TrimSpace(r.Customer) == "" {
			continue
		}
		class := r.Class()
		if class == models.ClassUnknown || r.LLMSummary == "" {
			continue
		}
		result.Add(r.Customer, class, r.LLMSummary)
	}
	return result
}

func filterComponent(issues []Issue, component string) []Issue {
	out := issues[:0:0]
	for _, issue := range issues {
		for _, c := range issue.Components {
			if strings.EqualFold(c, component) {
				out = append(out, issue)
				break
			}
		}
	}
	return out
}

func filterPlatform(issues []Issue, platform models.Platform) []Issue {
	if platform == "" || platform == models.PlatformBoth {
		return issues
	}
	needle := string(platform)
	out := issues[:0:0]
	for _, issue := range issues {
		text := strings.ToLower(issue.Summary + " " + issue.Description + " " + strings.Join(issue.Components, " "))
		if strings.Contains(text, needle) {
			out = append(out, issue)
		}
	}
	return out
}
