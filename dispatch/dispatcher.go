// Package dispatch turns Slack events and button presses into component lookups and
// background analyses.
package dispatch

import (
	"context"
	"time"

	"jira-insights-bot/analysis"
	"jira-insights-bot/guard"
	"jira-insights-bot/metrics"
	"jira-insights-bot/models"
	"jira-insights-bot/publish"

	"github.com/rs/zerolog"
)

// Directory is the component lookup the dispatcher needs.
type Directory interface {
	Resolve(ctx context.Context, raw string) ([]string, error)
	Names(ctx context.Context) ([]string, error)
}

type Analyzer interface {
	Run(ctx context.Context, req analysis.Request) (models.AnalysisResult, error)
}

type Options struct {
	Processed     *guard.ProcessedSet
	MessageClock  *guard.DebounceClock
	AnalysisClock *guard.DebounceClock
	Metrics       *metrics.Metrics
	ResultTTL     time.Duration
	AckTimeout    time.Duration
	Now           func() time.Time
}

// Dispatcher owns the per-process request state: delivery dedup, the two debounce clocks
// and the recent result cache. All of it is safe for concurrent use.
type Dispatcher struct {
	dir      Directory
	analyzer Analyzer
	pub      *publish.Publisher
	pool     *Pool

	processed *guard.ProcessedSet
	messages  *guard.DebounceClock
	analyses  *guard.DebounceClock
	results   *resultCache
	metrics   *metrics.Metrics

	ackTimeout time.Duration
	now        func() time.Time
	log        zerolog.Logger
}

func New(dir Directory, analyzer Analyzer, pub *publish.Publisher, pool *Pool, opts Options, logger zerolog.Logger) *Dispatcher {
	if opts.Processed == nil {
		opts.Processed = guard.NewProcessedSet(time.Hour)
	}
	if opts.MessageClock == nil {
		opts.MessageClock = guard.NewDebounceClock(5 * time.Second)
	}
	if opts.AnalysisClock == nil {
		opts.AnalysisClock = guard.NewDebounceClock(time.Minute)
	}
	if opts.ResultTTL <= 0 {
		opts.ResultTTL = 15 * time.Minute
	}
	if opts.AckTimeout <= 0 {
		opts.AckTimeout = 2 * time.Second
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Dispatcher{
		dir:        dir,
		analyzer:   analyzer,
		pub:        pub,
		pool:       pool,
		processed:  opts.Processed,
		messages:   opts.MessageClock,
		analyses:   opts.AnalysisClock,
		results:    newResultCache(opts.ResultTTL, opts.Now),
		metrics:    opts.Metrics,
		ackTimeout: opts.AckTimeout,
		now:        opts.Now,
		log:        logger.With().Str("component", "dispatch").Logger(),
	}
}

// Cleanup drops expired dedup keys, debounce entries and cached results.
func (d *Dispatcher) Cleanup() {
	d.processed.Cleanup()
	d.messages.Cleanup()
	d.analyses.Cleanup()
	d.results.cleanup()
	d.log.Debug().Str("where", "dispatch:Cleanup").Int("processed", d.processed.Len()).Msg("expired request state dropped")
}

// submit runs task on the pool and turns its failure into a message in scope.
func (d *Dispatcher) submit(name string, scope publish.Scope, task Task) {
	d.pool.Submit(name, task, func(err error) {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		d.pub.Fail(ctx, scope, err)
	})
}

// accept applies delivery dedup and reports whether key is new.
func (d *Dispatcher) accept(key string) bool {
	if d.processed.ShouldProcess(key) {
		return true
	}
	d.metrics.Dropped(metrics.DropDuplicate)
	d.log.Debug().Str("where", "dispatch:accept").Str("key", key).Msg("duplicate delivery dropped")
	return false
}
