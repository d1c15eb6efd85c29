package analysis

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"jira-insights-bot/models"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeTracker struct {
	mu       sync.Mutex
	issues   []Issue
	failures int
	calls    int
	jql      string
}

func (f *fakeTracker) SearchIssues(ctx context.Context, jql string) ([]Issue, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.jql = jql
	if f.calls <= f.failures {
		return nil, errors.New("503 from jira")
	}
	return f.issues, nil
}

type fakeDirectory map[string]string

func (d fakeDirectory) Exact(ctx context.Context, name string) (string, bool) {
	v, ok := d[strings.ToLower(name)]
	return v, ok
}

// fakeSummarizer marks summaries with the glyph of the issue priority and sleeps in
// reverse order so completion order differs from query order.
type fakeSummarizer struct {
	fail     map[string]bool
	inFlight atomic.Int32
	peak     atomic.Int32
}

func (f *fakeSummarizer) Summarize(ctx context.Context, issue Issue) (string, error) {
	n := f.inFlight.Add(1)
	defer f.inFlight.Add(-1)
	for {
		p := f.peak.Load()
		if n <= p || f.peak.CompareAndSwap(p, n) {
			break
		}
	}
	time.Sleep(time.Millisecond)

	class := models.ClassFromPriority(issue.Priority)
	title := fmt.Sprintf("%s *%s* | *%s*\n<%s|View in Jira>\n", class.Glyph(), class, issue.Summary, issue.URL)
	if f.fail[issue.Key] {
		return title, errors.New("llm down")
	}
	return title + "\n*Impact:* impact of " + issue.Key + "\n", nil
}

type countingObserver struct{ n atomic.Int32 }

func (c *countingObserver) SummaryFailed(string) { c.n.Add(1) }

func issue(key, customer, priority string) Issue {
	return Issue{
		Key:        key,
		Summary:    "summary " + key,
		Customer:   customer,
		Priority:   priority,
		Components: []string{"Job Scheduler"},
		URL:        "https://jira/browse/" + key,
	}
}

func newPipeline(tr Tracker, s IssueSummarizer, obs Observer) *Pipeline {
	dir := fakeDirectory{"job scheduler": "Job Scheduler"}
	return NewPipeline(tr, dir, s, Options{MaxRetries: 3, Workers: 2, Observer: obs}, zerolog.Nop())
}

func TestAnalyzeZeroIssues(t *testing.T) {
	p := newPipeline(&fakeTracker{}, &fakeSummarizer{}, nil)

	result, err := p.Analyze(context.Background(), "job scheduler")
	require.NoError(t, err)
	assert.True(t, result.IsEmpty())
	assert.Empty(t, result.Customers)
}

func TestAnalyzeUsesExactComponentName(t *testing.T) {
	tr := &fakeTracker{}
	p := newPipeline(tr, &fakeSummarizer{}, nil)

	_, err := p.Analyze(context.Background(), "JOB SCHEDULER")
	require.NoError(t, err)
	assert.Contains(t, tr.jql, `component = "Job Scheduler"`)
}

func TestAnalyzeGroupsByCustomerAndClass(t *testing.T) {
	tr := &fakeTracker{issues: []Issue{
		issue("OPS-5", "Acme", "Class 1"),
		issue("OPS-4", "", "Class 1"),
		issue("OPS-3", "Acme", "Class 2"),
		issue("OPS-2", "Globex", "Minor"),
		issue("OPS-1", "Acme", "Class 1"),
	}}
	p := newPipeline(tr, &fakeSummarizer{}, nil)

	result, err := p.Analyze(context.Background(), "Job Scheduler")
	require.NoError(t, err)

	assert.Equal(t, []string{"Acme"}, result.Customers)
	class1 := result.Entries("Acme", models.Class1)
	require.Len(t, class1, 2)
	assert.Contains(t, class1[0], "OPS-5")
	assert.Contains(t, class1[1], "OPS-1")
	require.Len(t, result.Entries("Acme", models.Class2), 1)
	assert.Equal(t, 3, result.Len())

	for _, byClass := range result.Buckets {
		for _, entries := range byClass {
			for _, e := range entries {
				assert.NotContains(t, e, "OPS-4", "issue without customer must be excluded")
			}
		}
	}
}

func TestAnalyzeRetriesTracker(t *testing.T) {
	tr := &fakeTracker{failures: 2, issues: []Issue{issue("OPS-1", "Acme", "Class 3")}}
	p := newPipeline(tr, &fakeSummarizer{}, nil)

	result, err := p.Analyze(context.Background(), "Job Scheduler")
	require.NoError(t, err)
	assert.Equal(t, 3, tr.calls)
	assert.Len(t, result.Entries("Acme", models.Class3), 1)
}

func TestAnalyzeTrackerUnavailable(t *testing.T) {
	tr := &fakeTracker{failures: 10}
	p := newPipeline(tr, &fakeSummarizer{}, nil)

	_, err := p.Analyze(context.Background(), "Job Scheduler")
	require.Error(t, err)
	assert.ErrorIs(t, err, models.ErrTrackerUnavailable)
	assert.Equal(t, 3, tr.calls)
}

func TestSummaryFailureIsNotFatal(t *testing.T) {
	tr := &fakeTracker{issues: []Issue{
		issue("OPS-2", "Acme", "Class 1"),
		issue("OPS-1", "Acme", "Class 1"),
	}}
	obs := &countingObserver{}
	p := newPipeline(tr, &fakeSummarizer{fail: map[string]bool{"OPS-2": true}}, obs)

	result, err := p.Analyze(context.Background(), "Job Scheduler")
	require.NoError(t, err)

	entries := result.Entries("Acme", models.Class1)
	require.Len(t, entries, 2)
	assert.NotContains(t, entries[0], "*Impact:*")
	assert.Contains(t, entries[1], "*Impact:*")
	assert.EqualValues(t, 1, obs.n.Load())
}

func TestSummarizationIsBounded(t *testing.T) {
	var issues []Issue
	for i := 0; i < 10; i++ {
		issues = append(issues, issue(fmt.Sprintf("OPS-%d", i), "Acme", "Class 2"))
	}
	s := &fakeSummarizer{}
	p := newPipeline(&fakeTracker{issues: issues}, s, nil)

	records, err := p.records(context.Background(), Request{Component: "Job Scheduler", Platform: models.PlatformBoth})
	require.NoError(t, err)
	require.Len(t, records, 10)
	for i, r := range records {
		assert.Equal(t, fmt.Sprintf("OPS-%d", i), r.Key)
	}
	assert.LessOrEqual(t, s.peak.Load(), int32(2))
}

func TestRunFiltersPlatform(t *testing.T) {
	web := issue("MAP-2", "Acme", "Class 1")
	web.Summary = "Web map tiles blank"
	mobile := issue("MAP-1", "Acme", "Class 1")
	mobile.Summary = "Mobile pins misplaced"
	p := newPipeline(&fakeTracker{issues: []Issue{web, mobile}}, &fakeSummarizer{}, nil)

	result, err := p.Run(context.Background(), Request{Component: "Job Scheduler", Platform: models.PlatformMobile})
	require.NoError(t, err)
	entries := result.Entries("Acme", models.Class1)
	require.Len(t, entries, 1)
	assert.Contains(t, entries[0], "MAP-1")
}

func TestAnalyzeDropsOtherComponents(t *testing.T) {
	other := issue("OPS-9", "Acme", "Class 1")
	other.Components = []string{"Billing"}
	p := newPipeline(&fakeTracker{issues: []Issue{other}}, &fakeSummarizer{}, nil)

	result, err := p.Analyze(context.Background(), "Job Scheduler")
	require.NoError(t, err)
	assert.True(t, result.IsEmpty())
}

func TestGroupFallsBackToPriority(t *testing.T) {
	records := []IssueRecord{
		{Key: "A-1", Customer: "Acme", Priority: "Class 2", LLMSummary: "*title*\n<link>\n"},
		{Key: "A-2", Customer: "Acme", Priority: "Major", LLMSummary: "*title*\n<link>\n"},
	}
	result := Group(records)
	assert.Len(t, result.Entries("Acme", models.Class2), 1)
	assert.Equal(t, 1, result.Len())
}

func TestRunReportsStages(t *testing.T) {
	issues := []Issue{issue("OPS-1", "Acme", "Class 1"), issue("OPS-2", "Acme", "Class 2")}
	p := newPipeline(&fakeTracker{issues: issues}, &fakeSummarizer{}, nil)

	var stages []Stage
	var counts []int
	_, err := p.Run(context.Background(), Request{
		Component: "Job Scheduler",
		Platform:  models.PlatformBoth,
		Progress: func(s Stage, n int) {
			stages = append(stages, s)
			counts = append(counts, n)
		},
	})
	require.NoError(t, err)
	assert.Equal(t, []Stage{StageFetching, StageSummarizing, StageGrouping}, stages)
	assert.Equal(t, []int{0, 2, 2}, counts)
}
