package dispatch

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"jira-insights-bot/analysis"
	"jira-insights-bot/directory"
	"jira-insights-bot/format"
	"jira-insights-bot/guard"
	"jira-insights-bot/models"
	"jira-insights-bot/publish"

	"github.com/rs/zerolog"
	"github.com/slack-go/slack"
)

type fakeDirectory struct {
	names []string
	err   error
}

func (f *fakeDirectory) Names(context.Context) ([]string, error) {
	if len(f.names) == 0 {
		return nil, errors.Join(models.ErrNoComponents, f.err)
	}
	return f.names, f.err
}

func (f *fakeDirectory) Resolve(ctx context.Context, raw string) ([]string, error) {
	if raw == "" {
		return nil, nil
	}
	names, err := f.Names(ctx)
	if len(names) == 0 {
		return nil, err
	}
	return directory.Match(raw, names), nil
}

type fakeAnalyzer struct {
	result models.AnalysisResult
	err    error
	calls  atomic.Int32
	last   atomic.Value
}

func (f *fakeAnalyzer) Run(ctx context.Context, req analysis.Request) (models.AnalysisResult, error) {
	f.calls.Add(1)
	f.last.Store(req)
	if req.Progress != nil {
		req.Progress(analysis.StageFetching, 0)
	}
	if f.err != nil {
		return models.NewAnalysisResult(), f.err
	}
	if req.Progress != nil {
		req.Progress(analysis.StageSummarizing, f.result.Len())
		req.Progress(analysis.StageGrouping, f.result.Len())
	}
	return f.result, nil
}

type sent struct {
	Op      string
	Channel string
	User    string
	Text    string
	Blocks  []slack.Block
	Resp    publish.Response
	File    format.File
}

type recorder struct {
	mu    sync.Mutex
	calls []sent
}

func (r *recorder) add(s sent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, s)
}

func (r *recorder) all() []sent {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]sent(nil), r.calls...)
}

func (r *recorder) ops() []string {
	var out []string
	for _, c := range r.all() {
		out = append(out, c.Op)
	}
	return out
}

func (r *recorder) Post(_ context.Context, channel, text string, blocks []slack.Block) (string, error) {
	r.add(sent{Op: "post", Channel: channel, Text: text, Blocks: blocks})
	return "1700000000.000100", nil
}

func (r *recorder) Update(_ context.Context, channel, _ string, text string, blocks []slack.Block) error {
	r.add(sent{Op: "update", Channel: channel, Text: text, Blocks: blocks})
	return nil
}

func (r *recorder) Delete(_ context.Context, channel, _ string) error {
	r.add(sent{Op: "delete", Channel: channel})
	return nil
}

func (r *recorder) PostEphemeral(_ context.Context, channel, user, text string, blocks []slack.Block) error {
	r.add(sent{Op: "ephemeral", Channel: channel, User: user, Text: text, Blocks: blocks})
	return nil
}

func (r *recorder) PublishHome(_ context.Context, user string, blocks []slack.Block) error {
	r.add(sent{Op: "home", User: user, Blocks: blocks})
	return nil
}

func (r *recorder) Upload(_ context.Context, channel string, file format.File) error {
	r.add(sent{Op: "upload", Channel: channel, File: file})
	return nil
}

func (r *recorder) Respond(_ context.Context, _ string, msg publish.Response) error {
	r.add(sent{Op: "respond", Text: msg.Text, Blocks: msg.Blocks, Resp: msg})
	return nil
}

// actionIDs lists the button action ids found in blocks.
func actionIDs(blocks []slack.Block) []string {
	var ids []string
	for _, b := range blocks {
		ab, ok := b.(*slack.ActionBlock)
		if !ok || ab.Elements == nil {
			continue
		}
		for _, e := range ab.Elements.ElementSet {
			if btn, ok := e.(*slack.ButtonBlockElement); ok {
				ids = append(ids, btn.ActionID)
			}
		}
	}
	return ids
}

type harness struct {
	d        *Dispatcher
	pool     *Pool
	rec      *recorder
	dir      *fakeDirectory
	analyzer *fakeAnalyzer
}

func newHarness(t *testing.T, messageCooldown time.Duration) *harness {
	t.Helper()
	rec := &recorder{}
	dir := &fakeDirectory{names: []string{"Job Scheduler", "Maps (Core)"}}
	an := &fakeAnalyzer{result: models.NewAnalysisResult()}
	pool := NewPool(context.Background(), 4, zerolog.Nop())
	t.Cleanup(pool.Close)

	d := New(dir, an, publish.NewPublisher(rec, zerolog.Nop()), pool, Options{
		Processed:     guard.NewProcessedSet(time.Hour),
		MessageClock:  guard.NewDebounceClock(messageCooldown),
		AnalysisClock: guard.NewDebounceClock(messageCooldown),
	}, zerolog.Nop())
	return &harness{d: d, pool: pool, rec: rec, dir: dir, analyzer: an}
}

type stepClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *stepClock) now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *stepClock) advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

// withAnalysisClock swaps the analysis debounce clock for one driven by now.
func (h *harness) withAnalysisClock(cooldown time.Duration, now func() time.Time) {
	h.d.analyses = guard.NewDebounceClockWithClock(cooldown, now)
}

func blockAction(actionID, value, triggerID string) slack.InteractionCallback {
	return slack.InteractionCallback{
		Type:        slack.InteractionTypeBlockActions,
		TriggerID:   triggerID,
		User:        slack.User{ID: "U1"},
		ResponseURL: "https://hooks.slack.example/actions/1",
		Container:   slack.Container{ChannelID: "C1", IsEphemeral: true},
		ActionCallback: slack.ActionCallbacks{
			BlockActions: []*slack.BlockAction{{ActionID: actionID, Value: value, ActionTs: "1700000001.000" + triggerID}},
		},
	}
}

func bugSummary(class models.SeverityClass, title string) string {
	return class.Glyph() + " *" + class.String() + "* | *" + title + "*\n<https://jira.example.com/browse/OPS-1|View in Jira>\n\n*Impact:* users blocked\n*Fix:* patched\n*Test:* retry\n"
}
