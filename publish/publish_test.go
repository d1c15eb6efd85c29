package publish

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"jira-insights-bot/format"
	"jira-insights-bot/models"

	"github.com/rs/zerolog"
	"github.com/slack-go/slack"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type call struct {
	Op      string
	Channel string
	User    string
	TS      string
	Text    string
	Blocks  int
	Resp    Response
}

type recorder struct {
	mu          sync.Mutex
	calls       []call
	rejectBlock bool
	failAll     bool
}

func (r *recorder) add(c call) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, c)
	if r.failAll || (r.rejectBlock && c.Blocks > 0) {
		return errors.New("invalid_blocks")
	}
	return nil
}

func (r *recorder) Post(_ context.Context, channel, text string, blocks []slack.Block) (string, error) {
	return "1700000000.000100", r.add(call{Op: "post", Channel: channel, Text: text, Blocks: len(blocks)})
}

func (r *recorder) Update(_ context.Context, channel, ts, text string, blocks []slack.Block) error {
	return r.add(call{Op: "update", Channel: channel, TS: ts, Text: text, Blocks: len(blocks)})
}

func (r *recorder) Delete(_ context.Context, channel, ts string) error {
	return r.add(call{Op: "delete", Channel: channel, TS: ts})
}

func (r *recorder) PostEphemeral(_ context.Context, channel, user, text string, blocks []slack.Block) error {
	return r.add(call{Op: "ephemeral", Channel: channel, User: user, Text: text, Blocks: len(blocks)})
}

func (r *recorder) PublishHome(_ context.Context, user string, blocks []slack.Block) error {
	return r.add(call{Op: "home", User: user, Blocks: len(blocks)})
}

func (r *recorder) Upload(_ context.Context, channel string, file format.File) error {
	return r.add(call{Op: "upload", Channel: channel, Text: file.Name})
}

func (r *recorder) Respond(_ context.Context, _ string, msg Response) error {
	return r.add(call{Op: "respond", Text: msg.Text, Blocks: len(msg.Blocks), Resp: msg})
}

func ops(calls []call) []string {
	out := make([]string, len(calls))
	for i, c := range calls {
		out[i] = c.Op
	}
	return out
}

var blocks = []slack.Block{slack.NewDividerBlock()}

func TestSendRoutesByScope(t *testing.T) {
	tests := []struct {
		name  string
		scope Scope
		want  string
	}{
		{"channel", Scope{Channel: "C1"}, "post"},
		{"ephemeral with user", Scope{Channel: "C1", User: "U1", Ephemeral: true}, "ephemeral"},
		{"ephemeral via response url", Scope{ResponseURL: "https://hooks.example/1", Ephemeral: true}, "respond"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := &recorder{}
			p := NewPublisher(r, zerolog.Nop())
			require.NoError(t, p.Send(context.Background(), tt.scope, "hi", blocks))
			assert.Equal(t, []string{tt.want}, ops(r.calls))
		})
	}
}

func TestSendWithoutDestination(t *testing.T) {
	p := NewPublisher(&recorder{}, zerolog.Nop())
	assert.Error(t, p.Send(context.Background(), Scope{}, "hi", nil))
}

func TestSendFallsBackToPlainText(t *testing.T) {
	r := &recorder{rejectBlock: true}
	p := NewPublisher(r, zerolog.Nop())

	require.NoError(t, p.Send(context.Background(), Scope{Channel: "C1"}, "summary", blocks))
	require.Len(t, r.calls, 2)
	assert.Equal(t, 1, r.calls[0].Blocks)
	assert.Equal(t, 0, r.calls[1].Blocks)
	assert.Equal(t, "summary", r.calls[1].Text)
}

func TestReplaceUsesResponseURL(t *testing.T) {
	r := &recorder{}
	p := NewPublisher(r, zerolog.Nop())

	scope := Scope{Channel: "C1", User: "U1", ResponseURL: "https://hooks.example/1", Ephemeral: true}
	require.NoError(t, p.Replace(context.Background(), scope, "pick a view", blocks))
	require.Len(t, r.calls, 1)
	assert.True(t, r.calls[0].Resp.ReplaceOriginal)
	assert.True(t, r.calls[0].Resp.Ephemeral)
}

func TestChannelStatusEditsInPlace(t *testing.T) {
	r := &recorder{}
	s := NewPublisher(r, zerolog.Nop()).Status(Scope{Channel: "C1"})
	ctx := context.Background()

	s.Progress(ctx, "📊 Fetching")
	s.Progress(ctx, "🧠 Processing")
	s.Clear(ctx)

	assert.Equal(t, []string{"post", "update", "delete"}, ops(r.calls))
	assert.Equal(t, "1700000000.000100", r.calls[1].TS)
	assert.Equal(t, "1700000000.000100", r.calls[2].TS)
}

func TestResponseURLStatusReplacesOriginal(t *testing.T) {
	r := &recorder{}
	scope := Scope{Channel: "C1", User: "U1", ResponseURL: "https://hooks.example/1", Ephemeral: true}
	s := NewPublisher(r, zerolog.Nop()).Status(scope)
	ctx := context.Background()

	s.Progress(ctx, "📊 Fetching")
	s.Fail(ctx, models.ErrTrackerUnavailable)

	require.Len(t, r.calls, 2)
	for _, c := range r.calls {
		assert.True(t, c.Resp.ReplaceOriginal)
		assert.True(t, c.Resp.Ephemeral)
	}
	assert.Contains(t, r.calls[1].Text, "❌")
}

func TestStatusFailFallsBackToNewMessage(t *testing.T) {
	r := &recorder{failAll: true}
	s := NewPublisher(r, zerolog.Nop()).Status(Scope{Channel: "C1"})

	s.Fail(context.Background(), errors.New("boom"))
	assert.Equal(t, []string{"post", "post"}, ops(r.calls))
}

func TestFailureText(t *testing.T) {
	assert.Equal(t, "❌ "+models.UserMessage(models.ErrTrackerUnavailable), FailureText(models.ErrTrackerUnavailable))
}

func TestSlackMessengerPost(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat.postMessage", r.URL.Path)
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "C1", r.PostForm.Get("channel"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"ok":true,"channel":"C1","ts":"1700000000.000200"}`))
	}))
	defer srv.Close()

	api := slack.New("xoxb-test", slack.OptionAPIURL(srv.URL+"/"))
	m := NewSlackMessenger(api, zerolog.Nop())

	ts, err := m.Post(context.Background(), "C1", "hello", blocks)
	require.NoError(t, err)
	assert.Equal(t, "1700000000.000200", ts)
}

func TestSlackMessengerPostError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"ok":false,"error":"channel_not_found"}`))
	}))
	defer srv.Close()

	m := NewSlackMessenger(slack.New("xoxb-test", slack.OptionAPIURL(srv.URL+"/")), zerolog.Nop())
	_, err := m.Post(context.Background(), "C404", "hello", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "channel_not_found")
}

func TestSlackMessengerUpload(t *testing.T) {
	var (
		srv      *httptest.Server
		mu       sync.Mutex
		uploaded string
		steps    []string
	)
	srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		defer mu.Unlock()
		steps = append(steps, r.URL.Path)
		switch r.URL.Path {
		case "/files.getUploadURLExternal":
			require.NoError(t, r.ParseForm())
			assert.Equal(t, "customer_bugs_x.csv", r.PostForm.Get("filename"))
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"ok":true,"upload_url":"` + srv.URL + `/upload/F1","file_id":"F1"}`))
		case "/upload/F1":
			require.NoError(t, r.ParseMultipartForm(1<<20))
			f, _, err := r.FormFile("file")
			require.NoError(t, err)
			defer f.Close()
			raw, err := io.ReadAll(f)
			require.NoError(t, err)
			uploaded = string(raw)
			_, _ = w.Write([]byte("OK"))
		case "/files.completeUploadExternal":
			require.NoError(t, r.ParseForm())
			assert.Equal(t, "C1", r.PostForm.Get("channel_id"))
			assert.Equal(t, "📥 export", r.PostForm.Get("initial_comment"))
			assert.Contains(t, r.PostForm.Get("files"), `"F1"`)
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"ok":true,"files":[{"id":"F1","title":"Customer Bugs"}]}`))
		default:
			t.Errorf("unexpected call %s", r.URL.Path)
		}
	}))
	defer srv.Close()

	m := NewSlackMessenger(slack.New("xoxb-test", slack.OptionAPIURL(srv.URL+"/")), zerolog.Nop())
	file := format.File{Name: "customer_bugs_x.csv", Title: "Customer Bugs", Comment: "📥 export", Content: "\"Number\"\n1\n"}

	require.NoError(t, m.Upload(context.Background(), "C1", file))
	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{"/files.getUploadURLExternal", "/upload/F1", "/files.completeUploadExternal"}, steps)
	assert.Equal(t, file.Content, uploaded)
}

func TestSlackMessengerUploadError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"ok":false,"error":"not_in_channel"}`))
	}))
	defer srv.Close()

	m := NewSlackMessenger(slack.New("xoxb-test", slack.OptionAPIURL(srv.URL+"/")), zerolog.Nop())
	err := m.Upload(context.Background(), "C1", format.File{Name: "a.csv", Content: "x"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "upload a.csv")
	assert.Contains(t, err.Error(), "not_in_channel")
}

func TestSlackMessengerRespond(t *testing.T) {
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	m := NewSlackMessenger(slack.New("xoxb-test"), zerolog.Nop())
	err := m.Respond(context.Background(), srv.URL, Response{Text: "working", Blocks: blocks, ReplaceOriginal: true, Ephemeral: true})
	require.NoError(t, err)

	assert.Equal(t, "working", got["text"])
	assert.Equal(t, true, got["replace_original"])
	assert.Equal(t, "ephemeral", got["response_type"])
	assert.NotEmpty(t, got["blocks"])
}

func TestEphemeralStatusWithoutResponseURL(t *testing.T) {
	r := &recorder{}
	s := NewPublisher(r, zerolog.Nop()).Status(Scope{Channel: "C1", User: "U1", Ephemeral: true})
	ctx := context.Background()

	s.Progress(ctx, "🔄 Starting")
	s.Progress(ctx, "📊 Analyzing")
	require.NoError(t, s.Set(ctx, "⚠️ No analysis available"))

	require.Len(t, r.calls, 2)
	assert.Equal(t, "🔄 Starting", r.calls[0].Text)
	assert.Equal(t, "⚠️ No analysis available", r.calls[1].Text)
	assert.Equal(t, "ephemeral", r.calls[1].Op)
}
