// Package publish delivers messages, progress updates and files to Slack.
package publish

import (
	"context"

	"jira-insights-bot/format"

	"github.com/slack-go/slack"
)

// Messenger is the outbound side of the bot.
type Messenger interface {
	Post(ctx context.Context, channel, text string, blocks []slack.Block) (ts string, err error)
	Update(ctx context.Context, channel, ts, text string, blocks []slack.Block) error
	Delete(ctx context.Context, channel, ts string) error
	PostEphemeral(ctx context.Context, channel, user, text string, blocks []slack.Block) error
	PublishHome(ctx context.Context, user string, blocks []slack.Block) error
	Upload(ctx context.Context, channel string, file format.File) error
	Respond(ctx context.Context, responseURL string, msg Response) error
}

// Response is a message sent through an interaction's response_url.
type Response struct {
	Text            string
	Blocks          []slack.Block
	ReplaceOriginal bool
	DeleteOriginal  bool
	Ephemeral       bool
}

// Scope is the audience a request came from. Replies stay in the same scope.
type Scope struct {
	Channel     string
	User        string
	ResponseURL string
	Ephemeral   bool
}

// ephemeralDirect reports whether ephemeral replies can go through chat.postEphemeral.
func (s Scope) ephemeralDirect() bool {
	return s.Ephemeral && s.Channel != "" && s.User != ""
}
