package publish

import (
	"bytes"
	"context"
	"fmt"

	"jira-insights-bot/format"

	"github.com/rs/zerolog"
	"github.com/slack-go/slack"
)

// SlackMessenger implements Messenger on the Slack Web API.
type SlackMessenger struct {
	api *slack.Client
	log zerolog.Logger
}

func NewSlackMessenger(api *slack.Client, logger zerolog.Logger) *SlackMessenger {
	return &SlackMessenger{api: api, log: logger.With().Str("component", "publish").Logger()}
}

func msgOptions(text string, blocks []slack.Block) []slack.MsgOption {
	opts := []slack.MsgOption{
		slack.MsgOptionText(text, false),
		// keep Jira links from unfurling into previews
		slack.MsgOptionPostMessageParameters(slack.PostMessageParameters{
			UnfurlLinks: false,
			UnfurlMedia: false,
		}),
	}
	if len(blocks) > 0 {
		opts = append(opts, slack.MsgOptionBlocks(blocks...))
	}
	return opts
}

func (m *SlackMessenger) Post(ctx context.Context, channel, text string, blocks []slack.Block) (string, error) {
	_, ts, err := m.api.PostMessageContext(ctx, channel, msgOptions(text, blocks)...)
	if err != nil {
		return "", fmt.Errorf("post to %s: %w", channel, err)
	}
	return ts, nil
}

func (m *SlackMessenger) Update(ctx context.Context, channel, ts, text string, blocks []slack.Block) error {
	opts := []slack.MsgOption{slack.MsgOptionText(text, false)}
	if len(blocks) > 0 {
		opts = append(opts, slack.MsgOptionBlocks(blocks...))
	}
	if _, _, _, err := m.api.UpdateMessageContext(ctx, channel, ts, opts...); err != nil {
		return fmt.Errorf("update %s/%s: %w", channel, ts, err)
	}
	return nil
}

func (m *SlackMessenger) Delete(ctx context.Context, channel, ts string) error {
	if _, _, err := m.api.DeleteMessageContext(ctx, channel, ts); err != nil {
		return fmt.Errorf("delete %s/%s: %w", channel, ts, err)
	}
	return nil
}

func (m *SlackMessenger) PostEphemeral(ctx context.Context, channel, user, text string, blocks []slack.Block) error {
	if _, err := m.api.PostEphemeralContext(ctx, channel, user, msgOptions(text, blocks)...); err != nil {
		return fmt.Errorf("post ephemeral to %s in %s: %w", user, channel, err)
	}
	return nil
}

func (m *SlackMessenger) PublishHome(ctx context.Context, user string, blocks []slack.Block) error {
	_, err := m.api.PublishViewContext(ctx, slack.PublishViewContextRequest{
		UserID: user,
		View: slack.HomeTabViewRequest{
			Type:   slack.VTHomeTab,
			Blocks: slack.Blocks{BlockSet: blocks},
		},
	})
	if err != nil {
		return fmt.Errorf("publish home for %s: %w", user, err)
	}
	return nil
}

// Upload shares file in channel through the files v2 flow (upload URL, then complete).
func (m *SlackMessenger) Upload(ctx context.Context, channel string, file format.File) error {
	_, err := m.api.UploadFileV2Context(ctx, slack.UploadFileV2Parameters{
		Reader:         bytes.NewReader([]byte(file.Content)),
		FileSize:       len(file.Content),
		Filename:       file.Name,
		Title:          file.Title,
		InitialComment: file.Comment,
		Channel:        channel,
	})
	if err != nil {
		return fmt.Errorf("upload %s: %w", file.Name, err)
	}
	return nil
}

func (m *SlackMessenger) Respond(ctx context.Context, responseURL string, msg Response) error {
	hook := &slack.WebhookMessage{
		Text:            msg.Text,
		ReplaceOriginal: msg.ReplaceOriginal,
		DeleteOriginal:  msg.DeleteOriginal,
	}
	if msg.Ephemeral {
		hook.ResponseType = slack.ResponseTypeEphemeral
	} else {
		hook.ResponseType = slack.ResponseTypeInChannel
	}
	if len(msg.Blocks) > 0 {
		hook.Blocks = &slack.Blocks{BlockSet: msg.Blocks}
	}
	if err := slack.PostWebhookContext(ctx, responseURL, hook); err != nil {
		return fmt.Errorf("respond: %w", err)
	}
	return nil
}
