package publish

import (
	"context"
	"errors"

	"jira-insights-bot/models"

	"github.com/rs/zerolog"
	"github.com/slack-go/slack"
)

// Publisher sends messages into a request's scope, falling back to plain text when a
// block message is rejected.
type Publisher struct {
	m   Messenger
	log zerolog.Logger
}

func NewPublisher(m Messenger, logger zerolog.Logger) *Publisher {
	return &Publisher{m: m, log: logger.With().Str("component", "publish").Logger()}
}

func (p *Publisher) Messenger() Messenger {
	return p.m
}

// Send posts a new message to scope.
func (p *Publisher) Send(ctx context.Context, scope Scope, text string, blocks []slack.Block) error {
	err := p.send(ctx, scope, text, blocks)
	if err == nil || len(blocks) == 0 {
		return err
	}
	p.log.Warn().Err(err).Str("where", "publish:Send").Str("channel", scope.Channel).Msg("block message rejected, retrying as plain text")
	return p.send(ctx, scope, text, nil)
}

func (p *Publisher) send(ctx context.Context, scope Scope, text string, blocks []slack.Block) error {
	switch {
	case scope.ephemeralDirect():
		return p.m.PostEphemeral(ctx, scope.Channel, scope.User, text, blocks)
	case scope.Ephemeral && scope.ResponseURL != "":
		return p.m.Respond(ctx, scope.ResponseURL, Response{Text: text, Blocks: blocks, Ephemeral: true})
	case scope.Channel != "":
		_, err := p.m.Post(ctx, scope.Channel, text, blocks)
		return err
	}
	return errors.New("scope has no destination")
}

// Replace swaps the interactive message that triggered the request. Without a
// response_url it posts a new message instead.
func (p *Publisher) Replace(ctx context.Context, scope Scope, text string, blocks []slack.Block) error {
	if scope.ResponseURL == "" {
		return p.Send(ctx, scope, text, blocks)
	}
	err := p.m.Respond(ctx, scope.ResponseURL, Response{Text: text, Blocks: blocks, ReplaceOriginal: true, Ephemeral: scope.Ephemeral})
	if err == nil || len(blocks) == 0 {
		return err
	}
	p.log.Warn().Err(err).Str("where", "publish:Replace").Msg("block replacement rejected, retrying as plain text")
	return p.m.Respond(ctx, scope.ResponseURL, Response{Text: text, ReplaceOriginal: true, Ephemeral: scope.Ephemeral})
}

// Fail tells the requester a request could not be completed.
func (p *Publisher) Fail(ctx context.Context, scope Scope, err error) {
	if sendErr := p.Send(ctx, scope, FailureText(err), nil); sendErr != nil {
		p.log.Error().Err(sendErr).Str("where", "publish:Fail").Msg("could not deliver failure message")
	}
}

// FailureText renders err for the requester with the failure marker.
func FailureText(err error) string {
	return "❌ " + models.UserMessage(err)
}

// Status returns a progress message handle in scope.
func (p *Publisher) Status(scope Scope) *Status {
	return &Status{p: p, scope: scope}
}

// Status is a progress message edited in place as a long request advances.
type Status struct {
	p      *Publisher
	scope  Scope
	ts     string
	posted bool
}

// Set shows text as the current progress. The first call creates the message.
func (s *Status) Set(ctx context.Context, text string) error {
	return s.set(ctx, text, true)
}

func (s *Status) set(ctx context.Context, text string, final bool) error {
	m := s.p.m
	switch {
	case s.scope.ResponseURL != "":
		return m.Respond(ctx, s.scope.ResponseURL, Response{Text: text, ReplaceOriginal: true, Ephemeral: s.scope.Ephemeral})
	case s.scope.Ephemeral:
		// ephemeral messages cannot be edited without a response_url, so only the first
		// progress line and final outcomes are posted
		if s.posted && !final {
			return nil
		}
		s.posted = true
		return s.p.send(ctx, s.scope, text, nil)
	case s.ts == "":
		ts, err := m.Post(ctx, s.scope.Channel, text, nil)
		if err != nil {
			return err
		}
		s.ts = ts
		return nil
	default:
		return m.Update(ctx, s.scope.Channel, s.ts, text, nil)
	}
}

// Progress shows an intermediate step. Delivery failures are logged, not returned.
func (s *Status) Progress(ctx context.Context, text string) {
	if err := s.set(ctx, text, false); err != nil {
		s.p.log.Warn().Err(err).Str("where", "publish:Progress").Str("status", text).Msg("progress update failed")
	}
}

// Fail replaces the status with the failure message, in the same scope.
func (s *Status) Fail(ctx context.Context, err error) {
	if setErr := s.Set(ctx, FailureText(err)); setErr != nil {
		s.p.log.Error().Err(setErr).Str("where", "publish:Status.Fail").Msg("status replacement failed, posting failure")
		s.p.Fail(ctx, s.scope, err)
	}
}

// Clear removes the status message once results are delivered.
func (s *Status) Clear(ctx context.Context) {
	var err error
	switch {
	case s.ts != "":
		err = s.p.m.Delete(ctx, s.scope.Channel, s.ts)
		s.ts = ""
	case s.scope.ResponseURL != "":
		err = s.p.m.Respond(ctx, s.scope.ResponseURL, Response{DeleteOriginal: true})
	}
	if err != nil {
		s.p.log.Warn().Err(err).Str("where", "publish:Clear").Msg("could not remove status message")
	}
}
