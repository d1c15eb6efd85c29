package dispatch

import (
	"context"
	"fmt"
	"strings"

	"jira-insights-bot/guard"
	"jira-insights-bot/metrics"
	"jira-insights-bot/publish"

	"github.com/slack-go/slack"
)

// HandleInteraction routes a block action. The triggering message is acknowledged before
// the call returns; anything slow runs on the pool.
func (d *Dispatcher) HandleInteraction(ctx context.Context, cb slack.InteractionCallback) {
	d.metrics.Event("interaction")
	if cb.Type != slack.InteractionTypeBlockActions || len(cb.ActionCallback.BlockActions) == 0 {
		d.log.Debug().Str("where", "dispatch:HandleInteraction").Str("type", string(cb.Type)).Msg("interaction ignored")
		return
	}
	ba := cb.ActionCallback.BlockActions[0]
	if !d.accept(guard.ActionKey(cb.TriggerID, ba.ActionTs)) {
		return
	}

	channel := cb.Channel.ID
	if channel == "" {
		channel = cb.Container.ChannelID
	}
	scope := publish.Scope{
		Channel:     channel,
		User:        cb.User.ID,
		ResponseURL: cb.ResponseURL,
		Ephemeral:   cb.Container.IsEphemeral,
	}

	action := ParseAction(ba.ActionID, ba.Value)
	log := d.log.With().Str("action", ba.ActionID).Str("user", scope.User).Logger()

	switch action.Kind {
	case ActionSelectComponent:
		d.submit("select_component", scope, func(ctx context.Context) error {
			f := newFlow(StateAwaitingComponent, log)
			if strings.Contains(strings.ToLower(action.Component), "maps") {
				f.must(StateAwaitingPlatform)
				text, blocks := platformChoice(action.Component)
				return d.pub.Replace(ctx, scope, text, blocks)
			}
			f.must(StateAwaitingView)
			text, blocks := viewChoice(action.Component, "")
			return d.pub.Replace(ctx, scope, text, blocks)
		})

	case ActionSelectPlatform:
		d.submit("select_platform", scope, func(ctx context.Context) error {
			newFlow(StateAwaitingPlatform, log).must(StateAwaitingView)
			text, blocks := viewChoice(action.Component, action.Platform)
			return d.pub.Replace(ctx, scope, text, blocks)
		})

	case ActionViewImpact, ActionViewBugs:
		d.startAnalysis(ctx, scope, action)

	case ActionDownloadImpact, ActionDownloadBugs:
		d.startExport(scope, action)

	default:
		log.Warn().Str("where", "dispatch:HandleInteraction").Msg("unknown action")
	}
}

func (d *Dispatcher) debounced(channel string, a Action) bool {
	subject := a.Component + "/" + a.View()
	if a.download() {
		subject += "/csv"
	}
	if d.analyses.Allow(channel, subject) {
		return false
	}
	d.metrics.Dropped(metrics.DropDebounced)
	d.log.Info().
		Str("where", "dispatch:debounced").
		Str("channel", channel).
		Str("subject", subject).
		Dur("retry_in", d.analyses.TimeUntilNext(channel, subject)).
		Msg("repeat analysis debounced")
	return true
}

// startAnalysis acknowledges a view choice by replacing the buttons, then analyzes in the
// background.
func (d *Dispatcher) startAnalysis(ctx context.Context, scope publish.Scope, a Action) {
	if d.debounced(scope.Channel, a) {
		return
	}

	ackCtx, cancel := context.WithTimeout(ctx, d.ackTimeout)
	defer cancel()
	status := d.pub.Status(scope)
	if err := status.Set(ackCtx, fmt.Sprintf("⏳ Starting analysis for %s...", a.Component)); err != nil {
		d.log.Warn().Err(err).Str("where", "dispatch:startAnalysis").Msg("acknowledgement failed")
	}

	d.pool.Submit("analysis", func(ctx context.Context) error {
		return d.runAnalysis(ctx, scope, status, a)
	}, func(err error) {
		ctx, cancel := context.WithTimeout(context.Background(), d.ackTimeout*5)
		defer cancel()
		status.Fail(ctx, err)
	})
}

func (d *Dispatcher) startExport(scope publish.Scope, a Action) {
	if d.debounced(scope.Channel, a) {
		return
	}
	// the download button sits on a results message, which must stay put
	scope.ResponseURL = ""
	status := d.pub.Status(scope)

	d.pool.Submit("export", func(ctx context.Context) error {
		return d.runExport(ctx, scope, status, a)
	}, func(err error) {
		ctx, cancel := context.WithTimeout(context.Background(), d.ackTimeout*5)
		defer cancel()
		status.Fail(ctx, err)
	})
}
