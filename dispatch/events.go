package dispatch

import (
	"context"
	"fmt"

	"jira-insights-bot/guard"
	"jira-insights-bot/metrics"
	"jira-insights-bot/models"
	"jira-insights-bot/publish"

	"github.com/slack-go/slack/slackevents"
)

type messageRequest struct {
	channel string
	user    string
	ts      string
	text    string
}

// HandleEvent routes an Events API callback. Work is queued on the pool and the call
// returns right away.
func (d *Dispatcher) HandleEvent(ctx context.Context, ev slackevents.EventsAPIEvent) {
	eventID := ""
	if cb, ok := ev.Data.(*slackevents.EventsAPICallbackEvent); ok {
		eventID = cb.EventID
	}

	switch e := ev.InnerEvent.Data.(type) {
	case *slackevents.AppMentionEvent:
		d.metrics.Event("app_mention")
		if e.BotID != "" {
			return
		}
		d.handleMessage(messageRequest{channel: e.Channel, user: e.User, ts: e.TimeStamp, text: e.Text})

	case *slackevents.MessageEvent:
		d.metrics.Event("message")
		switch {
		case e.BotID != "" || e.SubType == "bot_message":
			return
		case e.SubType == "message_changed":
			d.log.Debug().Str("where", "dispatch:HandleEvent").Str("channel", e.Channel).Msg("message edit ignored")
			return
		case e.SubType != "":
			return
		case e.ChannelType != "im" && e.ChannelType != "group":
			return
		}
		d.handleMessage(messageRequest{channel: e.Channel, user: e.User, ts: e.TimeStamp, text: e.Text})

	case *slackevents.AppHomeOpenedEvent:
		d.metrics.Event("app_home_opened")
		if e.Tab != "" && e.Tab != "home" {
			return
		}
		if !d.accept(guard.EventKey(eventID)) {
			return
		}
		user := e.User
		d.pool.Submit("home", func(ctx context.Context) error {
			return d.publishHome(ctx, user)
		}, nil)

	default:
		d.log.Debug().Str("where", "dispatch:HandleEvent").Str("type", ev.InnerEvent.Type).Msg("unhandled event")
	}
}

func (d *Dispatcher) handleMessage(r messageRequest) {
	if !d.accept(guard.MessageKey(r.channel, r.user, r.ts)) {
		return
	}

	component := CleanComponentName(r.text)
	subject := component
	if subject == "" {
		subject = r.user
	}
	if !d.messages.Allow(r.channel, subject) {
		d.metrics.Dropped(metrics.DropDebounced)
		d.log.Info().
			Str("where", "dispatch:handleMessage").
			Str("channel", r.channel).
			Str("subject", subject).
			Dur("retry_in", d.messages.TimeUntilNext(r.channel, subject)).
			Msg("repeat request debounced")
		return
	}

	scope := publish.Scope{Channel: r.channel, User: r.user, Ephemeral: r.user != ""}
	d.submit("resolve", scope, func(ctx context.Context) error {
		return d.resolve(ctx, scope, component)
	})
}

// resolve answers a free-text request with the matching components.
func (d *Dispatcher) resolve(ctx context.Context, scope publish.Scope, component string) error {
	f := newFlow(StateIdle, d.log)
	f.must(StateResolving)

	// No component given, so answer with the list to pick from
	if component == "" {
		names, listComponentsError := d.dir.Names(ctx)
		if len(names) == 0 {
			d.log.Warn().Err(listComponentsError).Str("where", "dispatch:resolve").Msg("no components to list")
			f.must(StateNotFound)
			return d.pub.Send(ctx, scope, "No components found in JIRA. Please check your JIRA configuration.", nil)
		}
		f.must(StateNotFound)
		return d.pub.Send(ctx, scope, "Please specify a component name. Available components:\n"+componentList(names), nil)
	}

	// Match the request against the directory; an empty directory with an error means Jira is down
	matches, resolveComponentError := d.dir.Resolve(ctx, component)
	if len(matches) == 0 && resolveComponentError != nil {
		f.must(StateFailed)
		return &models.UserError{
			Message: "No components are available right now.",
			Hint:    "Jira could not be reached to load the component list, please try again shortly.",
			Err:     resolveComponentError,
		}
	}
	if len(matches) == 0 {
		f.must(StateNotFound)
		text := fmt.Sprintf("⚠️ Component '%s' not found.", component)
		if names, _ := d.dir.Names(ctx); len(names) > 0 {
			text += "\nAvailable components:\n" + componentList(names)
		}
		return d.pub.Send(ctx, scope, text, nil)
	}

	f.must(StateAwaitingComponent)
	d.log.Info().Str("where", "dispatch:resolve").Str("query", component).Int("matches", len(matches)).Msg("components matched")
	text, blocks := componentChoice(component, matches)
	return d.pub.Send(ctx, scope, text, blocks)
}

func (d *Dispatcher) publishHome(ctx context.Context, user string) error {
	names, err := d.dir.Names(ctx)
	if err != nil && len(names) == 0 {
		d.log.Warn().Err(err).Str("where", "dispatch:publishHome").Msg("home tab without components")
	}
	return d.pub.Messenger().PublishHome(ctx, user, homeView(names))
}
