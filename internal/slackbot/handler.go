package slackbot

import (
	"context"
	"log/slog"
	"time"

	"dealnote/internal/metrics"
	"dealnote/internal/pipeline"

	"github.com/slack-go/slack"
	"github.com/slack-go/slack/slackevents"
	"github.com/slack-go/slack/socketmode"
)

// Bot consumes workspace events over Socket Mode and dispatches them to the
// reaction pipeline and the invite flow.
type Bot struct {
	socketMode *socketmode.Client
	pipeline   *pipeline.Pipeline
	inviter    *Inviter
}

// NewBot builds the Socket Mode bot around an existing API client. The
// client's app-level token must carry the connections:write scope.
func NewBot(client *slack.Client, reactionPipeline *pipeline.Pipeline, inviter *Inviter) *Bot {
	socketMode := socketmode.New(client)

	return &Bot{
		socketMode: socketMode,
		pipeline:   reactionPipeline,
		inviter:    inviter,
	}
}

// Run starts the event loop and blocks until the Socket Mode connection
// terminates.
func (b *Bot) Run(ctx context.Context) error {
	go b.handleEvents(ctx)
	return b.socketMode.RunContext(ctx)
}

func (b *Bot) handleEvents(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case evt, ok := <-b.socketMode.Events:
			if !ok {
				return
			}
			switch evt.Type {
			case socketmode.EventTypeEventsAPI:
				eventsAPIEvent, ok := evt.Data.(slackevents.EventsAPIEvent)
				if !ok {
					slog.Debug("Ignoring non-events-api payload", "type", evt.Type)
					continue
				}

				b.socketMode.Ack(*evt.Request)
				b.Dispatch(ctx, eventsAPIEvent)
			case socketmode.EventTypeConnected:
				slog.Info("Connected to Slack over Socket Mode")
			case socketmode.EventTypeConnectionError:
				slog.Error("Socket Mode connection error", "data", evt.Data)
			}
		}
	}
}

// Dispatch routes one Events API envelope. Each event runs in its own
// goroutine so a slow downstream call never blocks the intake loop.
func (b *Bot) Dispatch(ctx context.Context, event slackevents.EventsAPIEvent) {
	if event.Type != slackevents.CallbackEvent {
		return
	}

	switch ev := event.InnerEvent.Data.(type) {
	case *slackevents.ReactionAddedEvent:
		metrics.SlackEventsReceived.WithLabelValues("reaction_added").Inc()
		go b.handleReactionAdded(ctx, ev)
	case *slackevents.MemberJoinedChannelEvent:
		metrics.SlackEventsReceived.WithLabelValues("member_joined_channel").Inc()
		go b.handleMemberJoined(ctx, ev)
	default:
		slog.Debug("Ignoring unhandled event", "inner_type", event.InnerEvent.Type)
	}
}

func (b *Bot) handleReactionAdded(ctx context.Context, ev *slackevents.ReactionAddedEvent) {
	runCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	result := b.pipeline.HandleReaction(runCtx, pipeline.ReactionEvent{
		ChannelID: ev.Item.Channel,
		Timestamp: ev.Item.Timestamp,
		UserID:    ev.User,
		Reaction:  ev.Reaction,
	})

	switch result.Outcome {
	case pipeline.OutcomeSuccess:
		slog.Info("Reaction handled", "channel_id", ev.Item.Channel, "message_ts", ev.Item.Timestamp)
	case pipeline.OutcomeSkipped:
		slog.Debug("Reaction skipped", "reason", result.Reason, "channel_id", ev.Item.Channel)
	default:
		slog.Warn("Reaction pipeline ended with error",
			"outcome", result.Outcome.String(),
			"error", result.Err,
			"channel_id", ev.Item.Channel,
			"message_ts", ev.Item.Timestamp)
	}
}

func (b *Bot) handleMemberJoined(ctx context.Context, ev *slackevents.MemberJoinedChannelEvent) {
	if b.inviter == nil {
		return
	}

	runCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	b.inviter.HandleJoin(runCtx, ev.User, ev.Channel)
}
