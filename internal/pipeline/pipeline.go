package pipeline

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"dealnote/internal/channel"
	"dealnote/internal/crm"
	"dealnote/internal/dedupe"
	"dealnote/internal/metrics"
	"dealnote/internal/notes"

	"github.com/slack-go/slack"
)

// ReactionEvent is the inbound trigger: a reaction added to a message.
type ReactionEvent struct {
	ChannelID string
	Timestamp string
	UserID    string
	Reaction  string
}

// SlackAPI is the slice of the Slack client the pipeline needs.
// *slack.Client satisfies it.
type SlackAPI interface {
	GetConversationInfoContext(ctx context.Context, input *slack.GetConversationInfoInput) (*slack.Channel, error)
	GetConversationHistoryContext(ctx context.Context, params *slack.GetConversationHistoryParameters) (*slack.GetConversationHistoryResponse, error)
	GetUserInfoContext(ctx context.Context, user string) (*slack.User, error)
	GetPermalinkContext(ctx context.Context, params *slack.PermalinkParameters) (string, error)
	PostMessageContext(ctx context.Context, channelID string, options ...slack.MsgOption) (string, string, error)
	AddReactionContext(ctx context.Context, name string, item slack.ItemRef) error
}

// CRM is the note-creation side of the CRM client.
type CRM interface {
	AddNote(ctx context.Context, dealID, content string) error
	UploadFile(ctx context.Context, dealID, filename string, file io.Reader) error
}

// AttachmentRelay re-homes message attachments. Both operations are
// best-effort; failures never abort the pipeline.
type AttachmentRelay interface {
	RelayToCRM(ctx context.Context, dealID string, files []slack.File)
	RelayToChat(ctx context.Context, channelID, threadTS string, files []slack.File)
}

// Options control the pipeline's feature gates.
type Options struct {
	Enabled              bool
	AcceptedReactions    []string
	ConfirmationReaction string
	CRMUploadEnabled     bool
	ChatReuploadEnabled  bool
}

// Pipeline turns an accepted reaction event into a CRM deal note. One run
// per event; stateless between runs except through the dedupe store.
type Pipeline struct {
	slackAPI   SlackAPI
	crmClient  CRM
	classifier *channel.Classifier
	store      dedupe.Store
	relay      AttachmentRelay
	opts       Options
	now        func() time.Time
}

// New creates a reaction pipeline. relay may be nil when neither relay
// sub-operation is enabled.
func New(slackAPI SlackAPI, crmClient CRM, classifier *channel.Classifier, store dedupe.Store, relay AttachmentRelay, opts Options) *Pipeline {
	return &Pipeline{
		slackAPI:   slackAPI,
		crmClient:  crmClient,
		classifier: classifier,
		store:      store,
		relay:      relay,
		opts:       opts,
		now:        time.Now,
	}
}

// HandleReaction runs the full pipeline for one reaction event. It never
// panics: unexpected failures are caught, logged, and reported as an
// internal-error outcome so the host process keeps serving events.
func (p *Pipeline) HandleReaction(ctx context.Context, ev ReactionEvent) (result Result) {
	start := p.now()
	defer func() {
		if r := recover(); r != nil {
			slog.Error("Reaction pipeline panicked", "panic", r,
				"channel_id", ev.ChannelID, "message_ts", ev.Timestamp)
			result = Result{Outcome: OutcomeInternalError, Err: fmt.Errorf("panic: %v", r)}
		}
		metrics.ReactionsProcessed.WithLabelValues(result.Outcome.String()).Inc()
		metrics.PipelineDuration.Observe(time.Since(start).Seconds())
	}()

	// Step 1: filter
	if !p.opts.Enabled {
		return skipped("feature disabled")
	}
	if ev.ChannelID == "" || ev.Timestamp == "" {
		return skipped("event missing channel or timestamp")
	}
	if !p.isAcceptedReaction(ev.Reaction) {
		return skipped("reaction not in accepted set")
	}

	logger := slog.With("channel_id", ev.ChannelID, "message_ts", ev.Timestamp, "reactor", ev.UserID)

	// Step 2: dedupe check — idempotent silence on a hit
	key := dedupe.Key{ChannelID: ev.ChannelID, Timestamp: ev.Timestamp}
	if p.store.Seen(key) {
		metrics.DedupeHits.Inc()
		logger.Debug("Message already noted within the dedupe window")
		return skipped("already noted")
	}

	// Step 3: resolve channel
	ch, err := p.slackAPI.GetConversationInfoContext(ctx, &slack.GetConversationInfoInput{
		ChannelID: ev.ChannelID,
	})
	if err != nil {
		logger.Error("Channel lookup failed", "error", err)
		p.reply(ctx, ev, "⚠️ I couldn't look up this channel's info. The bot may be missing the `channels:read` scope or isn't a member of this channel.")
		return Result{Outcome: OutcomePermissionError, Err: fmt.Errorf("channel lookup failed: %w", err)}
	}

	// Step 4: resolve deal id from the channel name
	dealID := p.classifier.ExtractDealID(ch.Name)
	if dealID == "" {
		logger.Info("Channel name carries no deal id", "channel_name", ch.Name)
		p.reply(ctx, ev, "⚠️ I can't tell which deal this channel belongs to. The channel name must include `deal` followed by the deal number, e.g. `rcn-acme-deal42`.")
		return Result{Outcome: OutcomeUserError, Err: fmt.Errorf("channel %q has no deal id", ch.Name)}
	}

	// Step 5: fetch the exact message that was reacted to
	msg, err := p.fetchMessage(ctx, ev)
	if err != nil {
		logger.Error("Message fetch failed", "error", err)
		p.reply(ctx, ev, "⚠️ I couldn't read the message. The bot may be missing the `channels:history` scope for this channel.")
		return Result{Outcome: OutcomePermissionError, Err: fmt.Errorf("message fetch failed: %w", err)}
	}
	if msg == nil {
		// Deleted between the reaction and handling; nothing to note.
		logger.Info("Message no longer exists, skipping")
		return skipped("message not found")
	}

	// Step 6: best-effort parallel lookups, joined before the note is built
	authorName, reactorName, permalink := p.resolveIdentities(ctx, ev, msg.User)

	// Step 7: attachments
	attachments := make([]notes.Attachment, 0, len(msg.Files))
	for _, file := range msg.Files {
		attachments = append(attachments, notes.Attachment{Name: file.Name, FileType: file.Filetype})
	}
	if len(attachments) > 0 {
		logger.Debug("Message carries attachments", "files", notes.Describe(attachments))
	}
	if p.relay != nil && len(msg.Files) > 0 {
		if p.opts.CRMUploadEnabled {
			p.relay.RelayToCRM(ctx, dealID, msg.Files)
		}
		if p.opts.ChatReuploadEnabled {
			p.relay.RelayToChat(ctx, ev.ChannelID, ev.Timestamp, msg.Files)
		}
	}

	// Step 8: format the note
	content := notes.Format(notes.Input{
		ChannelName: ch.Name,
		AuthorName:  authorName,
		ReactorName: reactorName,
		Permalink:   permalink,
		RawText:     msg.Text,
		Attachments: attachments,
		ApprovedAt:  p.now(),
	})

	// Step 9: submit to the CRM
	if err := p.crmClient.AddNote(ctx, dealID, content); err != nil {
		metrics.CRMNotesCreated.WithLabelValues("error").Inc()
		logger.Error("CRM note submission failed", "error", err, "deal_id", dealID)
		// Not marked as noted: re-adding the reaction retries once the
		// underlying issue is fixed.
		p.reply(ctx, ev, fmt.Sprintf("❌ Failed to send the note to deal %s: %s\nFix the issue and re-add the reaction to retry.", dealID, crm.Truncate(err.Error(), 300)))
		return Result{Outcome: OutcomeTransientError, Err: err}
	}
	metrics.CRMNotesCreated.WithLabelValues("success").Inc()

	// Steps 10–11: mark, confirm, report
	p.store.Mark(key)

	if p.opts.ConfirmationReaction != "" {
		item := slack.NewRefToMessage(ev.ChannelID, ev.Timestamp)
		if err := p.slackAPI.AddReactionContext(ctx, p.opts.ConfirmationReaction, item); err != nil {
			logger.Warn("Failed to add confirmation reaction", "error", err)
		}
	}

	p.reply(ctx, ev, fmt.Sprintf("✅ Sent to CRM deal %s", dealID))
	logger.Info("Note submitted", "deal_id", dealID, "attachments", len(attachments))

	return Result{Outcome: OutcomeSuccess}
}

func (p *Pipeline) isAcceptedReaction(name string) bool {
	for _, accepted := range p.opts.AcceptedReactions {
		if name == accepted {
			return true
		}
	}
	return false
}

// fetchMessage retrieves the exact message at the event timestamp via an
// inclusive point lookup. A nil message with nil error means it was deleted.
func (p *Pipeline) fetchMessage(ctx context.Context, ev ReactionEvent) (*slack.Message, error) {
	resp, err := p.slackAPI.GetConversationHistoryContext(ctx, &slack.GetConversationHistoryParameters{
		ChannelID: ev.ChannelID,
		Latest:    ev.Timestamp,
		Inclusive: true,
		Limit:     1,
	})
	if err != nil {
		return nil, err
	}
	if len(resp.Messages) == 0 || resp.Messages[0].Timestamp != ev.Timestamp {
		return nil, nil
	}
	return &resp.Messages[0], nil
}

// resolveIdentities runs the author, reactor, and permalink lookups
// concurrently. Each is individually best-effort: a failure yields a
// fallback value and never propagates to the others.
func (p *Pipeline) resolveIdentities(ctx context.Context, ev ReactionEvent, authorID string) (authorName, reactorName, permalink string) {
	var wg sync.WaitGroup
	wg.Add(3)

	go func() {
		defer wg.Done()
		authorName = p.displayName(ctx, authorID)
	}()

	go func() {
		defer wg.Done()
		reactorName = p.displayName(ctx, ev.UserID)
	}()

	go func() {
		defer wg.Done()
		link, err := p.slackAPI.GetPermalinkContext(ctx, &slack.PermalinkParameters{
			Channel: ev.ChannelID,
			Ts:      ev.Timestamp,
		})
		if err != nil {
			slog.Warn("Permalink lookup failed", "error", err, "channel_id", ev.ChannelID)
			return
		}
		permalink = link
	}()

	wg.Wait()
	return authorName, reactorName, permalink
}

// displayName resolves a user id to a display name with a fixed fallback
// precedence, ending in a synthetic name so the note never loses the actor.
func (p *Pipeline) displayName(ctx context.Context, userID string) string {
	fallback := fmt.Sprintf("User %s", userID)
	if userID == "" {
		return fallback
	}

	user, err := p.slackAPI.GetUserInfoContext(ctx, userID)
	if err != nil {
		slog.Warn("User lookup failed", "error", err, "user_id", userID)
		return fallback
	}

	switch {
	case user.Profile.RealNameNormalized != "":
		return user.Profile.RealNameNormalized
	case user.Profile.RealName != "":
		return user.Profile.RealName
	case user.Profile.DisplayName != "":
		return user.Profile.DisplayName
	case user.Name != "":
		return user.Name
	}
	return fallback
}

// reply posts into the originating message's thread. Best-effort: a failed
// reply is logged, never surfaced.
func (p *Pipeline) reply(ctx context.Context, ev ReactionEvent, text string) {
	_, _, err := p.slackAPI.PostMessageContext(ctx, ev.ChannelID,
		slack.MsgOptionText(text, false),
		slack.MsgOptionTS(ev.Timestamp),
	)
	if err != nil {
		slog.Error("Failed to post thread reply", "error", err, "channel_id", ev.ChannelID)
	}
}

func skipped(reason string) Result {
	return Result{Outcome: OutcomeSkipped, Reason: reason}
}
