package slackbot

import (
	"context"
	"log/slog"

	"dealnote/internal/channel"
	"dealnote/internal/metrics"

	"github.com/slack-go/slack"
)

// InviteAPI is the slice of the Slack client the invite flow needs.
// *slack.Client satisfies it.
type InviteAPI interface {
	GetConversationInfoContext(ctx context.Context, input *slack.GetConversationInfoInput) (*slack.Channel, error)
	InviteUsersToConversationContext(ctx context.Context, channelID string, users ...string) (*slack.Channel, error)
}

// Inviter brings the required participants into a recon channel when the
// bot itself is added to it. Unlike the reaction path, every mismatch here
// is a silent skip: joining is ambient, not an explicit user action, so
// nobody is waiting for feedback.
type Inviter struct {
	api        InviteAPI
	classifier *channel.Classifier
	botUserID  string
	members    []string
}

func NewInviter(api InviteAPI, classifier *channel.Classifier, botUserID string, requiredMembers []string) *Inviter {
	return &Inviter{
		api:        api,
		classifier: classifier,
		botUserID:  botUserID,
		members:    requiredMembers,
	}
}

// HandleJoin processes one member_joined_channel event.
func (i *Inviter) HandleJoin(ctx context.Context, joinedUserID, channelID string) {
	if joinedUserID != i.botUserID {
		return
	}
	if len(i.members) == 0 {
		return
	}

	ch, err := i.api.GetConversationInfoContext(ctx, &slack.GetConversationInfoInput{
		ChannelID: channelID,
	})
	if err != nil {
		slog.Error("Channel lookup failed during invite flow", "error", err, "channel_id", channelID)
		return
	}

	if !i.classifier.IsReconChannel(ch.Name) {
		slog.Debug("Joined channel is not a recon channel, skipping invites", "channel_name", ch.Name)
		return
	}
	if i.classifier.ExtractDealID(ch.Name) == "" {
		slog.Debug("Recon channel carries no deal id, skipping invites", "channel_name", ch.Name)
		return
	}

	if _, err := i.api.InviteUsersToConversationContext(ctx, channelID, i.members...); err != nil {
		// Includes the already_in_channel case; nothing user-visible to do.
		metrics.ChannelInvites.WithLabelValues("error").Inc()
		slog.Warn("Failed to invite required members", "error", err,
			"channel_id", channelID, "members", len(i.members))
		return
	}

	metrics.ChannelInvites.WithLabelValues("success").Inc()
	slog.Info("Invited required members to recon channel",
		"channel_name", ch.Name, "members", len(i.members))
}
