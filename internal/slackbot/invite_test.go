package slackbot

import (
	"context"
	"errors"
	"testing"

	"dealnote/internal/channel"

	"github.com/slack-go/slack"
)

type fakeInviteAPI struct {
	channelName string
	channelErr  error
	inviteErr   error

	invitedChannel string
	invitedUsers   []string
	lookups        int
}

func (f *fakeInviteAPI) GetConversationInfoContext(ctx context.Context, input *slack.GetConversationInfoInput) (*slack.Channel, error) {
	f.lookups++
	if f.channelErr != nil {
		return nil, f.channelErr
	}
	ch := &slack.Channel{}
	ch.ID = input.ChannelID
	ch.Name = f.channelName
	return ch, nil
}

func (f *fakeInviteAPI) InviteUsersToConversationContext(ctx context.Context, channelID string, users ...string) (*slack.Channel, error) {
	if f.inviteErr != nil {
		return nil, f.inviteErr
	}
	f.invitedChannel = channelID
	f.invitedUsers = users
	return &slack.Channel{}, nil
}

func TestInviter_InvitesOnBotJoin(t *testing.T) {
	api := &fakeInviteAPI{channelName: "rcn-acme-deal42"}
	inviter := NewInviter(api, channel.NewClassifier("rcn"), "U_BOT", []string{"U_LEGAL", "U_SALES"})

	inviter.HandleJoin(context.Background(), "U_BOT", "C123")

	if api.invitedChannel != "C123" {
		t.Errorf("Invited channel = %q, want C123", api.invitedChannel)
	}
	if len(api.invitedUsers) != 2 {
		t.Errorf("Invited %d users, want 2", len(api.invitedUsers))
	}
}

func TestInviter_IgnoresOtherUsersJoining(t *testing.T) {
	api := &fakeInviteAPI{channelName: "rcn-acme-deal42"}
	inviter := NewInviter(api, channel.NewClassifier("rcn"), "U_BOT", []string{"U_LEGAL"})

	inviter.HandleJoin(context.Background(), "U_SOMEONE", "C123")

	if api.lookups != 0 {
		t.Error("A non-bot join should not even look up the channel")
	}
	if api.invitedChannel != "" {
		t.Error("A non-bot join must not trigger invites")
	}
}

func TestInviter_SilentSkips(t *testing.T) {
	testCases := []struct {
		name        string
		channelName string
	}{
		{
			name:        "not a recon channel",
			channelName: "general",
		},
		{
			// The reaction path reports this in-thread; the ambient join
			// path stays silent.
			name:        "recon channel without deal id",
			channelName: "rcn-acme-pending",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			api := &fakeInviteAPI{channelName: tc.channelName}
			inviter := NewInviter(api, channel.NewClassifier("rcn"), "U_BOT", []string{"U_LEGAL"})

			inviter.HandleJoin(context.Background(), "U_BOT", "C123")

			if api.invitedChannel != "" {
				t.Errorf("Channel %q must not trigger invites", tc.channelName)
			}
		})
	}
}

func TestInviter_NoRequiredMembers(t *testing.T) {
	api := &fakeInviteAPI{channelName: "rcn-acme-deal42"}
	inviter := NewInviter(api, channel.NewClassifier("rcn"), "U_BOT", nil)

	inviter.HandleJoin(context.Background(), "U_BOT", "C123")

	if api.lookups != 0 {
		t.Error("No configured members means nothing to do")
	}
}

func TestInviter_LookupFailureIsSwallowed(t *testing.T) {
	api := &fakeInviteAPI{channelErr: errors.New("missing_scope")}
	inviter := NewInviter(api, channel.NewClassifier("rcn"), "U_BOT", []string{"U_LEGAL"})

	// Must not panic or invite.
	inviter.HandleJoin(context.Background(), "U_BOT", "C123")

	if api.invitedChannel != "" {
		t.Error("A failed channel lookup must not trigger invites")
	}
}
