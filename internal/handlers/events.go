package handlers

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"

	"github.com/slack-go/slack"
	"github.com/slack-go/slack/slackevents"
)

// Dispatcher routes a parsed Events API envelope to the bot's flows.
type Dispatcher interface {
	Dispatch(ctx context.Context, event slackevents.EventsAPIEvent)
}

// EventsHandler is the HTTP alternative to Socket Mode: Slack posts Events
// API callbacks here, signed with the app's signing secret.
type EventsHandler struct {
	signingSecret string
	dispatcher    Dispatcher
}

func NewEventsHandler(signingSecret string, dispatcher Dispatcher) *EventsHandler {
	return &EventsHandler{
		signingSecret: signingSecret,
		dispatcher:    dispatcher,
	}
}

// HandleEvent verifies, parses, and dispatches one Events API request.
func (h *EventsHandler) HandleEvent(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		slog.Error("Error reading request body", "error", err)
		http.Error(w, "Bad Request", http.StatusBadRequest)
		return
	}
	defer r.Body.Close()

	if !h.verifySignature(r.Header, body) {
		slog.Warn("Rejected Slack event with invalid signature", "remote_addr", r.RemoteAddr)
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	event, err := slackevents.ParseEvent(json.RawMessage(body), slackevents.OptionNoVerifyToken())
	if err != nil {
		slog.Error("Error parsing Slack event", "error", err)
		http.Error(w, "Bad Request", http.StatusBadRequest)
		return
	}

	switch event.Type {
	case slackevents.URLVerification:
		var challenge slackevents.ChallengeResponse
		if err := json.Unmarshal(body, &challenge); err != nil {
			http.Error(w, "Bad Request", http.StatusBadRequest)
			return
		}
		w.Header().Set("Content-Type", "text/plain")
		w.Write([]byte(challenge.Challenge))
	case slackevents.CallbackEvent:
		// The request context dies when Slack's 3s deadline passes; the
		// event outlives it.
		h.dispatcher.Dispatch(context.Background(), event)
		w.WriteHeader(http.StatusOK)
	default:
		slog.Debug("Ignoring unhandled event envelope", "type", event.Type)
		w.WriteHeader(http.StatusOK)
	}
}

func (h *EventsHandler) verifySignature(header http.Header, body []byte) bool {
	if h.signingSecret == "" {
		return false
	}

	verifier, err := slack.NewSecretsVerifier(header, h.signingSecret)
	if err != nil {
		return false
	}
	if _, err := verifier.Write(body); err != nil {
		return false
	}
	return verifier.Ensure() == nil
}
