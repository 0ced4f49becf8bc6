package handlers

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/edgard/memebot/internal/database"
	"github.com/edgard/memebot/internal/logger"
	"github.com/edgard/memebot/internal/memebot"
	"github.com/edgard/memebot/internal/metrics"
)

const defaultHandleTimeout = 30 * time.Second

// Sender types that never get a reply.
const (
	senderBot    = "bot"
	senderSystem = "system"
)

// Callback is the message payload GroupMe posts to a bot's callback URL.
type Callback struct {
	ID         string `json:"id"`
	Text       string `json:"text"`
	SenderID   string `json:"sender_id"`
	SenderType string `json:"sender_type"`
	Name       string `json:"name"`
	GroupID    string `json:"group_id"`
	CreatedAt  int64  `json:"created_at"`
	System     bool   `json:"system"`
}

// failedCollaborator maps failure outcomes to the collaborator that failed.
var failedCollaborator = map[memebot.Outcome]string{
	memebot.OutcomeBotUnavailable: "groupme_bots",
	memebot.OutcomeHistoryFailed:  "groupme_history",
	memebot.OutcomePostFailed:     "groupme_post",
	memebot.OutcomeMemeFailed:     "meme_api",
}

type webhookHandler struct {
	deps HandlerDeps
}

// NewWebhookHandler creates the bot callback handler. Every well-formed
// callback is answered with 200 "ok"; whether and how the bot replies is
// decided by the dispatcher.
func NewWebhookHandler(deps HandlerDeps) http.HandlerFunc {
	return webhookHandler{deps}.Handle
}

func (h webhookHandler) Handle(w http.ResponseWriter, r *http.Request) {
	deps := h.deps
	ctx := r.Context()
	log := deps.Logger.With("handler", "webhook")

	var cb Callback
	if err := json.NewDecoder(r.Body).Decode(&cb); err != nil {
		log.WarnContext(ctx, "Rejecting malformed callback", "error", err)
		deps.Metrics.WebhookRequest(metrics.ResultBadJSON)
		http.Error(w, "malformed callback", http.StatusBadRequest)
		return
	}

	log = log.With("message_id", cb.ID, "sender_id", cb.SenderID, "group_id", cb.GroupID)
	log.InfoContext(ctx, "Received message",
		"name", cb.Name,
		"sender_type", cb.SenderType,
		"text_preview", logger.Truncate(cb.Text, 50),
	)

	deps.Metrics.WebhookRequest(h.process(ctx, log, cb))

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (h webhookHandler) process(ctx context.Context, log *slog.Logger, cb Callback) string {
	deps := h.deps

	if cb.System || cb.SenderType == senderBot || cb.SenderType == senderSystem {
		log.DebugContext(ctx, "Ignoring message from non-user sender")
		return metrics.ResultSender
	}
	if cb.GroupID != "" && deps.GroupID != "" && cb.GroupID != deps.GroupID {
		log.WarnContext(ctx, "Ignoring message from unexpected group", "expected_group_id", deps.GroupID)
		return metrics.ResultGroup
	}

	if cb.ID != "" {
		first, err := deps.Store.MarkMessageHandled(ctx, database.HandledMessage{
			MessageID: cb.ID,
			GroupID:   cb.GroupID,
			SenderID:  cb.SenderID,
		})
		switch {
		case err != nil:
			// Store failures never block a reply.
			log.ErrorContext(ctx, "Failed to record message, handling it anyway", "error", err)
			deps.Metrics.CollaboratorFailure("store")
		case !first:
			log.InfoContext(ctx, "Ignoring redelivered message")
			return metrics.ResultDuplicate
		}
	}

	timeout := defaultHandleTimeout
	if deps.Config != nil && deps.Config.Server.HandleTimeout > 0 {
		timeout = deps.Config.Server.HandleTimeout
	}
	hctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), timeout)
	defer cancel()

	start := time.Now()
	outcome := deps.Dispatcher.Handle(hctx, cb.Text)
	deps.Metrics.Command(string(outcome), time.Since(start))
	if collaborator, ok := failedCollaborator[outcome]; ok {
		deps.Metrics.CollaboratorFailure(collaborator)
	}
	log.DebugContext(ctx, "Message handled", "outcome", outcome, "duration", time.Since(start))
	return metrics.ResultHandled
}
