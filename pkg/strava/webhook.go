package strava

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	shared "github.com/velohub/server/pkg"
	sentryutil "github.com/velohub/server/pkg/infrastructure/sentry"
	"github.com/velohub/server/pkg/types"
)

// webhookSyncTimeout bounds how long a delivery may spend on the sync so
// the response to Strava stays prompt.
const webhookSyncTimeout = 10 * time.Second

// maxEventBody caps the webhook payload size.
const maxEventBody = 1 << 20

// Syncer is the part of the sync engine the webhook handler needs.
type Syncer interface {
	SyncOne(ctx context.Context, member *types.Member, activityID string) error
}

// Event is a Strava webhook push payload element.
type Event struct {
	ObjectType string `json:"object_type"`
	AspectType string `json:"aspect_type"`
	ObjectID   int64  `json:"object_id"` // activity ID
	OwnerID    int64  `json:"owner_id"`  // athlete ID
}

// WebhookHandler serves the Strava push subscription endpoint.
//
// Contract: event delivery ALWAYS gets a 200. Strava retries aggressively
// on non-success and offers no backpressure, so internal failures are
// absorbed here (logged and captured in Sentry), never surfaced to the
// caller. Persistent failures need log monitoring, not protocol retries.
type WebhookHandler struct {
	db          shared.Database
	syncer      Syncer
	verifyToken string
	logger      *slog.Logger
}

func NewWebhookHandler(db shared.Database, syncer Syncer, verifyToken string, logger *slog.Logger) *WebhookHandler {
	return &WebhookHandler{
		db:          db,
		syncer:      syncer,
		verifyToken: verifyToken,
		logger:      logger.With("component", "strava-webhook"),
	}
}

// Verify handles the one-time subscription handshake: echo the challenge
// when the verify token matches, 403 otherwise. Nothing is persisted.
func (h *WebhookHandler) Verify(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	mode := q.Get("hub.mode")
	challenge := q.Get("hub.challenge")
	verifyToken := q.Get("hub.verify_token")

	if mode == "subscribe" && h.verifyToken != "" && verifyToken == h.verifyToken {
		h.logger.Info("Webhook subscription verified")
		writeJSON(w, http.StatusOK, map[string]string{"hub.challenge": challenge})
		return
	}

	h.logger.Warn("Webhook verification rejected", "mode", mode)
	writeJSON(w, http.StatusForbidden, map[string]string{"error": "invalid verify token"})
}

// ReceiveEvent handles event delivery.
func (h *WebhookHandler) ReceiveEvent(w http.ResponseWriter, r *http.Request) {
	defer h.ack(w)

	body, err := io.ReadAll(io.LimitReader(r.Body, maxEventBody))
	if err != nil {
		h.logger.Warn("Failed to read webhook body", "error", err)
		return
	}

	evt, ok := parseEvent(body)
	if !ok {
		h.logger.Warn("Ignoring malformed webhook payload")
		return
	}

	// Only newly created activities trigger a sync; updates and deletes
	// are accepted and ignored.
	if evt.ObjectType != "activity" || evt.AspectType != "create" {
		h.logger.Debug("Ignoring webhook event", "object_type", evt.ObjectType, "aspect_type", evt.AspectType)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), webhookSyncTimeout)
	defer cancel()

	athleteID := strconv.FormatInt(evt.OwnerID, 10)
	member, err := h.db.GetMemberByAthleteID(ctx, athleteID)
	if errors.Is(err, shared.ErrNotFound) {
		// The club roster and the Strava subscription drift apart;
		// an unknown athlete is an expected no-op.
		h.logger.Warn("Webhook event for unknown athlete", "athlete_id", athleteID)
		return
	}
	if err != nil {
		h.logger.Error("Failed to resolve webhook athlete", "athlete_id", athleteID, "error", err)
		sentryutil.CaptureException(err, map[string]interface{}{"athlete_id": athleteID}, h.logger)
		return
	}

	activityID := strconv.FormatInt(evt.ObjectID, 10)
	if err := h.syncer.SyncOne(ctx, member, activityID); err != nil {
		h.logger.Error("Webhook sync failed", "member_id", member.ID, "activity_id", activityID, "error", err)
		sentryutil.CaptureException(err, map[string]interface{}{
			"member_id":   member.ID,
			"activity_id": activityID,
		}, h.logger)
		return
	}
}

// parseEvent accepts either a single event object or an array. Strava's
// batches are size one in current practice, so only the first element of
// an array is processed.
func parseEvent(body []byte) (*Event, bool) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 {
		return nil, false
	}

	if trimmed[0] == '[' {
		var events []Event
		if err := json.Unmarshal(trimmed, &events); err != nil || len(events) == 0 {
			return nil, false
		}
		return &events[0], true
	}

	var evt Event
	if err := json.Unmarshal(trimmed, &evt); err != nil {
		return nil, false
	}
	return &evt, true
}

func (h *WebhookHandler) ack(w http.ResponseWriter) {
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}
