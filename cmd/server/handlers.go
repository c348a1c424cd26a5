package main

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	shared "github.com/velohub/server/pkg"
	"github.com/velohub/server/pkg/bootstrap"
	"github.com/velohub/server/pkg/geometry"
	"github.com/velohub/server/pkg/invite"
	"github.com/velohub/server/pkg/strava"
)

type server struct {
	svc     *bootstrap.Service
	engine  *strava.Engine
	webhook *strava.WebhookHandler
	invites *invite.Issuer
	logger  *slog.Logger
}

func (s *server) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", s.handleHealth)

	r.Route("/api/strava/webhook", func(r chi.Router) {
		r.Get("/", s.webhook.Verify)
		r.Post("/", s.webhook.ReceiveEvent)
	})

	r.Get("/strava/connect", s.handleConnect)
	r.Get("/members/{memberID}/routes", s.handleMemberRoutes)

	r.Route("/admin/members/{memberID}/strava", func(r chi.Router) {
		r.Post("/invite", s.handleIssueInvite)
		r.Post("/resync", s.handleResync)
	})

	return r
}

func (s *server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleConnect backs the member-facing connect page: it resolves an
// invite token into the member it was issued for.
func (s *server) handleConnect(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")

	member, err := s.invites.Resolve(r.Context(), token)
	switch {
	case errors.Is(err, invite.ErrInvalidToken):
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "invalid invite token"})
		return
	case errors.Is(err, invite.ErrExpiredToken):
		writeJSON(w, http.StatusGone, map[string]string{"error": "expired invite token"})
		return
	case err != nil:
		s.logger.Error("Invite resolution failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"member_id": member.ID,
		"name":      member.Name,
		"connected": member.Connected(),
	})
}

func (s *server) handleIssueInvite(w http.ResponseWriter, r *http.Request) {
	memberID := chi.URLParam(r, "memberID")

	if _, err := s.svc.DB.GetMember(r.Context(), memberID); err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "member not found"})
			return
		}
		s.logger.Error("Member lookup failed", "member_id", memberID, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
		return
	}

	inv, err := s.invites.Issue(r.Context(), memberID)
	if err != nil {
		s.logger.Error("Invite issuance failed", "member_id", memberID, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
		return
	}

	writeJSON(w, http.StatusOK, inv)
}

// handleResync triggers a full backfill. Unlike the webhook path, errors
// here surface to the operator along with how far the backfill got.
func (s *server) handleResync(w http.ResponseWriter, r *http.Request) {
	memberID := chi.URLParam(r, "memberID")

	member, err := s.svc.DB.GetMember(r.Context(), memberID)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "member not found"})
			return
		}
		s.logger.Error("Member lookup failed", "member_id", memberID, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
		return
	}

	synced, err := s.engine.SyncAll(r.Context(), member)
	if err != nil {
		writeJSON(w, http.StatusBadGateway, map[string]interface{}{
			"error":  err.Error(),
			"synced": synced,
		})
		return
	}

	writeJSON(w, http.StatusOK, map[string]int{"synced": synced})
}

type memberRoute struct {
	ActivityID     string      `json:"activity_id"`
	Name           string      `json:"name"`
	StartedAt      time.Time   `json:"started_at"`
	DistanceMeters float64     `json:"distance_meters"`
	Coordinates    [][]float64 `json:"coordinates"`
}

// handleMemberRoutes returns decoded route geometry and simple totals for
// a member's rides. Rides without decodable geometry are skipped, never
// an error.
func (s *server) handleMemberRoutes(w http.ResponseWriter, r *http.Request) {
	memberID := chi.URLParam(r, "memberID")

	if _, err := s.svc.DB.GetMember(r.Context(), memberID); err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "member not found"})
			return
		}
		s.logger.Error("Member lookup failed", "member_id", memberID, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
		return
	}

	rides, err := s.svc.DB.ListRidesByMember(r.Context(), memberID)
	if err != nil {
		s.logger.Error("Ride listing failed", "member_id", memberID, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
		return
	}

	var totalDistance float64
	routes := []memberRoute{}
	for _, ride := range rides {
		totalDistance += ride.DistanceMeters

		if ride.Polyline == nil {
			continue
		}
		coords := geometry.Decode(*ride.Polyline)
		if len(coords) == 0 {
			continue
		}

		routes = append(routes, memberRoute{
			ActivityID:     ride.StravaActivityID,
			Name:           ride.Name,
			StartedAt:      ride.StartedAt,
			DistanceMeters: ride.DistanceMeters,
			Coordinates:    coords,
		})
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"member_id":             memberID,
		"total_rides":           len(rides),
		"total_distance_meters": totalDistance,
		"routes":                routes,
	})
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}
