package main

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	shared "github.com/velohub/server/pkg"
	"github.com/velohub/server/pkg/bootstrap"
	"github.com/velohub/server/pkg/invite"
	"github.com/velohub/server/pkg/strava"
	"github.com/velohub/server/pkg/testing/mocks"
	"github.com/velohub/server/pkg/types"
)

func newTestServer(db *mocks.MockDatabase) *server {
	logger := slog.New(slog.DiscardHandler)
	svc := &bootstrap.Service{
		DB:     db,
		Pub:    &mocks.MockPublisher{},
		Config: &bootstrap.Config{PublicBaseURL: "https://club.example.com"},
	}

	client := strava.NewClient("id", "secret")
	tokens := strava.NewTokenManager(db, client, logger)
	engine := strava.NewEngine(db, svc.Pub, client, tokens, logger)

	return &server{
		svc:     svc,
		engine:  engine,
		webhook: strava.NewWebhookHandler(db, engine, "secret", logger),
		invites: invite.NewIssuer(db, svc.Config.PublicBaseURL),
		logger:  logger,
	}
}

func TestHandleConnect(t *testing.T) {
	valid := time.Now().Add(time.Hour)
	expired := time.Now().Add(-time.Hour)

	tests := []struct {
		name           string
		token          string
		member         *types.Member
		expectedStatus int
	}{
		{
			name:  "valid token resolves member",
			token: "good-token",
			member: &types.Member{
				ID: "member-1", Name: "Jordan",
				StravaInviteToken: "good-token", StravaInviteExpiresAt: &valid,
			},
			expectedStatus: http.StatusOK,
		},
		{
			name:  "expired token is gone",
			token: "old-token",
			member: &types.Member{
				ID: "member-1", Name: "Jordan",
				StravaInviteToken: "old-token", StravaInviteExpiresAt: &expired,
			},
			expectedStatus: http.StatusGone,
		},
		{
			name:           "unknown token is not found",
			token:          "bogus",
			expectedStatus: http.StatusNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db := &mocks.MockDatabase{
				GetMemberByInviteTokenFunc: func(ctx context.Context, token string) (*types.Member, error) {
					if tt.member != nil && token == tt.member.StravaInviteToken {
						return tt.member, nil
					}
					return nil, shared.ErrNotFound
				},
			}
			s := newTestServer(db)

			req := httptest.NewRequest("GET", "/strava/connect?token="+tt.token, nil)
			rec := httptest.NewRecorder()
			s.routes().ServeHTTP(rec, req)

			assert.Equal(t, tt.expectedStatus, rec.Code)
			if tt.expectedStatus == http.StatusOK {
				assert.Contains(t, rec.Body.String(), "member-1")
			}
		})
	}
}

func TestHandleIssueInvite(t *testing.T) {
	var persisted map[string]interface{}
	db := &mocks.MockDatabase{
		GetMemberFunc: func(ctx context.Context, id string) (*types.Member, error) {
			if id == "member-1" {
				return &types.Member{ID: id, Name: "Jordan"}, nil
			}
			return nil, shared.ErrNotFound
		},
		UpdateMemberFunc: func(ctx context.Context, id string, data map[string]interface{}) error {
			persisted = data
			return nil
		},
	}
	s := newTestServer(db)

	req := httptest.NewRequest("POST", "/admin/members/member-1/strava/invite", nil)
	rec := httptest.NewRecorder()
	s.routes().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "https://club.example.com/strava/connect?token=")
	require.NotNil(t, persisted)
	assert.NotEmpty(t, persisted["strava_invite_token"])

	// Unknown member
	rec = httptest.NewRecorder()
	s.routes().ServeHTTP(rec, httptest.NewRequest("POST", "/admin/members/nobody/strava/invite", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHandleMemberRoutes(t *testing.T) {
	legacy := `[[39.1679, -86.523], [39.17, -86.52]]`
	encoded := "_p~iF~ps|U_ulLnnqC"
	corrupted := "not a polyline ~~~"

	db := &mocks.MockDatabase{
		GetMemberFunc: func(ctx context.Context, id string) (*types.Member, error) {
			return &types.Member{ID: id, Name: "Jordan"}, nil
		},
		ListRidesByMemberFunc: func(ctx context.Context, memberID string) ([]*types.Ride, error) {
			return []*types.Ride{
				{StravaActivityID: "1", Name: "Seed ride", DistanceMeters: 10000, Polyline: &legacy},
				{StravaActivityID: "2", Name: "Synced ride", DistanceMeters: 20000, Polyline: &encoded},
				{StravaActivityID: "3", Name: "Broken geometry", DistanceMeters: 5000, Polyline: &corrupted},
				{StravaActivityID: "4", Name: "No geometry", DistanceMeters: 3000},
			}, nil
		},
	}
	s := newTestServer(db)

	req := httptest.NewRequest("GET", "/members/member-1/routes", nil)
	rec := httptest.NewRecorder()
	s.routes().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		TotalRides          int           `json:"total_rides"`
		TotalDistanceMeters float64       `json:"total_distance_meters"`
		Routes              []memberRoute `json:"routes"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))

	assert.Equal(t, 4, resp.TotalRides, "totals count every ride")
	assert.Equal(t, 38000.0, resp.TotalDistanceMeters)
	require.Len(t, resp.Routes, 2, "undrawable rides are skipped, not errors")
	assert.Equal(t, [][]float64{{39.1679, -86.523}, {39.17, -86.52}}, resp.Routes[0].Coordinates)
}

func TestHandleHealth(t *testing.T) {
	s := newTestServer(&mocks.MockDatabase{})

	rec := httptest.NewRecorder()
	s.routes().ServeHTTP(rec, httptest.NewRequest("GET", "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}
