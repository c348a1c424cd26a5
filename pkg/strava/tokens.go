package strava

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/singleflight"

	shared "github.com/velohub/server/pkg"
	"github.com/velohub/server/pkg/types"
)

// tokenExpiryBuffer treats a token expiring within the next minute as
// already expired, so a request never goes out with a token that dies
// mid-flight.
const tokenExpiryBuffer = 60 * time.Second

// TokenManager owns the mutation path for member Strava credentials.
// It is safe for concurrent use from the webhook and backfill paths.
type TokenManager struct {
	db     shared.Database
	client *Client
	logger *slog.Logger
	group  singleflight.Group
}

func NewTokenManager(db shared.Database, client *Client, logger *slog.Logger) *TokenManager {
	return &TokenManager{
		db:     db,
		client: client,
		logger: logger.With("component", "strava-tokens"),
	}
}

// EnsureValidCredentials returns a member guaranteed to carry a non-expired
// access token, refreshing through the Strava token endpoint if needed.
// Refreshes are single-flighted per member: two concurrent refreshes with
// the same refresh token would race Strava's token rotation and leave one
// caller holding an invalidated refresh token.
func (m *TokenManager) EnsureValidCredentials(ctx context.Context, member *types.Member) (*types.Member, error) {
	if member.StravaAccessToken != "" && !credentialsExpired(member, time.Now()) {
		return member, nil
	}

	v, err, _ := m.group.Do(member.ID, func() (interface{}, error) {
		return m.refresh(ctx, member.ID)
	})
	if err != nil {
		return nil, err
	}
	return v.(*types.Member), nil
}

func credentialsExpired(member *types.Member, now time.Time) bool {
	if member.StravaTokenExpiresAt == nil {
		return true
	}
	return member.StravaTokenExpiresAt.Before(now.Add(tokenExpiryBuffer))
}

func (m *TokenManager) refresh(ctx context.Context, memberID string) (*types.Member, error) {
	// Re-read the member: a refresh that just completed on the other
	// entry point is reused instead of repeated.
	member, err := m.db.GetMember(ctx, memberID)
	if err != nil {
		return nil, fmt.Errorf("get member %s: %w", memberID, err)
	}
	member.ID = memberID

	if member.StravaAccessToken != "" && !credentialsExpired(member, time.Now()) {
		return member, nil
	}

	if member.StravaRefreshToken == "" {
		return nil, fmt.Errorf("%w: member %s must re-authorize", ErrNoRefreshToken, memberID)
	}

	result, err := m.client.RefreshToken(ctx, member.StravaRefreshToken)
	if err != nil {
		// Stored credentials stay untouched for a later retry.
		return nil, fmt.Errorf("%w: %v", ErrTokenRefreshFailed, err)
	}

	expiry := result.Expiry(time.Now()).UTC()
	refreshToken := result.RefreshToken
	if refreshToken == "" {
		refreshToken = member.StravaRefreshToken
	}

	if err := m.db.UpdateMember(ctx, memberID, map[string]interface{}{
		"strava_access_token":     result.AccessToken,
		"strava_refresh_token":    refreshToken,
		"strava_token_expires_at": expiry,
	}); err != nil {
		return nil, fmt.Errorf("persist refreshed tokens: %w", err)
	}

	m.logger.Info("Refreshed Strava credentials", "member_id", memberID, "expires_at", expiry)

	updated := *member
	updated.StravaAccessToken = result.AccessToken
	updated.StravaRefreshToken = refreshToken
	updated.StravaTokenExpiresAt = &expiry
	return &updated, nil
}
