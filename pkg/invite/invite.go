// Package invite issues and resolves single-use-window Strava linking
// tokens, letting a member authorize the connection without a login.
package invite

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	shared "github.com/velohub/server/pkg"
	"github.com/velohub/server/pkg/types"
)

// TTL is how long an issued invite stays valid.
const TTL = 7 * 24 * time.Hour

// tokenBytes of entropy per token, hex-encoded.
const tokenBytes = 32

var (
	ErrInvalidToken = errors.New("invalid invite token")
	ErrExpiredToken = errors.New("expired invite token")
)

// Invite is an issued, not-yet-consumed linking invite.
type Invite struct {
	URL       string    `json:"invite_url"`
	Token     string    `json:"-"`
	ExpiresAt time.Time `json:"expires_at"`
}

type Issuer struct {
	db      shared.Database
	baseURL string
}

func NewIssuer(db shared.Database, baseURL string) *Issuer {
	return &Issuer{db: db, baseURL: baseURL}
}

// Issue generates a fresh invite token for the member and persists it,
// overwriting and thereby invalidating any previously issued token.
// One active token per member.
func (i *Issuer) Issue(ctx context.Context, memberID string) (*Invite, error) {
	buf := make([]byte, tokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return nil, fmt.Errorf("generate invite token: %w", err)
	}
	token := hex.EncodeToString(buf)
	expiresAt := time.Now().Add(TTL).UTC()

	if err := i.db.UpdateMember(ctx, memberID, map[string]interface{}{
		"strava_invite_token":      token,
		"strava_invite_expires_at": expiresAt,
	}); err != nil {
		return nil, fmt.Errorf("persist invite: %w", err)
	}

	return &Invite{
		URL:       fmt.Sprintf("%s/strava/connect?token=%s", i.baseURL, token),
		Token:     token,
		ExpiresAt: expiresAt,
	}, nil
}

// Resolve looks up the member holding token. Expired tokens are rejected
// but never deleted; the expiry timestamp alone governs validity.
func (i *Issuer) Resolve(ctx context.Context, token string) (*types.Member, error) {
	if token == "" {
		return nil, ErrInvalidToken
	}

	member, err := i.db.GetMemberByInviteToken(ctx, token)
	if errors.Is(err, shared.ErrNotFound) {
		return nil, ErrInvalidToken
	}
	if err != nil {
		return nil, fmt.Errorf("lookup invite token: %w", err)
	}

	if member.StravaInviteExpiresAt == nil || member.StravaInviteExpiresAt.Before(time.Now()) {
		return nil, ErrExpiredToken
	}

	return member, nil
}
