package shared

import (
	"context"
	"errors"

	"github.com/cloudevents/sdk-go/v2/event"

	"github.com/velohub/server/pkg/types"
)

// ErrNotFound is returned by Database lookups when no document matches.
var ErrNotFound = errors.New("not found")

// --- Persistence Interfaces ---

type Database interface {
	GetMember(ctx context.Context, id string) (*types.Member, error)
	GetMemberByAthleteID(ctx context.Context, athleteID string) (*types.Member, error)
	GetMemberByInviteToken(ctx context.Context, token string) (*types.Member, error)
	UpdateMember(ctx context.Context, id string, data map[string]interface{}) error

	// UpsertRide writes a ride keyed by its Strava activity ID,
	// overwriting all mapped fields if the document already exists.
	UpsertRide(ctx context.Context, ride *types.Ride) error
	ListRidesByMember(ctx context.Context, memberID string) ([]*types.Ride, error)
}

// --- Messaging Interfaces ---

type Publisher interface {
	PublishCloudEvent(ctx context.Context, topic string, e event.Event) (string, error)
}
