package database

import (
	"context"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	shared "github.com/velohub/server/pkg"
	storage "github.com/velohub/server/pkg/storage/firestore"
	"github.com/velohub/server/pkg/types"
)

// FirestoreAdapter provides database operations using Firestore
// It wraps our typed storage client
type FirestoreAdapter struct {
	Client  *firestore.Client
	storage *storage.Client // internal typed wrapper
}

func NewFirestoreAdapter(client *firestore.Client) *FirestoreAdapter {
	return &FirestoreAdapter{
		Client:  client,
		storage: storage.NewClient(client),
	}
}

// mapNotFound converts Firestore not-found conditions into shared.ErrNotFound
// so callers don't depend on grpc status codes.
func mapNotFound(err error) error {
	if err == iterator.Done || status.Code(err) == codes.NotFound {
		return shared.ErrNotFound
	}
	return err
}

func (a *FirestoreAdapter) GetMember(ctx context.Context, id string) (*types.Member, error) {
	member, err := a.storage.Members().Doc(id).Get(ctx)
	if err != nil {
		return nil, mapNotFound(err)
	}
	member.ID = id
	return member, nil
}

func (a *FirestoreAdapter) GetMemberByAthleteID(ctx context.Context, athleteID string) (*types.Member, error) {
	member, id, err := a.storage.Members().FindOne(ctx, "strava_athlete_id", athleteID)
	if err != nil {
		return nil, mapNotFound(err)
	}
	member.ID = id
	return member, nil
}

func (a *FirestoreAdapter) GetMemberByInviteToken(ctx context.Context, token string) (*types.Member, error) {
	member, id, err := a.storage.Members().FindOne(ctx, "strava_invite_token", token)
	if err != nil {
		return nil, mapNotFound(err)
	}
	member.ID = id
	return member, nil
}

func (a *FirestoreAdapter) UpdateMember(ctx context.Context, id string, data map[string]interface{}) error {
	return a.storage.Members().Doc(id).Update(ctx, data)
}

func (a *FirestoreAdapter) UpsertRide(ctx context.Context, ride *types.Ride) error {
	// Set keyed by activity ID replaces every mapped field, so redelivery
	// and backfill overlap converge on the latest values.
	return a.storage.Rides().Doc(ride.StravaActivityID).Set(ctx, ride)
}

func (a *FirestoreAdapter) ListRidesByMember(ctx context.Context, memberID string) ([]*types.Ride, error) {
	rides, ids, err := a.storage.Rides().List(ctx, "member_id", memberID)
	if err != nil {
		return nil, err
	}
	for i, ride := range rides {
		ride.StravaActivityID = ids[i]
	}
	return rides, nil
}
