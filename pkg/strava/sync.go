package strava

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	shared "github.com/velohub/server/pkg"
	infrapubsub "github.com/velohub/server/pkg/infrastructure/pubsub"
	"github.com/velohub/server/pkg/types"
)

// backfillPageSize is the fixed page size for full-history backfills.
const backfillPageSize = 50

// Engine fetches activities from Strava and persists them as rides. It is
// the only writer of ride documents; the upsert is keyed by Strava activity
// ID so webhook redelivery and backfill overlap are harmless.
type Engine struct {
	db     shared.Database
	pub    shared.Publisher
	client *Client
	tokens *TokenManager
	logger *slog.Logger
}

func NewEngine(db shared.Database, pub shared.Publisher, client *Client, tokens *TokenManager, logger *slog.Logger) *Engine {
	return &Engine{
		db:     db,
		pub:    pub,
		client: client,
		tokens: tokens,
		logger: logger.With("component", "strava-sync"),
	}
}

// SyncOne fetches a single activity and upserts the resulting ride.
// Errors surface to the caller; the webhook boundary decides whether to
// absorb them.
func (e *Engine) SyncOne(ctx context.Context, member *types.Member, activityID string) error {
	member, err := e.tokens.EnsureValidCredentials(ctx, member)
	if err != nil {
		return err
	}

	activity, err := e.client.GetActivity(ctx, member.StravaAccessToken, activityID)
	if err != nil {
		return err
	}

	ride := NormalizeActivity(member.ID, activity)
	ride.SyncedAt = time.Now().UTC()

	if err := e.db.UpsertRide(ctx, ride); err != nil {
		return fmt.Errorf("upsert ride %s: %w", ride.StravaActivityID, err)
	}

	e.logger.Info("Synced activity", "member_id", member.ID, "activity_id", ride.StravaActivityID, "type", ride.Type)
	e.publishRideSynced(ctx, ride)
	return nil
}

// SyncAll pages through the member's full Strava history and upserts every
// activity as it arrives. An empty page terminates the backfill; a failed
// page aborts it but keeps everything already committed, since each upsert
// is independently idempotent. Returns the number of rides upserted.
func (e *Engine) SyncAll(ctx context.Context, member *types.Member) (int, error) {
	member, err := e.tokens.EnsureValidCredentials(ctx, member)
	if err != nil {
		return 0, err
	}

	synced := 0
	for page := 1; ; page++ {
		activities, err := e.client.ListActivities(ctx, member.StravaAccessToken, page, backfillPageSize)
		if err != nil {
			return synced, err
		}
		if len(activities) == 0 {
			break
		}

		for i := range activities {
			ride := NormalizeActivity(member.ID, &activities[i])
			ride.SyncedAt = time.Now().UTC()
			if err := e.db.UpsertRide(ctx, ride); err != nil {
				return synced, fmt.Errorf("upsert ride %s: %w", ride.StravaActivityID, err)
			}
			synced++
			e.publishRideSynced(ctx, ride)
		}
	}

	e.logger.Info("Backfill complete", "member_id", member.ID, "rides", synced)
	return synced, nil
}

// publishRideSynced emits the post-upsert event. Publish failures are
// logged, never propagated: the ride is already durably stored.
func (e *Engine) publishRideSynced(ctx context.Context, ride *types.Ride) {
	evt, err := infrapubsub.NewRideSyncedEvent(ride)
	if err != nil {
		e.logger.Warn("Failed to build ride.synced event", "error", err)
		return
	}
	if _, err := e.pub.PublishCloudEvent(ctx, shared.TopicRideSynced, evt); err != nil {
		e.logger.Warn("Failed to publish ride.synced", "activity_id", ride.StravaActivityID, "error", err)
	}
}
