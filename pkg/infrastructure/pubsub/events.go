package pubsub

import (
	cloudevents "github.com/cloudevents/sdk-go/v2"
	"github.com/google/uuid"

	"github.com/velohub/server/pkg/types"
)

const (
	EventSourceSync = "//velohub/strava-sync"

	EventTypeRideSynced = "com.velohub.ride.synced"
)

// NewCloudEvent creates a standardized CloudEvent v1.0
func NewCloudEvent(source, eventType string, data interface{}) (cloudevents.Event, error) {
	e := cloudevents.NewEvent()
	e.SetSpecVersion("1.0")
	e.SetID(uuid.NewString())
	e.SetType(eventType)
	e.SetSource(source)

	if err := e.SetData(cloudevents.ApplicationJSON, data); err != nil {
		return e, err
	}

	return e, nil
}

// NewRideSyncedEvent builds the event published after a ride upsert commits.
func NewRideSyncedEvent(ride *types.Ride) (cloudevents.Event, error) {
	return NewCloudEvent(EventSourceSync, EventTypeRideSynced, ride)
}
