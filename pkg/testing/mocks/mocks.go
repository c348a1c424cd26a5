package mocks

import (
	"context"

	"github.com/cloudevents/sdk-go/v2/event"

	shared "github.com/velohub/server/pkg"
	"github.com/velohub/server/pkg/types"
)

// --- Mock Database ---
type MockDatabase struct {
	GetMemberFunc              func(ctx context.Context, id string) (*types.Member, error)
	GetMemberByAthleteIDFunc   func(ctx context.Context, athleteID string) (*types.Member, error)
	GetMemberByInviteTokenFunc func(ctx context.Context, token string) (*types.Member, error)
	UpdateMemberFunc           func(ctx context.Context, id string, data map[string]interface{}) error
	UpsertRideFunc             func(ctx context.Context, ride *types.Ride) error
	ListRidesByMemberFunc      func(ctx context.Context, memberID string) ([]*types.Ride, error)
}

func (m *MockDatabase) GetMember(ctx context.Context, id string) (*types.Member, error) {
	if m.GetMemberFunc != nil {
		return m.GetMemberFunc(ctx, id)
	}
	return nil, shared.ErrNotFound
}

func (m *MockDatabase) GetMemberByAthleteID(ctx context.Context, athleteID string) (*types.Member, error) {
	if m.GetMemberByAthleteIDFunc != nil {
		return m.GetMemberByAthleteIDFunc(ctx, athleteID)
	}
	return nil, shared.ErrNotFound
}

func (m *MockDatabase) GetMemberByInviteToken(ctx context.Context, token string) (*types.Member, error) {
	if m.GetMemberByInviteTokenFunc != nil {
		return m.GetMemberByInviteTokenFunc(ctx, token)
	}
	return nil, shared.ErrNotFound
}

func (m *MockDatabase) UpdateMember(ctx context.Context, id string, data map[string]interface{}) error {
	if m.UpdateMemberFunc != nil {
		return m.UpdateMemberFunc(ctx, id, data)
	}
	return nil
}

func (m *MockDatabase) UpsertRide(ctx context.Context, ride *types.Ride) error {
	if m.UpsertRideFunc != nil {
		return m.UpsertRideFunc(ctx, ride)
	}
	return nil
}

func (m *MockDatabase) ListRidesByMember(ctx context.Context, memberID string) ([]*types.Ride, error) {
	if m.ListRidesByMemberFunc != nil {
		return m.ListRidesByMemberFunc(ctx, memberID)
	}
	return nil, nil
}

// --- Mock Publisher ---
type MockPublisher struct {
	PublishCloudEventFunc func(ctx context.Context, topic string, e event.Event) (string, error)
}

func (m *MockPublisher) PublishCloudEvent(ctx context.Context, topic string, e event.Event) (string, error) {
	if m.PublishCloudEventFunc != nil {
		return m.PublishCloudEventFunc(ctx, topic, e)
	}
	return "msg-id", nil
}
