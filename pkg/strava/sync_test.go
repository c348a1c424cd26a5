package strava

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/cloudevents/sdk-go/v2/event"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/velohub/server/pkg/testing/mocks"
	"github.com/velohub/server/pkg/types"
)

const activityJSON = `{
	"id": 555,
	"name": "Morning Loop",
	"sport_type": "Ride",
	"distance": 24500.0,
	"moving_time": 3600,
	"elapsed_time": 3900,
	"total_elevation_gain": 210.5,
	"start_date": "2026-03-14T08:00:00Z",
	"average_speed": 6.8,
	"max_speed": 14.1,
	"kilojoules": 780.0,
	"map": {"summary_polyline": "_p~iF~ps|U_ulLnnqC"}
}`

func newEngine(db *mocks.MockDatabase, pub *mocks.MockPublisher, apiURL string) *Engine {
	client := NewClient("id", "secret")
	client.APIBaseURL = apiURL
	tokens := NewTokenManager(db, client, testLogger())
	return NewEngine(db, pub, client, tokens, testLogger())
}

func TestSyncOne(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/activities/555" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer old-access" {
			t.Errorf("Authorization = %q", got)
		}
		w.Write([]byte(activityJSON))
	}))
	defer ts.Close()

	var upserted *types.Ride
	db := &mocks.MockDatabase{
		UpsertRideFunc: func(ctx context.Context, ride *types.Ride) error {
			upserted = ride
			return nil
		},
	}
	published := 0
	pub := &mocks.MockPublisher{
		PublishCloudEventFunc: func(ctx context.Context, topic string, e event.Event) (string, error) {
			published++
			return "id", nil
		},
	}

	engine := newEngine(db, pub, ts.URL)
	err := engine.SyncOne(context.Background(), connectedMember(time.Hour), "555")
	require.NoError(t, err)

	require.NotNil(t, upserted)
	assert.Equal(t, "555", upserted.StravaActivityID)
	assert.Equal(t, "member-1", upserted.MemberID)
	assert.Equal(t, "Morning Loop", upserted.Name)
	assert.Equal(t, "Ride", upserted.Type)
	assert.Equal(t, 24500.0, upserted.DistanceMeters)
	require.NotNil(t, upserted.Polyline)
	assert.Equal(t, "_p~iF~ps|U_ulLnnqC", *upserted.Polyline)
	assert.False(t, upserted.SyncedAt.IsZero())
	assert.Equal(t, 1, published)
}

func TestSyncOneFetchFailure(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "upstream broken", http.StatusInternalServerError)
	}))
	defer ts.Close()

	upserts := 0
	db := &mocks.MockDatabase{
		UpsertRideFunc: func(ctx context.Context, ride *types.Ride) error {
			upserts++
			return nil
		},
	}

	engine := newEngine(db, &mocks.MockPublisher{}, ts.URL)
	err := engine.SyncOne(context.Background(), connectedMember(time.Hour), "555")
	require.ErrorIs(t, err, ErrActivityFetchFailed)
	assert.Equal(t, 0, upserts)
}

func TestSyncOneIdempotentUpsert(t *testing.T) {
	// Two deliveries of the same activity with different payloads leave
	// exactly one ride carrying the latest values.
	name := "First Pass"
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, `{"id": 555, "name": %q, "sport_type": "Ride", "start_date": "2026-03-14T08:00:00Z"}`, name)
	}))
	defer ts.Close()

	rides := map[string]*types.Ride{}
	db := &mocks.MockDatabase{
		UpsertRideFunc: func(ctx context.Context, ride *types.Ride) error {
			rides[ride.StravaActivityID] = ride
			return nil
		},
	}

	engine := newEngine(db, &mocks.MockPublisher{}, ts.URL)

	require.NoError(t, engine.SyncOne(context.Background(), connectedMember(time.Hour), "555"))
	name = "Second Pass"
	require.NoError(t, engine.SyncOne(context.Background(), connectedMember(time.Hour), "555"))

	require.Len(t, rides, 1)
	assert.Equal(t, "Second Pass", rides["555"].Name)
}

func TestSyncAllPaginationTermination(t *testing.T) {
	pages := map[string]string{
		"1": `[{"id": 1, "start_date": "2026-01-01T00:00:00Z"}, {"id": 2, "start_date": "2026-01-02T00:00:00Z"}]`,
		"2": `[{"id": 3, "start_date": "2026-01-03T00:00:00Z"}, {"id": 4, "start_date": "2026-01-04T00:00:00Z"}]`,
		"3": `[]`,
	}
	listCalls := 0
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/athlete/activities" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		listCalls++
		page := r.URL.Query().Get("page")
		body, ok := pages[page]
		if !ok {
			t.Errorf("fetched page %s after the empty page", page)
			body = `[]`
		}
		w.Write([]byte(body))
	}))
	defer ts.Close()

	rides := map[string]*types.Ride{}
	db := &mocks.MockDatabase{
		UpsertRideFunc: func(ctx context.Context, ride *types.Ride) error {
			rides[ride.StravaActivityID] = ride
			return nil
		},
	}

	engine := newEngine(db, &mocks.MockPublisher{}, ts.URL)
	synced, err := engine.SyncAll(context.Background(), connectedMember(time.Hour))
	require.NoError(t, err)

	assert.Equal(t, 4, synced)
	assert.Len(t, rides, 4)
	assert.Equal(t, 3, listCalls, "no further fetches after the empty page")
}

func TestSyncAllPageFailureKeepsProgress(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Query().Get("page") {
		case "1":
			w.Write([]byte(`[{"id": 1, "start_date": "2026-01-01T00:00:00Z"}, {"id": 2, "start_date": "2026-01-02T00:00:00Z"}]`))
		default:
			http.Error(w, "rate limited", http.StatusTooManyRequests)
		}
	}))
	defer ts.Close()

	upserts := 0
	db := &mocks.MockDatabase{
		UpsertRideFunc: func(ctx context.Context, ride *types.Ride) error {
			upserts++
			return nil
		},
	}

	engine := newEngine(db, &mocks.MockPublisher{}, ts.URL)
	synced, err := engine.SyncAll(context.Background(), connectedMember(time.Hour))
	require.ErrorIs(t, err, ErrActivityFetchFailed)

	assert.Equal(t, 2, synced, "page-one upserts survive the page-two failure")
	assert.Equal(t, 2, upserts)
}

func TestSyncOneCredentialFailureSurfaces(t *testing.T) {
	member := connectedMember(-time.Minute)
	member.StravaRefreshToken = ""

	db := &mocks.MockDatabase{
		GetMemberFunc: func(ctx context.Context, id string) (*types.Member, error) {
			m := *member
			return &m, nil
		},
	}

	engine := newEngine(db, &mocks.MockPublisher{}, "http://unreachable.invalid")
	err := engine.SyncOne(context.Background(), member, "555")
	require.ErrorIs(t, err, ErrNoRefreshToken)
}
