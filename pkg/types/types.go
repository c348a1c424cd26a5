package types

import "time"

// Member is a club member document. The Strava fields are nil/empty until
// the member completes the connect flow; an athlete ID without tokens is a
// transient state between invite issuance and authorization.
type Member struct {
	ID   string `firestore:"-" json:"id"`
	Name string `firestore:"name" json:"name"`
	Role string `firestore:"role,omitempty" json:"role,omitempty"`

	JoinedAt time.Time `firestore:"joined_at,omitempty" json:"joined_at,omitempty"`

	StravaAthleteID       string     `firestore:"strava_athlete_id,omitempty" json:"strava_athlete_id,omitempty"`
	StravaAccessToken     string     `firestore:"strava_access_token,omitempty" json:"-"`
	StravaRefreshToken    string     `firestore:"strava_refresh_token,omitempty" json:"-"`
	StravaTokenExpiresAt  *time.Time `firestore:"strava_token_expires_at,omitempty" json:"-"`
	StravaInviteToken     string     `firestore:"strava_invite_token,omitempty" json:"-"`
	StravaInviteExpiresAt *time.Time `firestore:"strava_invite_expires_at,omitempty" json:"-"`
}

// Connected reports whether the member has linked a Strava account.
func (m *Member) Connected() bool {
	return m.StravaAthleteID != ""
}

// Ride is a synchronized activity. The document ID is the Strava activity
// ID, which makes the upsert naturally idempotent: redelivered webhooks and
// overlapping backfills converge on a single document.
type Ride struct {
	StravaActivityID    string    `firestore:"-" json:"strava_activity_id"`
	MemberID            string    `firestore:"member_id" json:"member_id"`
	Name                string    `firestore:"name" json:"name"`
	Type                string    `firestore:"type" json:"type"`
	DistanceMeters      float64   `firestore:"distance_meters" json:"distance_meters"`
	MovingTimeSec       int64     `firestore:"moving_time_sec" json:"moving_time_sec"`
	ElapsedTimeSec      int64     `firestore:"elapsed_time_sec" json:"elapsed_time_sec"`
	ElevationGainMeters float64   `firestore:"elevation_gain_meters" json:"elevation_gain_meters"`
	StartedAt           time.Time `firestore:"started_at" json:"started_at"`

	// Pointers distinguish "unknown" from a genuine zero.
	AvgSpeed *float64 `firestore:"avg_speed,omitempty" json:"avg_speed,omitempty"`
	MaxSpeed *float64 `firestore:"max_speed,omitempty" json:"max_speed,omitempty"`
	Calories *float64 `firestore:"calories,omitempty" json:"calories,omitempty"`

	// Polyline holds route geometry as received from Strava, or a legacy
	// JSON coordinate array on old seed records. Decoded lazily by
	// pkg/geometry; never interpreted at write time.
	Polyline *string `firestore:"polyline,omitempty" json:"-"`

	SyncedAt time.Time `firestore:"synced_at" json:"synced_at"`
}
