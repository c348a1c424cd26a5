package strava

import "errors"

var (
	// ErrNoRefreshToken means the member has no refresh token on file.
	// Fatal for that member: only re-authorization can recover.
	ErrNoRefreshToken = errors.New("no strava refresh token on file")

	// ErrTokenRefreshFailed is a transient refresh failure. Stored
	// credentials are left untouched so a later retry can still attempt
	// the refresh with whatever refresh token is on file.
	ErrTokenRefreshFailed = errors.New("strava token refresh failed")

	// ErrActivityFetchFailed is a transient network or HTTP failure
	// talking to the Strava activity endpoints.
	ErrActivityFetchFailed = errors.New("strava activity fetch failed")
)
