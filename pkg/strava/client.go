package strava

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	httputil "github.com/velohub/server/pkg/infrastructure/http"
)

const (
	DefaultAPIBaseURL = "https://www.strava.com/api/v3"
	DefaultTokenURL   = "https://www.strava.com/oauth/token"
)

// Client is an API client for Strava. The base URLs are exported so tests
// can point it at an httptest server.
type Client struct {
	APIBaseURL string
	TokenURL   string

	clientID     string
	clientSecret string
	client       *http.Client
}

// NewClient creates a new Strava API client
func NewClient(clientID, clientSecret string) *Client {
	return &Client{
		APIBaseURL:   DefaultAPIBaseURL,
		TokenURL:     DefaultTokenURL,
		clientID:     clientID,
		clientSecret: clientSecret,
		client: &http.Client{
			Timeout: 15 * time.Second,
		},
	}
}

// Activity is a Strava activity detail payload. Optional fields are
// pointers so "absent" is distinguishable from a genuine zero.
type Activity struct {
	ID                 int64        `json:"id"`
	Name               *string      `json:"name"`
	Type               *string      `json:"type"`       // legacy field
	SportType          *string      `json:"sport_type"` // preferred over Type
	Distance           *float64     `json:"distance"`             // meters
	MovingTime         *int64       `json:"moving_time"`          // seconds
	ElapsedTime        *int64       `json:"elapsed_time"`         // seconds
	TotalElevationGain *float64     `json:"total_elevation_gain"` // meters
	StartDate          time.Time    `json:"start_date"`
	AverageSpeed       *float64     `json:"average_speed"` // m/s
	MaxSpeed           *float64     `json:"max_speed"`     // m/s
	Kilojoules         *float64     `json:"kilojoules"` // preferred over Calories
	Calories           *float64     `json:"calories"`
	Map                *ActivityMap `json:"map"`
}

// ActivityMap carries the encoded route geometry.
type ActivityMap struct {
	SummaryPolyline string `json:"summary_polyline"`
	Polyline        string `json:"polyline"`
}

// TokenResponse is the Strava OAuth token endpoint response.
type TokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresAt    int64  `json:"expires_at"` // epoch seconds
	ExpiresIn    int64  `json:"expires_in"`
}

// Expiry resolves the token expiry, preferring the absolute timestamp.
func (t *TokenResponse) Expiry(now time.Time) time.Time {
	if t.ExpiresAt != 0 {
		return time.Unix(t.ExpiresAt, 0)
	}
	return now.Add(time.Duration(t.ExpiresIn) * time.Second)
}

// RefreshToken exchanges a refresh token for a fresh token pair. Strava may
// rotate the refresh token in the response.
func (c *Client) RefreshToken(ctx context.Context, refreshToken string) (*TokenResponse, error) {
	data := url.Values{}
	data.Set("client_id", c.clientID)
	data.Set("client_secret", c.clientSecret)
	data.Set("grant_type", "refresh_token")
	data.Set("refresh_token", refreshToken)

	req, err := http.NewRequestWithContext(ctx, "POST", c.TokenURL, strings.NewReader(data.Encode()))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("refresh request failed: %w", err)
	}
	defer resp.Body.Close()

	if err := httputil.ParseErrorResponse(resp); err != nil {
		return nil, err
	}

	var result TokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode refresh response: %w", err)
	}
	return &result, nil
}

// GetActivity fetches a single activity detail by ID.
func (c *Client) GetActivity(ctx context.Context, accessToken, activityID string) (*Activity, error) {
	reqURL := fmt.Sprintf("%s/activities/%s", c.APIBaseURL, activityID)

	var activity Activity
	if err := c.getJSON(ctx, accessToken, reqURL, &activity); err != nil {
		return nil, fmt.Errorf("%w: activity %s: %v", ErrActivityFetchFailed, activityID, err)
	}
	return &activity, nil
}

// ListActivities fetches one page of the athlete's activity history.
// Pages are 1-based; an empty slice means the history is exhausted.
func (c *Client) ListActivities(ctx context.Context, accessToken string, page, perPage int) ([]Activity, error) {
	reqURL := fmt.Sprintf("%s/athlete/activities?page=%s&per_page=%s",
		c.APIBaseURL, strconv.Itoa(page), strconv.Itoa(perPage))

	var activities []Activity
	if err := c.getJSON(ctx, accessToken, reqURL, &activities); err != nil {
		return nil, fmt.Errorf("%w: activities page %d: %v", ErrActivityFetchFailed, page, err)
	}
	return activities, nil
}

// getJSON performs an authenticated GET and decodes the response body.
func (c *Client) getJSON(ctx context.Context, accessToken, reqURL string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, "GET", reqURL, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("execute request: %w", err)
	}
	defer resp.Body.Close()

	if err := httputil.ParseErrorResponse(resp); err != nil {
		return err
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
