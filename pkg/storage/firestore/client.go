package firestore

import (
	"cloud.google.com/go/firestore"

	shared "github.com/velohub/server/pkg"
	"github.com/velohub/server/pkg/types"
)

type Client struct {
	fs *firestore.Client
}

func NewClient(client *firestore.Client) *Client {
	return &Client{fs: client}
}

func (c *Client) Close() error {
	return c.fs.Close()
}

func (c *Client) Members() *Collection[types.Member] {
	return &Collection[types.Member]{Ref: c.fs.Collection(shared.CollectionMembers)}
}

// Rides is a top-level collection keyed by Strava activity ID:
// rides/{strava_activity_id}
func (c *Client) Rides() *Collection[types.Ride] {
	return &Collection[types.Ride]{Ref: c.fs.Collection(shared.CollectionRides)}
}
