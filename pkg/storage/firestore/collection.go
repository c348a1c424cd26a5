package firestore

import (
	"context"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"
)

// Collection is a typed wrapper around a Firestore collection. Documents
// marshal through the struct's firestore tags.
type Collection[T any] struct {
	Ref *firestore.CollectionRef
}

func (c *Collection[T]) Doc(id string) *DocumentRef[T] {
	return &DocumentRef[T]{Ref: c.Ref.Doc(id)}
}

// FindOne returns the first document where field == value, along with its
// document ID. Returns iterator.Done if nothing matches.
func (c *Collection[T]) FindOne(ctx context.Context, field string, value interface{}) (*T, string, error) {
	iter := c.Ref.Where(field, "==", value).Limit(1).Documents(ctx)
	defer iter.Stop()

	snap, err := iter.Next()
	if err != nil {
		return nil, "", err
	}

	var data T
	if err := snap.DataTo(&data); err != nil {
		return nil, "", err
	}
	return &data, snap.Ref.ID, nil
}

// List returns all documents where field == value, with their document IDs.
func (c *Collection[T]) List(ctx context.Context, field string, value interface{}) ([]*T, []string, error) {
	iter := c.Ref.Where(field, "==", value).Documents(ctx)
	defer iter.Stop()

	var results []*T
	var ids []string
	for {
		snap, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, nil, err
		}

		var data T
		if err := snap.DataTo(&data); err != nil {
			return nil, nil, err
		}
		results = append(results, &data)
		ids = append(ids, snap.Ref.ID)
	}
	return results, ids, nil
}

type DocumentRef[T any] struct {
	Ref *firestore.DocumentRef
}

func (d *DocumentRef[T]) ID() string {
	return d.Ref.ID
}

func (d *DocumentRef[T]) Get(ctx context.Context) (*T, error) {
	snap, err := d.Ref.Get(ctx)
	if err != nil {
		return nil, err
	}
	var data T
	if err := snap.DataTo(&data); err != nil {
		return nil, err
	}
	return &data, nil
}

// Set overwrites the whole document with data.
func (d *DocumentRef[T]) Set(ctx context.Context, data *T) error {
	_, err := d.Ref.Set(ctx, data)
	return err
}

// Update applies a partial update using dotted field paths.
func (d *DocumentRef[T]) Update(ctx context.Context, updates map[string]interface{}) error {
	fsUpdates := make([]firestore.Update, 0, len(updates))
	for path, value := range updates {
		fsUpdates = append(fsUpdates, firestore.Update{Path: path, Value: value})
	}
	_, err := d.Ref.Update(ctx, fsUpdates)
	return err
}
