// Package firestore stores kv.Medium entries as documents of one Firestore
// collection.
package firestore

import (
	"context"
	"errors"
	"fmt"
	"strings"

	gfs "cloud.google.com/go/firestore"
	firebase "firebase.google.com/go/v4"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/goliatone/go-formbuilder/pkg/kv"
)

// DefaultCollection holds the entries when no collection is configured.
const DefaultCollection = "formbuilder_kv"

const valueField = "value"

// Store is a Firestore-backed medium. Keys map to document IDs with "/"
// replaced, since Firestore treats it as a path separator.
type Store struct {
	client     *gfs.Client
	collection string
	owned      bool
}

var (
	_ kv.Medium  = (*Store)(nil)
	_ kv.Batcher = (*Store)(nil)
	_ kv.Closer  = (*Store)(nil)
)

// New wraps an existing client. Close leaves the client open.
func New(client *gfs.Client, collection string) *Store {
	if collection == "" {
		collection = DefaultCollection
	}
	return &Store{client: client, collection: collection}
}

// Open initialises a Firebase app for projectID using application default
// credentials and returns a store owning its Firestore client.
func Open(ctx context.Context, projectID, collection string) (*Store, error) {
	if projectID == "" {
		return nil, errors.New("firestore: project id is required")
	}
	app, err := firebase.NewApp(ctx, &firebase.Config{ProjectID: projectID})
	if err != nil {
		return nil, fmt.Errorf("firestore: init app: %w", err)
	}
	client, err := app.Firestore(ctx)
	if err != nil {
		return nil, fmt.Errorf("firestore: init client: %w", err)
	}
	s := New(client, collection)
	s.owned = true
	return s, nil
}

func (s *Store) doc(key string) *gfs.DocumentRef {
	return s.client.Collection(s.collection).Doc(strings.ReplaceAll(key, "/", "_"))
}

func (s *Store) Get(ctx context.Context, key string) (string, error) {
	snap, err := s.doc(key).Get(ctx)
	if status.Code(err) == codes.NotFound {
		return "", kv.ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("firestore: get %s: %w", key, err)
	}
	raw, err := snap.DataAt(valueField)
	if err != nil {
		return "", fmt.Errorf("firestore: read %s: %w", key, err)
	}
	value, ok := raw.(string)
	if !ok {
		return "", fmt.Errorf("firestore: %s: value is %T, want string", key, raw)
	}
	return value, nil
}

func (s *Store) Set(ctx context.Context, key, value string) error {
	if _, err := s.doc(key).Set(ctx, entryData(value)); err != nil {
		return fmt.Errorf("firestore: set %s: %w", key, err)
	}
	return nil
}

// SetMany writes all entries in one transaction.
func (s *Store) SetMany(ctx context.Context, entries []kv.Entry) error {
	return s.client.RunTransaction(ctx, func(_ context.Context, tx *gfs.Transaction) error {
		for _, e := range entries {
			if err := tx.Set(s.doc(e.Key), entryData(e.Value)); err != nil {
				return fmt.Errorf("firestore: set %s: %w", e.Key, err)
			}
		}
		return nil
	})
}

func (s *Store) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	return s.client.RunTransaction(ctx, func(_ context.Context, tx *gfs.Transaction) error {
		for _, key := range keys {
			if err := tx.Delete(s.doc(key)); err != nil {
				return fmt.Errorf("firestore: delete %s: %w", key, err)
			}
		}
		return nil
	})
}

// Close closes the client when the store created it.
func (s *Store) Close() error {
	if !s.owned {
		return nil
	}
	return s.client.Close()
}

func entryData(value string) map[string]any {
	return map[string]any{
		valueField:  value,
		"updatedAt": gfs.ServerTimestamp,
	}
}
