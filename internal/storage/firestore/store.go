package firestore

import (
	"context"
	"encoding/json"
	"fmt"

	gfs "cloud.google.com/go/firestore"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"review_proxy/internal/adapters/observability"
)

// document wraps the stored value; Firestore documents must be maps.
type document struct {
	Value any `firestore:"value"`
}

// Store keeps each key as <collection>/<key> with the JSON value under "value".
type Store struct {
	client     *gfs.Client
	collection string
}

// New connects with an inline service-account JSON, or application default
// credentials when credsJSON is empty.
func New(ctx context.Context, projectID string, credsJSON []byte, collection string) (*Store, error) {
	var opts []option.ClientOption
	if len(credsJSON) > 0 {
		opts = append(opts, option.WithCredentialsJSON(credsJSON))
	}
	c, err := gfs.NewClient(ctx, projectID, opts...)
	if err != nil {
		return nil, fmt.Errorf("firestore client: %w", err)
	}
	return &Store{client: c, collection: collection}, nil
}

func (s *Store) Close() error { return s.client.Close() }

func (s *Store) Get(ctx context.Context, key string, dst any) (bool, error) {
	snap, err := s.client.Collection(s.collection).Doc(key).Get(ctx)
	if status.Code(err) == codes.NotFound {
		observability.ObserveStore("firestore", "get", "absent")
		return false, nil
	}
	if err != nil {
		observability.ObserveStore("firestore", "get", "error")
		return false, fmt.Errorf("firestore get %s: %w", key, err)
	}
	var doc document
	if err := snap.DataTo(&doc); err != nil {
		return false, fmt.Errorf("firestore decode %s: %w", key, err)
	}
	// Firestore hands back generic maps and slices; JSON re-shapes them into dst.
	b, err := json.Marshal(doc.Value)
	if err != nil {
		return false, err
	}
	if err := json.Unmarshal(b, dst); err != nil {
		return false, fmt.Errorf("firestore decode %s: %w", key, err)
	}
	observability.ObserveStore("firestore", "get", "ok")
	return true, nil
}

func (s *Store) Put(ctx context.Context, key string, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	var generic any
	if err := json.Unmarshal(b, &generic); err != nil {
		return err
	}
	if _, err := s.client.Collection(s.collection).Doc(key).Set(ctx, map[string]any{
		"value":     generic,
		"updatedAt": gfs.ServerTimestamp,
	}); err != nil {
		observability.ObserveStore("firestore", "put", "error")
		return fmt.Errorf("firestore set %s: %w", key, err)
	}
	observability.ObserveStore("firestore", "put", "ok")
	return nil
}
