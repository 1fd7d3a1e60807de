package noop

import (
	"context"

	"github.com/rs/zerolog/log"

	"review_proxy/internal/adapters/observability"
	"review_proxy/internal/domain"
)

// Store is used when the deployment has neither a document database nor a
// writable disk. Reads find nothing; writes are dropped with a warning.
type Store struct{}

func (Store) Get(context.Context, string, any) (bool, error) {
	observability.ObserveStore("none", "get", "absent")
	return false, nil
}

func (Store) Put(_ context.Context, key string, _ any) error {
	observability.ObserveStore("none", "put", "skipped")
	log.Warn().Err(domain.ErrPersistenceUnavailable).Str("key", key).
		Msg("no durable storage configured; change not persisted")
	return nil
}
