package mysql

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"review_proxy/internal/adapters/observability"
)

// Repo is a domain.DocumentStore on a single MySQL table (see migrations/).
type Repo struct{ db *sql.DB }

func New(db *sql.DB) *Repo { return &Repo{db: db} }

func (r *Repo) Get(ctx context.Context, key string, dst any) (bool, error) {
	var body []byte
	if err := r.db.QueryRowContext(ctx, getDocumentSQL, key).Scan(&body); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			observability.ObserveStore("mysql", "get", "absent")
			return false, nil
		}
		observability.ObserveStore("mysql", "get", "error")
		return false, fmt.Errorf("select document %s: %w", key, err)
	}
	if err := json.Unmarshal(body, dst); err != nil {
		return false, fmt.Errorf("decode document %s: %w", key, err)
	}
	observability.ObserveStore("mysql", "get", "ok")
	return true, nil
}

func (r *Repo) Put(ctx context.Context, key string, v any) error {
	body, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode document %s: %w", key, err)
	}
	if _, err := r.db.ExecContext(ctx, upsertDocumentSQL, key, string(body)); err != nil {
		observability.ObserveStore("mysql", "put", "error")
		return fmt.Errorf("upsert document %s: %w", key, err)
	}
	observability.ObserveStore("mysql", "put", "ok")
	return nil
}
