package app

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"review_proxy/internal/domain"
)

const pinnedKey = "pinned-reviews"

const (
	ActionPin   = "pin"
	ActionUnpin = "unpin"
)

// PinService keeps the pinned review ids as one document. Every change rewrites
// the whole document; concurrent toggles race and the last write wins.
type PinService struct {
	store domain.DocumentStore
}

func NewPinService(s domain.DocumentStore) *PinService {
	return &PinService{store: s}
}

// Load returns the pinned ids; no document yet means none pinned. Entries may
// have been written as numbers or strings and come back as strings.
func (s *PinService) Load(ctx context.Context) ([]string, error) {
	var raw []any
	ok, err := s.store.Get(ctx, pinnedKey, &raw)
	if err != nil {
		return nil, fmt.Errorf("load pinned ids: %w", err)
	}
	ids := []string{}
	if !ok {
		return ids, nil
	}
	for _, v := range raw {
		id := strings.TrimSpace(scalarString(v))
		if id == "" || slices.Contains(ids, id) {
			continue
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func (s *PinService) Save(ctx context.Context, ids []string) error {
	if ids == nil {
		ids = []string{}
	}
	if err := s.store.Put(ctx, pinnedKey, ids); err != nil {
		return fmt.Errorf("save pinned ids: %w", err)
	}
	return nil
}

// Toggle pins or unpins id and returns the resulting set. Repeating an action is a no-op.
func (s *PinService) Toggle(ctx context.Context, id, action string) ([]string, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, domain.NewValidationError("id", "is required")
	}
	if action != ActionPin && action != ActionUnpin {
		return nil, domain.NewValidationError("action", `must be "pin" or "unpin"`)
	}

	ids, err := s.Load(ctx)
	if err != nil {
		return nil, err
	}
	has := slices.Contains(ids, id)
	switch {
	case action == ActionPin && !has:
		ids = append(ids, id)
	case action == ActionUnpin && has:
		ids = slices.DeleteFunc(ids, func(x string) bool { return x == id })
	default:
		return ids, nil
	}
	if err := s.Save(ctx, ids); err != nil {
		return nil, err
	}
	return ids, nil
}

func pinSet(ids []string) map[string]struct{} {
	set := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return set
}
