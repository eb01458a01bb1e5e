package acquisition

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/rs/zerolog"

	"github.com/dataacquisition/das/internal/kvstore"
)

// Repository persists acquisition requests.
type Repository interface {
	// Put stores r, replacing any request with the same org and id.
	Put(ctx context.Context, r *Request) error

	// Get loads the request with the given id from any organization.
	// Returns ErrRequestNotFound if it does not exist.
	Get(ctx context.Context, id string) (*Request, error)
}

// Store keeps requests in a key-value backend under "<orgUUID>:<id>".
//
// Lookups by id scan for "*:<id>". If the same id exists under several
// organizations the lexicographically smallest key wins and a warning is
// logged; ids are random UUIDs so this is not expected to happen.
type Store struct {
	backend kvstore.Backend
	logger  zerolog.Logger
}

// NewStore creates a store on top of backend.
func NewStore(backend kvstore.Backend, logger zerolog.Logger) *Store {
	return &Store{backend: backend, logger: logger}
}

// Key returns the storage key of a request.
func Key(orgUUID, id string) string {
	return orgUUID + ":" + id
}

// Put writes the canonical form of r. Last writer wins. Records that Get
// could not read back are refused: a ':' in the org or id, or an unknown state.
func (s *Store) Put(ctx context.Context, r *Request) error {
	if strings.Contains(r.OrgUUID, ":") || strings.Contains(r.ID, ":") {
		return fmt.Errorf("%w: %q", ErrInvalidKey, Key(r.OrgUUID, r.ID))
	}
	if !r.State.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidState, r.State)
	}
	return s.backend.Set(ctx, Key(r.OrgUUID, r.ID), r.Serialize())
}

// Get finds the request with the given id.
func (s *Store) Get(ctx context.Context, id string) (*Request, error) {
	matches, err := s.backend.Keys(ctx, "*:"+kvstore.EscapeGlob(id))
	if err != nil {
		return nil, err
	}
	// '*' also matches ':', so "org:x:<id>" must not be taken for "<id>".
	keys := matches[:0]
	for _, key := range matches {
		if _, keyID, _ := strings.Cut(key, ":"); keyID == id {
			keys = append(keys, key)
		}
	}
	if len(keys) == 0 {
		return nil, ErrRequestNotFound
	}
	if len(keys) > 1 {
		sort.Strings(keys)
		s.logger.Warn().
			Str("request_id", id).
			Strs("keys", keys).
			Msg("request id stored under several organizations, using first key")
	}

	value, err := s.backend.Get(ctx, keys[0])
	if err != nil {
		if errors.Is(err, kvstore.ErrNil) {
			return nil, ErrRequestNotFound
		}
		return nil, err
	}

	return ParseRequest(value)
}

// List returns the requests of orgUUID ordered by key, or of every
// organization when orgUUID is empty. Records that fail to parse or vanish
// during the scan are skipped with a warning.
func (s *Store) List(ctx context.Context, orgUUID string) ([]*Request, error) {
	pattern := "*:*"
	if orgUUID != "" {
		pattern = kvstore.EscapeGlob(orgUUID) + ":*"
	}
	keys, err := s.backend.Keys(ctx, pattern)
	if err != nil {
		return nil, err
	}
	sort.Strings(keys)

	reqs := make([]*Request, 0, len(keys))
	for _, key := range keys {
		value, err := s.backend.Get(ctx, key)
		if errors.Is(err, kvstore.ErrNil) {
			continue
		}
		if err != nil {
			return nil, err
		}
		req, err := ParseRequest(value)
		if err != nil {
			s.logger.Warn().Err(err).Str("key", key).Msg("skipping malformed request record")
			continue
		}
		reqs = append(reqs, req)
	}
	return reqs, nil
}

// Ensure Store implements Repository interface.
var _ Repository = (*Store)(nil)
