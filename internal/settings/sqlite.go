package settings

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/vanpelt/aura/internal/store"
)

// KV is the slice of the database the SQL repository needs
type KV interface {
	GetSetting(ctx context.Context, key string) ([]byte, error)
	PutSetting(ctx context.Context, key string, value []byte) error
}

// SQLRepository stores one user's document in the settings table
type SQLRepository struct {
	kv  KV
	key string
}

// NewSQLRepository scopes a repository to userID
func NewSQLRepository(kv KV, userID int64) *SQLRepository {
	return &SQLRepository{kv: kv, key: fmt.Sprintf("%s:%d", Namespace, userID)}
}

func (r *SQLRepository) Load(ctx context.Context) (Settings, error) {
	data, err := r.kv.GetSetting(ctx, r.key)
	if errors.Is(err, store.ErrNotFound) {
		return Defaults(), nil
	}
	if err != nil {
		return Settings{}, err
	}
	var s Settings
	if err := json.Unmarshal(data, &s); err != nil {
		return Settings{}, fmt.Errorf("failed to decode settings %s: %w", r.key, err)
	}
	return s, nil
}

func (r *SQLRepository) Save(ctx context.Context, s Settings) error {
	data, err := json.Marshal(s)
	if err != nil {
		return err
	}
	return r.kv.PutSetting(ctx, r.key, data)
}

// Registry hands out one Store per user, backed by the settings table
type Registry struct {
	kv     KV
	mu     sync.Mutex
	stores map[int64]*Store
}

// NewRegistry creates a registry over kv
func NewRegistry(kv KV) *Registry {
	return &Registry{kv: kv, stores: make(map[int64]*Store)}
}

// For returns the Store of userID, loading it on first use
func (r *Registry) For(ctx context.Context, userID int64) (*Store, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if s, ok := r.stores[userID]; ok {
		return s, nil
	}
	s, err := NewStore(ctx, NewSQLRepository(r.kv, userID))
	if err != nil {
		return nil, err
	}
	r.stores[userID] = s
	return s, nil
}
