package settings

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/vanpelt/aura/internal/models"
)

// Store is the in-memory view of one settings document. Every mutation is
// written through to the repository before subscribers are notified.
type Store struct {
	mu      sync.Mutex
	repo    Repository
	current Settings

	subMu  sync.Mutex
	subs   map[int]func(Settings)
	nextID int
}

// NewStore loads the current document from repo
func NewStore(ctx context.Context, repo Repository) (*Store, error) {
	s, err := repo.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load settings: %w", err)
	}
	return &Store{
		repo:    repo,
		current: s.normalize(),
		subs:    make(map[int]func(Settings)),
	}, nil
}

// Snapshot returns a copy of the current settings
func (s *Store) Snapshot() Settings {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current.Clone()
}

// Subscribe registers fn to receive every new state. The returned function
// removes it.
func (s *Store) Subscribe(fn func(Settings)) func() {
	s.subMu.Lock()
	defer s.subMu.Unlock()
	id := s.nextID
	s.nextID++
	s.subs[id] = fn
	return func() {
		s.subMu.Lock()
		defer s.subMu.Unlock()
		delete(s.subs, id)
	}
}

// SetAPIKey stores key for p. An empty key removes it.
func (s *Store) SetAPIKey(ctx context.Context, p models.Provider, key string) error {
	return s.update(ctx, func(st *Settings) error {
		if key == "" {
			delete(st.APIKeys, p)
		} else {
			st.APIKeys[p] = key
		}
		return nil
	})
}

// ToggleModel adds p to the selected set or removes it. The set may become
// empty.
func (s *Store) ToggleModel(ctx context.Context, p models.Provider) error {
	return s.update(ctx, func(st *Settings) error {
		if i := slices.Index(st.SelectedModels, p); i >= 0 {
			st.SelectedModels = slices.Delete(st.SelectedModels, i, i+1)
		} else {
			st.SelectedModels = append(st.SelectedModels, p)
		}
		return nil
	})
}

// SetActiveModel picks the model id used for p
func (s *Store) SetActiveModel(ctx context.Context, p models.Provider, modelID string) error {
	if modelID == "" {
		return fmt.Errorf("model id is required")
	}
	return s.update(ctx, func(st *Settings) error {
		st.ActiveModels[p] = modelID
		return nil
	})
}

// Replace overwrites the whole document
func (s *Store) Replace(ctx context.Context, next Settings) error {
	return s.update(ctx, func(st *Settings) error {
		*st = next.normalize()
		return nil
	})
}

// Reset restores the defaults
func (s *Store) Reset(ctx context.Context) error {
	return s.Replace(ctx, Defaults())
}

// Reload re-reads the repository, used when the backing file changed on disk
func (s *Store) Reload(ctx context.Context) error {
	loaded, err := s.repo.Load(ctx)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.current = loaded.normalize()
	snapshot := s.current.Clone()
	s.mu.Unlock()

	s.notify(snapshot)
	return nil
}

func (s *Store) update(ctx context.Context, mutate func(*Settings) error) error {
	s.mu.Lock()
	next := s.current.Clone()
	if err := mutate(&next); err != nil {
		s.mu.Unlock()
		return err
	}
	if err := s.repo.Save(ctx, next); err != nil {
		s.mu.Unlock()
		return fmt.Errorf("failed to save settings: %w", err)
	}
	s.current = next
	snapshot := next.Clone()
	s.mu.Unlock()

	s.notify(snapshot)
	return nil
}

func (s *Store) notify(snapshot Settings) {
	s.subMu.Lock()
	subs := make([]func(Settings), 0, len(s.subs))
	for _, fn := range s.subs {
		subs = append(subs, fn)
	}
	s.subMu.Unlock()

	for _, fn := range subs {
		fn(snapshot.Clone())
	}
}
