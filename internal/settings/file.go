package settings

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/vanpelt/aura/internal/logger"
)

// envelope is the on-disk shape, one document per namespace
type envelope struct {
	State   Settings `json:"state"`
	Version int      `json:"version"`
}

// FileRepository keeps settings as JSON under the Namespace key of a file
type FileRepository struct {
	path string
	mu   sync.Mutex
}

// NewFileRepository returns a repository backed by path
func NewFileRepository(path string) *FileRepository {
	return &FileRepository{path: path}
}

// Path returns the backing file
func (r *FileRepository) Path() string {
	return r.path
}

func (r *FileRepository) Load(ctx context.Context) (Settings, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	doc, err := r.read()
	if err != nil {
		return Settings{}, err
	}
	env, ok := doc[Namespace]
	if !ok {
		return Defaults(), nil
	}
	return env.State, nil
}

func (r *FileRepository) Save(ctx context.Context, s Settings) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	doc, err := r.read()
	if err != nil {
		return err
	}
	doc[Namespace] = envelope{State: s}

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(r.path), 0o700); err != nil {
		return fmt.Errorf("failed to create settings dir: %w", err)
	}

	tmp := r.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return err
	}
	return os.Rename(tmp, r.path)
}

func (r *FileRepository) read() (map[string]envelope, error) {
	doc := map[string]envelope{}
	data, err := os.ReadFile(r.path)
	if err != nil {
		if os.IsNotExist(err) {
			return doc, nil
		}
		return nil, err
	}
	if len(data) == 0 {
		return doc, nil
	}
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", r.path, err)
	}
	return doc, nil
}

const reloadDebounce = 100 * time.Millisecond

// Watch reloads store whenever the repository file changes on disk, until
// ctx is done. The directory is watched so atomic renames are seen.
func Watch(ctx context.Context, repo *FileRepository, store *Store) error {
	dir := filepath.Dir(repo.Path())
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return err
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	if err := watcher.Add(dir); err != nil {
		_ = watcher.Close()
		return fmt.Errorf("failed to watch %s: %w", dir, err)
	}

	go func() {
		defer watcher.Close()

		var pending *time.Timer
		defer func() {
			if pending != nil {
				pending.Stop()
			}
		}()

		for {
			select {
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if filepath.Clean(event.Name) != filepath.Clean(repo.Path()) {
					continue
				}
				if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
					continue
				}
				if pending != nil {
					pending.Stop()
				}
				pending = time.AfterFunc(reloadDebounce, func() {
					if err := store.Reload(ctx); err != nil {
						logger.Warnf("⚠️ Failed to reload settings from %s: %v", repo.Path(), err)
						return
					}
					logger.Debugf("🔄 Settings reloaded from %s", repo.Path())
				})

			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				logger.Warnf("⚠️ Settings watcher error: %v", err)

			case <-ctx.Done():
				return
			}
		}
	}()
	return nil
}
