package settings

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vanpelt/aura/internal/models"
	"github.com/vanpelt/aura/internal/store"
)

func newFileStore(t *testing.T) (*Store, *FileRepository) {
	t.Helper()
	repo := NewFileRepository(filepath.Join(t.TempDir(), "settings.json"))
	s, err := NewStore(context.Background(), repo)
	require.NoError(t, err)
	return s, repo
}

func TestDefaults(t *testing.T) {
	s, _ := newFileStore(t)
	snap := s.Snapshot()

	assert.Equal(t, []models.Provider{models.ProviderGemini}, snap.SelectedModels)
	assert.Empty(t, snap.APIKeys)
	assert.Equal(t, "gemini-2.5-flash", snap.ModelFor(models.ProviderGemini))
	assert.Equal(t, "claude-sonnet-4-20250514", snap.ModelFor(models.ProviderClaude))
}

func TestRoundTrip(t *testing.T) {
	ctx := context.Background()
	s, repo := newFileStore(t)

	require.NoError(t, s.SetAPIKey(ctx, models.ProviderOpenAI, "sk-abc"))
	require.NoError(t, s.ToggleModel(ctx, models.ProviderOpenAI))
	require.NoError(t, s.SetActiveModel(ctx, models.ProviderOpenAI, "gpt-4o-mini"))

	reopened, err := NewStore(ctx, repo)
	require.NoError(t, err)
	snap := reopened.Snapshot()
	assert.Equal(t, "sk-abc", snap.APIKeys[models.ProviderOpenAI])
	assert.True(t, snap.IsSelected(models.ProviderOpenAI))
	assert.Equal(t, "gpt-4o-mini", snap.ModelFor(models.ProviderOpenAI))

	raw, err := os.ReadFile(repo.Path())
	require.NoError(t, err)
	assert.Contains(t, string(raw), Namespace)

	require.NoError(t, s.SetAPIKey(ctx, models.ProviderOpenAI, ""))
	_, ok := s.Snapshot().APIKeys[models.ProviderOpenAI]
	assert.False(t, ok)
}

func TestToggleTwiceRestores(t *testing.T) {
	ctx := context.Background()
	s, _ := newFileStore(t)
	before := s.Snapshot().SelectedModels

	require.NoError(t, s.ToggleModel(ctx, models.ProviderClaude))
	require.NoError(t, s.ToggleModel(ctx, models.ProviderClaude))
	assert.Equal(t, before, s.Snapshot().SelectedModels)

	// removing the last provider is allowed
	require.NoError(t, s.ToggleModel(ctx, models.ProviderGemini))
	assert.Empty(t, s.Snapshot().SelectedModels)
}

func TestResetAndSubscribe(t *testing.T) {
	ctx := context.Background()
	s, _ := newFileStore(t)

	var calls atomic.Int32
	unsubscribe := s.Subscribe(func(Settings) { calls.Add(1) })

	require.NoError(t, s.SetAPIKey(ctx, models.ProviderGemini, "AIza"+strings.Repeat("x", 35)))
	require.NoError(t, s.Reset(ctx))
	assert.Equal(t, int32(2), calls.Load())
	assert.Empty(t, s.Snapshot().APIKeys)

	unsubscribe()
	require.NoError(t, s.ToggleModel(ctx, models.ProviderMeta))
	assert.Equal(t, int32(2), calls.Load())

	assert.Error(t, s.SetActiveModel(ctx, models.ProviderMeta, ""))
}

func TestSnapshotIsACopy(t *testing.T) {
	s, _ := newFileStore(t)
	snap := s.Snapshot()
	snap.APIKeys[models.ProviderGemini] = "mutated"
	snap.SelectedModels[0] = models.ProviderMeta

	fresh := s.Snapshot()
	assert.Empty(t, fresh.APIKeys)
	assert.Equal(t, models.ProviderGemini, fresh.SelectedModels[0])
}

func TestValidateKey(t *testing.T) {
	tests := []struct {
		provider models.Provider
		key      string
		valid    bool
	}{
		{models.ProviderGemini, "AIza" + strings.Repeat("a", 35), true},
		{models.ProviderGemini, "AIza123", false},
		{models.ProviderOpenAI, "sk-" + strings.Repeat("b", 40), true},
		{models.ProviderOpenAI, "sk-ant-" + strings.Repeat("b", 40), false},
		{models.ProviderClaude, "sk-ant-api03-" + strings.Repeat("c", 40), true},
		{models.ProviderClaude, "sk-" + strings.Repeat("c", 40), false},
		{models.ProviderMeta, "anything", true},
		{models.ProviderMeta, "", false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.valid, ValidateKey(tt.provider, tt.key), "%s %q", tt.provider, tt.key)
	}
}

func TestMasked(t *testing.T) {
	s := Defaults()
	s.APIKeys[models.ProviderOpenAI] = "sk-1234567890abcdef"
	masked := s.Masked()
	assert.Equal(t, "sk-1••••••••cdef", masked.APIKeys[models.ProviderOpenAI])
	assert.Equal(t, "sk-1234567890abcdef", s.APIKeys[models.ProviderOpenAI])
}

func TestWatchReloads(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	s, repo := newFileStore(t)
	require.NoError(t, s.SetAPIKey(ctx, models.ProviderMeta, "one"))

	reloaded := make(chan Settings, 4)
	s.Subscribe(func(st Settings) { reloaded <- st })
	require.NoError(t, Watch(ctx, repo, s))

	// another process edits the file
	other := NewFileRepository(repo.Path())
	next := Defaults()
	next.APIKeys[models.ProviderMeta] = "two"
	require.NoError(t, other.Save(ctx, next))

	select {
	case st := <-reloaded:
		assert.Equal(t, "two", st.APIKeys[models.ProviderMeta])
	case <-time.After(5 * time.Second):
		t.Fatal("settings were not reloaded")
	}
}

func TestRegistry(t *testing.T) {
	ctx := context.Background()
	db, err := store.Open(filepath.Join(t.TempDir(), "aura.db"))
	require.NoError(t, err)
	defer db.Close()

	reg := NewRegistry(db)
	alice, err := reg.For(ctx, 1)
	require.NoError(t, err)
	bob, err := reg.For(ctx, 2)
	require.NoError(t, err)

	require.NoError(t, alice.SetAPIKey(ctx, models.ProviderClaude, "sk-ant-key"))
	assert.Empty(t, bob.Snapshot().APIKeys)

	again, err := reg.For(ctx, 1)
	require.NoError(t, err)
	assert.Same(t, alice, again)

	// a fresh registry reads it back from the table
	loaded, err := NewRegistry(db).For(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, "sk-ant-key", loaded.Snapshot().APIKeys[models.ProviderClaude])
}
