// Package chat fans one prompt out to several providers at once, streaming
// each answer into its own conversation lane.
package chat

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/vanpelt/aura/internal/logger"
	"github.com/vanpelt/aura/internal/models"
	"github.com/vanpelt/aura/internal/providers"
	"github.com/vanpelt/aura/internal/recovery"
	"github.com/vanpelt/aura/internal/settings"
	"golang.org/x/sync/errgroup"
)

// DefaultSystemPrompt is sent with every chat request
const DefaultSystemPrompt = "You are a helpful, precision-focused AI coding assistant. Be concise and accurate."

var (
	// ErrLaneBusy rejects a send to a lane that has not settled yet
	ErrLaneBusy = errors.New("lane is still waiting on its provider")
	// ErrEmptyPrompt rejects blank prompts
	ErrEmptyPrompt = errors.New("prompt is empty")
	// ErrNoProviders means no provider is selected
	ErrNoProviders = errors.New("no providers selected")
)

// SettingsSource supplies the current provider selection and keys
type SettingsSource interface {
	Snapshot() settings.Settings
}

// InteractionLogger records one row per settled lane
type InteractionLogger interface {
	LogInteraction(ctx context.Context, entry models.InteractionLog) (int64, error)
}

// Options configures a Workspace
type Options struct {
	Providers    *providers.Set
	Settings     SettingsSource
	Sink         EventSink
	Log          InteractionLogger
	UserID       int64
	SystemPrompt string
}

// Workspace owns the lanes of one user
type Workspace struct {
	providers *providers.Set
	settings  SettingsSource
	sink      EventSink
	log       InteractionLogger
	userID    int64
	system    string

	mu    sync.Mutex
	lanes map[models.Provider]*Lane

	sending atomic.Int32
}

// SendResult reports what a Send did
type SendResult struct {
	Dispatched []models.Provider          `json:"dispatched"`
	Rejected   map[models.Provider]string `json:"rejected,omitempty"`
}

// NewWorkspace creates an empty workspace
func NewWorkspace(opts Options) *Workspace {
	w := &Workspace{
		providers: opts.Providers,
		settings:  opts.Settings,
		sink:      opts.Sink,
		log:       opts.Log,
		userID:    opts.UserID,
		system:    opts.SystemPrompt,
		lanes:     make(map[models.Provider]*Lane),
	}
	if w.sink == nil {
		w.sink = discard
	}
	if w.system == "" {
		w.system = DefaultSystemPrompt
	}
	return w
}

// Sending reports whether any dispatched request has not settled
func (w *Workspace) Sending() bool {
	return w.sending.Load() > 0
}

// Lanes snapshots every lane in provider order
func (w *Workspace) Lanes() []models.LaneSnapshot {
	w.mu.Lock()
	defer w.mu.Unlock()
	var out []models.LaneSnapshot
	for _, p := range models.Providers {
		if l, ok := w.lanes[p]; ok {
			out = append(out, l.Snapshot())
		}
	}
	return out
}

// Lane returns the lane of p
func (w *Workspace) Lane(p models.Provider) (*Lane, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	l, ok := w.lanes[p]
	return l, ok
}

func (w *Workspace) lane(p models.Provider, modelID string) *Lane {
	w.mu.Lock()
	defer w.mu.Unlock()
	l, ok := w.lanes[p]
	if !ok {
		l = newLane(p, modelID)
		w.lanes[p] = l
	}
	return l
}

// Cancel aborts the in-flight request of p's lane
func (w *Workspace) Cancel(p models.Provider) bool {
	l, ok := w.Lane(p)
	if !ok {
		return false
	}
	return l.abort()
}

// Reset cancels and clears the given lanes, or every lane when none given
func (w *Workspace) Reset(ps ...models.Provider) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if len(ps) == 0 {
		for p := range w.lanes {
			ps = append(ps, p)
		}
	}
	for _, p := range ps {
		if l, ok := w.lanes[p]; ok {
			l.abort()
			delete(w.lanes, p)
		}
	}
}

type dispatch struct {
	provider models.Provider
	modelID  string
	lane     *Lane
	id       string
	history  []providers.Message
	apiKey   string
	client   providers.Client
}

// Send appends prompt to every selected provider's lane and streams all of
// them concurrently. It returns once every dispatched lane has settled.
// A failing lane never affects its siblings; busy lanes are skipped and
// reported in Rejected.
func (w *Workspace) Send(ctx context.Context, prompt string) (*SendResult, error) {
	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return nil, ErrEmptyPrompt
	}
	st := w.settings.Snapshot()
	if len(st.SelectedModels) == 0 {
		return nil, ErrNoProviders
	}

	w.sending.Add(1)
	defer w.sending.Add(-1)

	result := &SendResult{Rejected: map[models.Provider]string{}}
	now := time.Now()

	var jobs []dispatch
	for _, p := range st.SelectedModels {
		modelID := st.ModelFor(p)
		l := w.lane(p, modelID)

		history, id, err := l.begin(prompt, modelID, now)
		if err != nil {
			result.Rejected[p] = err.Error()
			continue
		}
		result.Dispatched = append(result.Dispatched, p)
		w.sink(Event{Type: EventLaneStarted, Provider: p, ModelID: modelID, MessageID: id, State: models.LaneAwaiting})

		job := dispatch{provider: p, modelID: modelID, lane: l, id: id, history: history}
		client, ok := w.providers.Client(p)
		key, keyErr := w.providers.ResolveKey(p, st.APIKeys[p])
		if !ok || keyErr != nil {
			// unconfigured lanes settle immediately
			w.settle(ctx, job, prompt, errorMarker(p, providers.ErrUnconfigured.Error()))
			continue
		}
		job.client = client
		job.apiKey = key
		jobs = append(jobs, job)
	}

	var g errgroup.Group
	for _, job := range jobs {
		laneCtx, cancel := context.WithCancel(ctx)
		job.lane.setCancel(cancel)
		g.Go(func() error {
			defer cancel()
			w.run(laneCtx, job, prompt)
			return nil
		})
	}
	_ = g.Wait()

	w.sink(Event{Type: EventSendSettled})
	return result, nil
}

func (w *Workspace) run(ctx context.Context, job dispatch, prompt string) {
	settled := false
	defer recovery.Recover("chat lane "+string(job.provider), func(err error) {
		if !settled {
			w.settle(context.Background(), job, prompt, errorMarker(job.provider, err.Error()))
		}
	})

	content, errs := job.client.Stream(ctx, providers.Request{
		Model:    job.modelID,
		System:   w.system,
		Messages: job.history,
		APIKey:   job.apiKey,
	})
	for delta := range content {
		job.lane.appendDelta(job.id, delta)
		w.sink(Event{Type: EventLaneDelta, Provider: job.provider, MessageID: job.id, Delta: delta, State: models.LaneStreaming})
	}

	marker := ""
	if err := <-errs; err != nil {
		switch {
		case errors.Is(err, context.Canceled):
			marker = errorMarker(job.provider, "cancelled")
		default:
			marker = errorMarker(job.provider, err.Error())
		}
		logger.Warnf("⚠️ %s lane failed: %v", job.provider, err)
	}
	settled = true
	w.settle(ctx, job, prompt, marker)
}

// settle finalizes the placeholder, emits the terminal event and writes the
// interaction log row
func (w *Workspace) settle(ctx context.Context, job dispatch, prompt, marker string) {
	content, received, state := job.lane.finish(job.id, marker)

	evt := Event{Type: EventLaneCompleted, Provider: job.provider, ModelID: job.modelID, MessageID: job.id, Content: content, State: state}
	status := "success"
	if state == models.LaneErrored {
		evt.Type = EventLaneErrored
		evt.Error = marker
		status = "error"
	}
	w.sink(evt)

	if w.log == nil {
		return
	}
	// the lane context may already be cancelled; the row is still written
	logCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	if _, err := w.log.LogInteraction(logCtx, models.InteractionLog{
		Timestamp:      time.Now(),
		UserID:         w.userID,
		Provider:       job.provider,
		Model:          job.modelID,
		PromptLength:   len(prompt),
		ResponseLength: received,
		Status:         status,
	}); err != nil {
		logger.Warnf("⚠️ Failed to log %s interaction: %v", job.provider, err)
	}
}

// String is used in log lines
func (r *SendResult) String() string {
	return fmt.Sprintf("dispatched=%v rejected=%d", r.Dispatched, len(r.Rejected))
}
