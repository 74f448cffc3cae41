package watcher

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"app-host/core/descriptor"
	"app-host/core/metrics"
	"app-host/core/router"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// Snapshot is one loaded and validated descriptor.
type Snapshot struct {
	Descriptor *descriptor.Descriptor
	Router     *router.Router
	Raw        []byte
	Digest     string
	Report     descriptor.Report
	LoadedAt   time.Time
}

// Holder owns the active descriptor and swaps it on reload.
type Holder struct {
	cfg    Config
	logger *zap.Logger

	mu      sync.RWMutex
	current *Snapshot

	listenersMu sync.RWMutex
	listeners   []func(context.Context, *Snapshot)

	reloadMu sync.Mutex
	wg       sync.WaitGroup
}

// New loads the descriptor at cfg.Descriptor. The initial load must succeed.
func New(cfg Config, l *zap.Logger) (*Holder, error) {
	h := &Holder{cfg: cfg, logger: l}
	snap, err := h.load()
	if err != nil {
		metrics.RecordReload(err)
		return nil, err
	}
	h.current = snap
	return h, nil
}

// NewFromSnapshot wraps an already loaded snapshot.
func NewFromSnapshot(cfg Config, snap *Snapshot, l *zap.Logger) *Holder {
	return &Holder{cfg: cfg, logger: l, current: snap}
}

// Build parses, validates and compiles raw descriptor bytes.
// root is passed to Validate; an empty root skips file checks.
func Build(raw []byte, root string) (*Snapshot, error) {
	d, err := descriptor.Parse(raw)
	if err != nil {
		return nil, err
	}
	report := d.Validate(root)
	if err := report.Err(); err != nil {
		return nil, err
	}
	r, err := router.New(d)
	if err != nil {
		return nil, fmt.Errorf("compile routes: %w", err)
	}
	return &Snapshot{
		Descriptor: d,
		Router:     r,
		Raw:        raw,
		Digest:     descriptor.Digest(raw),
		Report:     report,
		LoadedAt:   time.Now(),
	}, nil
}

func (h *Holder) load() (*Snapshot, error) {
	_, raw, err := descriptor.Load(h.cfg.Descriptor)
	if err != nil {
		return nil, err
	}
	return Build(raw, h.cfg.ValidationRoot())
}

// Current returns the active snapshot.
func (h *Holder) Current() *Snapshot {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.current
}

// Config returns the watcher configuration.
func (h *Holder) Config() Config {
	return h.cfg
}

// OnChange registers fn to run after every successful swap. fn receives the context
// passed to Reload.
func (h *Holder) OnChange(fn func(context.Context, *Snapshot)) {
	h.listenersMu.Lock()
	defer h.listenersMu.Unlock()
	h.listeners = append(h.listeners, fn)
}

// Reload re-reads the descriptor. On failure the active snapshot is kept.
// It reports whether the content changed. A done ctx aborts before the file is read.
func (h *Holder) Reload(ctx context.Context) (bool, error) {
	h.reloadMu.Lock()
	defer h.reloadMu.Unlock()

	if err := ctx.Err(); err != nil {
		return false, err
	}

	snap, err := h.load()
	metrics.RecordReload(err)
	if err != nil {
		h.logger.Error("Descriptor reload failed, keeping previous version",
			zap.String("path", h.cfg.Descriptor),
			zap.Error(err),
		)
		return false, err
	}

	h.mu.Lock()
	old := h.current
	if old != nil && old.Digest == snap.Digest {
		h.mu.Unlock()
		h.logger.Debug("Descriptor unchanged", zap.String("digest", snap.Digest))
		return false, nil
	}
	h.current = snap
	h.mu.Unlock()

	h.logChanges(old, snap)
	h.logger.Info("Descriptor reloaded",
		zap.String("digest", snap.Digest),
		zap.Int("handlers", snap.Router.Len()),
		zap.Int("warnings", len(snap.Report.Warnings())),
	)

	h.listenersMu.RLock()
	listeners := append([]func(context.Context, *Snapshot){}, h.listeners...)
	h.listenersMu.RUnlock()
	for _, fn := range listeners {
		fn(ctx, snap)
	}
	return true, nil
}

func (h *Holder) logChanges(old, next *Snapshot) {
	if old == nil {
		return
	}
	if old.Descriptor.Runtime != next.Descriptor.Runtime {
		h.logger.Warn("Runtime changed; restart required to apply",
			zap.String("old", old.Descriptor.Runtime),
			zap.String("new", next.Descriptor.Runtime),
		)
	}
	if old.Descriptor.Entrypoint != next.Descriptor.Entrypoint {
		h.logger.Warn("Entrypoint changed; restart required to apply",
			zap.String("old", old.Descriptor.Entrypoint),
			zap.String("new", next.Descriptor.Entrypoint),
		)
	}
}

// Start watches the descriptor's directory until ctx is done.
// Watching the directory catches editors that save by rename.
func (h *Holder) Start(ctx context.Context) error {
	if !h.cfg.Watch {
		h.logger.Info("Descriptor watcher disabled")
		return nil
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}

	dir := filepath.Dir(h.cfg.Descriptor)
	if err := w.Add(dir); err != nil {
		_ = w.Close()
		return fmt.Errorf("watch %s: %w", dir, err)
	}

	h.logger.Info("Watching descriptor", zap.String("path", h.cfg.Descriptor))
	h.wg.Add(1)
	go h.watchLoop(ctx, w)
	return nil
}

// Wait blocks until the watch loop started by Start has exited.
func (h *Holder) Wait() {
	h.wg.Wait()
}

func (h *Holder) watchLoop(ctx context.Context, w *fsnotify.Watcher) {
	defer h.wg.Done()
	defer w.Close()

	target := filepath.Clean(h.cfg.Descriptor)
	var timer *time.Timer
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()
	fire := make(chan struct{}, 1)

	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-w.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != target {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			if timer != nil {
				timer.Stop()
			}
			timer = time.AfterFunc(h.cfg.Debounce(), func() {
				select {
				case fire <- struct{}{}:
				default:
				}
			})

		case <-fire:
			_, _ = h.Reload(ctx)

		case err, ok := <-w.Errors:
			if !ok {
				return
			}
			h.logger.Error("Descriptor watcher error", zap.Error(err))
		}
	}
}
