package health

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"

	"github.com/clambin/energyua-monitor/internal/schedule"
)

type Resolver interface {
	Subscribe() chan schedule.Snapshot
	Unsubscribe(chan schedule.Snapshot)
	Refresh()
}

// Health reports the latest snapshot. Until the first one is published, it returns 503 and asks the resolver
// for a fetch cycle.
type Health struct {
	Resolver
	logger   *slog.Logger
	snapshot schedule.Snapshot
	updated  bool
	lock     sync.RWMutex
}

func New(r Resolver, logger *slog.Logger) *Health {
	return &Health{
		Resolver: r,
		logger:   logger,
	}
}

func (h *Health) Run(ctx context.Context) error {
	h.logger.Debug("started")
	defer h.logger.Debug("stopped")

	ch := h.Resolver.Subscribe()
	defer h.Resolver.Unsubscribe(ch)

	for {
		select {
		case <-ctx.Done():
			return nil
		case s := <-ch:
			h.lock.Lock()
			h.snapshot = s
			h.updated = true
			h.lock.Unlock()
		}
	}
}

func (h *Health) ServeHTTP(w http.ResponseWriter, _ *http.Request) {
	h.lock.RLock()
	defer h.lock.RUnlock()
	if !h.updated {
		http.Error(w, "no update yet", http.StatusServiceUnavailable)
		h.Resolver.Refresh()
		return
	}

	w.Header().Set("Content-Type", "application/json")

	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(h.snapshot); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}
