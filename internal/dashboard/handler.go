package dashboard

import (
	"encoding/json"
	"log"
	"net/http"
	"os"
	gosync "sync"
	"time"

	"github.com/doctorheli/checklist/internal/daemon"
	"github.com/doctorheli/checklist/internal/supply"
	"github.com/doctorheli/checklist/internal/sync"
)

// Source is the part of the sync engine the dashboard reads.
type Source interface {
	Items() []supply.Item
	Status() sync.Status
}

// StatsSource reports background refresh counters.
type StatsSource interface {
	Stats() daemon.Stats
}

// StatsData summarizes the collection.
type StatsData struct {
	Total        int            `json:"total"`
	Checked      int            `json:"checked"`
	Expired      int            `json:"expired"`
	ExpiringSoon int            `json:"expiring_soon"`
	ByCategory   map[string]int `json:"by_category"`
}

// ComputeStats counts items as of now.
func ComputeStats(items []supply.Item, now time.Time) StatsData {
	stats := StatsData{
		Total:      len(items),
		ByCategory: make(map[string]int),
	}
	for i := range items {
		it := &items[i]
		if it.IsChecked {
			stats.Checked++
		}
		if it.IsExpiredAt(now) {
			stats.Expired++
		} else if it.IsExpiringSoonAt(now) {
			stats.ExpiringSoon++
		}
		stats.ByCategory[it.Category]++
	}
	return stats
}

// StatusData is the body of GET /status.
type StatusData struct {
	Engine  sync.Status   `json:"engine"`
	Daemon  *daemon.Stats `json:"daemon,omitempty"`
	Clients int           `json:"clients"`
}

// Handler turns engine events into dashboard messages and serves the
// snapshot routes. It implements sync.Notifier.
//
// The engine takes its notifier at construction, so a Handler is created
// first and attached to the engine afterwards. Events received before
// Attach are broadcast without statistics.
type Handler struct {
	server *Server
	logger *log.Logger
	now    func() time.Time

	mu     gosync.RWMutex
	source Source
	daemon StatsSource
	stats  StatsData
}

// NewHandler creates a handler broadcasting through server and registers
// its routes on it.
func NewHandler(server *Server, logger *log.Logger) *Handler {
	if logger == nil {
		logger = log.New(os.Stderr, "[dashboard] ", log.LstdFlags)
	}

	h := &Handler{
		server: server,
		logger: logger,
		now:    time.Now,
		stats:  StatsData{ByCategory: make(map[string]int)},
	}

	server.welcome = h.statsMessage
	server.Handle("GET /items", http.HandlerFunc(h.handleItems))
	server.Handle("GET /status", http.HandlerFunc(h.handleStatus))
	return h
}

// Attach sets the engine the handler reads and recomputes statistics.
func (h *Handler) Attach(src Source) {
	h.mu.Lock()
	h.source = src
	h.mu.Unlock()

	h.refreshStats()
	h.broadcastStats()
}

// AttachDaemon adds daemon counters to the status route.
func (h *Handler) AttachDaemon(d StatsSource) {
	h.mu.Lock()
	h.daemon = d
	h.mu.Unlock()
}

// Notify broadcasts an engine event, followed by fresh statistics when
// the event can have changed them.
func (h *Handler) Notify(ev sync.Event) {
	if ev.Error != "" {
		h.logger.Printf("Engine event: %s (v%d): %s", ev.Kind, ev.Version, ev.Error)
	} else {
		h.logger.Printf("Engine event: %s (v%d)", ev.Kind, ev.Version)
	}

	h.broadcast(MessageTypeEvent, ev, ev.Time)

	switch ev.Kind {
	case sync.EventSyncStarted, sync.EventRemoteWriteFailed, sync.EventPersistFailed, sync.EventSyncFailed:
		return
	}
	if h.refreshStats() {
		h.broadcastStats()
	}
}

// Stats returns the most recently computed statistics.
func (h *Handler) Stats() StatsData {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.stats
}

// refreshStats recomputes statistics from the attached source. It reports
// false when no source is attached.
func (h *Handler) refreshStats() bool {
	h.mu.RLock()
	src := h.source
	h.mu.RUnlock()
	if src == nil {
		return false
	}

	stats := ComputeStats(src.Items(), h.now())

	h.mu.Lock()
	h.stats = stats
	h.mu.Unlock()
	return true
}

func (h *Handler) broadcastStats() {
	h.server.Broadcast(h.statsMessage())
}

func (h *Handler) statsMessage() Message {
	return h.message(MessageTypeStats, h.Stats(), time.Time{})
}

func (h *Handler) broadcast(typ MessageType, v any, ts time.Time) {
	h.server.Broadcast(h.message(typ, v, ts))
}

func (h *Handler) message(typ MessageType, v any, ts time.Time) Message {
	msg := Message{Type: typ, Timestamp: ts}
	data, err := json.Marshal(v)
	if err != nil {
		h.logger.Printf("Failed to marshal %s data: %v", typ, err)
		return msg
	}
	msg.Data = data
	return msg
}

func (h *Handler) handleItems(w http.ResponseWriter, r *http.Request) {
	h.mu.RLock()
	src := h.source
	h.mu.RUnlock()

	var items []supply.Item
	if src != nil {
		filter := supply.Filter{
			Category: r.URL.Query().Get("category"),
			Search:   r.URL.Query().Get("q"),
		}
		items = filter.Apply(src.Items())
	}
	if items == nil {
		items = []supply.Item{}
	}
	writeJSON(w, items)
}

func (h *Handler) handleStatus(w http.ResponseWriter, r *http.Request) {
	h.mu.RLock()
	src, d := h.source, h.daemon
	h.mu.RUnlock()

	if src == nil {
		http.Error(w, "engine not ready", http.StatusServiceUnavailable)
		return
	}

	resp := StatusData{
		Engine:  src.Status(),
		Clients: h.server.ClientCount(),
	}
	if d != nil {
		stats := d.Stats()
		resp.Daemon = &stats
	}
	writeJSON(w, resp)
}
