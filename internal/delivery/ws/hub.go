package ws

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/mmuslimabdulj/pairchat/internal/domain"
	"github.com/mmuslimabdulj/pairchat/internal/logger"
)

// PresenceObserver is told when a user comes online or goes offline.
// Calls run one at a time on a worker goroutine, in hub event order, each
// with a bounded context.
type PresenceObserver interface {
	Online(ctx context.Context, id domain.Identity) error
	Offline(ctx context.Context, userID string) error
}

const (
	observerTimeout = 3 * time.Second

	// Pending observer calls; the hub loop blocks when the worker falls this far behind
	observerQueueSize = 256
)

// Hub is the connection registry. It is the single writer of membership;
// register, unregister and identity events are serialized through Run.
type Hub struct {
	mu      sync.RWMutex
	clients map[string]*Client
	seq     uint64

	register   chan *Client
	unregister chan *Client
	identified chan *Client
	done       chan struct{}

	observer     PresenceObserver
	observerJobs chan func(ctx context.Context) error
	refreshEvery time.Duration
}

// NewHub creates a new Hub
func NewHub() *Hub {
	return &Hub{
		clients:    make(map[string]*Client),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		identified: make(chan *Client),
		done:       make(chan struct{}),

		observerJobs: make(chan func(ctx context.Context) error, observerQueueSize),
	}
}

// SetPresenceObserver mirrors online identities to o, re-announcing every
// online user each refreshEvery (zero disables refreshing).
func (h *Hub) SetPresenceObserver(o PresenceObserver, refreshEvery time.Duration) {
	h.observer = o
	h.refreshEvery = refreshEvery
}

// Run starts the hub's main event loop. It returns when ctx is cancelled,
// after closing every registered client.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)

	// only Run sends on observerJobs, so closing here is safe
	go h.runObserver()
	defer close(h.observerJobs)

	var refresh <-chan time.Time
	if h.observer != nil && h.refreshEvery > 0 {
		ticker := time.NewTicker(h.refreshEvery)
		defer ticker.Stop()
		refresh = ticker.C
	}

	for {
		select {
		case <-ctx.Done():
			h.closeAll()
			return

		case client := <-h.register:
			count := h.add(client)
			logger.Info("client registered", zap.String("conn", client.ID), zap.Int("clients", count))
			h.broadcastPresence()

		case client := <-h.unregister:
			if !h.remove(client) {
				continue // already unregistered
			}
			id := client.Identity()
			logger.Info("client unregistered",
				zap.String("conn", client.ID),
				zap.String("user", id.UserID),
				zap.Int("clients", h.ClientCount()))
			h.broadcastPresence()
			if !id.IsZero() && !h.isOnline(id.UserID) {
				h.notifyOffline(id.UserID)
			}

		case client := <-h.identified:
			if !h.contains(client) {
				continue // closed before its handshake settled
			}
			id := client.Identity()
			logger.Info("client identified", zap.String("conn", client.ID), zap.String("user", id.UserID))
			h.broadcastPresence()
			h.notifyOnline(id)

		case <-refresh:
			for _, id := range h.onlineIdentities() {
				h.notifyOnline(id)
			}
		}
	}
}

func (h *Hub) add(c *Client) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.seq++
	c.joined = h.seq
	h.clients[c.ID] = c
	return len(h.clients)
}

// remove deletes the entry and releases the client's timers and send queue.
// It reports false when the client was not registered.
func (h *Hub) remove(c *Client) bool {
	h.mu.Lock()
	if cur, ok := h.clients[c.ID]; !ok || cur != c {
		h.mu.Unlock()
		return false
	}
	delete(h.clients, c.ID)
	h.mu.Unlock()

	c.release()
	return true
}

func (h *Hub) contains(c *Client) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	cur, ok := h.clients[c.ID]
	return ok && cur == c
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	clients := make([]*Client, 0, len(h.clients))
	for id, c := range h.clients {
		clients = append(clients, c)
		delete(h.clients, id)
	}
	h.mu.Unlock()

	for _, c := range clients {
		c.release()
	}
	logger.Info("hub stopped", zap.Int("closed", len(clients)))
}

// list returns registered clients in join order. The slice is a copy, so
// callers may iterate it while membership changes.
func (h *Hub) list() []*Client {
	h.mu.RLock()
	out := make([]*Client, 0, len(h.clients))
	for _, c := range h.clients {
		out = append(out, c)
	}
	h.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].joined < out[j].joined })
	return out
}

func (h *Hub) isOnline(userID string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, c := range h.clients {
		if c.Identity().UserID == userID {
			return true
		}
	}
	return false
}

func (h *Hub) onlineIdentities() []domain.Identity {
	seen := make(map[string]bool)
	var out []domain.Identity
	for _, c := range h.list() {
		id := c.Identity()
		if id.IsZero() || seen[id.UserID] {
			continue
		}
		seen[id.UserID] = true
		out = append(out, id)
	}
	return out
}

func (h *Hub) notifyOnline(id domain.Identity) {
	if h.observer == nil {
		return
	}
	h.observerJobs <- func(ctx context.Context) error {
		if err := h.observer.Online(ctx, id); err != nil {
			return errors.Wrapf(err, "online %s", id.UserID)
		}
		return nil
	}
}

func (h *Hub) notifyOffline(userID string) {
	if h.observer == nil {
		return
	}
	h.observerJobs <- func(ctx context.Context) error {
		if err := h.observer.Offline(ctx, userID); err != nil {
			return errors.Wrapf(err, "offline %s", userID)
		}
		return nil
	}
}

// runObserver applies observer calls in the order the hub loop queued them,
// so an Online can never land after the Offline that followed it.
func (h *Hub) runObserver() {
	for job := range h.observerJobs {
		ctx, cancel := context.WithTimeout(context.Background(), observerTimeout)
		if err := job(ctx); err != nil {
			logger.Warn("presence mirror update failed", zap.Error(err))
		}
		cancel()
	}
}
