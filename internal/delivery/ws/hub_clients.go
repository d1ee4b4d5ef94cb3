package ws

import (
	"context"

	"github.com/mmuslimabdulj/pairchat/internal/domain"
)

// Register adds a client to the hub. A presence frame follows.
func (h *Hub) Register(c *Client) {
	select {
	case h.register <- c:
	case <-h.done:
		c.release()
	}
}

// Unregister removes a client from the hub. Removing an unknown client is a no-op.
func (h *Hub) Unregister(c *Client) {
	select {
	case h.unregister <- c:
	case <-h.done:
	}
}

// Identified announces that c's handshake attached an identity
func (h *Hub) Identified(c *Client) {
	select {
	case h.identified <- c:
	case <-h.done:
	}
}

// ClientCount returns the number of connected clients
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// OnlineUserIDs returns the distinct authenticated user IDs currently connected
func (h *Hub) OnlineUserIDs() []string {
	ids := h.onlineIdentities()
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		out = append(out, id.UserID)
	}
	return out
}

// Snapshot returns the presence roster: one entry per open connection, in
// join order. Unauthenticated connections appear with empty fields.
func (h *Hub) Snapshot() []domain.PresenceEntry {
	clients := h.list()
	out := make([]domain.PresenceEntry, 0, len(clients))
	for _, c := range clients {
		id := c.Identity()
		out = append(out, domain.PresenceEntry{UserID: id.UserID, Username: id.Username})
	}
	return out
}

// IsOnline reports whether userID has an authenticated connection on this hub
func (h *Hub) IsOnline(_ context.Context, userID string) (bool, error) {
	return userID != "" && h.isOnline(userID), nil
}
