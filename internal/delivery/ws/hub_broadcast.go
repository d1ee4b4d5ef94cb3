package ws

import (
	"go.uber.org/zap"

	"github.com/mmuslimabdulj/pairchat/internal/domain"
	"github.com/mmuslimabdulj/pairchat/internal/logger"
)

// BroadcastAll sends payload to every registered connection. A failed send
// to one connection is logged and does not stop the others.
func (h *Hub) BroadcastAll(payload []byte) {
	for _, c := range h.list() {
		if err := c.Send(payload); err != nil {
			logger.Debug("broadcast skipped client", zap.String("conn", c.ID), zap.Error(err))
		}
	}
}

// BroadcastTo sends payload to the connections authenticated as userID and
// returns how many accepted it. No match is not an error; the user may be
// offline. An empty userID never matches, so unauthenticated connections
// are never recipients.
func (h *Hub) BroadcastTo(userID string, payload []byte) int {
	if userID == "" {
		return 0
	}

	delivered := 0
	for _, c := range h.list() {
		if c.Identity().UserID != userID {
			continue
		}
		if err := c.Send(payload); err != nil {
			logger.Debug("relay skipped client", zap.String("conn", c.ID), zap.Error(err))
			continue
		}
		delivered++
	}
	return delivered
}

// broadcastPresence sends the current roster to everyone
func (h *Hub) broadcastPresence() {
	frame := domain.PresenceFrame{Online: h.Snapshot()}
	h.BroadcastAll(domain.Encode(frame))
}
