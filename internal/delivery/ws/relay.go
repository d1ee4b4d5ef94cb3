package ws

import (
	"context"
	"encoding/json"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/mmuslimabdulj/pairchat/internal/domain"
	"github.com/mmuslimabdulj/pairchat/internal/logger"
)

// Relay validates inbound chat frames, persists them and fans them out to
// the recipient's live connections.
type Relay struct {
	hub     *Hub
	store   domain.MessageStore
	timeout time.Duration
}

// NewRelay creates a relay that bounds each store write by timeout
func NewRelay(hub *Hub, store domain.MessageStore, timeout time.Duration) *Relay {
	if timeout <= 0 {
		timeout = domain.PersistTimeout
	}
	return &Relay{hub: hub, store: store, timeout: timeout}
}

// Handle processes one inbound frame from c.
//   - unparsable or incomplete frames are dropped silently
//   - unauthenticated senders get an "unauthenticated" error frame
//   - store failures get a "delivery_failed" error frame and nothing is relayed
//
// The sender never receives its own relay frame from this path.
func (r *Relay) Handle(c *Client, raw []byte) {
	var frame domain.InboundFrame
	if err := json.Unmarshal(raw, &frame); err != nil {
		logger.Debug("dropping unparsable frame", zap.String("conn", c.ID), zap.Error(err))
		return
	}
	if !frame.Message.Valid() || !IsValidUserID(frame.Message.Recipient) {
		logger.Debug("dropping incomplete frame", zap.String("conn", c.ID))
		return
	}

	sender := c.Identity()
	if sender.IsZero() {
		r.reject(c, domain.ErrorCodeUnauthenticated, "sign in before sending messages")
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
	msg, err := r.store.Create(ctx, sender.UserID, frame.Message.Recipient, frame.Message.Text)
	cancel()
	if err != nil {
		logger.Error("persist message failed",
			zap.String("conn", c.ID),
			zap.String("sender", sender.UserID),
			zap.String("recipient", frame.Message.Recipient),
			zap.Error(err))
		r.reject(c, domain.ErrorCodeDeliveryFailed, "message could not be saved")
		return
	}

	delivered := r.hub.BroadcastTo(msg.Recipient, domain.Encode(domain.NewRelayFrame(msg)))
	logger.Debug("message relayed",
		zap.String("id", msg.ID),
		zap.String("sender", msg.Sender),
		zap.String("recipient", msg.Recipient),
		zap.Int("delivered", delivered))
}

// Serve handles c's inbound frames in arrival order. Processing starts only
// once the handshake has settled, so an authenticated client's first
// message is never treated as anonymous.
func (r *Relay) Serve(c *Client, hs *Handshake, inbound <-chan []byte) {
	defer func() {
		if rec := recover(); rec != nil {
			logger.Error("relay panic", zap.String("conn", c.ID), zap.Any("panic", rec))
			c.Close(websocket.CloseInternalServerErr, "internal error")
			// drain so the read pump never blocks on a dead consumer
			for range inbound {
			}
		}
	}()

	if hs != nil {
		hs.Wait()
	}
	for raw := range inbound {
		r.Handle(c, raw)
	}
}

func (r *Relay) reject(c *Client, code, message string) {
	frame := domain.ErrorFrame{Error: domain.ErrorBody{Code: code, Message: message}}
	if err := c.Send(domain.Encode(frame)); err != nil {
		logger.Debug("reject not delivered", zap.String("conn", c.ID), zap.Error(err))
	}
}
