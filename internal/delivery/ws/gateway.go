package ws

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/mmuslimabdulj/pairchat/internal/auth"
	"github.com/mmuslimabdulj/pairchat/internal/domain"
	"github.com/mmuslimabdulj/pairchat/internal/logger"
)

// Settings tunes per-connection behaviour
type Settings struct {
	TokenCookie       string
	HeartbeatInterval time.Duration
	PongTimeout       time.Duration
	VerifyTimeout     time.Duration
	MaxMessageSize    int64
}

// DefaultSettings mirrors the domain defaults
func DefaultSettings() Settings {
	return Settings{
		TokenCookie:       domain.DefaultTokenCookie,
		HeartbeatInterval: domain.HeartbeatInterval,
		PongTimeout:       domain.PongTimeout,
		VerifyTimeout:     domain.VerifyTimeout,
		MaxMessageSize:    domain.MaxMessageSize,
	}
}

// Gateway wires an upgraded connection into the hub: registration,
// handshake, heartbeat and relay.
type Gateway struct {
	hub      *Hub
	relay    *Relay
	verifier domain.TokenVerifier
	settings Settings
}

// NewGateway creates a gateway
func NewGateway(hub *Hub, relay *Relay, verifier domain.TokenVerifier, settings Settings) *Gateway {
	return &Gateway{
		hub:      hub,
		relay:    relay,
		verifier: verifier,
		settings: settings,
	}
}

// Hub returns the registry the gateway registers into
func (g *Gateway) Hub() *Hub {
	return g.hub
}

// Serve takes ownership of an upgraded connection. r is the upgrade
// request; its cookies carry the credential.
func (g *Gateway) Serve(conn *websocket.Conn, r *http.Request) *Client {
	client := NewClient(g.hub, conn)
	client.heartbeat = NewHeartbeat(g.settings.HeartbeatInterval, g.settings.PongTimeout, client.ping, func() {
		logger.Info("heartbeat missed, closing", zap.String("conn", client.ID))
		client.Close(domain.CloseHeartbeatTimeout, "heartbeat timeout")
	})

	g.hub.Register(client)

	token := auth.TokenFromRequest(r, g.settings.TokenCookie)
	client.handshake = StartHandshake(g.verifier, token, g.settings.VerifyTimeout,
		func(id domain.Identity) {
			client.attach(id)
		},
		func(err error) {
			logger.Warn("handshake failed, closing", zap.String("conn", client.ID), zap.Error(err))
			client.Close(domain.CloseInvalidToken, "invalid token")
		})

	inbound := make(chan []byte, inboundBufferSize)
	go client.WritePump()
	go client.ReadPump(g.settings.MaxMessageSize, inbound)
	go client.heartbeat.Run()
	go g.relay.Serve(client, client.handshake, inbound)

	return client
}
