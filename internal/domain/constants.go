package domain

import "time"

// ==== WebSocket Constants ====

// MaxMessageSize is the maximum allowed WebSocket message size in bytes
const MaxMessageSize = 4096

// ==== Heartbeat Constants ====

const (
	// HeartbeatInterval is the period between server pings
	HeartbeatInterval = 5 * time.Second

	// PongTimeout is how long a ping may go unanswered before the connection is dead
	PongTimeout = 1 * time.Second
)

// ==== Collaborator Timeouts ====

const (
	// VerifyTimeout bounds a single token verification during the handshake
	VerifyTimeout = 5 * time.Second

	// PersistTimeout bounds a single message store write
	PersistTimeout = 5 * time.Second
)

// ==== Rate Limit Constants ====

const (
	// DefaultRateLimitAPI is the default rate limit for API endpoints (requests/sec)
	DefaultRateLimitAPI = 10

	// DefaultRateLimitWS is the default rate limit for WebSocket connections (req/sec)
	DefaultRateLimitWS = 5
)

// ==== Auth Constants ====

const (
	// DefaultTokenCookie is the cookie name (prefix) carrying the credential
	DefaultTokenCookie = "token"

	// CloseInvalidToken is the close code sent when handshake verification fails
	CloseInvalidToken = 4401
)

// CloseHeartbeatTimeout is the close code sent when a pong is missed
const CloseHeartbeatTimeout = 4408
