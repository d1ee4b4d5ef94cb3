package domain

import "context"

// TokenVerifier turns an opaque credential into an identity
type TokenVerifier interface {
	Verify(ctx context.Context, token string) (Identity, error)
}

// TokenIssuer signs a credential for an identity
type TokenIssuer interface {
	Issue(id Identity) (string, error)
}

// MessageStore durably appends messages and serves conversation history
type MessageStore interface {
	Create(ctx context.Context, sender, recipient, text string) (Message, error)
	// Conversation returns every message exchanged between a and b, oldest first
	Conversation(ctx context.Context, a, b string) ([]Message, error)
}

// UserStore holds registered accounts
type UserStore interface {
	Create(ctx context.Context, username, passwordHash string) (User, error)
	FindByUsername(ctx context.Context, username string) (User, error)
	List(ctx context.Context) ([]User, error)
}
