// Package memstore keeps users and messages in process memory. It backs the
// tests and local runs without MONGO_URI.
package memstore

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/mmuslimabdulj/pairchat/internal/domain"
)

// MessageStore is an in-memory domain.MessageStore
type MessageStore struct {
	mu       sync.RWMutex
	messages []domain.Message
	now      func() time.Time
}

// NewMessageStore creates an empty message store
func NewMessageStore() *MessageStore {
	return &MessageStore{now: time.Now}
}

// Create appends a message and assigns its ID and timestamp
func (s *MessageStore) Create(ctx context.Context, sender, recipient, text string) (domain.Message, error) {
	if err := ctx.Err(); err != nil {
		return domain.Message{}, errors.Wrap(err, "create message")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	msg := domain.Message{
		ID:        uuid.New().String(),
		Sender:    sender,
		Recipient: recipient,
		Text:      text,
		CreatedAt: s.now(),
	}
	s.messages = append(s.messages, msg)
	return msg, nil
}

// Conversation returns the messages exchanged between a and b, oldest first
func (s *MessageStore) Conversation(ctx context.Context, a, b string) ([]domain.Message, error) {
	if err := ctx.Err(); err != nil {
		return nil, errors.Wrap(err, "find conversation")
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.Message, 0)
	for _, m := range s.messages {
		if between(m, a, b) {
			out = append(out, m)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

// All returns a copy of every stored message
func (s *MessageStore) All() []domain.Message {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.Message, len(s.messages))
	copy(out, s.messages)
	return out
}

// Count returns the number of stored messages
func (s *MessageStore) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.messages)
}

// between matches the {sender in [a,b], recipient in [a,b]} history filter
func between(m domain.Message, a, b string) bool {
	in := func(v string) bool { return v == a || v == b }
	return in(m.Sender) && in(m.Recipient)
}

// UserStore is an in-memory domain.UserStore
type UserStore struct {
	mu     sync.RWMutex
	byName map[string]domain.User
	order  []string
}

// NewUserStore creates an empty user store
func NewUserStore() *UserStore {
	return &UserStore{byName: make(map[string]domain.User)}
}

// Create registers a new user; usernames are unique
func (s *UserStore) Create(ctx context.Context, username, passwordHash string) (domain.User, error) {
	if err := ctx.Err(); err != nil {
		return domain.User{}, errors.Wrap(err, "create user")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.byName[username]; exists {
		return domain.User{}, errors.Wrapf(domain.ErrUserExists, "username %q", username)
	}
	u := domain.User{
		ID:           uuid.New().String(),
		Username:     username,
		PasswordHash: passwordHash,
	}
	s.byName[username] = u
	s.order = append(s.order, username)
	return u, nil
}

// FindByUsername looks a user up by name
func (s *UserStore) FindByUsername(ctx context.Context, username string) (domain.User, error) {
	if err := ctx.Err(); err != nil {
		return domain.User{}, errors.Wrap(err, "find user")
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.byName[username]
	if !ok {
		return domain.User{}, errors.Wrapf(domain.ErrNotFound, "user %q", username)
	}
	return u, nil
}

// List returns every user in registration order
func (s *UserStore) List(ctx context.Context) ([]domain.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, errors.Wrap(err, "list users")
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.User, 0, len(s.order))
	for _, name := range s.order {
		out = append(out, s.byName[name])
	}
	return out, nil
}
