// Package mongostore persists users and messages in MongoDB.
package mongostore

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"

	"github.com/mmuslimabdulj/pairchat/internal/logger"
)

const (
	defaultMaxPoolSize = 100
	defaultMaxRetry    = 3

	usersCollection    = "users"
	messagesCollection = "messages"
)

// Config represents the MongoDB configuration.
type Config struct {
	URI         string
	Database    string
	MaxPoolSize int
	MaxRetry    int
}

func (c *Config) validateAndSetDefaults() error {
	if c.URI == "" {
		return errors.New("mongo uri is required")
	}
	if c.Database == "" {
		return errors.New("mongo database is required")
	}
	if c.MaxPoolSize <= 0 {
		c.MaxPoolSize = defaultMaxPoolSize
	}
	if c.MaxRetry <= 0 {
		c.MaxRetry = defaultMaxRetry
	}
	return nil
}

// Client wraps a connected database handle
type Client struct {
	cli *mongo.Client
	db  *mongo.Database
}

// Connect dials MongoDB, retrying transient failures, and ensures indexes.
func Connect(ctx context.Context, cfg Config) (*Client, error) {
	if err := cfg.validateAndSetDefaults(); err != nil {
		return nil, err
	}
	opts := options.Client().
		ApplyURI(cfg.URI).
		SetMaxPoolSize(uint64(cfg.MaxPoolSize))

	var (
		cli *mongo.Client
		err error
	)
	for i := 0; i < cfg.MaxRetry; i++ {
		cli, err = connectMongo(ctx, opts)
		if err != nil && shouldRetry(ctx, err) {
			logger.Warn("mongo connect failed, retrying", zap.Int("attempt", i+1), zap.Error(err))
			time.Sleep(time.Second / 2)
			continue
		}
		break
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to connect to MongoDB")
	}

	c := &Client{cli: cli, db: cli.Database(cfg.Database)}
	if err := c.ensureIndexes(ctx); err != nil {
		_ = cli.Disconnect(context.Background())
		return nil, err
	}
	return c, nil
}

// Users returns the user store backed by this client
func (c *Client) Users() *UserStore {
	return &UserStore{coll: c.db.Collection(usersCollection)}
}

// Messages returns the message store backed by this client
func (c *Client) Messages() *MessageStore {
	return &MessageStore{coll: c.db.Collection(messagesCollection), now: time.Now}
}

// Close disconnects from the server
func (c *Client) Close(ctx context.Context) error {
	return c.cli.Disconnect(ctx)
}

func (c *Client) ensureIndexes(ctx context.Context) error {
	_, err := c.db.Collection(usersCollection).Indexes().CreateOne(ctx, usernameIndex())
	if err != nil {
		return errors.Wrap(err, "create username index")
	}
	_, err = c.db.Collection(messagesCollection).Indexes().CreateOne(ctx, conversationIndex())
	if err != nil {
		return errors.Wrap(err, "create conversation index")
	}
	return nil
}

func connectMongo(ctx context.Context, opts *options.ClientOptions) (*mongo.Client, error) {
	cli, err := mongo.Connect(ctx, opts)
	if err != nil {
		return nil, err
	}
	if err := cli.Ping(ctx, nil); err != nil {
		_ = cli.Disconnect(context.Background())
		return nil, err
	}
	return cli, nil
}

// shouldRetry determines whether an error should trigger a retry.
// Codes 13 (Unauthorized) and 18 (AuthenticationFailed) never recover.
func shouldRetry(ctx context.Context, err error) bool {
	select {
	case <-ctx.Done():
		return false
	default:
		var cmdErr mongo.CommandError
		if errors.As(err, &cmdErr) {
			return cmdErr.Code != 13 && cmdErr.Code != 18
		}
		return true
	}
}
