package mongostore

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/mmuslimabdulj/pairchat/internal/domain"
)

// MessageStore implements domain.MessageStore on the messages collection
type MessageStore struct {
	coll *mongo.Collection
	now  func() time.Time
}

// Create inserts one message; the ObjectID and createdAt are assigned here
func (s *MessageStore) Create(ctx context.Context, sender, recipient, text string) (domain.Message, error) {
	now := s.now().UTC().Truncate(time.Millisecond)
	doc := messageDoc{
		ID:        primitive.NewObjectID(),
		Sender:    sender,
		Recipient: recipient,
		Text:      text,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if _, err := s.coll.InsertOne(ctx, doc); err != nil {
		return domain.Message{}, errors.Wrap(err, "insert message")
	}
	return doc.toDomain(), nil
}

// Conversation returns the messages between a and b sorted by createdAt ascending
func (s *MessageStore) Conversation(ctx context.Context, a, b string) ([]domain.Message, error) {
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: 1}})
	cur, err := s.coll.Find(ctx, conversationFilter(a, b), opts)
	if err != nil {
		return nil, errors.Wrap(err, "find conversation")
	}
	defer cur.Close(ctx)

	var docs []messageDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, errors.Wrap(err, "decode conversation")
	}
	out := make([]domain.Message, 0, len(docs))
	for _, d := range docs {
		out = append(out, d.toDomain())
	}
	return out, nil
}
