package mongostore

import (
	"context"

	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/mmuslimabdulj/pairchat/internal/domain"
)

// UserStore implements domain.UserStore on the users collection
type UserStore struct {
	coll *mongo.Collection
}

// Create inserts a user; a duplicate username maps to domain.ErrUserExists
func (s *UserStore) Create(ctx context.Context, username, passwordHash string) (domain.User, error) {
	doc := userDoc{
		ID:       primitive.NewObjectID(),
		Username: username,
		Password: passwordHash,
	}
	if _, err := s.coll.InsertOne(ctx, doc); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return domain.User{}, errors.Wrapf(domain.ErrUserExists, "username %q", username)
		}
		return domain.User{}, errors.Wrap(err, "insert user")
	}
	return doc.toDomain(), nil
}

// FindByUsername returns the user or domain.ErrNotFound
func (s *UserStore) FindByUsername(ctx context.Context, username string) (domain.User, error) {
	var doc userDoc
	err := s.coll.FindOne(ctx, bson.M{"username": username}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return domain.User{}, errors.Wrapf(domain.ErrNotFound, "user %q", username)
	}
	if err != nil {
		return domain.User{}, errors.Wrap(err, "find user")
	}
	return doc.toDomain(), nil
}

// List returns {_id, username} for every user; password hashes are not loaded
func (s *UserStore) List(ctx context.Context) ([]domain.User, error) {
	opts := options.Find().SetProjection(bson.M{"_id": 1, "username": 1})
	cur, err := s.coll.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, errors.Wrap(err, "list users")
	}
	defer cur.Close(ctx)

	var docs []userDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, errors.Wrap(err, "decode users")
	}
	out := make([]domain.User, 0, len(docs))
	for _, d := range docs {
		out = append(out, d.toDomain())
	}
	return out, nil
}
