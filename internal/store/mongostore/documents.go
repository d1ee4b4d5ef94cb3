package mongostore

import (
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/mmuslimabdulj/pairchat/internal/domain"
)

type userDoc struct {
	ID       primitive.ObjectID `bson:"_id"`
	Username string             `bson:"username"`
	Password string             `bson:"password"`
}

func (d userDoc) toDomain() domain.User {
	return domain.User{
		ID:           d.ID.Hex(),
		Username:     d.Username,
		PasswordHash: d.Password,
	}
}

type messageDoc struct {
	ID        primitive.ObjectID `bson:"_id"`
	Sender    string             `bson:"sender"`
	Recipient string             `bson:"recipient"`
	Text      string             `bson:"text"`
	CreatedAt time.Time          `bson:"createdAt"`
	UpdatedAt time.Time          `bson:"updatedAt"`
}

func (d messageDoc) toDomain() domain.Message {
	return domain.Message{
		ID:        d.ID.Hex(),
		Sender:    d.Sender,
		Recipient: d.Recipient,
		Text:      d.Text,
		CreatedAt: d.CreatedAt,
	}
}

// conversationFilter matches {sender in [a,b], recipient in [a,b]}
func conversationFilter(a, b string) bson.M {
	pair := bson.A{a, b}
	return bson.M{
		"sender":    bson.M{"$in": pair},
		"recipient": bson.M{"$in": pair},
	}
}

func usernameIndex() mongo.IndexModel {
	return mongo.IndexModel{
		Keys:    bson.D{{Key: "username", Value: 1}},
		Options: options.Index().SetUnique(true),
	}
}

func conversationIndex() mongo.IndexModel {
	return mongo.IndexModel{
		Keys: bson.D{
			{Key: "sender", Value: 1},
			{Key: "recipient", Value: 1},
			{Key: "createdAt", Value: 1},
		},
	}
}
