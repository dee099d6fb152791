package message

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"chathub/service/chat"
	"chathub/tools/errs"
	"chathub/tools/ids"
)

// Model is the persisted message document. The json tags match the
// SEND_MESSAGE broadcast payload so history responses have the same shape.
type Model struct {
	ID         string    `bson:"_id" json:"messageId"`
	RoomID     string    `bson:"room_id" json:"roomId"`
	UserID     string    `bson:"user_id" json:"userId"`
	SenderName string    `bson:"sender_name" json:"username"`
	Content    string    `bson:"content" json:"content"`
	CreatedAt  time.Time `bson:"created_at" json:"createdAt"`
}

type userDoc struct {
	ID       string `bson:"_id"`
	Username string `bson:"username"`
}

// Store persists room messages and serves recent history. It implements
// the hub's MessageStore interface.
type Store struct {
	msgColl  *mongo.Collection
	userColl *mongo.Collection
}

func NewStore(db *mongo.Database) *Store {
	return &Store{
		msgColl:  db.Collection("message"),
		userColl: db.Collection("user"),
	}
}

// Create inserts the message and returns it enriched with the sender's
// display name, ready for broadcast.
func (s *Store) Create(ctx context.Context, userID, roomID, content string) (*chat.StoredMessage, error) {
	doc := Model{
		ID:         ids.GenerateString(),
		RoomID:     roomID,
		UserID:     userID,
		SenderName: s.displayName(ctx, userID),
		Content:    content,
		CreatedAt:  time.Now().UTC(),
	}
	if _, err := s.msgColl.InsertOne(ctx, doc); err != nil {
		return nil, errs.WrapMsg(err, "insert message")
	}
	return &chat.StoredMessage{
		ID:         doc.ID,
		Content:    doc.Content,
		UserID:     doc.UserID,
		SenderName: doc.SenderName,
		RoomID:     doc.RoomID,
		CreatedAt:  doc.CreatedAt,
	}, nil
}

// Recent returns up to limit messages for roomID, newest first.
func (s *Store) Recent(ctx context.Context, roomID string, limit int64) ([]Model, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}}).
		SetLimit(limit)
	cur, err := s.msgColl.Find(ctx, bson.M{"room_id": roomID}, opts)
	if err != nil {
		return nil, errs.WrapMsg(err, "find messages")
	}
	defer cur.Close(ctx)
	var out []Model
	if err := cur.All(ctx, &out); err != nil {
		return nil, errs.WrapMsg(err, "decode messages")
	}
	return out, nil
}

// displayName falls back to the raw user id when the profile is missing,
// so message persistence never fails on a profile lookup.
func (s *Store) displayName(ctx context.Context, userID string) string {
	var u userDoc
	err := s.userColl.FindOne(ctx, bson.M{"_id": userID}).Decode(&u)
	if err != nil || u.Username == "" {
		return userID
	}
	return u.Username
}
