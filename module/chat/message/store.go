package message

import (
	"context"
	"time"

	chatmodel "LinkChat/module/chat/model"
	"LinkChat/tools/errs"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Store is the persisted conversation store. Mongo owns the canonical records;
// the delivery path only ever handles transient copies of what Append returns.
type Store struct {
	MsgColl *mongo.Collection
}

func NewStore(db *mongo.Database) *Store {
	msg := chatmodel.Message{}
	return &Store{MsgColl: db.Collection(msg.TableName())}
}

// Append inserts the message, assigning id, created_at and seen=false.
// The returned copy is the canonical record the caller may emit.
func (s *Store) Append(ctx context.Context, m chatmodel.Message) (chatmodel.Message, error) {
	m.ID = primitive.NewObjectID().Hex()
	m.Seen = false
	m.CreatedAt = time.Now().UTC()
	if _, err := s.MsgColl.InsertOne(ctx, m); err != nil {
		return chatmodel.Message{}, errs.WrapMsg(err, "insert message")
	}
	return m, nil
}

// QueryConversation returns every message between a and b, either direction,
// ordered by created_at ascending (insertion order for a single pair).
func (s *Store) QueryConversation(ctx context.Context, a, b string) ([]chatmodel.Message, error) {
	filter := bson.M{"$or": bson.A{
		bson.M{"sender_id": a, "receiver_id": b},
		bson.M{"sender_id": b, "receiver_id": a},
	}}
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}})
	cur, err := s.MsgColl.Find(ctx, filter, opts)
	if err != nil {
		return nil, errs.WrapMsg(err, "query conversation")
	}
	defer cur.Close(ctx)

	var out []chatmodel.Message
	if err := cur.All(ctx, &out); err != nil {
		return nil, errs.WrapMsg(err, "decode conversation")
	}
	return out, nil
}

// BulkMarkSeen flips seen=false to true for every message sender -> receiver.
// Running it again matches zero documents, so it is idempotent.
func (s *Store) BulkMarkSeen(ctx context.Context, senderID, receiverID string) error {
	_, err := s.MsgColl.UpdateMany(ctx,
		bson.M{"sender_id": senderID, "receiver_id": receiverID, "seen": false},
		bson.M{"$set": bson.M{"seen": true}},
	)
	return errs.WrapMsg(err, "bulk mark seen")
}

// CountUnseen counts persisted unseen messages sender -> receiver.
func (s *Store) CountUnseen(ctx context.Context, senderID, receiverID string) (int64, error) {
	n, err := s.MsgColl.CountDocuments(ctx,
		bson.M{"sender_id": senderID, "receiver_id": receiverID, "seen": false})
	if err != nil {
		return 0, errs.WrapMsg(err, "count unseen")
	}
	return n, nil
}

// MarkSeenByID is the single-message seen override.
func (s *Store) MarkSeenByID(ctx context.Context, id string) error {
	res, err := s.MsgColl.UpdateOne(ctx,
		bson.M{"_id": id},
		bson.M{"$set": bson.M{"seen": true}},
	)
	if err != nil {
		return errs.WrapMsg(err, "mark seen by id")
	}
	if res.MatchedCount == 0 {
		return errs.ErrNotFound.WithDetail("message " + id)
	}
	return nil
}
