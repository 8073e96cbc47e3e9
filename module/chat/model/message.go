package model

import "time"

const MsgTableName = "message"

// Message is one direct message between two users.
//
// Identities are stored and transported as canonical hex strings end to end, so the
// same id never gets compared as ObjectID on one side and string on the other.
// Exactly one of Text/Image is set; empty messages are rejected before persistence.
// Seen starts false and only ever flips to true.
type Message struct {
	ID         string    `bson:"_id,omitempty" json:"_id"`
	SenderID   string    `bson:"sender_id" json:"senderId"`
	ReceiverID string    `bson:"receiver_id" json:"receiverId"`
	Text       string    `bson:"text,omitempty" json:"text,omitempty"`
	Image      string    `bson:"image,omitempty" json:"image,omitempty"`
	Seen       bool      `bson:"seen" json:"seen"`
	CreatedAt  time.Time `bson:"created_at" json:"createdAt"`
}

func (Message) TableName() string { return MsgTableName }

// UserCount is the aggregation row for per-sender unseen totals.
type UserCount struct {
	UserID string `bson:"_id"`
	Count  int64  `bson:"count"`
}
