package messagedb

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type MsgStatus = string

const (
	StatusSent     MsgStatus = "sent"
	StatusRedacted MsgStatus = "redacted"
)

type CreateMessage struct {
	UID     string    `json:"uid" bson:"uid"`
	ConvoID string    `json:"convo_id" bson:"convo_id"`
	Sender  string    `json:"sender" bson:"sender"`
	Body    string    `json:"body" bson:"body"`
	Status  MsgStatus `json:"status" bson:"status"`
	Time    time.Time `json:"time,omitempty" bson:"time,omitempty"`
	// ExpireAfter is seconds until deletion, zero keeps the message.
	ExpireAfter int64      `json:"expire_after,omitempty" bson:"-"`
	ExpiresAt   *time.Time `json:"expires_at,omitempty" bson:"expires_at,omitempty"`
}

type DBMessage struct {
	Id        primitive.ObjectID `json:"id,omitempty" bson:"_id,omitempty"`
	UID       string             `json:"uid" bson:"uid"`
	ConvoID   string             `json:"convo_id" bson:"convo_id"`
	Sender    string             `json:"sender" bson:"sender"`
	Body      string             `json:"body" bson:"body"`
	Status    MsgStatus          `json:"status" bson:"status"`
	Time      time.Time          `json:"time,omitempty" bson:"time,omitempty"`
	ExpiresAt *time.Time         `json:"expires_at,omitempty" bson:"expires_at,omitempty"`
}

type SendMessage struct {
	UID         string `json:"uid"`
	ConvoID     string `json:"convo_id"`
	Body        string `json:"body"`
	ExpireAfter int64  `json:"expire_after,omitempty"`
}

type GetMessages struct {
	UID     string `json:"uid"`
	ConvoID string `json:"convo_id"`
	Page    string `json:"page"`
	Limit   string `json:"limit"`
}
