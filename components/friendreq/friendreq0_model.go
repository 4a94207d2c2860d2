package friendreq

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type Status = string

const (
	Pending  Status = "pending"
	Accepted Status = "accepted"
	Rejected Status = "rejected"
)

// MaxAttempts caps resends after rejection. The first request counts as
// attempt 1, so a sender gets two resends and the 4th try is refused.
const MaxAttempts = 3

type FriendRequest struct {
	UID          string    `json:"uid" bson:"uid"`
	Sender       string    `json:"sender" bson:"sender"`
	Receiver     string    `json:"receiver" bson:"receiver"`
	Status       Status    `json:"status" bson:"status"`
	AttemptCount int       `json:"attempt_count" bson:"attempt_count"`
	CreatedAt    time.Time `json:"created_at,omitempty" bson:"created_at,omitempty"`
	UpdatedAt    time.Time `json:"updated_at,omitempty" bson:"updated_at,omitempty"`
}

type DBFriendRequest struct {
	Id           primitive.ObjectID `json:"id,omitempty" bson:"_id,omitempty"`
	UID          string             `json:"uid" bson:"uid"`
	Sender       string             `json:"sender" bson:"sender"`
	Receiver     string             `json:"receiver" bson:"receiver"`
	Status       Status             `json:"status" bson:"status"`
	AttemptCount int                `json:"attempt_count" bson:"attempt_count"`
	CreatedAt    time.Time          `json:"created_at,omitempty" bson:"created_at,omitempty"`
	UpdatedAt    time.Time          `json:"updated_at,omitempty" bson:"updated_at,omitempty"`
}

type SendRequest struct {
	UID string `json:"uid"`
	To  string `json:"to"`
}

type RequestAction struct {
	UID       string `json:"uid"`
	RequestID string `json:"request_id"`
}

type GetRequests struct {
	UID   string `json:"uid"`
	Page  string `json:"page"`
	Limit string `json:"limit"`
}
