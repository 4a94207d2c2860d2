package notification

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type EventType = string

const (
	EventRequestCreated      EventType = "friend_request"
	EventRequestAccepted     EventType = "request_accepted"
	EventRequestRejected     EventType = "request_rejected"
	EventConversationCreated EventType = "conversation_created"
)

// Event is one state transition worth telling users about. The delivery
// channel gets at-least-once semantics keyed by (Type, Subject, Object);
// consumer-side dedup is its problem, not ours.
type Event struct {
	Type       EventType `json:"type"`
	Subject    string    `json:"subject"`
	Object     string    `json:"object"`
	Recipients []string  `json:"recipients"`
	Title      string    `json:"title"`
	Content    string    `json:"content"`
}

type CreateNotification struct {
	Recipient  string    `json:"recipient" bson:"recipient"`
	Type       EventType `json:"type" bson:"type"`
	Subject    string    `json:"subject" bson:"subject"`
	Object     string    `json:"object" bson:"object"`
	Title      string    `json:"title" bson:"title"`
	Content    string    `json:"content" bson:"content"`
	ReadStatus bool      `json:"read_status" bson:"read_status"`
	UpdatedAt  time.Time `json:"updated_at,omitempty" bson:"updated_at,omitempty"`
}

type DBNotification struct {
	ID         primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Recipient  string             `json:"recipient" bson:"recipient"`
	Type       EventType          `json:"type" bson:"type"`
	Subject    string             `json:"subject" bson:"subject"`
	Object     string             `json:"object" bson:"object"`
	Title      string             `json:"title" bson:"title"`
	Content    string             `json:"content" bson:"content"`
	ReadStatus bool               `json:"read_status" bson:"read_status"`
	UpdatedAt  time.Time          `json:"updated_at,omitempty" bson:"updated_at,omitempty"`
}

type PushToken struct {
	User      string    `json:"user" bson:"user"`
	Token     string    `json:"token" bson:"token"`
	Platform  string    `json:"platform" bson:"platform"`
	UpdatedAt time.Time `json:"updated_at,omitempty" bson:"updated_at,omitempty"`
}

type GetNotifications struct {
	UID   string `json:"uid"`
	Page  string `json:"page"`
	Limit string `json:"limit"`
}

type RegisterToken struct {
	UID      string `json:"uid"`
	Token    string `json:"token"`
	Platform string `json:"platform"`
}
