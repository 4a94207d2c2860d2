package contacts

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type Status = string

const (
	Accepted Status = "accepted"
	Blocked  Status = "blocked"
)

// Contact is one direction of a friendship edge. Two rows, one per
// direction, represent one friendship and must agree on Status and CanChat.
// Rows are only ever written through UpsertContactPair as a side effect of
// friend request transitions.
type Contact struct {
	Owner      string    `json:"owner" bson:"owner"`
	Peer       string    `json:"peer" bson:"peer"`
	Status     Status    `json:"status" bson:"status"`
	CanChat    bool      `json:"can_chat" bson:"can_chat"`
	IsFavorite bool      `json:"is_favorite" bson:"is_favorite"`
	IsBlocked  bool      `json:"is_blocked" bson:"is_blocked"`
	CreatedAt  time.Time `json:"created_at,omitempty" bson:"created_at,omitempty"`
	UpdatedAt  time.Time `json:"updated_at,omitempty" bson:"updated_at,omitempty"`
}

type DBContact struct {
	Id         primitive.ObjectID `json:"id,omitempty" bson:"_id,omitempty"`
	Owner      string             `json:"owner" bson:"owner"`
	Peer       string             `json:"peer" bson:"peer"`
	Status     Status             `json:"status" bson:"status"`
	CanChat    bool               `json:"can_chat" bson:"can_chat"`
	IsFavorite bool               `json:"is_favorite" bson:"is_favorite"`
	IsBlocked  bool               `json:"is_blocked" bson:"is_blocked"`
	CreatedAt  time.Time          `json:"created_at,omitempty" bson:"created_at,omitempty"`
	UpdatedAt  time.Time          `json:"updated_at,omitempty" bson:"updated_at,omitempty"`
}

type GetContacts struct {
	UID   string `json:"uid"`
	Page  string `json:"page"`
	Limit string `json:"limit"`
}

type SetFavorite struct {
	UID      string `json:"uid"`
	Peer     string `json:"peer"`
	Favorite bool   `json:"favorite"`
}
