package convo

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type ConvoType = string

const (
	Direct ConvoType = "direct"
	Group  ConvoType = "group"
)

type Role = string

const (
	RoleMember Role = "member"
	RoleAdmin  Role = "admin"
)

// Conversation carries a PairKey only for the direct type. The unique index
// on it is what makes one conversation per unordered pair hold under
// concurrent provisioning.
type Conversation struct {
	UID       string    `json:"uid" bson:"uid"`
	Type      ConvoType `json:"type" bson:"type"`
	Name      string    `json:"name,omitempty" bson:"name,omitempty"`
	PairKey   string    `json:"-" bson:"pair_key,omitempty"`
	CreatedBy string    `json:"created_by" bson:"created_by"`
	CreatedAt time.Time `json:"created_at,omitempty" bson:"created_at,omitempty"`
}

type DBConversation struct {
	Id        primitive.ObjectID `json:"id,omitempty" bson:"_id,omitempty"`
	UID       string             `json:"uid" bson:"uid"`
	Type      ConvoType          `json:"type" bson:"type"`
	Name      string             `json:"name,omitempty" bson:"name,omitempty"`
	PairKey   string             `json:"-" bson:"pair_key,omitempty"`
	CreatedBy string             `json:"created_by" bson:"created_by"`
	CreatedAt time.Time          `json:"created_at,omitempty" bson:"created_at,omitempty"`
}

type Participant struct {
	ConvoID  string    `json:"convo_id" bson:"convo_id"`
	UserID   string    `json:"usr_id" bson:"usr_id"`
	Role     Role      `json:"role" bson:"role"`
	JoinedAt time.Time `json:"joined_at,omitempty" bson:"joined_at,omitempty"`
}

type DBParticipant struct {
	Id       primitive.ObjectID `json:"id,omitempty" bson:"_id,omitempty"`
	ConvoID  string             `json:"convo_id" bson:"convo_id"`
	UserID   string             `json:"usr_id" bson:"usr_id"`
	Role     Role               `json:"role" bson:"role"`
	JoinedAt time.Time          `json:"joined_at,omitempty" bson:"joined_at,omitempty"`
}

type GetOrCreateDirect struct {
	UID  string `json:"uid"`
	Peer string `json:"peer"`
}

type CreateGroup struct {
	UID          string   `json:"uid"`
	Name         string   `json:"name"`
	Participants []string `json:"participants"`
}

type SetTyping struct {
	UID      string `json:"uid"`
	ConvoID  string `json:"convo_id"`
	IsTyping bool   `json:"is_typing"`
}

type GetTyping struct {
	UID     string `json:"uid"`
	ConvoID string `json:"convo_id"`
}

type GetConversation struct {
	UID     string `json:"uid"`
	ConvoID string `json:"convo_id"`
}
