package disappearing

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// QueueEntry schedules one message for deletion. Exactly one entry exists
// per message and Processed flips false -> true exactly once; the claim
// fields let concurrent sweepers divide the work without double deletes.
type QueueEntry struct {
	MessageUID string    `json:"message_uid" bson:"message_uid"`
	DeleteAt   time.Time `json:"delete_at" bson:"delete_at"`
	Processed  bool      `json:"processed" bson:"processed"`
	ClaimToken string    `json:"claim_token,omitempty" bson:"claim_token,omitempty"`
	ClaimedAt  time.Time `json:"claimed_at,omitempty" bson:"claimed_at,omitempty"`
}

type DBQueueEntry struct {
	Id         primitive.ObjectID `json:"id,omitempty" bson:"_id,omitempty"`
	MessageUID string             `json:"message_uid" bson:"message_uid"`
	DeleteAt   time.Time          `json:"delete_at" bson:"delete_at"`
	Processed  bool               `json:"processed" bson:"processed"`
	ClaimToken string             `json:"claim_token,omitempty" bson:"claim_token,omitempty"`
	ClaimedAt  time.Time          `json:"claimed_at,omitempty" bson:"claimed_at,omitempty"`
}

// claimTTL is how long a claim shields an entry from other sweepers. A
// sweeper that dies mid-batch loses its claims after this and the entries
// become eligible again.
const claimTTL = time.Minute
