package disappearing

import (
	"context"
	"time"

	"kawan/apperr"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const storeTimeout = 5 * time.Second

type I_QueueRepo interface {
	Enqueue(messageUID string, deleteAt time.Time) error
	ClaimDueEntries(now time.Time, limit int) ([]*DBQueueEntry, error)
	MarkProcessed(messageUID string) error
	FindEntry(messageUID string) (*DBQueueEntry, error)
}

type QueueService struct {
	queueCollection *mongo.Collection
	ctx             context.Context
}

func NewQueueService(queueCollection *mongo.Collection, ctx context.Context) I_QueueRepo {
	me := &QueueService{queueCollection, ctx}

	opt := options.Index()
	opt.SetUnique(true)
	index := mongo.IndexModel{Keys: bson.M{"message_uid": 1}, Options: opt}
	if _, err := queueCollection.Indexes().CreateOne(ctx, index); err != nil {
		Logger.Error(err, "error creating queue index")
	}

	return me
}

func (me *QueueService) opCtx() (context.Context, context.CancelFunc) {
	return context.WithTimeout(me.ctx, storeTimeout)
}

// Enqueue registers a message for deletion. The upsert keeps the entry
// unique per message, re-sends of the same uid are a no-op.
func (me *QueueService) Enqueue(messageUID string, deleteAt time.Time) error {
	ctx, cancel := me.opCtx()
	defer cancel()

	filter := bson.M{"message_uid": messageUID}
	update := bson.M{"$setOnInsert": bson.M{
		"message_uid": messageUID,
		"delete_at":   deleteAt,
		"processed":   false,
	}}
	opts := options.Update().SetUpsert(true)

	if _, err := me.queueCollection.UpdateOne(ctx, filter, update, opts); err != nil {
		return apperr.FromStore(err)
	}

	return nil
}

// ClaimDueEntries leases up to limit due entries to this sweeper. Each
// claim is a single conditional write, so two sweepers never hold the same
// entry at once; abandoned claims age out after claimTTL.
func (me *QueueService) ClaimDueEntries(now time.Time, limit int) ([]*DBQueueEntry, error) {
	if limit <= 0 {
		limit = 100
	}

	ctx, cancel := me.opCtx()
	defer cancel()

	token := primitive.NewObjectID().Hex()

	var claimed []*DBQueueEntry
	for len(claimed) < limit {
		query := bson.M{
			"processed": false,
			"delete_at": bson.M{"$lte": now},
			"$or": []bson.M{
				{"claimed_at": bson.M{"$exists": false}},
				{"claimed_at": bson.M{"$lte": now.Add(-claimTTL)}},
			},
		}
		update := bson.M{"$set": bson.M{"claim_token": token, "claimed_at": now}}
		res := me.queueCollection.FindOneAndUpdate(ctx, query, update, options.FindOneAndUpdate().SetReturnDocument(1))

		entry := &DBQueueEntry{}
		if err := res.Decode(entry); err != nil {
			if err == mongo.ErrNoDocuments {
				break
			}
			return claimed, apperr.FromStore(err)
		}

		claimed = append(claimed, entry)
	}

	return claimed, nil
}

// MarkProcessed is the terminal transition for an entry. Marking an
// already processed entry is fine, the sweep is at-least-once.
func (me *QueueService) MarkProcessed(messageUID string) error {
	ctx, cancel := me.opCtx()
	defer cancel()

	filter := bson.M{"message_uid": messageUID}
	update := bson.M{
		"$set":   bson.M{"processed": true},
		"$unset": bson.M{"claim_token": "", "claimed_at": ""},
	}

	if _, err := me.queueCollection.UpdateOne(ctx, filter, update); err != nil {
		return apperr.FromStore(err)
	}

	return nil
}

func (me *QueueService) FindEntry(messageUID string) (*DBQueueEntry, error) {
	ctx, cancel := me.opCtx()
	defer cancel()

	var entry *DBQueueEntry
	if err := me.queueCollection.FindOne(ctx, bson.M{"message_uid": messageUID}).Decode(&entry); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, nil
		}
		return nil, apperr.FromStore(err)
	}

	return entry, nil
}
