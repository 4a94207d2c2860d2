package messagedb

import (
	"context"
	"errors"
	"time"

	"kawan/apperr"
	"kawan/components/disappearing"
	"kawan/utils"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type I_MessageRepo interface {
	disappearing.I_QueueRepo
	AddMessage(msg *CreateMessage) (*DBMessage, error)
	FindMessageByUID(uid string) (*DBMessage, error)
	FindMessages(convoID string, page, limit int) ([]*DBMessage, error)
	RedactMessage(messageUID string) error
}

type MessageService struct {
	disappearing.I_QueueRepo
	msgCollection *mongo.Collection
	ctx           context.Context
}

const storeTimeout = 5 * time.Second

func NewMessageService(msgCollection *mongo.Collection, queue disappearing.I_QueueRepo, ctx context.Context) I_MessageRepo {
	opt := options.Index()
	opt.SetUnique(true)
	index := mongo.IndexModel{Keys: bson.M{"uid": 1}, Options: opt}
	if _, err := msgCollection.Indexes().CreateOne(ctx, index); err != nil {
		utils.Log().Error(err, "could not create index for message uid")
	}
	convoIndex := mongo.IndexModel{Keys: bson.D{{Key: "convo_id", Value: 1}, {Key: "time", Value: -1}}}
	if _, err := msgCollection.Indexes().CreateOne(ctx, convoIndex); err != nil {
		utils.Log().Error(err, "could not create index for message convo_id")
	}
	return &MessageService{queue, msgCollection, ctx}
}

func (me *MessageService) opCtx() (context.Context, context.CancelFunc) {
	return context.WithTimeout(me.ctx, storeTimeout)
}

func (me *MessageService) AddMessage(msg *CreateMessage) (*DBMessage, error) {
	ctx, cancel := me.opCtx()
	defer cancel()

	msg.Time = time.Now()
	if msg.Status == "" {
		msg.Status = StatusSent
	}
	if msg.ExpireAfter > 0 {
		at := msg.Time.Add(time.Duration(msg.ExpireAfter) * time.Second)
		msg.ExpiresAt = &at
	}

	res, err := me.msgCollection.InsertOne(ctx, msg)
	if err != nil {
		var we mongo.WriteException
		if errors.As(err, &we) {
			for _, e := range we.WriteErrors {
				if e.Code == 11000 {
					return nil, apperr.UniquenessConflict("message already exists")
				}
			}
		}
		return nil, apperr.FromStore(err)
	}

	if msg.ExpiresAt != nil {
		if err := me.Enqueue(msg.UID, *msg.ExpiresAt); err != nil {
			utils.Log().Error(err, "could not enqueue message for deletion", "uid", msg.UID)
		}
	}

	var newMsg *DBMessage
	query := bson.M{"_id": res.InsertedID}
	if err = me.msgCollection.FindOne(ctx, query).Decode(&newMsg); err != nil {
		return nil, apperr.FromStore(err)
	}
	return newMsg, nil
}

func (me *MessageService) FindMessageByUID(uid string) (*DBMessage, error) {
	ctx, cancel := me.opCtx()
	defer cancel()

	var msg *DBMessage
	query := bson.M{"uid": uid}
	err := me.msgCollection.FindOne(ctx, query).Decode(&msg)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, nil
		}
		return nil, apperr.FromStore(err)
	}
	return msg, nil
}

func (me *MessageService) FindMessages(convoID string, page, limit int) ([]*DBMessage, error) {
	ctx, cancel := me.opCtx()
	defer cancel()

	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 20
	}
	skip := int64(page-1) * int64(limit)

	opt := options.Find()
	opt.SetSort(bson.M{"time": -1})
	opt.SetSkip(skip)
	opt.SetLimit(int64(limit))

	query := bson.M{"convo_id": convoID}
	cursor, err := me.msgCollection.Find(ctx, query, opt)
	if err != nil {
		return nil, apperr.FromStore(err)
	}
	defer cursor.Close(ctx)

	var messages []*DBMessage
	for cursor.Next(ctx) {
		msg := &DBMessage{}
		if err := cursor.Decode(msg); err != nil {
			return nil, apperr.FromStore(err)
		}
		messages = append(messages, msg)
	}
	if err := cursor.Err(); err != nil {
		return nil, apperr.FromStore(err)
	}
	if len(messages) == 0 {
		return []*DBMessage{}, nil
	}
	return messages, nil
}

// RedactMessage blanks the body and marks the message redacted. Redacting a
// message twice or redacting one that never existed is not an error, the
// deletion sweep retries entries until they are marked processed.
func (me *MessageService) RedactMessage(messageUID string) error {
	ctx, cancel := me.opCtx()
	defer cancel()

	query := bson.M{"uid": messageUID}
	update := bson.M{"$set": bson.M{"status": StatusRedacted, "body": ""}}
	_, err := me.msgCollection.UpdateOne(ctx, query, update)
	if err != nil {
		return apperr.FromStore(err)
	}
	return nil
}
