package notification

import (
	"context"
	"time"

	"kawan/apperr"
	"kawan/utils"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const storeTimeout = 5 * time.Second

type I_NotifRepo interface {
	AddNotifs(notifs []*CreateNotification) ([]*DBNotification, error)
	FindNotifsByRecipient(recipient string, page, limit int) ([]*DBNotification, error)
	MarkRead(recipient string, id string) error
	UpsertPushToken(token *PushToken) error
	ListPushTokens(user string) ([]*PushToken, error)
	DeletePushToken(user, token string) error
}

type NotifRepository struct {
	notifCollection *mongo.Collection
	tokenCollection *mongo.Collection
	ctx             context.Context
}

func NewNotifRepository(notifCollection, tokenCollection *mongo.Collection, ctx context.Context) I_NotifRepo {
	return &NotifRepository{notifCollection, tokenCollection, ctx}
}

func (me *NotifRepository) opCtx() (context.Context, context.CancelFunc) {
	return context.WithTimeout(me.ctx, storeTimeout)
}

func (me *NotifRepository) AddNotifs(notifs []*CreateNotification) ([]*DBNotification, error) {
	docs := make([]interface{}, 0)
	for i := range notifs {
		notifs[i].UpdatedAt = time.Now()
		doc, err := utils.ToDoc(notifs[i])
		if err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}

	ctx, cancel := me.opCtx()
	defer cancel()

	res, err := me.notifCollection.InsertMany(ctx, docs)
	if err != nil {
		return nil, apperr.FromStore(err)
	}

	var insertedDocs []*DBNotification
	for _, id := range res.InsertedIDs {
		var doc *DBNotification
		err := me.notifCollection.FindOne(ctx, bson.M{"_id": id}).Decode(&doc)
		if err != nil {
			return nil, apperr.FromStore(err)
		}
		insertedDocs = append(insertedDocs, doc)
	}

	return insertedDocs, nil
}

func (me *NotifRepository) FindNotifsByRecipient(recipient string, page, limit int) ([]*DBNotification, error) {
	if page == 0 {
		page = 1
	}

	if limit == 0 {
		limit = 10
	}

	skip := (page - 1) * limit

	opt := options.FindOptions{}
	opt.SetLimit(int64(limit))
	opt.SetSkip(int64(skip))
	opt.SetSort(bson.M{"updated_at": -1})

	ctx, cancel := me.opCtx()
	defer cancel()

	query := bson.M{"recipient": recipient}

	cursor, err := me.notifCollection.Find(ctx, query, &opt)
	if err != nil {
		return nil, apperr.FromStore(err)
	}
	defer cursor.Close(ctx)

	var results []*DBNotification
	for cursor.Next(ctx) {
		rr := &DBNotification{}
		err := cursor.Decode(rr)

		if err != nil {
			return nil, apperr.FromStore(err)
		}
		results = append(results, rr)
	}

	if err := cursor.Err(); err != nil {
		return nil, apperr.FromStore(err)
	}

	if len(results) == 0 {
		return []*DBNotification{}, nil
	}

	return results, nil
}

func (me *NotifRepository) MarkRead(recipient string, id string) error {
	obId, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return apperr.InvalidArg("invalid notification id")
	}

	ctx, cancel := me.opCtx()
	defer cancel()

	query := bson.M{"_id": obId, "recipient": recipient}
	update := bson.M{"$set": bson.M{"read_status": true, "updated_at": time.Now()}}

	res, err := me.notifCollection.UpdateOne(ctx, query, update)
	if err != nil {
		return apperr.FromStore(err)
	}

	if res.MatchedCount == 0 {
		return apperr.NotFound("no notification with that id exists")
	}

	return nil
}

func (me *NotifRepository) UpsertPushToken(token *PushToken) error {
	ctx, cancel := me.opCtx()
	defer cancel()

	filter := bson.M{"user": token.User, "token": token.Token}
	update := bson.M{"$set": bson.M{"platform": token.Platform, "updated_at": time.Now()}}
	opts := options.Update().SetUpsert(true)

	if _, err := me.tokenCollection.UpdateOne(ctx, filter, update, opts); err != nil {
		return apperr.FromStore(err)
	}

	return nil
}

func (me *NotifRepository) ListPushTokens(user string) ([]*PushToken, error) {
	ctx, cancel := me.opCtx()
	defer cancel()

	cursor, err := me.tokenCollection.Find(ctx, bson.M{"user": user})
	if err != nil {
		return nil, apperr.FromStore(err)
	}
	defer cursor.Close(ctx)

	var tokens []*PushToken
	for cursor.Next(ctx) {
		tk := &PushToken{}
		err := cursor.Decode(tk)

		if err != nil {
			return nil, apperr.FromStore(err)
		}
		tokens = append(tokens, tk)
	}

	if err := cursor.Err(); err != nil {
		return nil, apperr.FromStore(err)
	}

	if len(tokens) == 0 {
		return []*PushToken{}, nil
	}

	return tokens, nil
}

func (me *NotifRepository) DeletePushToken(user, token string) error {
	ctx, cancel := me.opCtx()
	defer cancel()

	if _, err := me.tokenCollection.DeleteOne(ctx, bson.M{"user": user, "token": token}); err != nil {
		return apperr.FromStore(err)
	}

	return nil
}
