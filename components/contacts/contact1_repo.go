package contacts

import (
	"context"
	"time"

	"kawan/apperr"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const storeTimeout = 5 * time.Second

type I_ContactRepo interface {
	FindContact(owner, peer string) (*DBContact, error)
	UpsertContactPair(userA, userB string, status Status, canChat bool) error
	FindMyContacts(owner string, page, limit int) ([]*DBContact, error)
	SetFavorite(owner, peer string, favorite bool) (*DBContact, error)
}

type ContactService struct {
	client            *mongo.Client
	contactCollection *mongo.Collection
	ctx               context.Context
}

func NewContactService(client *mongo.Client, contactCollection *mongo.Collection, ctx context.Context) I_ContactRepo {
	me := &ContactService{client, contactCollection, ctx}

	opt := options.Index()
	opt.SetUnique(true)
	index := mongo.IndexModel{Keys: bson.D{{Key: "owner", Value: 1}, {Key: "peer", Value: 1}}, Options: opt}
	if _, err := contactCollection.Indexes().CreateOne(ctx, index); err != nil {
		Logger.Error(err, "error creating contact pair index")
	}

	return me
}

func (me *ContactService) opCtx() (context.Context, context.CancelFunc) {
	return context.WithTimeout(me.ctx, storeTimeout)
}

func (me *ContactService) FindContact(owner, peer string) (*DBContact, error) {
	ctx, cancel := me.opCtx()
	defer cancel()

	query := bson.M{"owner": owner, "peer": peer}

	var contact *DBContact
	if err := me.contactCollection.FindOne(ctx, query).Decode(&contact); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, nil
		}
		return nil, apperr.FromStore(err)
	}

	return contact, nil
}

// UpsertContactPair writes both directions of the edge in one transaction.
// Partial application, one side updated and the other not, must never be
// observable.
func (me *ContactService) UpsertContactPair(userA, userB string, status Status, canChat bool) error {
	ctx, cancel := me.opCtx()
	defer cancel()

	session, err := me.client.StartSession()
	if err != nil {
		return apperr.FromStore(err)
	}
	defer session.EndSession(ctx)

	now := time.Now()
	_, err = session.WithTransaction(ctx, func(sessCtx mongo.SessionContext) (interface{}, error) {
		for _, pair := range [2][2]string{{userA, userB}, {userB, userA}} {
			filter := bson.M{"owner": pair[0], "peer": pair[1]}
			update := bson.M{
				"$set":         bson.M{"status": status, "can_chat": canChat, "updated_at": now},
				"$setOnInsert": bson.M{"owner": pair[0], "peer": pair[1], "created_at": now},
			}
			opts := options.Update().SetUpsert(true)
			if _, err := me.contactCollection.UpdateOne(sessCtx, filter, update, opts); err != nil {
				return nil, err
			}
		}
		return nil, nil
	})
	if err != nil {
		return apperr.FromStore(err)
	}

	return nil
}

func (me *ContactService) FindMyContacts(owner string, page, limit int) ([]*DBContact, error) {
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
	opt.SetSort(bson.M{"is_favorite": -1})

	ctx, cancel := me.opCtx()
	defer cancel()

	query := bson.M{"owner": owner}

	cursor, err := me.contactCollection.Find(ctx, query, &opt)
	if err != nil {
		return nil, apperr.FromStore(err)
	}
	defer cursor.Close(ctx)

	var contacts []*DBContact
	for cursor.Next(ctx) {
		ctt := &DBContact{}
		err := cursor.Decode(ctt)

		if err != nil {
			return nil, apperr.FromStore(err)
		}

		contacts = append(contacts, ctt)
	}

	if err := cursor.Err(); err != nil {
		return nil, apperr.FromStore(err)
	}

	if len(contacts) == 0 {
		return []*DBContact{}, nil
	}

	return contacts, nil
}

func (me *ContactService) SetFavorite(owner, peer string, favorite bool) (*DBContact, error) {
	ctx, cancel := me.opCtx()
	defer cancel()

	query := bson.M{"owner": owner, "peer": peer}
	update := bson.M{"$set": bson.M{"is_favorite": favorite, "updated_at": time.Now()}}
	res := me.contactCollection.FindOneAndUpdate(ctx, query, update, options.FindOneAndUpdate().SetReturnDocument(1))

	var updated *DBContact
	if err := res.Decode(&updated); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, apperr.NotFound("contact doesn't exist")
		}
		return nil, apperr.FromStore(err)
	}

	return updated, nil
}
