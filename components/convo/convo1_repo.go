package convo

import (
	"context"
	"time"

	"kawan/apperr"
	"kawan/utils"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const storeTimeout = 5 * time.Second

type I_ConvoRepo interface {
	FindDirectConversation(userA, userB string) (*DBConversation, error)
	CreateConversation(convo *Conversation, participants []*Participant) (*DBConversation, error)
	FindConversationByUID(uid string) (*DBConversation, error)
	FindParticipants(convoID string, page, limit int) ([]*DBParticipant, error)
	CheckParticipantExist(convoID, userID string) (bool, error)
}

type ConvoService struct {
	convoCollection       *mongo.Collection
	participantCollection *mongo.Collection
	ctx                   context.Context
}

func NewConvoService(convoCollection, participantCollection *mongo.Collection, ctx context.Context) I_ConvoRepo {
	me := &ConvoService{convoCollection, participantCollection, ctx}

	// direct conversations only, group rows have no pair_key
	opt := options.Index()
	opt.SetUnique(true)
	opt.SetPartialFilterExpression(bson.M{"pair_key": bson.M{"$exists": true}})
	index := mongo.IndexModel{Keys: bson.M{"pair_key": 1}, Options: opt}
	if _, err := convoCollection.Indexes().CreateOne(ctx, index); err != nil {
		Logger.Error(err, "error creating pair key index")
	}

	return me
}

func (me *ConvoService) opCtx() (context.Context, context.CancelFunc) {
	return context.WithTimeout(me.ctx, storeTimeout)
}

func (me *ConvoService) FindDirectConversation(userA, userB string) (*DBConversation, error) {
	ctx, cancel := me.opCtx()
	defer cancel()

	query := bson.M{"pair_key": utils.PairKey(userA, userB)}

	var convo *DBConversation
	if err := me.convoCollection.FindOne(ctx, query).Decode(&convo); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, nil
		}
		return nil, apperr.FromStore(err)
	}

	return convo, nil
}

// CreateConversation inserts the conversation and its participant rows. A
// duplicate pair key surfaces as UniquenessConflict so the caller can fall
// back to the lookup instead of reporting a failure.
func (me *ConvoService) CreateConversation(convo *Conversation, participants []*Participant) (*DBConversation, error) {
	convo.CreatedAt = time.Now()

	ctx, cancel := me.opCtx()
	defer cancel()

	res, err := me.convoCollection.InsertOne(ctx, convo)
	if err != nil {
		if er, ok := err.(mongo.WriteException); ok && len(er.WriteErrors) > 0 && er.WriteErrors[0].Code == 11000 {
			return nil, apperr.UniquenessConflict("conversation already exists")
		}
		return nil, apperr.FromStore(err)
	}

	docs := make([]interface{}, 0, len(participants))
	for _, p := range participants {
		p.ConvoID = convo.UID
		p.JoinedAt = convo.CreatedAt
		docs = append(docs, p)
	}
	if len(docs) > 0 {
		if _, err := me.participantCollection.InsertMany(ctx, docs); err != nil {
			return nil, apperr.FromStore(err)
		}
	}

	var newConvo *DBConversation
	query := bson.M{"_id": res.InsertedID}
	if err = me.convoCollection.FindOne(ctx, query).Decode(&newConvo); err != nil {
		return nil, apperr.FromStore(err)
	}

	return newConvo, nil
}

func (me *ConvoService) FindConversationByUID(uid string) (*DBConversation, error) {
	ctx, cancel := me.opCtx()
	defer cancel()

	var convo *DBConversation
	if err := me.convoCollection.FindOne(ctx, bson.M{"uid": uid}).Decode(&convo); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, nil
		}
		return nil, apperr.FromStore(err)
	}

	return convo, nil
}

func (me *ConvoService) FindParticipants(convoID string, page, limit int) ([]*DBParticipant, error) {
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

	ctx, cancel := me.opCtx()
	defer cancel()

	query := bson.M{"convo_id": convoID}

	cursor, err := me.participantCollection.Find(ctx, query, &opt)
	if err != nil {
		return nil, apperr.FromStore(err)
	}
	defer cursor.Close(ctx)

	var members []*DBParticipant
	for cursor.Next(ctx) {
		p := &DBParticipant{}
		err := cursor.Decode(p)

		if err != nil {
			return nil, apperr.FromStore(err)
		}

		members = append(members, p)
	}

	if err := cursor.Err(); err != nil {
		return nil, apperr.FromStore(err)
	}

	if len(members) == 0 {
		return []*DBParticipant{}, nil
	}

	return members, nil
}

func (me *ConvoService) CheckParticipantExist(convoID, userID string) (bool, error) {
	ctx, cancel := me.opCtx()
	defer cancel()

	count, err := me.participantCollection.CountDocuments(ctx, bson.M{"convo_id": convoID, "usr_id": userID})
	if err != nil {
		return false, apperr.FromStore(err)
	}

	return count > 0, nil
}
