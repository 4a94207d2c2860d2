package friendreq

import (
	"context"
	"time"

	"kawan/apperr"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const storeTimeout = 5 * time.Second

type I_RequestRepo interface {
	CreateRequest(req *FriendRequest) (*DBFriendRequest, error)
	FindRequestBetween(sender, receiver string) (*DBFriendRequest, error)
	FindRequestByUID(uid string) (*DBFriendRequest, error)
	TransitionStatus(uid string, from, to Status) (*DBFriendRequest, error)
	ResendRequest(sender, receiver string) (*DBFriendRequest, error)
	DeleteRequest(uid string) error
	FindRequestsTo(receiver string, page, limit int) ([]*DBFriendRequest, error)
}

type RequestService struct {
	requestCollection *mongo.Collection
	ctx               context.Context
}

func NewRequestService(requestCollection *mongo.Collection, ctx context.Context) I_RequestRepo {
	me := &RequestService{requestCollection, ctx}

	// One row per ordered pair. Resends update the row in place, so the
	// unique index doubles as the "at most one active request" guard.
	opt := options.Index()
	opt.SetUnique(true)
	index := mongo.IndexModel{Keys: bson.D{{Key: "sender", Value: 1}, {Key: "receiver", Value: 1}}, Options: opt}
	if _, err := requestCollection.Indexes().CreateOne(ctx, index); err != nil {
		Logger.Error(err, "error creating request pair index")
	}

	return me
}

func (me *RequestService) opCtx() (context.Context, context.CancelFunc) {
	return context.WithTimeout(me.ctx, storeTimeout)
}

func (me *RequestService) CreateRequest(req *FriendRequest) (*DBFriendRequest, error) {
	req.CreatedAt = time.Now()
	req.UpdatedAt = req.CreatedAt

	ctx, cancel := me.opCtx()
	defer cancel()

	res, err := me.requestCollection.InsertOne(ctx, req)
	if err != nil {
		if er, ok := err.(mongo.WriteException); ok && len(er.WriteErrors) > 0 && er.WriteErrors[0].Code == 11000 {
			return nil, apperr.UniquenessConflict("request already exists")
		}
		return nil, apperr.FromStore(err)
	}

	var newReq *DBFriendRequest
	query := bson.M{"_id": res.InsertedID}
	if err = me.requestCollection.FindOne(ctx, query).Decode(&newReq); err != nil {
		return nil, apperr.FromStore(err)
	}

	return newReq, nil
}

func (me *RequestService) FindRequestBetween(sender, receiver string) (*DBFriendRequest, error) {
	ctx, cancel := me.opCtx()
	defer cancel()

	query := bson.M{"sender": sender, "receiver": receiver}

	var req *DBFriendRequest
	if err := me.requestCollection.FindOne(ctx, query).Decode(&req); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, nil
		}
		return nil, apperr.FromStore(err)
	}

	return req, nil
}

func (me *RequestService) FindRequestByUID(uid string) (*DBFriendRequest, error) {
	ctx, cancel := me.opCtx()
	defer cancel()

	query := bson.M{"uid": uid}

	var req *DBFriendRequest
	if err := me.requestCollection.FindOne(ctx, query).Decode(&req); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, nil
		}
		return nil, apperr.FromStore(err)
	}

	return req, nil
}

// TransitionStatus moves a request from one status to another as a single
// conditional write. It returns nil when no row was in the expected status,
// so concurrent callers cannot both win the same transition.
func (me *RequestService) TransitionStatus(uid string, from, to Status) (*DBFriendRequest, error) {
	ctx, cancel := me.opCtx()
	defer cancel()

	query := bson.M{"uid": uid, "status": from}
	update := bson.M{"$set": bson.M{"status": to, "updated_at": time.Now()}}
	res := me.requestCollection.FindOneAndUpdate(ctx, query, update, options.FindOneAndUpdate().SetReturnDocument(1))

	var updated *DBFriendRequest
	if err := res.Decode(&updated); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, nil
		}
		return nil, apperr.FromStore(err)
	}

	return updated, nil
}

// ResendRequest flips a rejected request back to pending and counts the
// attempt, refusing atomically once the cap is reached.
func (me *RequestService) ResendRequest(sender, receiver string) (*DBFriendRequest, error) {
	ctx, cancel := me.opCtx()
	defer cancel()

	query := bson.M{
		"sender":        sender,
		"receiver":      receiver,
		"status":        Rejected,
		"attempt_count": bson.M{"$lt": MaxAttempts},
	}
	update := bson.M{
		"$set": bson.M{"status": Pending, "updated_at": time.Now()},
		"$inc": bson.M{"attempt_count": 1},
	}
	res := me.requestCollection.FindOneAndUpdate(ctx, query, update, options.FindOneAndUpdate().SetReturnDocument(1))

	var updated *DBFriendRequest
	if err := res.Decode(&updated); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, nil
		}
		return nil, apperr.FromStore(err)
	}

	return updated, nil
}

func (me *RequestService) DeleteRequest(uid string) error {
	ctx, cancel := me.opCtx()
	defer cancel()

	res, err := me.requestCollection.DeleteOne(ctx, bson.M{"uid": uid})
	if err != nil {
		return apperr.FromStore(err)
	}

	if res.DeletedCount == 0 {
		return apperr.NotFound("no request with that id exists")
	}

	return nil
}

func (me *RequestService) FindRequestsTo(receiver string, page, limit int) ([]*DBFriendRequest, error) {
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

	query := bson.M{"receiver": receiver, "status": Pending}

	cursor, err := me.requestCollection.Find(ctx, query, &opt)
	if err != nil {
		return nil, apperr.FromStore(err)
	}
	defer cursor.Close(ctx)

	var requests []*DBFriendRequest
	for cursor.Next(ctx) {
		req := &DBFriendRequest{}
		err := cursor.Decode(req)

		if err != nil {
			return nil, apperr.FromStore(err)
		}

		requests = append(requests, req)
	}

	if err := cursor.Err(); err != nil {
		return nil, apperr.FromStore(err)
	}

	if len(requests) == 0 {
		return []*DBFriendRequest{}, nil
	}

	return requests, nil
}
