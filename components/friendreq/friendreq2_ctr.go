package friendreq

import (
	"fmt"
	"net/http"
	"strconv"

	"kawan/apperr"
	"kawan/auth"
	"kawan/components/contacts"
	"kawan/components/notification"
	"kawan/jsonrpc2"
	"kawan/utils"
)

type RequestController struct {
	requestService I_RequestRepo
	contactService contacts.I_ContactRepo
	fanout         *notification.Fanout
}

func NewRequestController(requestService I_RequestRepo, contactService contacts.I_ContactRepo, fanout *notification.Fanout) RequestController {
	return RequestController{requestService, contactService, fanout}
}

func (me *RequestController) SendRequest(validuser *auth.Claims, req *SendRequest) (*DBFriendRequest, *jsonrpc2.RPCError, int) {
	Logger.V(2).Info(fmt.Sprintf("send friend request %s to %s", req.UID, req.To))

	if validuser.GetUID() != req.UID {
		return nil, &jsonrpc2.RPCError{Code: http.StatusBadRequest, Message: "user uid did not match"}, http.StatusOK
	}

	if ok := utils.IsValidUid(req.To); !ok {
		return nil, &jsonrpc2.RPCError{Code: http.StatusBadRequest, Message: "receiver uid invalid"}, http.StatusOK
	}

	if req.UID == req.To {
		return nil, &jsonrpc2.RPCError{Code: http.StatusBadRequest, Message: "cannot friend yourself"}, http.StatusOK
	}

	res, err := me.send(req.UID, req.To)
	if err != nil {
		return nil, jsonrpc2.ErrorFrom(err), statusFor(err)
	}

	return res, nil, http.StatusCreated
}

func (me *RequestController) send(sender, receiver string) (*DBFriendRequest, error) {
	edge, err := me.contactService.FindContact(sender, receiver)
	if err != nil {
		return nil, err
	}
	if edge != nil && edge.Status == contacts.Accepted {
		return nil, apperr.AlreadyFriends("you are already be friends")
	}

	// A pending request coming the other way means both sides want the
	// same friendship. Resolve the collision by accepting theirs instead
	// of opening a second request chain.
	incoming, err := me.requestService.FindRequestBetween(receiver, sender)
	if err != nil {
		return nil, err
	}
	if incoming != nil && incoming.Status == Pending {
		return me.accept(incoming)
	}

	existing, err := me.requestService.FindRequestBetween(sender, receiver)
	if err != nil {
		return nil, err
	}

	if existing == nil {
		created, err := me.requestService.CreateRequest(&FriendRequest{
			UID:          utils.GetRandomUUID(),
			Sender:       sender,
			Receiver:     receiver,
			Status:       Pending,
			AttemptCount: 1,
		})
		if err != nil {
			if apperr.Is(err, apperr.CodeUniquenessConflict) {
				// lost a race against an identical send
				return nil, apperr.RequestPending("friend request already sent")
			}
			return nil, err
		}

		me.fanout.Publish(notification.Event{
			Type:       notification.EventRequestCreated,
			Subject:    sender,
			Object:     created.UID,
			Recipients: []string{receiver},
			Title:      "Friend request",
			Content:    "You received a friend request.",
		})
		return created, nil
	}

	switch existing.Status {
	case Pending:
		return nil, apperr.RequestPending("friend request already sent")
	case Accepted:
		return nil, apperr.AlreadyFriends("you are already be friends")
	case Rejected:
		if existing.AttemptCount >= MaxAttempts {
			return nil, apperr.AttemptsExhausted("friend request attempts exhausted")
		}

		resent, err := me.requestService.ResendRequest(sender, receiver)
		if err != nil {
			return nil, err
		}
		if resent == nil {
			// the row moved under us, report what it is now
			return nil, apperr.RequestPending("friend request already sent")
		}

		me.fanout.Publish(notification.Event{
			Type:       notification.EventRequestCreated,
			Subject:    sender,
			Object:     resent.UID,
			Recipients: []string{receiver},
			Title:      "Friend request",
			Content:    "You received a friend request.",
		})
		return resent, nil
	default:
		return nil, apperr.Internal("unknown request status", nil)
	}
}

func (me *RequestController) AcceptRequest(validuser *auth.Claims, req *RequestAction) (*DBFriendRequest, *jsonrpc2.RPCError, int) {
	Logger.V(2).Info(fmt.Sprintf("accept friend request %s", req.RequestID))

	if validuser.GetUID() != req.UID {
		return nil, &jsonrpc2.RPCError{Code: http.StatusBadRequest, Message: "user uid did not match"}, http.StatusOK
	}

	dbreq, err := me.requestService.FindRequestByUID(req.RequestID)
	if err != nil {
		return nil, jsonrpc2.ErrorFrom(err), statusFor(err)
	}
	if dbreq == nil {
		err := apperr.NotFound("no request with that id exists")
		return nil, jsonrpc2.ErrorFrom(err), http.StatusOK
	}

	if dbreq.Receiver != req.UID {
		return nil, &jsonrpc2.RPCError{Code: http.StatusForbidden, Message: "only the receiver may accept"}, http.StatusOK
	}

	accepted, err := me.accept(dbreq)
	if err != nil {
		return nil, jsonrpc2.ErrorFrom(err), statusFor(err)
	}

	return accepted, nil, http.StatusOK
}

// accept performs the pending->accepted transition and derives both contact
// edges. The conditional transition guarantees a single winner; the contact
// pair write is atomic on its own. A request that is already accepted is
// re-derived instead of rejected, so a retry after a failed pair write can
// finish the job.
func (me *RequestController) accept(dbreq *DBFriendRequest) (*DBFriendRequest, error) {
	accepted, err := me.requestService.TransitionStatus(dbreq.UID, Pending, Accepted)
	if err != nil {
		return nil, err
	}
	if accepted == nil {
		current, err := me.requestService.FindRequestByUID(dbreq.UID)
		if err != nil {
			return nil, err
		}
		if current == nil || current.Status != Accepted {
			return nil, apperr.NotPending("request is not pending")
		}
		// an earlier accept flipped the status but may have died before
		// the edges were written; the upsert is idempotent either way
		if err := me.contactService.UpsertContactPair(current.Sender, current.Receiver, contacts.Accepted, true); err != nil {
			Logger.Error(err, "error deriving contact pair", "request", current.UID)
			return nil, err
		}
		return current, nil
	}

	if err := me.contactService.UpsertContactPair(accepted.Sender, accepted.Receiver, contacts.Accepted, true); err != nil {
		Logger.Error(err, "error deriving contact pair", "request", accepted.UID)
		return nil, err
	}

	me.fanout.Publish(notification.Event{
		Type:       notification.EventRequestAccepted,
		Subject:    accepted.Receiver,
		Object:     accepted.UID,
		Recipients: []string{accepted.Sender},
		Title:      "Friend request accepted",
		Content:    "Your friend request was accepted.",
	})

	return accepted, nil
}

func (me *RequestController) RejectRequest(validuser *auth.Claims, req *RequestAction) (*DBFriendRequest, *jsonrpc2.RPCError, int) {
	Logger.V(2).Info(fmt.Sprintf("reject friend request %s", req.RequestID))

	if validuser.GetUID() != req.UID {
		return nil, &jsonrpc2.RPCError{Code: http.StatusBadRequest, Message: "user uid did not match"}, http.StatusOK
	}

	dbreq, err := me.requestService.FindRequestByUID(req.RequestID)
	if err != nil {
		return nil, jsonrpc2.ErrorFrom(err), statusFor(err)
	}
	if dbreq == nil {
		err := apperr.NotFound("no request with that id exists")
		return nil, jsonrpc2.ErrorFrom(err), http.StatusOK
	}

	if dbreq.Receiver != req.UID {
		return nil, &jsonrpc2.RPCError{Code: http.StatusForbidden, Message: "only the receiver may reject"}, http.StatusOK
	}

	rejected, err := me.requestService.TransitionStatus(dbreq.UID, Pending, Rejected)
	if err != nil {
		return nil, jsonrpc2.ErrorFrom(err), statusFor(err)
	}
	if rejected == nil {
		err := apperr.NotPending("request is not pending")
		return nil, jsonrpc2.ErrorFrom(err), http.StatusOK
	}

	me.fanout.Publish(notification.Event{
		Type:       notification.EventRequestRejected,
		Subject:    rejected.Receiver,
		Object:     rejected.UID,
		Recipients: []string{rejected.Sender},
		Title:      "Friend request",
		Content:    "Your friend request was declined.",
	})

	return rejected, nil, http.StatusOK
}

func (me *RequestController) DeleteRequest(validuser *auth.Claims, req *RequestAction) (*jsonrpc2.RPCError, int) {
	Logger.V(2).Info(fmt.Sprintf("delete friend request %s", req.RequestID))

	if validuser.GetUID() != req.UID {
		return &jsonrpc2.RPCError{Code: http.StatusBadRequest, Message: "user uid did not match"}, http.StatusOK
	}

	dbreq, err := me.requestService.FindRequestByUID(req.RequestID)
	if err != nil {
		return jsonrpc2.ErrorFrom(err), statusFor(err)
	}
	if dbreq == nil {
		err := apperr.NotFound("no request with that id exists")
		return jsonrpc2.ErrorFrom(err), http.StatusOK
	}

	if dbreq.Sender != req.UID && dbreq.Receiver != req.UID {
		return &jsonrpc2.RPCError{Code: http.StatusForbidden, Message: "not a party to this request"}, http.StatusOK
	}

	if err := me.requestService.DeleteRequest(dbreq.UID); err != nil {
		return jsonrpc2.ErrorFrom(err), statusFor(err)
	}

	return nil, http.StatusOK
}

func (me *RequestController) GetIncomingRequests(validuser *auth.Claims, req *GetRequests) ([]*DBFriendRequest, *jsonrpc2.RPCError, int) {
	Logger.V(2).Info(fmt.Sprintf("get incoming requests of %s", req.UID))

	if validuser.GetUID() != req.UID {
		return nil, &jsonrpc2.RPCError{Code: http.StatusBadRequest, Message: "user uid did not match"}, http.StatusOK
	}

	intPage, err := strconv.Atoi(req.Page)
	if err != nil {
		return nil, &jsonrpc2.RPCError{Code: http.StatusBadRequest, Message: "invalid page input"}, http.StatusOK
	}

	intLimit, err := strconv.Atoi(req.Limit)
	if err != nil {
		return nil, &jsonrpc2.RPCError{Code: http.StatusBadRequest, Message: "invalid limit input"}, http.StatusOK
	}

	requests, err := me.requestService.FindRequestsTo(req.UID, intPage, intLimit)
	if err != nil {
		return nil, jsonrpc2.ErrorFrom(err), statusFor(err)
	}

	return requests, nil, http.StatusOK
}

// statusFor keeps deterministic rejections inside a 200 envelope the way
// the rest of the rpc surface does, while store trouble surfaces as the
// transport status.
func statusFor(err error) int {
	switch apperr.CodeOf(err) {
	case apperr.CodeStoreUnavailable:
		return http.StatusServiceUnavailable
	case apperr.CodeInternal, apperr.CodeUnknown:
		return http.StatusInternalServerError
	default:
		return http.StatusOK
	}
}
