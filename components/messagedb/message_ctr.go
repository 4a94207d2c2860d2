package messagedb

import (
	"fmt"
	"net/http"
	"strconv"

	"kawan/apperr"
	"kawan/auth"
	"kawan/components/convo"
	"kawan/jsonrpc2"
	"kawan/utils"
)

type MessageController struct {
	msgService   I_MessageRepo
	convoService convo.I_ConvoRepo
}

func NewMessageController(msgService I_MessageRepo, convoService convo.I_ConvoRepo) MessageController {
	return MessageController{msgService, convoService}
}

func (me *MessageController) SendMessage(validuser *auth.Claims, req *SendMessage) (*DBMessage, *jsonrpc2.RPCError, int) {
	Logger.V(2).Info(fmt.Sprintf("send message from %s to convo %s", req.UID, req.ConvoID))

	if validuser.GetUID() != req.UID {
		return nil, &jsonrpc2.RPCError{Code: http.StatusBadRequest, Message: "user uid did not match"}, http.StatusOK
	}

	if req.Body == "" {
		return nil, &jsonrpc2.RPCError{Code: http.StatusBadRequest, Message: "message body is empty"}, http.StatusOK
	}

	if req.ExpireAfter < 0 {
		return nil, &jsonrpc2.RPCError{Code: http.StatusBadRequest, Message: "expire_after cannot be negative"}, http.StatusOK
	}

	ok, err := me.convoService.CheckParticipantExist(req.ConvoID, req.UID)
	if err != nil {
		return nil, jsonrpc2.ErrorFrom(err), statusFor(err)
	}
	if !ok {
		return nil, &jsonrpc2.RPCError{Code: http.StatusForbidden, Message: "not a participant"}, http.StatusOK
	}

	res, err := me.msgService.AddMessage(&CreateMessage{
		UID:         utils.GetRandomUUID(),
		ConvoID:     req.ConvoID,
		Sender:      req.UID,
		Body:        req.Body,
		Status:      StatusSent,
		ExpireAfter: req.ExpireAfter,
	})
	if err != nil {
		return nil, jsonrpc2.ErrorFrom(err), statusFor(err)
	}

	return res, nil, http.StatusCreated
}

func (me *MessageController) GetMessages(validuser *auth.Claims, req *GetMessages) ([]*DBMessage, *jsonrpc2.RPCError, int) {
	if validuser.GetUID() != req.UID {
		return nil, &jsonrpc2.RPCError{Code: http.StatusBadRequest, Message: "user uid did not match"}, http.StatusOK
	}

	ok, err := me.convoService.CheckParticipantExist(req.ConvoID, req.UID)
	if err != nil {
		return nil, jsonrpc2.ErrorFrom(err), statusFor(err)
	}
	if !ok {
		return nil, &jsonrpc2.RPCError{Code: http.StatusForbidden, Message: "not a participant"}, http.StatusOK
	}

	page, _ := strconv.Atoi(req.Page)
	limit, _ := strconv.Atoi(req.Limit)

	res, err := me.msgService.FindMessages(req.ConvoID, page, limit)
	if err != nil {
		return nil, jsonrpc2.ErrorFrom(err), statusFor(err)
	}

	return res, nil, http.StatusOK
}

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
