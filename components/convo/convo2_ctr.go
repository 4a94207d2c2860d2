package convo

import (
	"fmt"
	"net/http"

	"kawan/apperr"
	"kawan/auth"
	"kawan/components/contacts"
	"kawan/components/notification"
	"kawan/components/typing"
	"kawan/jsonrpc2"
	"kawan/utils"
)

type ConvoController struct {
	convoService   I_ConvoRepo
	contactService contacts.I_ContactRepo
	typingService  typing.I_TypingRepo
	fanout         *notification.Fanout
}

func NewConvoController(convoService I_ConvoRepo, contactService contacts.I_ContactRepo, typingService typing.I_TypingRepo, fanout *notification.Fanout) ConvoController {
	return ConvoController{convoService, contactService, typingService, fanout}
}

func (me *ConvoController) GetOrCreateDirect(validuser *auth.Claims, req *GetOrCreateDirect) (*DBConversation, *jsonrpc2.RPCError, int) {
	Logger.V(2).Info(fmt.Sprintf("get or create direct %s with %s", req.UID, req.Peer))

	if validuser.GetUID() != req.UID {
		return nil, &jsonrpc2.RPCError{Code: http.StatusBadRequest, Message: "user uid did not match"}, http.StatusOK
	}

	if ok := utils.IsValidUid(req.Peer); !ok {
		return nil, &jsonrpc2.RPCError{Code: http.StatusBadRequest, Message: "peer uid invalid"}, http.StatusOK
	}

	if req.UID == req.Peer {
		return nil, &jsonrpc2.RPCError{Code: http.StatusBadRequest, Message: "cannot chat with yourself"}, http.StatusOK
	}

	res, err := me.getOrCreateDirect(req.UID, req.Peer)
	if err != nil {
		return nil, jsonrpc2.ErrorFrom(err), statusFor(err)
	}

	return res, nil, http.StatusOK
}

func (me *ConvoController) getOrCreateDirect(userA, userB string) (*DBConversation, error) {
	edge, err := me.contactService.FindContact(userA, userB)
	if err != nil {
		return nil, err
	}
	if edge == nil || !edge.CanChat {
		return nil, apperr.NotFriends("you are not friends yet")
	}

	existing, err := me.convoService.FindDirectConversation(userA, userB)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return existing, nil
	}

	created, err := me.convoService.CreateConversation(
		&Conversation{
			UID:       utils.GetRandomUUID(),
			Type:      Direct,
			PairKey:   utils.PairKey(userA, userB),
			CreatedBy: userA,
		},
		[]*Participant{
			{UserID: userA, Role: RoleMember},
			{UserID: userB, Role: RoleMember},
		},
	)
	if err != nil {
		// lost the provisioning race, the winner's row is there now
		if apperr.Is(err, apperr.CodeUniquenessConflict) {
			winner, ferr := me.convoService.FindDirectConversation(userA, userB)
			if ferr != nil {
				return nil, ferr
			}
			if winner != nil {
				return winner, nil
			}
			return nil, err
		}
		return nil, err
	}

	me.fanout.Publish(notification.Event{
		Type:       notification.EventConversationCreated,
		Subject:    userA,
		Object:     created.UID,
		Recipients: []string{userB},
		Title:      "New conversation",
		Content:    "You can now chat.",
	})

	return created, nil
}

func (me *ConvoController) CreateGroup(validuser *auth.Claims, req *CreateGroup) (*DBConversation, *jsonrpc2.RPCError, int) {
	Logger.V(2).Info(fmt.Sprintf("create group %q by %s", req.Name, req.UID))

	if validuser.GetUID() != req.UID {
		return nil, &jsonrpc2.RPCError{Code: http.StatusBadRequest, Message: "user uid did not match"}, http.StatusOK
	}

	if _, err := utils.IsValidName(req.Name); err != nil {
		return nil, &jsonrpc2.RPCError{Code: http.StatusBadRequest, Message: err.Error()}, http.StatusOK
	}

	res, err := me.createGroup(req.UID, req.Participants, req.Name)
	if err != nil {
		return nil, jsonrpc2.ErrorFrom(err), statusFor(err)
	}

	return res, nil, http.StatusCreated
}

func (me *ConvoController) createGroup(creator string, participantIds []string, name string) (*DBConversation, error) {
	if len(participantIds) == 0 {
		return nil, apperr.EmptyParticipants("group needs at least one participant")
	}

	members := []*Participant{{UserID: creator, Role: RoleAdmin}}
	recipients := []string{}
	seen := map[string]bool{creator: true}
	for _, id := range participantIds {
		if seen[id] {
			continue
		}
		if ok := utils.IsValidUid(id); !ok {
			return nil, apperr.InvalidArg("participant uid invalid")
		}
		seen[id] = true
		members = append(members, &Participant{UserID: id, Role: RoleMember})
		recipients = append(recipients, id)
	}

	created, err := me.convoService.CreateConversation(
		&Conversation{
			UID:       utils.GetRandomUUID(),
			Type:      Group,
			Name:      name,
			CreatedBy: creator,
		},
		members,
	)
	if err != nil {
		return nil, err
	}

	me.fanout.Publish(notification.Event{
		Type:       notification.EventConversationCreated,
		Subject:    creator,
		Object:     created.UID,
		Recipients: recipients,
		Title:      "New group",
		Content:    fmt.Sprintf("You were added to %q.", name),
	})

	return created, nil
}

func (me *ConvoController) GetConversation(validuser *auth.Claims, req *GetConversation) (*DBConversation, *jsonrpc2.RPCError, int) {
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

	convo, err := me.convoService.FindConversationByUID(req.ConvoID)
	if err != nil {
		return nil, jsonrpc2.ErrorFrom(err), statusFor(err)
	}
	if convo == nil {
		err := apperr.NotFound("no conversation with that id exists")
		return nil, jsonrpc2.ErrorFrom(err), http.StatusOK
	}

	return convo, nil, http.StatusOK
}

func (me *ConvoController) SetTyping(validuser *auth.Claims, req *SetTyping) (*jsonrpc2.RPCError, int) {
	if validuser.GetUID() != req.UID {
		return &jsonrpc2.RPCError{Code: http.StatusBadRequest, Message: "user uid did not match"}, http.StatusOK
	}

	ok, err := me.convoService.CheckParticipantExist(req.ConvoID, req.UID)
	if err != nil {
		return jsonrpc2.ErrorFrom(err), statusFor(err)
	}
	if !ok {
		return &jsonrpc2.RPCError{Code: http.StatusForbidden, Message: "not a participant"}, http.StatusOK
	}

	if err := me.typingService.UpsertTypingIndicator(req.ConvoID, req.UID, req.IsTyping); err != nil {
		// typing state tolerates lost updates, report but keep the 200
		Logger.Error(err, "error upserting typing indicator")
		return jsonrpc2.ErrorFrom(err), http.StatusOK
	}

	return nil, http.StatusOK
}

func (me *ConvoController) GetTyping(validuser *auth.Claims, req *GetTyping) ([]string, *jsonrpc2.RPCError, int) {
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

	users, err := me.typingService.ListTyping(req.ConvoID)
	if err != nil {
		return nil, jsonrpc2.ErrorFrom(err), statusFor(err)
	}

	return users, nil, http.StatusOK
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
