package contacts

import (
	"fmt"
	"net/http"
	"strconv"

	"kawan/auth"
	"kawan/jsonrpc2"
	"kawan/utils"
)

type ContactController struct {
	contactService I_ContactRepo
}

func NewContactController(contactService I_ContactRepo) ContactController {
	return ContactController{contactService}
}

func (me *ContactController) GetMyContacts(validuser *auth.Claims, req *GetContacts) ([]*DBContact, *jsonrpc2.RPCError, int) {
	Logger.V(2).Info(fmt.Sprintf("get contacts of %s", req.UID))

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

	contacts, err := me.contactService.FindMyContacts(req.UID, intPage, intLimit)
	if err != nil {
		return nil, jsonrpc2.ErrorFrom(err), jsonrpc2.StatusOf(err)
	}

	return contacts, nil, http.StatusOK
}

func (me *ContactController) SetFavorite(validuser *auth.Claims, req *SetFavorite) (*DBContact, *jsonrpc2.RPCError, int) {
	Logger.V(2).Info(fmt.Sprintf("set favorite %s -> %s = %t", req.UID, req.Peer, req.Favorite))

	if validuser.GetUID() != req.UID {
		return nil, &jsonrpc2.RPCError{Code: http.StatusBadRequest, Message: "user uid did not match"}, http.StatusOK
	}

	if ok := utils.IsValidUid(req.Peer); !ok {
		return nil, &jsonrpc2.RPCError{Code: http.StatusBadRequest, Message: "peer uid invalid"}, http.StatusOK
	}

	updated, err := me.contactService.SetFavorite(req.UID, req.Peer, req.Favorite)
	if err != nil {
		return nil, jsonrpc2.ErrorFrom(err), http.StatusOK
	}

	return updated, nil, http.StatusOK
}
