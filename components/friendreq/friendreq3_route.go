package friendreq

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"kawan/auth"
	"kawan/components/contacts"
	"kawan/components/notification"
	"kawan/jsonrpc2"
	"kawan/utils"

	"github.com/gin-gonic/gin"
	"github.com/go-logr/logr"
	"github.com/juju/ratelimit"
	"go.mongodb.org/mongo-driver/mongo"
)

var Logger logr.Logger = logr.Discard()

type RequestRoute struct {
	requestController RequestController
	limiter           *ratelimit.Bucket
}

func NewRequestRoute(mongoclient *mongo.Client, ctx context.Context, l logr.Logger, limiter *ratelimit.Bucket, contactService contacts.I_ContactRepo, fanout *notification.Fanout) RequestRoute {
	Logger = l
	Logger.V(2).Info("NewRequestRoute created")
	requestCollection := mongoclient.Database("kawan").Collection("friendrequests")
	requestService := NewRequestService(requestCollection, ctx)
	requestController := NewRequestController(requestService, contactService, fanout)
	return RequestRoute{requestController, limiter}
}

func (me *RequestRoute) InitRouteTo(rg *gin.Engine) {
	router := rg.Group("/friends")
	router.POST("/rpc", me.RateLimit, auth.Validate, me.RPCHandle)
}

func (me *RequestRoute) RateLimit(ctx *gin.Context) {
	// Check if the request is allowed by the rate limiter
	if me.limiter.TakeAvailable(1) == 0 {
		// The request is not allowed, so return an error
		ctx.AbortWithStatus(http.StatusTooManyRequests)
		return
	}
	ctx.Next()
}

func (me *RequestRoute) GetRequestService() I_RequestRepo {
	return me.requestController.requestService
}

func (me *RequestRoute) RPCHandle(ctx *gin.Context) {
	var jreq jsonrpc2.RPCRequest
	if err := ctx.ShouldBindJSON(&jreq); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"status": "jsonrpc fail", "message": err.Error()})
		return
	}

	Logger.V(2).Info(fmt.Sprintf("RPCHandle %s", jreq.Method))

	jres := &jsonrpc2.RPCResponse{
		JSONRPC: "2.0",
		ID:      jreq.ID,
	}

	statuscode := http.StatusBadRequest
	switch jreq.Method {
	case "SendRequest":
		statuscode = me.method_SendRequest(ctx, &jreq, jres)
	case "AcceptRequest":
		statuscode = me.method_Action(ctx, &jreq, jres, me.requestController.AcceptRequest)
	case "RejectRequest":
		statuscode = me.method_Action(ctx, &jreq, jres, me.requestController.RejectRequest)
	case "DeleteRequest":
		statuscode = me.method_DeleteRequest(ctx, &jreq, jres)
	case "GetIncomingRequests":
		statuscode = me.method_GetIncomingRequests(ctx, &jreq, jres)
	default:
		jres.Error = &jsonrpc2.RPCError{Code: http.StatusMethodNotAllowed, Message: "method not allowed"}
	}

	if jres.Error != nil {
		Logger.Error(fmt.Errorf(jres.Error.Message), "response with error")
	}
	ctx.JSON(statuscode, jres)
}

func (me *RequestRoute) claims(ctx *gin.Context, jres *jsonrpc2.RPCResponse) *auth.Claims {
	vuser, ok := ctx.Get("validuser")
	if !ok {
		jres.Error = &jsonrpc2.RPCError{Code: http.StatusUnauthorized, Message: "unauthorized"}
		return nil
	}

	validuser := vuser.(*auth.Claims)
	if validuser.IsExpired() {
		jres.Error = &jsonrpc2.RPCError{Code: http.StatusUnauthorized, Message: "session expired"}
		return nil
	}

	return validuser
}

func (me *RequestRoute) method_SendRequest(ctx *gin.Context, jreq *jsonrpc2.RPCRequest, jres *jsonrpc2.RPCResponse) int {
	validuser := me.claims(ctx, jres)
	if validuser == nil {
		return http.StatusUnauthorized
	}

	var reg *SendRequest
	err := json.Unmarshal(jreq.Params, &reg)
	if err != nil {
		jres.Error = &jsonrpc2.RPCError{Code: http.StatusBadRequest, Message: err.Error()}
		return http.StatusBadRequest
	}

	res, e, code := me.requestController.SendRequest(validuser, reg)
	jres.Result, _ = utils.ToRawMessage(res)
	jres.Error = e

	return code
}

func (me *RequestRoute) method_Action(ctx *gin.Context, jreq *jsonrpc2.RPCRequest, jres *jsonrpc2.RPCResponse, action func(*auth.Claims, *RequestAction) (*DBFriendRequest, *jsonrpc2.RPCError, int)) int {
	validuser := me.claims(ctx, jres)
	if validuser == nil {
		return http.StatusUnauthorized
	}

	var reg *RequestAction
	err := json.Unmarshal(jreq.Params, &reg)
	if err != nil {
		jres.Error = &jsonrpc2.RPCError{Code: http.StatusBadRequest, Message: err.Error()}
		return http.StatusBadRequest
	}

	res, e, code := action(validuser, reg)
	jres.Result, _ = utils.ToRawMessage(res)
	jres.Error = e

	return code
}

func (me *RequestRoute) method_DeleteRequest(ctx *gin.Context, jreq *jsonrpc2.RPCRequest, jres *jsonrpc2.RPCResponse) int {
	validuser := me.claims(ctx, jres)
	if validuser == nil {
		return http.StatusUnauthorized
	}

	var reg *RequestAction
	err := json.Unmarshal(jreq.Params, &reg)
	if err != nil {
		jres.Error = &jsonrpc2.RPCError{Code: http.StatusBadRequest, Message: err.Error()}
		return http.StatusBadRequest
	}

	e, code := me.requestController.DeleteRequest(validuser, reg)
	if e == nil {
		jres.Result, _ = utils.ToRawMessage(gin.H{"status": "deleted"})
	}
	jres.Error = e

	return code
}

func (me *RequestRoute) method_GetIncomingRequests(ctx *gin.Context, jreq *jsonrpc2.RPCRequest, jres *jsonrpc2.RPCResponse) int {
	validuser := me.claims(ctx, jres)
	if validuser == nil {
		return http.StatusUnauthorized
	}

	var reg *GetRequests
	err := json.Unmarshal(jreq.Params, &reg)
	if err != nil {
		jres.Error = &jsonrpc2.RPCError{Code: http.StatusBadRequest, Message: err.Error()}
		return http.StatusBadRequest
	}

	if reg.Page == "" {
		reg.Page = "1"
	}

	if reg.Limit == "" {
		reg.Limit = "10"
	}

	res, e, code := me.requestController.GetIncomingRequests(validuser, reg)
	jres.Result, _ = utils.ToRawMessage(res)
	jres.Error = e

	return code
}
