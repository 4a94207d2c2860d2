package convo

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"kawan/auth"
	"kawan/components/contacts"
	"kawan/components/notification"
	"kawan/components/typing"
	"kawan/jsonrpc2"
	"kawan/utils"

	"github.com/gin-gonic/gin"
	"github.com/go-logr/logr"
	"github.com/juju/ratelimit"
	"go.mongodb.org/mongo-driver/mongo"
)

var Logger logr.Logger = logr.Discard()

type ConvoRoute struct {
	convoController ConvoController
	limiter         *ratelimit.Bucket
}

func NewConvoRoute(mongoclient *mongo.Client, ctx context.Context, l logr.Logger, limiter *ratelimit.Bucket, contactService contacts.I_ContactRepo, typingService typing.I_TypingRepo, fanout *notification.Fanout) ConvoRoute {
	Logger = l
	Logger.V(2).Info("NewConvoRoute created")
	convoCollection := mongoclient.Database("kawan").Collection("conversations")
	participantCollection := mongoclient.Database("kawan").Collection("participants")
	convoService := NewConvoService(convoCollection, participantCollection, ctx)
	convoController := NewConvoController(convoService, contactService, typingService, fanout)
	return ConvoRoute{convoController, limiter}
}

func (me *ConvoRoute) InitRouteTo(rg *gin.Engine) {
	router := rg.Group("/conversations")
	router.POST("/rpc", me.RateLimit, auth.Validate, me.RPCHandle)
}

func (me *ConvoRoute) RateLimit(ctx *gin.Context) {
	// Check if the request is allowed by the rate limiter
	if me.limiter.TakeAvailable(1) == 0 {
		// The request is not allowed, so return an error
		ctx.AbortWithStatus(http.StatusTooManyRequests)
		return
	}
	ctx.Next()
}

func (me *ConvoRoute) GetConvoService() I_ConvoRepo {
	return me.convoController.convoService
}

func (me *ConvoRoute) RPCHandle(ctx *gin.Context) {
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
	case "GetOrCreateDirect":
		statuscode = me.method_GetOrCreateDirect(ctx, &jreq, jres)
	case "CreateGroup":
		statuscode = me.method_CreateGroup(ctx, &jreq, jres)
	case "GetConversation":
		statuscode = me.method_GetConversation(ctx, &jreq, jres)
	case "SetTyping":
		statuscode = me.method_SetTyping(ctx, &jreq, jres)
	case "GetTyping":
		statuscode = me.method_GetTyping(ctx, &jreq, jres)
	default:
		jres.Error = &jsonrpc2.RPCError{Code: http.StatusMethodNotAllowed, Message: "method not allowed"}
	}

	if jres.Error != nil {
		Logger.Error(fmt.Errorf(jres.Error.Message), "response with error")
	}
	ctx.JSON(statuscode, jres)
}

func (me *ConvoRoute) claims(ctx *gin.Context, jres *jsonrpc2.RPCResponse) *auth.Claims {
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

func (me *ConvoRoute) method_GetOrCreateDirect(ctx *gin.Context, jreq *jsonrpc2.RPCRequest, jres *jsonrpc2.RPCResponse) int {
	validuser := me.claims(ctx, jres)
	if validuser == nil {
		return http.StatusUnauthorized
	}

	var reg *GetOrCreateDirect
	err := json.Unmarshal(jreq.Params, &reg)
	if err != nil {
		jres.Error = &jsonrpc2.RPCError{Code: http.StatusBadRequest, Message: err.Error()}
		return http.StatusBadRequest
	}

	res, e, code := me.convoController.GetOrCreateDirect(validuser, reg)
	jres.Result, _ = utils.ToRawMessage(res)
	jres.Error = e

	return code
}

func (me *ConvoRoute) method_CreateGroup(ctx *gin.Context, jreq *jsonrpc2.RPCRequest, jres *jsonrpc2.RPCResponse) int {
	validuser := me.claims(ctx, jres)
	if validuser == nil {
		return http.StatusUnauthorized
	}

	var reg *CreateGroup
	err := json.Unmarshal(jreq.Params, &reg)
	if err != nil {
		jres.Error = &jsonrpc2.RPCError{Code: http.StatusBadRequest, Message: err.Error()}
		return http.StatusBadRequest
	}

	res, e, code := me.convoController.CreateGroup(validuser, reg)
	jres.Result, _ = utils.ToRawMessage(res)
	jres.Error = e

	return code
}

func (me *ConvoRoute) method_GetConversation(ctx *gin.Context, jreq *jsonrpc2.RPCRequest, jres *jsonrpc2.RPCResponse) int {
	validuser := me.claims(ctx, jres)
	if validuser == nil {
		return http.StatusUnauthorized
	}

	var reg *GetConversation
	err := json.Unmarshal(jreq.Params, &reg)
	if err != nil {
		jres.Error = &jsonrpc2.RPCError{Code: http.StatusBadRequest, Message: err.Error()}
		return http.StatusBadRequest
	}

	res, e, code := me.convoController.GetConversation(validuser, reg)
	jres.Result, _ = utils.ToRawMessage(res)
	jres.Error = e

	return code
}

func (me *ConvoRoute) method_SetTyping(ctx *gin.Context, jreq *jsonrpc2.RPCRequest, jres *jsonrpc2.RPCResponse) int {
	validuser := me.claims(ctx, jres)
	if validuser == nil {
		return http.StatusUnauthorized
	}

	var reg *SetTyping
	err := json.Unmarshal(jreq.Params, &reg)
	if err != nil {
		jres.Error = &jsonrpc2.RPCError{Code: http.StatusBadRequest, Message: err.Error()}
		return http.StatusBadRequest
	}

	e, code := me.convoController.SetTyping(validuser, reg)
	if e == nil {
		jres.Result, _ = utils.ToRawMessage(gin.H{"status": "ok"})
	}
	jres.Error = e

	return code
}

func (me *ConvoRoute) method_GetTyping(ctx *gin.Context, jreq *jsonrpc2.RPCRequest, jres *jsonrpc2.RPCResponse) int {
	validuser := me.claims(ctx, jres)
	if validuser == nil {
		return http.StatusUnauthorized
	}

	var reg *GetTyping
	err := json.Unmarshal(jreq.Params, &reg)
	if err != nil {
		jres.Error = &jsonrpc2.RPCError{Code: http.StatusBadRequest, Message: err.Error()}
		return http.StatusBadRequest
	}

	res, e, code := me.convoController.GetTyping(validuser, reg)
	jres.Result, _ = utils.ToRawMessage(res)
	jres.Error = e

	return code
}
