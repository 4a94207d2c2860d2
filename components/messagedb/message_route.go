package messagedb

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"kawan/auth"
	"kawan/components/convo"
	"kawan/components/disappearing"
	"kawan/jsonrpc2"
	"kawan/utils"

	"github.com/gin-gonic/gin"
	"github.com/go-logr/logr"
	"github.com/juju/ratelimit"
	"go.mongodb.org/mongo-driver/mongo"
)

var Logger logr.Logger = logr.Discard()

type MessageRoute struct {
	msgController MessageController
	limiter       *ratelimit.Bucket
}

func NewMessageRoute(mongoclient *mongo.Client, ctx context.Context, l logr.Logger, limiter *ratelimit.Bucket, convoService convo.I_ConvoRepo) MessageRoute {
	Logger = l
	Logger.V(2).Info("NewMessageRoute created")
	msgCollection := mongoclient.Database("kawan").Collection("messages")
	queueCollection := mongoclient.Database("kawan").Collection("deletion_queue")
	queueService := disappearing.NewQueueService(queueCollection, ctx)
	msgService := NewMessageService(msgCollection, queueService, ctx)
	msgController := NewMessageController(msgService, convoService)
	return MessageRoute{msgController, limiter}
}

func (me *MessageRoute) InitRouteTo(rg *gin.Engine) {
	router := rg.Group("/messages")
	router.POST("/rpc", me.RateLimit, auth.Validate, me.RPCHandle)
}

func (me *MessageRoute) RateLimit(ctx *gin.Context) {
	// Check if the request is allowed by the rate limiter
	if me.limiter.TakeAvailable(1) == 0 {
		// The request is not allowed, so return an error
		ctx.AbortWithStatus(http.StatusTooManyRequests)
		return
	}
	ctx.Next()
}

func (me *MessageRoute) GetMessageService() I_MessageRepo {
	return me.msgController.msgService
}

func (me *MessageRoute) RPCHandle(ctx *gin.Context) {
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
	case "SendMessage":
		statuscode = me.method_SendMessage(ctx, &jreq, jres)
	case "GetMessages":
		statuscode = me.method_GetMessages(ctx, &jreq, jres)
	default:
		jres.Error = &jsonrpc2.RPCError{Code: http.StatusMethodNotAllowed, Message: "method not allowed"}
	}

	if jres.Error != nil {
		Logger.Error(fmt.Errorf(jres.Error.Message), "response with error")
	}
	ctx.JSON(statuscode, jres)
}

func (me *MessageRoute) claims(ctx *gin.Context, jres *jsonrpc2.RPCResponse) *auth.Claims {
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

func (me *MessageRoute) method_SendMessage(ctx *gin.Context, jreq *jsonrpc2.RPCRequest, jres *jsonrpc2.RPCResponse) int {
	validuser := me.claims(ctx, jres)
	if validuser == nil {
		return http.StatusUnauthorized
	}

	var reg *SendMessage
	err := json.Unmarshal(jreq.Params, &reg)
	if err != nil {
		jres.Error = &jsonrpc2.RPCError{Code: http.StatusBadRequest, Message: err.Error()}
		return http.StatusBadRequest
	}

	res, e, code := me.msgController.SendMessage(validuser, reg)
	jres.Result, _ = utils.ToRawMessage(res)
	jres.Error = e

	return code
}

func (me *MessageRoute) method_GetMessages(ctx *gin.Context, jreq *jsonrpc2.RPCRequest, jres *jsonrpc2.RPCResponse) int {
	validuser := me.claims(ctx, jres)
	if validuser == nil {
		return http.StatusUnauthorized
	}

	var reg *GetMessages
	err := json.Unmarshal(jreq.Params, &reg)
	if err != nil {
		jres.Error = &jsonrpc2.RPCError{Code: http.StatusBadRequest, Message: err.Error()}
		return http.StatusBadRequest
	}

	res, e, code := me.msgController.GetMessages(validuser, reg)
	jres.Result, _ = utils.ToRawMessage(res)
	jres.Error = e

	return code
}
