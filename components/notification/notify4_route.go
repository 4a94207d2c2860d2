package notification

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"kawan/auth"
	"kawan/jsonrpc2"
	"kawan/utils"

	"github.com/gin-gonic/gin"
	"github.com/go-logr/logr"
	"github.com/juju/ratelimit"
	"go.mongodb.org/mongo-driver/mongo"
)

var Logger logr.Logger = logr.Discard()

type NotifRoute struct {
	notifService I_NotifRepo
	fanout       *Fanout
	limiter      *ratelimit.Bucket
}

func NewNotifRoute(mongoclient *mongo.Client, ctx context.Context, l logr.Logger, limiter *ratelimit.Bucket, push PushSender, inapp InAppSender) NotifRoute {
	Logger = l
	Logger.V(2).Info("NewNotifRoute created")
	notifCollection := mongoclient.Database("kawan").Collection("notifications")
	tokenCollection := mongoclient.Database("kawan").Collection("pushtokens")
	notifService := NewNotifRepository(notifCollection, tokenCollection, ctx)
	fanout := NewFanout(notifService, push, inapp)
	return NotifRoute{notifService, fanout, limiter}
}

func (me *NotifRoute) GetFanout() *Fanout {
	return me.fanout
}

func (me *NotifRoute) InitRouteTo(rg *gin.Engine) {
	router := rg.Group("/notifications")
	router.POST("/rpc", me.RateLimit, auth.Validate, me.RPCHandle)
}

func (me *NotifRoute) RateLimit(ctx *gin.Context) {
	// Check if the request is allowed by the rate limiter
	if me.limiter.TakeAvailable(1) == 0 {
		// The request is not allowed, so return an error
		ctx.AbortWithStatus(http.StatusTooManyRequests)
		return
	}
	ctx.Next()
}

func (me *NotifRoute) RPCHandle(ctx *gin.Context) {
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
	case "GetNotifications":
		statuscode = me.method_GetNotifications(ctx, &jreq, jres)
	case "MarkRead":
		statuscode = me.method_MarkRead(ctx, &jreq, jres)
	case "RegisterPushToken":
		statuscode = me.method_RegisterPushToken(ctx, &jreq, jres)
	default:
		jres.Error = &jsonrpc2.RPCError{Code: http.StatusMethodNotAllowed, Message: "method not allowed"}
	}

	if jres.Error != nil {
		Logger.Error(fmt.Errorf(jres.Error.Message), "response with error")
	}
	ctx.JSON(statuscode, jres)
}

func (me *NotifRoute) claims(ctx *gin.Context, jres *jsonrpc2.RPCResponse) *auth.Claims {
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

func (me *NotifRoute) method_GetNotifications(ctx *gin.Context, jreq *jsonrpc2.RPCRequest, jres *jsonrpc2.RPCResponse) int {
	validuser := me.claims(ctx, jres)
	if validuser == nil {
		return http.StatusUnauthorized
	}

	var reg *GetNotifications
	err := json.Unmarshal(jreq.Params, &reg)
	if err != nil {
		jres.Error = &jsonrpc2.RPCError{Code: http.StatusBadRequest, Message: err.Error()}
		return http.StatusBadRequest
	}

	if validuser.GetUID() != reg.UID {
		jres.Error = &jsonrpc2.RPCError{Code: http.StatusBadRequest, Message: "ilegal jwt"}
		return http.StatusBadRequest
	}

	page, _ := strconv.Atoi(reg.Page)
	limit, _ := strconv.Atoi(reg.Limit)

	res, err := me.notifService.FindNotifsByRecipient(reg.UID, page, limit)
	if err != nil {
		jres.Error = jsonrpc2.ErrorFrom(err)
		return jsonrpc2.StatusOf(err)
	}

	jres.Result, _ = utils.ToRawMessage(res)
	return http.StatusOK
}

func (me *NotifRoute) method_MarkRead(ctx *gin.Context, jreq *jsonrpc2.RPCRequest, jres *jsonrpc2.RPCResponse) int {
	validuser := me.claims(ctx, jres)
	if validuser == nil {
		return http.StatusUnauthorized
	}

	var reg struct {
		UID string `json:"uid"`
		ID  string `json:"id"`
	}
	if err := json.Unmarshal(jreq.Params, &reg); err != nil {
		jres.Error = &jsonrpc2.RPCError{Code: http.StatusBadRequest, Message: err.Error()}
		return http.StatusBadRequest
	}

	if validuser.GetUID() != reg.UID {
		jres.Error = &jsonrpc2.RPCError{Code: http.StatusBadRequest, Message: "ilegal jwt"}
		return http.StatusBadRequest
	}

	if err := me.notifService.MarkRead(reg.UID, reg.ID); err != nil {
		jres.Error = jsonrpc2.ErrorFrom(err)
		return http.StatusOK
	}

	jres.Result, _ = utils.ToRawMessage(gin.H{"status": "ok"})
	return http.StatusOK
}

func (me *NotifRoute) method_RegisterPushToken(ctx *gin.Context, jreq *jsonrpc2.RPCRequest, jres *jsonrpc2.RPCResponse) int {
	validuser := me.claims(ctx, jres)
	if validuser == nil {
		return http.StatusUnauthorized
	}

	var reg *RegisterToken
	if err := json.Unmarshal(jreq.Params, &reg); err != nil {
		jres.Error = &jsonrpc2.RPCError{Code: http.StatusBadRequest, Message: err.Error()}
		return http.StatusBadRequest
	}

	if validuser.GetUID() != reg.UID {
		jres.Error = &jsonrpc2.RPCError{Code: http.StatusBadRequest, Message: "ilegal jwt"}
		return http.StatusBadRequest
	}

	if reg.Token == "" {
		jres.Error = &jsonrpc2.RPCError{Code: http.StatusBadRequest, Message: "token required"}
		return http.StatusBadRequest
	}

	switch reg.Platform {
	case "android", "ios":
	default:
		jres.Error = &jsonrpc2.RPCError{Code: http.StatusBadRequest, Message: "platform must be ios or android"}
		return http.StatusBadRequest
	}

	if err := me.notifService.UpsertPushToken(&PushToken{User: reg.UID, Token: reg.Token, Platform: reg.Platform}); err != nil {
		jres.Error = jsonrpc2.ErrorFrom(err)
		return jsonrpc2.StatusOf(err)
	}

	jres.Result, _ = utils.ToRawMessage(gin.H{"status": "ok"})
	return http.StatusOK
}
