package contacts

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"kawan/auth"
	"kawan/jsonrpc2"
	"kawan/utils"

	"github.com/gin-gonic/gin"
	"github.com/go-logr/logr"
	"github.com/juju/ratelimit"
	"go.mongodb.org/mongo-driver/mongo"
)

var Logger logr.Logger = logr.Discard()

type ContactRoute struct {
	contactController ContactController
	limiter           *ratelimit.Bucket
}

func NewContactRoute(mongoclient *mongo.Client, ctx context.Context, l logr.Logger, limiter *ratelimit.Bucket) ContactRoute {
	Logger = l
	Logger.V(2).Info("NewContactRoute created")
	contactCollection := mongoclient.Database("kawan").Collection("contact")
	contactService := NewContactService(mongoclient, contactCollection, ctx)
	contactController := NewContactController(contactService)
	return ContactRoute{contactController, limiter}
}

func (me *ContactRoute) InitRouteTo(rg *gin.Engine) {
	router := rg.Group("/contacts")
	router.POST("/rpc", me.RateLimit, auth.Validate, me.RPCHandle)
}

func (me *ContactRoute) RateLimit(ctx *gin.Context) {
	// Check if the request is allowed by the rate limiter
	if me.limiter.TakeAvailable(1) == 0 {
		// The request is not allowed, so return an error
		ctx.AbortWithStatus(http.StatusTooManyRequests)
		return
	}
	ctx.Next()
}

func (me *ContactRoute) GetContactService() I_ContactRepo {
	return me.contactController.contactService
}

func (me *ContactRoute) RPCHandle(ctx *gin.Context) {
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
	case "GetContacts":
		statuscode = me.method_GetContacts(ctx, &jreq, jres)
	case "SetFavorite":
		statuscode = me.method_SetFavorite(ctx, &jreq, jres)
	default:
		jres.Error = &jsonrpc2.RPCError{Code: http.StatusMethodNotAllowed, Message: "method not allowed"}
	}

	if jres.Error != nil {
		Logger.Error(fmt.Errorf(jres.Error.Message), "response with error")
	}
	ctx.JSON(statuscode, jres)
}

func (me *ContactRoute) method_GetContacts(ctx *gin.Context, jreq *jsonrpc2.RPCRequest, jres *jsonrpc2.RPCResponse) int {
	vuser, ok := ctx.Get("validuser")
	if !ok {
		jres.Error = &jsonrpc2.RPCError{Code: http.StatusUnauthorized, Message: "unauthorized"}
		return http.StatusUnauthorized
	}

	validuser := vuser.(*auth.Claims)
	if validuser.IsExpired() {
		jres.Error = &jsonrpc2.RPCError{Code: http.StatusUnauthorized, Message: "session expired"}
		return http.StatusUnauthorized
	}

	var reg *GetContacts
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

	res, e, code := me.contactController.GetMyContacts(validuser, reg)
	jres.Result, _ = utils.ToRawMessage(res)
	jres.Error = e

	return code
}

func (me *ContactRoute) method_SetFavorite(ctx *gin.Context, jreq *jsonrpc2.RPCRequest, jres *jsonrpc2.RPCResponse) int {
	vuser, ok := ctx.Get("validuser")
	if !ok {
		jres.Error = &jsonrpc2.RPCError{Code: http.StatusUnauthorized, Message: "unauthorized"}
		return http.StatusUnauthorized
	}

	validuser := vuser.(*auth.Claims)
	if validuser.IsExpired() {
		jres.Error = &jsonrpc2.RPCError{Code: http.StatusUnauthorized, Message: "session expired"}
		return http.StatusUnauthorized
	}

	var reg *SetFavorite
	err := json.Unmarshal(jreq.Params, &reg)
	if err != nil {
		jres.Error = &jsonrpc2.RPCError{Code: http.StatusBadRequest, Message: err.Error()}
		return http.StatusBadRequest
	}

	res, e, code := me.contactController.SetFavorite(validuser, reg)
	jres.Result, _ = utils.ToRawMessage(res)
	jres.Error = e

	return code
}
