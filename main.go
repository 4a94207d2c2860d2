package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"

	"kawan/app/inapp"
	"kawan/components/contacts"
	"kawan/components/convo"
	"kawan/components/disappearing"
	"kawan/components/friendreq"
	"kawan/components/messagedb"
	"kawan/components/notification"
	"kawan/components/typing"
	"kawan/config"
	"kawan/utils"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/juju/ratelimit"
	log "github.com/pion/ion-sfu/pkg/logger"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

var (
	server         *gin.Engine
	ctx            context.Context
	addr           string
	verbosityLevel int
	devmode        int
	logger         = log.New()
	limiter        *ratelimit.Bucket
)

func showHelp() {
	fmt.Printf("Usage:%s {params}\n", os.Args[0])
	fmt.Println("      -a {listen addr}")
	fmt.Println("      -h (show help info)")
	fmt.Println("      -v {0-2} (verbosity level, default 0)")
	fmt.Println("      -dev {0-1} (dev mode, relax websocket origin check)")
}

func parse() bool {
	flag.StringVar(&addr, "a", "", "address to use")
	flag.IntVar(&verbosityLevel, "v", -1, "verbosity level, higher value - more logs")
	flag.IntVar(&devmode, "dev", 0, "dev mode")
	help := flag.Bool("h", false, "help info")
	flag.Parse()

	if *help {
		return false
	}
	return true
}

func main() {
	if !parse() {
		showHelp()
		os.Exit(-1)
	}

	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	// Flags win over the config file
	if addr == "" {
		addr = cfg.Address
	}
	if verbosityLevel < 0 {
		verbosityLevel = cfg.Verbosity
	}

	logger.Info(fmt.Sprintf("verbosity level is: %d", verbosityLevel))
	log.SetGlobalOptions(log.GlobalConfig{V: verbosityLevel})
	utils.SetLogger(logger)

	ctx = context.TODO()

	// Connect to MongoDB
	mongoconn := options.Client().ApplyURI(cfg.MongoURI)
	mongoclient, err := mongo.NewClient(mongoconn)
	if err != nil {
		panic(err)
	}

	err = mongoclient.Connect(ctx)
	if err != nil {
		panic(err)
	}

	if err := mongoclient.Ping(ctx, readpref.Primary()); err != nil {
		panic(err)
	}

	fmt.Println("MongoDB successfully connected...")

	// Redis keeps the typing indicators
	rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	if err := rdb.Ping(ctx).Err(); err != nil {
		panic(err)
	}

	fmt.Println("Redis successfully connected...")

	server = gin.Default()
	server.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"http://localhost:3000"},
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		AllowCredentials: true,
	}))
	limiter = ratelimit.NewBucketWithRate(100, 100)

	wsServer := inapp.NewWebsocketServer()
	go wsServer.Run()

	var push notification.PushSender
	if cfg.FCMProjectID != "" {
		fcm, err := notification.NewFCMSender(ctx, cfg.FCMProjectID, cfg.FCMCredentials)
		if err != nil {
			logger.Error(err, "could not init FCM sender, push disabled")
		} else {
			push = fcm
		}
	}

	notifRoute := notification.NewNotifRoute(mongoclient, ctx, logger, limiter, push, wsServer)
	notifRoute.InitRouteTo(server)
	fanout := notifRoute.GetFanout()
	go fanout.Run(ctx)

	contactRoute := contacts.NewContactRoute(mongoclient, ctx, logger, limiter)
	contactRoute.InitRouteTo(server)
	contactService := contactRoute.GetContactService()

	requestRoute := friendreq.NewRequestRoute(mongoclient, ctx, logger, limiter, contactService, fanout)
	requestRoute.InitRouteTo(server)

	typingService := typing.NewTypingStore(rdb, ctx, logger, cfg.TypingTTL)
	janitor := typing.NewJanitor(typingService, cfg.SweepInterval)
	go janitor.Run(ctx)

	convoRoute := convo.NewConvoRoute(mongoclient, ctx, logger, limiter, contactService, typingService, fanout)
	convoRoute.InitRouteTo(server)

	messageRoute := messagedb.NewMessageRoute(mongoclient, ctx, logger, limiter, convoRoute.GetConvoService())
	messageRoute.InitRouteTo(server)

	sweeper := disappearing.NewSweeper(
		messageRoute.GetMessageService(),
		messageRoute.GetMessageService(),
		logger,
		cfg.SweepInterval,
		cfg.SweepBatch,
	)
	go sweeper.Run(ctx)

	wsServer.InitRouteTo(server, devmode)

	server.GET("/", func(c *gin.Context) {
		c.Redirect(http.StatusMovedPermanently, "/ping/")
	})
	server.GET("/ping", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"message": "pong",
		})
	})

	server.Run(addr)
}
