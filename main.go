package main

import (
	"context"
	"flag"
	"fmt"
	"time"

	"LinkChat/data/database/mgo/mongoutil"
	"LinkChat/global/config"
	"LinkChat/logger"
	mid "LinkChat/middleware"
	midsec "LinkChat/middleware/security"
	chathandler "LinkChat/module/chat"
	"LinkChat/module/chat/message"
	"LinkChat/module/media"
	userhandler "LinkChat/module/user"
	userservice "LinkChat/module/user/service"
	chatsvc "LinkChat/service/chat"
	"LinkChat/service/storage"
	rds "LinkChat/service/storage/redis"
	jwtlib "LinkChat/tools/security"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func main() {
	cfgPath := flag.String("config", "", "path to yaml config (optional)")
	flag.Parse()

	if err := config.Load(*cfgPath); err != nil {
		logger.Errorf("load config: %v", err)
		return
	}
	config.ConfigIds()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	// mongo is required; the store owns the canonical records
	mongoCli, err := mongoutil.NewMongoDB(ctx, &mongoutil.Config{
		Uri:         config.Global.Mongo.Uri,
		Database:    config.Global.Mongo.Database,
		Username:    config.Global.Mongo.Username,
		Password:    config.Global.Mongo.Password,
		MaxPoolSize: config.Global.Mongo.MaxPoolSize,
		MaxRetry:    config.Global.Mongo.MaxRetry,
	})
	if err != nil {
		logger.Errorf("mongo init: %v", err)
		return
	}
	db := mongoCli.GetDB()

	// redis only mirrors presence; run degraded without it
	var mirror chatsvc.PresenceMirror
	if err := rds.InitRedis(rds.Config{
		Addr:     config.Global.Redis.Addr,
		Password: config.Global.Redis.Password,
		DB:       config.Global.Redis.DB,
		PoolSize: config.Global.Redis.PoolSize,
	}); err != nil {
		logger.Warn("redis unavailable, presence mirror disabled")
	} else {
		mirror = storage.NewRedisMirror(config.Global.NodeId, 5*time.Minute)
	}

	jwtOpts := jwtlib.DefaultOptions(config.GetJwtSecret())
	jwtOpts.TTL = config.Global.Jwt.TTL()
	mid.Config(midsec.DefaultOptions(jwtOpts))

	uploader, err := media.NewLocalUploader(config.Global.Media.Dir, config.Global.Media.BaseURL)
	if err != nil {
		logger.Errorf("media init: %v", err)
		return
	}

	store := message.NewStore(db)
	users := userservice.NewService(db, jwtOpts)
	if err := users.EnsureIndexes(ctx); err != nil {
		logger.Infof("ensure user indexes: %v", err)
	}

	registry := chatsvc.NewRegistry(mirror)
	router := chatsvc.NewRouter(store, registry)
	wsServer := chatsvc.NewServer(registry, config.Global.SendQLen)
	chatsvc.RegisterMetrics()

	userH := userhandler.NewHandler(users)
	chatH := chathandler.NewHandler(store, router, users, uploader)

	r := gin.Default()

	r.GET("/ws", wsServer.HandleWS)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	r.Static(config.Global.Media.BaseURL, config.Global.Media.Dir)
	r.GET("/api/status", func(c *gin.Context) { c.String(200, "server is live") })

	mid.POST(r, "/api/auth/signup", userH.Signup, mid.RouteOpt{})
	mid.POST(r, "/api/auth/login", userH.Login, mid.RouteOpt{})
	mid.GET(r, "/api/auth/check", userH.Check, mid.RouteOpt{IsAuth: true})
	mid.PUT(r, "/api/auth/profile", userH.UpdateProfile, mid.RouteOpt{IsAuth: true})

	mid.GET(r, "/conversations", chatH.GetConversations, mid.RouteOpt{IsAuth: true})
	mid.GET(r, "/messages/:id", chatH.GetMessages, mid.RouteOpt{IsAuth: true})
	mid.POST(r, "/messages/:id", chatH.SendMessage, mid.RouteOpt{IsAuth: true})
	mid.PUT(r, "/messages/mark/:id", chatH.MarkMessage, mid.RouteOpt{IsAuth: true})

	addr := fmt.Sprintf(":%d", config.Global.Port)
	logger.Infof("listening on %s node=%s", addr, config.Global.NodeId)
	if err := r.Run(addr); err != nil {
		logger.Errorf("server exited: %v", err)
	}
}
