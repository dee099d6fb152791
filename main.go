package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"chathub/global"
	"chathub/logger"
	mid "chathub/middleware"
	midsec "chathub/middleware/security"
	"chathub/module/message"
	presencemod "chathub/module/presence"
	"chathub/service/chat"
	"chathub/service/mgo"
	"chathub/service/natsx"
	storage "chathub/service/storage"
	storageredis "chathub/service/storage/redis"
	"chathub/tools/ids"
)

// presenceTTL covers three missed liveness probes so a crashed hub can't
// leave users marked online for long.
const presenceTTL = 90 * time.Second

func main() {
	flag.Parse()
	cfg := global.Load()
	ids.SetNodeID(cfg.NodeID)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := storageredis.Init(storageredis.Config{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	}); err != nil {
		logger.Errorf("redis init: %v", err)
		os.Exit(1)
	}
	defer func() { _ = storageredis.Close() }()

	if err := mgo.Init(ctx, mgo.Config{
		URI:      cfg.MongoURI,
		Database: cfg.MongoDatabase,
		Username: cfg.MongoUsername,
		Password: cfg.MongoPassword,
	}); err != nil {
		logger.Errorf("mongo init: %v", err)
		os.Exit(1)
	}
	defer func() { _ = mgo.Close(context.Background()) }()

	rdb := storageredis.Get()
	rooms := storage.NewRoomStore(rdb)
	presence := storage.NewPresenceStore(rdb, presenceTTL)
	store := message.NewStore(mgo.GetDB())

	var feed *natsx.Feed
	if cfg.NatsURL != "" {
		var err error
		feed, err = natsx.NewFeed(natsx.Config{
			URL:     cfg.NatsURL,
			Name:    "chathub",
			Subject: cfg.NatsSubject,
		})
		if err != nil {
			// The feed is best effort; run without it.
			logger.Warnf("nats connect: %v, presence feed disabled", err)
		} else {
			defer feed.Close()
		}
	}

	deps := chat.Deps{Oracle: rooms, Store: store, Presence: presence}
	if feed != nil {
		deps.Feed = feed
	}
	hub := chat.NewServer(deps)
	defer hub.Close()

	auth := midsec.Middleware(cfg.Auth())
	history := &message.HistoryHandler{Store: store, Oracle: rooms}
	status := &presencemod.StatusHandler{Presence: presence}

	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(gin.Recovery(), mid.AccessLog(), mid.Origin(cfg.AllowedOrigins))
	engine.GET("/healthz", func(c *gin.Context) { c.String(http.StatusOK, "ok") })
	engine.GET("/ws", auth, hub.HandleWS)
	engine.GET("/rooms/:roomId/messages", auth, history.Recent)
	engine.GET("/users/:userId/status", auth, status.Status)

	srv := &http.Server{Addr: cfg.ListenAddr, Handler: engine}
	go func() {
		logger.Infof("chathub listening on %s", cfg.ListenAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Errorf("listen: %v", err)
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Shutdown(shutdownCtx)
}
