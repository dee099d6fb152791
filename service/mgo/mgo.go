package mgo

import (
	"context"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"chathub/tools/errs"
)

// Config holds the MongoDB connection settings.
type Config struct {
	URI         string
	Database    string
	Username    string
	Password    string
	AuthSource  string
	MaxPoolSize uint64
}

var (
	mu     sync.RWMutex
	client *mongo.Client
	db     *mongo.Database
)

// Init connects, pings, and stores the shared database handle.
func Init(ctx context.Context, cfg Config) error {
	if cfg.URI == "" {
		return errs.Wrap(errMissingURI)
	}
	opts := options.Client().ApplyURI(cfg.URI)
	if cfg.MaxPoolSize > 0 {
		opts.SetMaxPoolSize(cfg.MaxPoolSize)
	}
	if cfg.Username != "" {
		opts.SetAuth(options.Credential{
			Username:   cfg.Username,
			Password:   cfg.Password,
			AuthSource: cfg.AuthSource,
		})
	}

	cli, err := mongo.Connect(ctx, opts)
	if err != nil {
		return errs.WrapMsg(err, "mongo connect")
	}
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := cli.Ping(pingCtx, nil); err != nil {
		return errs.WrapMsg(err, "mongo ping")
	}

	mu.Lock()
	client = cli
	db = cli.Database(cfg.Database)
	mu.Unlock()
	return nil
}

// GetDB returns the shared database handle.
func GetDB() *mongo.Database {
	mu.RLock()
	defer mu.RUnlock()
	if db == nil {
		panic("mongo not initialized, call Init first")
	}
	return db
}

// Close disconnects the shared client.
func Close(ctx context.Context) error {
	mu.Lock()
	defer mu.Unlock()
	if client == nil {
		return nil
	}
	err := client.Disconnect(ctx)
	client, db = nil, nil
	return err
}

var errMissingURI = errs.NewCodeError("CONFIG_ERROR", "mongo uri is required")
