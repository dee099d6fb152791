package storage

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"

	"chathub/logger"
)

// PresenceStore records who is online for external consumers. The key
// carries a TTL so a crashed hub cannot leave users online forever; the
// hub refreshes it on every liveness acknowledgment.
type PresenceStore struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewPresenceStore(rdb *redis.Client, ttl time.Duration) *PresenceStore {
	return &PresenceStore{rdb: rdb, ttl: ttl}
}

func presenceKey(userID string) string { return "chat:presence:" + userID }

// SetOnline is best effort: failures are logged, never returned.
func (s *PresenceStore) SetOnline(ctx context.Context, userID string, online bool) {
	var err error
	if online {
		err = s.rdb.Set(ctx, presenceKey(userID), "1", s.ttl).Err()
	} else {
		err = s.rdb.Del(ctx, presenceKey(userID)).Err()
	}
	if err != nil {
		logger.Warnf("[presence] set user=%s online=%v err=%v", userID, online, err)
	}
}

// Lookup reports whether the user currently holds a presence key.
func (s *PresenceStore) Lookup(ctx context.Context, userID string) (bool, error) {
	err := s.rdb.Get(ctx, presenceKey(userID)).Err()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}
