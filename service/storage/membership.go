package storage

import (
	"context"

	"github.com/redis/go-redis/v9"

	"chathub/logger"
)

// RoomStore is the room membership oracle, backed by one Redis set per
// room. Backend failures surface as deny / empty, matching the hub's
// "oracle failure is never a crash" contract.
type RoomStore struct {
	rdb *redis.Client
}

func NewRoomStore(rdb *redis.Client) *RoomStore {
	return &RoomStore{rdb: rdb}
}

func roomKey(roomID string) string { return "chat:room:members:" + roomID }

func (s *RoomStore) IsMember(ctx context.Context, userID, roomID string) bool {
	ok, err := s.rdb.SIsMember(ctx, roomKey(roomID), userID).Result()
	if err != nil {
		logger.Errorf("[rooms] SISMEMBER room=%s user=%s err=%v", roomID, userID, err)
		return false
	}
	return ok
}

// AddMember reports false both on backend failure and when the user was
// already a member; joining a room twice is a client error.
func (s *RoomStore) AddMember(ctx context.Context, userID, roomID string) bool {
	n, err := s.rdb.SAdd(ctx, roomKey(roomID), userID).Result()
	if err != nil {
		logger.Errorf("[rooms] SADD room=%s user=%s err=%v", roomID, userID, err)
		return false
	}
	return n > 0
}

// RemoveMember reports false when the user was not a member.
func (s *RoomStore) RemoveMember(ctx context.Context, userID, roomID string) bool {
	n, err := s.rdb.SRem(ctx, roomKey(roomID), userID).Result()
	if err != nil {
		logger.Errorf("[rooms] SREM room=%s user=%s err=%v", roomID, userID, err)
		return false
	}
	return n > 0
}

func (s *RoomStore) MembersOf(ctx context.Context, roomID string) map[string]struct{} {
	users, err := s.rdb.SMembers(ctx, roomKey(roomID)).Result()
	if err != nil {
		logger.Errorf("[rooms] SMEMBERS room=%s err=%v", roomID, err)
		return nil
	}
	out := make(map[string]struct{}, len(users))
	for _, u := range users {
		out[u] = struct{}{}
	}
	return out
}
