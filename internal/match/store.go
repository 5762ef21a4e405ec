package match

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/krishanu7/battleship-engine/internal/game"
	"github.com/redis/go-redis/v9"
)

const NotificationChannel = "notifications"

// Notification is published for every accepted engine event. Subscribers
// fetch the new state themselves; the payload carries no board data.
type Notification struct {
	Type    game.EventType     `json:"type"`
	MatchID string             `json:"matchId"`
	Player  int                `json:"player"`
	Round   int                `json:"round"`
	Attack  *game.AttackResult `json:"attack,omitempty"`
}

type Store interface {
	Save(ctx context.Context, matchID string, snaps [2]game.Snapshot) error
	Load(ctx context.Context, matchID string, viewer int) (game.Snapshot, error)
	Publish(ctx context.Context, n Notification) error
	Delete(ctx context.Context, matchID string) error
}

// RedisStore keeps the latest per-viewer snapshots in the hash
// match:<id>:state, one field per player id.
type RedisStore struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewRedisStore(rdb *redis.Client, ttl time.Duration) *RedisStore {
	return &RedisStore{rdb: rdb, ttl: ttl}
}

func stateKey(matchID string) string {
	return fmt.Sprintf("match:%s:state", matchID)
}

func (s *RedisStore) Save(ctx context.Context, matchID string, snaps [2]game.Snapshot) error {
	fields := make(map[string]interface{}, len(snaps))
	for p, snap := range snaps {
		data, err := json.Marshal(snap)
		if err != nil {
			return fmt.Errorf("failed to marshal snapshot: %w", err)
		}
		fields[strconv.Itoa(p)] = data
	}
	key := stateKey(matchID)
	_, err := s.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, key, fields)
		if s.ttl > 0 {
			pipe.Expire(ctx, key, s.ttl)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to store match %s: %w", matchID, err)
	}
	return nil
}

func (s *RedisStore) Load(ctx context.Context, matchID string, viewer int) (game.Snapshot, error) {
	data, err := s.rdb.HGet(ctx, stateKey(matchID), strconv.Itoa(viewer)).Bytes()
	if errors.Is(err, redis.Nil) {
		return game.Snapshot{}, ErrMatchNotFound
	}
	if err != nil {
		return game.Snapshot{}, fmt.Errorf("failed to load match %s: %w", matchID, err)
	}
	var snap game.Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return game.Snapshot{}, fmt.Errorf("failed to decode match %s: %w", matchID, err)
	}
	return snap, nil
}

func (s *RedisStore) Publish(ctx context.Context, n Notification) error {
	payload, err := json.Marshal(n)
	if err != nil {
		return fmt.Errorf("failed to marshal notification: %w", err)
	}
	if err := s.rdb.Publish(ctx, NotificationChannel, payload).Err(); err != nil {
		return fmt.Errorf("failed to publish notification: %w", err)
	}
	return nil
}

func (s *RedisStore) Delete(ctx context.Context, matchID string) error {
	return s.rdb.Del(ctx, stateKey(matchID)).Err()
}
