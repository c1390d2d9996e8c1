package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	redisKeyPrefix  = "memo:result:"
	redisIndexKey   = "memo:results"
	redisOpTimeout  = 3 * time.Second
	redisDefaultTTL = 30 * 24 * time.Hour
)

// RedisPersistence implements ResultStore on a Redis server. Records are
// JSON strings with a TTL; a sorted set indexes them by finish time.
type RedisPersistence struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewRedisPersistence connects to the server at rawURL and verifies it answers
func NewRedisPersistence(rawURL string) (*RedisPersistence, error) {
	opts, err := parseRedisURL(rawURL)
	if err != nil {
		return nil, err
	}

	rdb := redis.NewClient(opts)
	ctx, cancel := context.WithTimeout(context.Background(), redisOpTimeout)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("failed to reach redis: %w", err)
	}

	return &RedisPersistence{rdb: rdb, ttl: redisDefaultTTL}, nil
}

// NewRedisPersistenceWithClient wraps an existing client
func NewRedisPersistenceWithClient(rdb *redis.Client, ttl time.Duration) *RedisPersistence {
	if ttl <= 0 {
		ttl = redisDefaultTTL
	}
	return &RedisPersistence{rdb: rdb, ttl: ttl}
}

// Close releases the connection pool
func (rp *RedisPersistence) Close() error {
	return rp.rdb.Close()
}

// Save stores a record and indexes it
func (rp *RedisPersistence) Save(record *GameRecord) error {
	if record == nil {
		return fmt.Errorf("record cannot be nil")
	}
	if !validID(record.ID) {
		return ErrInvalidSessionID
	}

	data, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("failed to marshal record: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), redisOpTimeout)
	defer cancel()

	_, err = rp.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, redisKey(record.ID), data, rp.ttl)
		pipe.ZAdd(ctx, redisIndexKey, redis.Z{
			Score:  float64(record.FinishedAt.Unix()),
			Member: record.ID,
		})
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to save record: %w", err)
	}
	return nil
}

// Load fetches a record by ID
func (rp *RedisPersistence) Load(id string) (*GameRecord, error) {
	ctx, cancel := context.WithTimeout(context.Background(), redisOpTimeout)
	defer cancel()

	raw, err := rp.rdb.Get(ctx, redisKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load record: %w", err)
	}

	var record GameRecord
	if err := json.Unmarshal(raw, &record); err != nil {
		return nil, fmt.Errorf("failed to unmarshal record: %w", err)
	}
	return &record, nil
}

// Delete removes a record and its index entry
func (rp *RedisPersistence) Delete(id string) error {
	ctx, cancel := context.WithTimeout(context.Background(), redisOpTimeout)
	defer cancel()

	n, err := rp.rdb.Del(ctx, redisKey(id)).Result()
	if err != nil {
		return fmt.Errorf("failed to delete record: %w", err)
	}
	rp.unindex(ctx, id)
	if n == 0 {
		return ErrSessionNotFound
	}
	return nil
}

// ListAll returns indexed IDs, oldest first. Index entries whose record has
// expired are pruned.
func (rp *RedisPersistence) ListAll() ([]string, error) {
	ctx, cancel := context.WithTimeout(context.Background(), redisOpTimeout)
	defer cancel()

	ids, err := rp.rdb.ZRange(ctx, redisIndexKey, 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list records: %w", err)
	}
	if len(ids) == 0 {
		return ids, nil
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = redisKey(id)
	}
	present, err := rp.rdb.Exists(ctx, keys...).Result()
	if err != nil || int(present) == len(ids) {
		return ids, nil
	}

	live := ids[:0]
	for _, id := range ids {
		if rp.rdb.Exists(ctx, redisKey(id)).Val() == 1 {
			live = append(live, id)
		} else {
			rp.unindex(ctx, id)
		}
	}
	return live, nil
}

// Exists checks if a record is stored
func (rp *RedisPersistence) Exists(id string) bool {
	ctx, cancel := context.WithTimeout(context.Background(), redisOpTimeout)
	defer cancel()
	return rp.rdb.Exists(ctx, redisKey(id)).Val() == 1
}

// unindex drops id from the index. A failure leaves a stale entry that the
// next ListAll retries.
func (rp *RedisPersistence) unindex(ctx context.Context, id string) {
	if err := rp.rdb.ZRem(ctx, redisIndexKey, id).Err(); err != nil {
		log.Printf("[redis] Warning: failed to remove %s from the result index: %v", id, err)
	}
}

func redisKey(id string) string {
	return redisKeyPrefix + id
}

// parseRedisURL accepts redis://[:password@]host:port[/db] or a bare host:port
func parseRedisURL(raw string) (*redis.Options, error) {
	if !strings.Contains(raw, "://") {
		return &redis.Options{Addr: raw}, nil
	}

	u, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}
	if u.Host == "" {
		return nil, fmt.Errorf("invalid redis url: missing host")
	}

	opts := &redis.Options{Addr: u.Host}
	if u.User != nil {
		opts.Username = u.User.Username()
		opts.Password, _ = u.User.Password()
	}
	if db := strings.TrimPrefix(u.Path, "/"); db != "" {
		n, err := strconv.Atoi(db)
		if err != nil {
			return nil, fmt.Errorf("invalid redis db %q: %w", db, err)
		}
		opts.DB = n
	}
	return opts, nil
}
