package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"sync"

	"github.com/redis/go-redis/v9"

	"github.com/oggyb/rotrade-sync/internal/config"
	apperr "github.com/oggyb/rotrade-sync/internal/errors"
	"github.com/oggyb/rotrade-sync/internal/logger"
)

const (
	fieldValue = "value"
	fieldRev   = "rev"

	subscriptionBuffer = 64
)

// RedisStore keeps each key as a hash {value, rev}. Changes travel over a
// Redis pub/sub channel so every process sharing the server sees them.
type RedisStore struct {
	Client  *redis.Client
	ns      string
	channel string
	log     *slog.Logger
}

// NewRedisClient initializes Redis client from config.
// Only Addr is mandatory, Password/DB are optional.
func NewRedisClient(cfg *config.Config) *redis.Client {
	opts := &redis.Options{
		Addr: cfg.Redis.Addr,
	}
	if cfg.Redis.Password != "" {
		opts.Password = cfg.Redis.Password
	}
	if cfg.Redis.DB != 0 {
		opts.DB = cfg.Redis.DB
	}
	return redis.NewClient(opts)
}

func NewRedisStore(client *redis.Client, namespace string) *RedisStore {
	return &RedisStore{
		Client:  client,
		ns:      namespace,
		channel: namespace + "changes",
		log:     logger.Named("store.redis"),
	}
}

func (s *RedisStore) key(k string) string { return s.ns + k }

func (s *RedisStore) Ping(ctx context.Context) error {
	return s.Client.Ping(ctx).Err()
}

func (s *RedisStore) Get(ctx context.Context, key string) ([]byte, int64, error) {
	vals, err := s.Client.HMGet(ctx, s.key(key), fieldValue, fieldRev).Result()
	if err != nil {
		return nil, 0, fmt.Errorf("redis get %s: %w", key, err)
	}
	raw, ok := vals[0].(string)
	if !ok {
		return nil, 0, nil // missing
	}
	var rev int64
	if r, ok := vals[1].(string); ok {
		if rev, err = strconv.ParseInt(r, 10, 64); err != nil {
			return nil, 0, fmt.Errorf("redis get %s: bad revision %q", key, r)
		}
	}
	return []byte(raw), rev, nil
}

// CompareAndSwap runs WATCH/MULTI/EXEC on the key. Redis aborts the
// transaction if another client touches the key between WATCH and EXEC.
func (s *RedisStore) CompareAndSwap(ctx context.Context, key string, revision int64, value []byte) (int64, error) {
	full := s.key(key)
	var next int64

	txf := func(tx *redis.Tx) error {
		cur, err := tx.HGet(ctx, full, fieldRev).Int64()
		if errors.Is(err, redis.Nil) {
			cur = 0
		} else if err != nil {
			return err
		}
		if cur != revision {
			return apperr.ErrConflict
		}
		next = cur + 1
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.HSet(ctx, full, fieldValue, value, fieldRev, next)
			return nil
		})
		return err
	}

	err := s.Client.Watch(ctx, txf, full)
	switch {
	case err == nil:
		return next, nil
	case errors.Is(err, redis.TxFailedErr), errors.Is(err, apperr.ErrConflict):
		return 0, apperr.ErrConflict
	default:
		return 0, fmt.Errorf("redis cas %s: %w", key, err)
	}
}

func (s *RedisStore) Delete(ctx context.Context, key string) error {
	return s.Client.Del(ctx, s.key(key)).Err()
}

func (s *RedisStore) Publish(ctx context.Context, c Change) error {
	payload, err := json.Marshal(c)
	if err != nil {
		return err
	}
	return s.Client.Publish(ctx, s.channel, payload).Err()
}

// Subscribe returns once Redis has confirmed the subscription, so changes
// published afterwards are never missed.
func (s *RedisStore) Subscribe(ctx context.Context) (Subscription, error) {
	ps := s.Client.Subscribe(ctx, s.channel)
	if _, err := ps.Receive(ctx); err != nil {
		_ = ps.Close()
		return nil, fmt.Errorf("redis subscribe: %w", err)
	}

	sub := &redisSubscription{
		ps:   ps,
		ch:   make(chan Change, subscriptionBuffer),
		done: make(chan struct{}),
	}
	go func() {
		defer close(sub.ch)
		for msg := range ps.Channel() {
			var c Change
			if err := json.Unmarshal([]byte(msg.Payload), &c); err != nil {
				s.log.Warn("dropping malformed change", "payload", msg.Payload, "err", err)
				continue
			}
			select {
			case sub.ch <- c:
			case <-sub.done:
				return
			}
		}
	}()
	return sub, nil
}

// Clear scans the namespace and deletes every key in it.
func (s *RedisStore) Clear(ctx context.Context) error {
	iter := s.Client.Scan(ctx, 0, s.ns+"*", 100).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("redis scan: %w", err)
	}
	if len(keys) == 0 {
		return nil
	}
	return s.Client.Del(ctx, keys...).Err()
}

func (s *RedisStore) Close() error {
	return s.Client.Close()
}

type redisSubscription struct {
	ps   *redis.PubSub
	ch   chan Change
	done chan struct{}
	once sync.Once
}

func (r *redisSubscription) Changes() <-chan Change { return r.ch }

func (r *redisSubscription) Close() error {
	var err error
	r.once.Do(func() {
		close(r.done)
		err = r.ps.Close()
	})
	return err
}
