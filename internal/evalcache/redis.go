package evalcache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/park285/chess-evalboard/internal/eval"
)

const (
	keyPrefix       = "evalboard:eval:"
	defaultRedisTTL = 24 * time.Hour
)

type redisPayload struct {
	Mate       bool `json:"mate,omitempty"`
	Centipawns int  `json:"cp,omitempty"`
	MateIn     int  `json:"mate_in,omitempty"`
}

type Redis struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewRedis(rdb *redis.Client, ttl time.Duration) *Redis {
	if ttl <= 0 {
		ttl = defaultRedisTTL
	}
	return &Redis{rdb: rdb, ttl: ttl}
}

// DialRedis parses a redis:// URL and pings the server.
func DialRedis(ctx context.Context, rawURL string, ttl time.Duration) (*Redis, error) {
	if strings.TrimSpace(rawURL) == "" {
		return nil, fmt.Errorf("redis url required")
	}
	opts, err := redis.ParseURL(rawURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	rdb := redis.NewClient(opts)
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return NewRedis(rdb, ttl), nil
}

func (s *Redis) key(k string) string { return keyPrefix + k }

func (s *Redis) Get(ctx context.Context, key string) (eval.Result, bool, error) {
	raw, err := s.rdb.Get(ctx, s.key(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return eval.Result{}, false, nil
	}
	if err != nil {
		return eval.Result{}, false, err
	}
	var p redisPayload
	if err := json.Unmarshal(raw, &p); err != nil {
		return eval.Result{}, false, fmt.Errorf("decode cached eval: %w", err)
	}
	if p.Mate {
		return eval.MateIn(p.MateIn), true, nil
	}
	return eval.Score(p.Centipawns), true, nil
}

func (s *Redis) Put(ctx context.Context, key string, r eval.Result) error {
	p := redisPayload{Mate: r.IsMate(), Centipawns: r.Centipawns, MateIn: r.Mate}
	raw, err := json.Marshal(p)
	if err != nil {
		return err
	}
	return s.rdb.Set(ctx, s.key(key), raw, s.ttl).Err()
}

func (s *Redis) Close() error {
	if s == nil || s.rdb == nil {
		return nil
	}
	return s.rdb.Close()
}
