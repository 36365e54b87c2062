package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/TemirB/orders-enrichment/internal/config"
)

// Entries are hashes {data, absexp, sldexp}: absexp is the absolute deadline
// in unix milliseconds (0 for none) and sldexp the sliding window in milliseconds.
// The key TTL always equals the remaining life of the entry.
const (
	fieldData    = "data"
	fieldAbsExp  = "absexp"
	fieldSliding = "sldexp"
)

type RedisStore struct {
	client redis.Cmdable
	closer func() error
	now    func() time.Time
}

func NewRedisStore(ctx context.Context, cfg config.Redis) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	pctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping %s: %w", cfg.Addr, err)
	}

	s := NewRedisStoreWithClient(client)
	s.closer = client.Close
	return s, nil
}

// NewRedisStoreWithClient uses an existing client; the caller keeps ownership of it.
func NewRedisStoreWithClient(client redis.Cmdable) *RedisStore {
	return &RedisStore{client: client, now: time.Now}
}

// getScript reads an entry and slides its TTL in one step, so a concurrent
// Set cannot land between the read and the refresh. The window never
// reaches past absexp; a spent entry is removed and reported as a miss.
var getScript = redis.NewScript(`
local v = redis.call('HMGET', KEYS[1], 'data', 'absexp', 'sldexp')
if not v[1] then
	return false
end
local sld = tonumber(v[3]) or 0
if sld <= 0 then
	return v[1]
end
local left = sld
local abs = tonumber(v[2]) or 0
if abs > 0 then
	left = math.min(sld, abs - tonumber(ARGV[1]))
end
if left <= 0 then
	redis.call('DEL', KEYS[1])
	return false
end
redis.call('PEXPIRE', KEYS[1], tostring(math.floor(left)))
return v[1]
`)

func (s *RedisStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	data, err := getScript.Run(ctx, s.client, []string{key}, s.now().UnixMilli()).Text()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("redis get %s: %w", key, err)
	}
	return []byte(data), true, nil
}

func (s *RedisStore) Set(ctx context.Context, key string, val []byte, exp Expiration) error {
	now := s.now()
	var deadline time.Time
	var absMs int64
	if exp.Absolute > 0 {
		deadline = now.Add(exp.Absolute)
		absMs = deadline.UnixMilli()
	}
	life := ttl(now, deadline, exp.Sliding)

	_, err := s.client.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.Del(ctx, key)
		p.HSet(ctx, key,
			fieldData, val,
			fieldAbsExp, absMs,
			fieldSliding, exp.Sliding.Milliseconds(),
		)
		if life > 0 {
			p.PExpire(ctx, key, life)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("redis set %s: %w", key, err)
	}
	return nil
}

func (s *RedisStore) Delete(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("redis del %s: %w", key, err)
	}
	return nil
}

// Close closes the client only if the store created it.
func (s *RedisStore) Close() error {
	if s.closer == nil {
		return nil
	}
	return s.closer()
}
