package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// casScript performs the compare-and-set server side so the check and the
// write cannot interleave with another writer. ARGV[2] == "" means the field
// must not exist yet.
var casScript = redis.NewScript(`
local cur = redis.call('HGET', KEYS[1], ARGV[1])
if ARGV[2] == '' then
	if cur then return 0 end
	redis.call('HSET', KEYS[1], ARGV[1], ARGV[3])
	return 1
end
if cur == ARGV[2] then
	redis.call('HSET', KEYS[1], ARGV[1], ARGV[3])
	return 1
end
return 0
`)

// Redis implements EntityStore over a Redis hash per entity, keyed
// "<prefix>:<entity_type>:<entity_id>" with one field per attribute.
type Redis struct {
	client *redis.Client
	prefix string
}

// RedisOption configures the Redis store.
type RedisOption func(*Redis)

// WithKeyPrefix overrides the default "stateflow" key prefix.
func WithKeyPrefix(prefix string) RedisOption {
	return func(r *Redis) {
		if prefix != "" {
			r.prefix = prefix
		}
	}
}

// NewRedis creates a Redis-backed entity store.
func NewRedis(client *redis.Client, opts ...RedisOption) (*Redis, error) {
	if client == nil {
		return nil, errors.New("store: redis client cannot be nil")
	}
	r := &Redis{client: client, prefix: "stateflow"}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

func (r *Redis) key(ref Ref) string {
	return fmt.Sprintf("%s:%s:%s", r.prefix, ref.Type, ref.ID)
}

func (r *Redis) ReadState(ctx context.Context, ref Ref, attribute string) (string, bool, error) {
	value, err := r.client.HGet(ctx, r.key(ref), attribute).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("store: read %s.%s: %w", ref, attribute, err)
	}
	return value, true, nil
}

func (r *Redis) ConditionalWrite(ctx context.Context, ref Ref, attribute, expected, value string) (bool, error) {
	n, err := casScript.Run(ctx, r.client, []string{r.key(ref)}, attribute, expected, value).Int()
	if err != nil {
		return false, fmt.Errorf("store: conditional write %s.%s: %w", ref, attribute, err)
	}
	return n == 1, nil
}

func (r *Redis) Exists(ctx context.Context, ref Ref) (bool, error) {
	n, err := r.client.Exists(ctx, r.key(ref)).Result()
	if err != nil {
		return false, fmt.Errorf("store: exists %s: %w", ref, err)
	}
	return n > 0, nil
}
