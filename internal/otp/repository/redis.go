package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"chat-platform/backend/internal/otp/domain"
)

// RedisRepository stores codes in Redis, one hash per owner. Lua scripts keep
// the cooldown check and the single-use consume atomic server-side. Expiry
// rides on the Redis key TTL, so the now parameter of Consume is unused here.
type RedisRepository struct {
	client *redis.Client
}

// NewRedisRepository returns a code repository backed by the given Redis client.
func NewRedisRepository(client *redis.Client) *RedisRepository {
	return &RedisRepository{client: client}
}

func redisKey(ownerType domain.OwnerType, ownerID string) string {
	return fmt.Sprintf("otp:%s:%s", ownerType, ownerID)
}

// KEYS[1] owner key; ARGV: code_hash, purpose, created_at unix, notBefore unix, expires_at unix ms.
var replaceScript = redis.NewScript(`
local created = redis.call('HGET', KEYS[1], 'created_at')
if created and tonumber(created) > tonumber(ARGV[4]) then
  return 0
end
redis.call('HSET', KEYS[1], 'code_hash', ARGV[1], 'purpose', ARGV[2], 'created_at', ARGV[3])
redis.call('PEXPIREAT', KEYS[1], ARGV[5])
return 1
`)

// KEYS[1] owner key; ARGV: code_hash, purpose.
var consumeScript = redis.NewScript(`
if redis.call('HGET', KEYS[1], 'code_hash') == ARGV[1] and redis.call('HGET', KEYS[1], 'purpose') == ARGV[2] then
  redis.call('DEL', KEYS[1])
  return 1
end
return 0
`)

func (r *RedisRepository) Replace(ctx context.Context, rec *domain.Otp, notBefore time.Time) (bool, error) {
	res, err := replaceScript.Run(ctx, r.client,
		[]string{redisKey(rec.OwnerType, rec.OwnerID)},
		rec.CodeHash, rec.Purpose, rec.CreatedAt.Unix(), notBefore.Unix(), rec.ExpiresAt.UnixMilli(),
	).Int()
	if err != nil {
		return false, err
	}
	return res == 1, nil
}

func (r *RedisRepository) Consume(ctx context.Context, ownerType domain.OwnerType, ownerID, purpose, codeHash string, _ time.Time) (bool, error) {
	res, err := consumeScript.Run(ctx, r.client,
		[]string{redisKey(ownerType, ownerID)},
		codeHash, purpose,
	).Int()
	if err != nil {
		return false, err
	}
	return res == 1, nil
}
