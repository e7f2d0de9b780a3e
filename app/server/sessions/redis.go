package sessions

import (
	"blog-backend/app/server/constants"
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

type Redis struct {
	rdb *redis.Client
}

var _ Store = (*Redis)(nil)

func NewRedis(rdb *redis.Client) *Redis {
	return &Redis{rdb: rdb}
}

func (s *Redis) PutRefreshToken(ctx context.Context, userID uint, token string, ttl time.Duration) error {
	return s.rdb.Set(ctx, fmt.Sprintf(constants.CacheKeyRefreshToken, userID), token, ttl).Err()
}

func (s *Redis) GetRefreshToken(ctx context.Context, userID uint) (string, error) {
	token, err := s.rdb.Get(ctx, fmt.Sprintf(constants.CacheKeyRefreshToken, userID)).Result()
	if errors.Is(err, redis.Nil) {
		return "", ErrNotFound
	}
	return token, err
}

func (s *Redis) DeleteRefreshToken(ctx context.Context, userID uint) error {
	return s.rdb.Del(ctx, fmt.Sprintf(constants.CacheKeyRefreshToken, userID)).Err()
}

func (s *Redis) PutResetToken(ctx context.Context, userID uint, token string, ttl time.Duration) error {
	return s.rdb.Set(ctx, fmt.Sprintf(constants.CacheKeyPasswordReset, userID), token, ttl).Err()
}

func (s *Redis) GetResetToken(ctx context.Context, userID uint) (string, error) {
	token, err := s.rdb.Get(ctx, fmt.Sprintf(constants.CacheKeyPasswordReset, userID)).Result()
	if errors.Is(err, redis.Nil) {
		return "", ErrNotFound
	}
	return token, err
}

func (s *Redis) DeleteResetToken(ctx context.Context, userID uint) error {
	return s.rdb.Del(ctx, fmt.Sprintf(constants.CacheKeyPasswordReset, userID)).Err()
}

func (s *Redis) Acquire(ctx context.Context, name string, ttl time.Duration) (string, error) {
	owner := uuid.NewString()
	ok, err := s.rdb.SetNX(ctx, fmt.Sprintf(constants.CacheKeyLock, name), owner, ttl).Result()
	if err != nil {
		return "", err
	}
	if !ok {
		return "", ErrLockNotHeld
	}
	return owner, nil
}

// releaseScript 只释放自己持有的锁，避免误删他人在超时后重新取得的锁
var releaseScript = redis.NewScript(`
if redis.call("get", KEYS[1]) == ARGV[1] then
    return redis.call("del", KEYS[1])
end
return 0
`)

func (s *Redis) Ping(ctx context.Context) error {
	return s.rdb.Ping(ctx).Err()
}

func (s *Redis) Release(ctx context.Context, name string, owner string) error {
	deleted, err := releaseScript.Run(ctx, s.rdb, []string{fmt.Sprintf(constants.CacheKeyLock, name)}, owner).Int()
	if err != nil {
		return err
	}
	if deleted == 0 {
		return ErrLockNotHeld
	}
	return nil
}
