package tokenstore

import (
	"context"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
)

var _ Store = (*RedisStore)(nil)
var _ Notifier = (*RedisStore)(nil)

// RedisStore keeps the token pair under the two well-known keys in Redis,
// for deployments where several console processes share one session.
type RedisStore struct {
	notifier

	client *redis.Client
}

func NewRedisStore(client *redis.Client) (*RedisStore, error) {
	if client == nil {
		return nil, errors.New("[NewRedisStore] redis client is required")
	}
	return &RedisStore{client: client}, nil
}

func (s *RedisStore) Get(kind Kind) (string, error) {
	key := AccessTokenKey
	if kind == Refresh {
		key = RefreshTokenKey
	}

	token, err := s.client.Get(context.Background(), key).Result()
	if err == redis.Nil {
		return "", ErrNotFound
	}
	if err != nil {
		return "", errors.Wrap(err, "[RedisStore.Get] Get")
	}
	return token, nil
}

func (s *RedisStore) SetAccess(token string) error {
	if err := s.client.Set(context.Background(), AccessTokenKey, token, 0).Err(); err != nil {
		return errors.Wrap(err, "[RedisStore.SetAccess] Set")
	}

	s.publish()
	return nil
}

func (s *RedisStore) SetPair(access, refresh string) error {
	// MSet keeps the pair invariant: both keys land in one command.
	if err := s.client.MSet(context.Background(), AccessTokenKey, access, RefreshTokenKey, refresh).Err(); err != nil {
		return errors.Wrap(err, "[RedisStore.SetPair] MSet")
	}

	s.publish()
	return nil
}

func (s *RedisStore) Clear() error {
	if err := s.client.Del(context.Background(), AccessTokenKey, RefreshTokenKey).Err(); err != nil {
		return errors.Wrap(err, "[RedisStore.Clear] Del")
	}

	s.publish()
	return nil
}
