package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/SergeiKhy/link-redirector/internal/models"
	"github.com/redis/go-redis/v9"
)

var ErrCacheMiss = errors.New("cache miss")

// CacheError is a structured cache failure
type CacheError struct {
	Op  string // get, set, delete
	Key string
	Err error
}

func (e *CacheError) Error() string {
	return "cache " + e.Op + " '" + e.Key + "': " + e.Err.Error()
}

func (e *CacheError) Unwrap() error {
	return e.Err
}

// CacheRepository кэширует код -> ссылку для редиректа
type CacheRepository interface {
	Get(ctx context.Context, code string) (*models.ResolvedLink, error)
	Set(ctx context.Context, code string, link *models.ResolvedLink, ttl time.Duration) error
	Delete(ctx context.Context, code string) error
}

type cacheRepository struct {
	redis *RedisDB
}

func NewCacheRepository(redis *RedisDB) CacheRepository {
	return &cacheRepository{redis: redis}
}

func (r *cacheRepository) Get(ctx context.Context, code string) (*models.ResolvedLink, error) {
	key := r.key(code)
	data, err := r.redis.Client.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrCacheMiss
		}
		return nil, &CacheError{Op: "get", Key: key, Err: err}
	}

	var link models.ResolvedLink
	if err := json.Unmarshal(data, &link); err != nil {
		return nil, &CacheError{Op: "get", Key: key, Err: fmt.Errorf("failed to unmarshal link: %w", err)}
	}

	return &link, nil
}

func (r *cacheRepository) Set(ctx context.Context, code string, link *models.ResolvedLink, ttl time.Duration) error {
	key := r.key(code)
	data, err := json.Marshal(link)
	if err != nil {
		return &CacheError{Op: "set", Key: key, Err: fmt.Errorf("failed to marshal link: %w", err)}
	}

	if err := r.redis.Client.Set(ctx, key, data, ttl).Err(); err != nil {
		return &CacheError{Op: "set", Key: key, Err: err}
	}
	return nil
}

func (r *cacheRepository) Delete(ctx context.Context, code string) error {
	key := r.key(code)
	if err := r.redis.Client.Del(ctx, key).Err(); err != nil {
		return &CacheError{Op: "delete", Key: key, Err: err}
	}
	return nil
}

func (r *cacheRepository) key(code string) string {
	return "link:" + code
}
