package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	logrus "github.com/sirupsen/logrus"

	"fleet-ops-api/config"
)

const redisPingAttempts = 3

const (
	DrugTestTrendsKey             = "charts:drug-test-trends"
	DriversOverThreeViolationsKey = "charts:drivers-over-3-violations"
	CredentialValidityKey         = "charts:credential-validity"
	MonthlyInfractionsKey         = "charts:monthly-infractions"
)

// ChartCacheKeys lists every cached chart response.
var ChartCacheKeys = []string{
	DrugTestTrendsKey,
	DriversOverThreeViolationsKey,
	CredentialValidityKey,
	MonthlyInfractionsKey,
}

// CacheService wraps Redis for JSON caching and pub/sub. A service without
// a client is valid: reads miss, writes and publishes are no-ops.
type CacheService struct {
	client *redis.Client
}

func NewCacheService(cfg config.RedisConfig) (*CacheService, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr(),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	var lastErr error
	for i := 0; i < redisPingAttempts; i++ {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		lastErr = client.Ping(ctx).Err()
		cancel()
		if lastErr == nil {
			return &CacheService{client: client}, nil
		}
		logrus.WithError(lastErr).Warnf("redis ping attempt %d/%d failed", i+1, redisPingAttempts)
		time.Sleep(time.Second)
	}

	client.Close()
	return &CacheService{client: nil}, fmt.Errorf("redis ping failed after %d attempts: %w", redisPingAttempts, lastErr)
}

func NewCacheServiceWithClient(client *redis.Client) *CacheService {
	return &CacheService{client: client}
}

func (s *CacheService) Client() *redis.Client {
	return s.client
}

func (s *CacheService) Available() bool {
	return s.client != nil
}

// Get decodes the cached value into dest and reports whether it was found.
func (s *CacheService) Get(ctx context.Context, key string, dest interface{}) (bool, error) {
	if s.client == nil {
		return false, nil
	}
	val, err := s.client.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := json.Unmarshal([]byte(val), dest); err != nil {
		return false, err
	}
	return true, nil
}

func (s *CacheService) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	if s.client == nil {
		return nil
	}
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, key, data, ttl).Err()
}

func (s *CacheService) Delete(ctx context.Context, keys ...string) error {
	if s.client == nil || len(keys) == 0 {
		return nil
	}
	return s.client.Del(ctx, keys...).Err()
}

func (s *CacheService) Publish(ctx context.Context, channel string, message interface{}) error {
	if s.client == nil {
		return nil
	}
	data, err := json.Marshal(message)
	if err != nil {
		return err
	}
	return s.client.Publish(ctx, channel, data).Err()
}

func (s *CacheService) Subscribe(ctx context.Context, channel string) *redis.PubSub {
	if s.client == nil {
		return nil
	}
	return s.client.Subscribe(ctx, channel)
}

func (s *CacheService) Close() error {
	if s.client == nil {
		return nil
	}
	return s.client.Close()
}
