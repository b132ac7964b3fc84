package jwt

import (
	"sync"
	"time"

	"talkative-backend/internal/env"

	"github.com/go-redis/redis/v8"
)

const (
	RefreshTokenTTL = 24 * 30 * time.Hour
	AccessTokenTTL  = 15 * time.Minute
)

var (
	secretMu   sync.RWMutex
	userSecret string

	redisOnce   sync.Once
	redisClient *redis.Client
)

func secret() string {
	secretMu.RLock()
	s := userSecret
	secretMu.RUnlock()
	if s != "" {
		return s
	}

	secretMu.Lock()
	defer secretMu.Unlock()
	if userSecret == "" {
		userSecret = env.Get(env.UserSecretKey)
	}
	return userSecret
}

// SetSecret overrides the signing secret. Intended for tests.
func SetSecret(s string) {
	secretMu.Lock()
	userSecret = s
	secretMu.Unlock()
}

func authRedis() *redis.Client {
	redisOnce.Do(func() {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     env.Get(env.AuthRedisURL),
			Password: env.Get(env.AuthRedisPass),
			DB:       0,
		})
	})
	return redisClient
}
