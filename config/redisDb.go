package config

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"os"
	"time"

	"github.com/bsm/redislock"
	"github.com/redis/go-redis/v9"
)

const redisOpTimeout = 2 * time.Second

var (
	rdb    *redis.Client
	locker *redislock.Client
)

// GetRedisDB is nil while redis is not connected; every caller treats that as
// "no cache, no lock".
func GetRedisDB() *redis.Client {
	return rdb
}

func GetRedisLock() *redislock.Client {
	return locker
}

func redisCtx() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), redisOpTimeout)
}

// GetRedisObject reports false without error when redis is not connected or the key is missing.
func GetRedisObject(key string, dest interface{}) (bool, error) {
	if rdb == nil {
		return false, nil
	}
	ctx, cancel := redisCtx()
	defer cancel()
	raw, err := rdb.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := json.Unmarshal(raw, dest); err != nil {
		return false, err
	}
	return true, nil
}

func SetRedisObject(key string, obj interface{}, exp time.Duration) error {
	if rdb == nil {
		return nil
	}
	raw, err := json.Marshal(obj)
	if err != nil {
		return err
	}
	ctx, cancel := redisCtx()
	defer cancel()
	return rdb.Set(ctx, key, raw, exp).Err()
}

func RemoveRedisKey(keys ...string) error {
	if rdb == nil || len(keys) == 0 {
		return nil
	}
	ctx, cancel := redisCtx()
	defer cancel()
	return rdb.Del(ctx, keys...).Err()
}

// ConnectRedisWithRetry connects the shared client and lock client.
// Redis is optional: without REDIS_ADDRESS, or after REDIS_CONNECT_ATTEMPTS
// failed pings (default 5), the service runs without cache and locks.
func ConnectRedisWithRetry() {
	addr := os.Getenv("REDIS_ADDRESS")
	if addr == "" {
		log.Printf("REDIS_ADDRESS not set; report cache and payment locks disabled")
		return
	}
	attempts := intFromEnv("REDIS_CONNECT_ATTEMPTS", 5)

	for attempt := 1; attempt <= attempts; attempt++ {
		client := redis.NewClient(&redis.Options{
			Addr:     addr,
			Password: os.Getenv("REDIS_PASSWORD"),
			DB:       intFromEnv("REDIS_DB", 0),
			PoolSize: intFromEnv("REDIS_POOL_SIZE", 20),
		})
		ctx, cancel := redisCtx()
		err := client.Ping(ctx).Err()
		cancel()
		if err == nil {
			rdb = client
			locker = redislock.New(rdb)
			log.Printf("connected to redis (attempt=%d addr=%s)", attempt, addr)
			return
		}
		_ = client.Close()
		if attempt == attempts {
			log.Printf("giving up on redis after %d attempts (addr=%s): %v", attempt, addr, err)
			return
		}
		sleep := retryDelay(attempt)
		log.Printf("failed to connect redis (attempt=%d addr=%s): %v; retrying in %s", attempt, addr, err, sleep)
		time.Sleep(sleep)
	}
}
