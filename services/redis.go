package services

import (
	"context"
	"fmt"
	"petii/config"

	"github.com/go-redis/redis/v8"
)

var RedisClient *redis.Client

// InitRedis connects when redis.enabled is set; otherwise RedisClient stays nil
// and Redis-backed features fall back to in-process behavior.
func InitRedis(ctx context.Context) error {
	if config.AppConfig == nil {
		return fmt.Errorf("AppConfig is not loaded")
	}
	redisConfig := config.AppConfig.Redis
	if !redisConfig.Enabled {
		return nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", redisConfig.Host, redisConfig.Port),
		Password: redisConfig.Password,
		DB:       redisConfig.DB,
	})

	// Тест соединения
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return fmt.Errorf("failed to connect to Redis: %w", err)
	}
	RedisClient = client
	return nil
}

func CloseRedis() error {
	if RedisClient != nil {
		return RedisClient.Close()
	}
	return nil
}
