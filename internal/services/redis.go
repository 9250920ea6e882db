package services

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/redis/go-redis/v9"
)

var RedisClient *redis.Client

// InitRedis initializes the Redis client
func InitRedis() error {
	redisURL := os.Getenv("REDIS_URL")
	if redisURL == "" {
		redisURL = "redis://redis:6379" // Default Redis address for Docker
	}

	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return fmt.Errorf("failed to parse Redis URL: %v", err)
	}

	RedisClient = redis.NewClient(opt)

	ctx := context.Background()
	_, err = RedisClient.Ping(ctx).Result()
	if err != nil {
		return fmt.Errorf("failed to connect to Redis: %v", err)
	}

	return nil
}

// CachePaymentStatus stores the last known status of a payment. Poll
// responses are served from this cache between gateway verifications.
func CachePaymentStatus(ctx context.Context, paymentID uint, status string) error {
	if RedisClient == nil {
		return nil
	}
	key := fmt.Sprintf("payment:status:%d", paymentID)
	return RedisClient.Set(ctx, key, status, 5*time.Minute).Err()
}

// GetCachedPaymentStatus retrieves the cached status of a payment.
func GetCachedPaymentStatus(ctx context.Context, paymentID uint) (string, error) {
	if RedisClient == nil {
		return "", redis.Nil
	}
	key := fmt.Sprintf("payment:status:%d", paymentID)
	return RedisClient.Get(ctx, key).Result()
}

// PublishPaymentUpdate publishes a payment status change to Redis pub/sub
func PublishPaymentUpdate(ctx context.Context, paymentID uint, status string, data map[string]interface{}) error {
	if RedisClient == nil {
		return nil
	}
	updateData := map[string]interface{}{
		"paymentId": paymentID,
		"status":    status,
		"data":      data,
		"timestamp": time.Now().Unix(),
	}

	jsonData, err := json.Marshal(updateData)
	if err != nil {
		return err
	}

	return RedisClient.Publish(ctx, "payment:updates", jsonData).Err()
}

// PublishJourneyUpdate publishes a journey status change to Redis pub/sub
func PublishJourneyUpdate(ctx context.Context, journeyID uint, status string, data map[string]interface{}) error {
	if RedisClient == nil {
		return nil
	}
	updateData := map[string]interface{}{
		"journeyId": journeyID,
		"status":    status,
		"data":      data,
		"timestamp": time.Now().Unix(),
	}

	jsonData, err := json.Marshal(updateData)
	if err != nil {
		return err
	}

	return RedisClient.Publish(ctx, "journey:updates", jsonData).Err()
}
