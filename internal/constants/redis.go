package constants

import "time"

const (
	// RedisDatasetKey is the list read when only a Redis address is configured.
	RedisDatasetKey = "statkit:dataset"
	// RedisDialTimeout is the timeout for the Redis dialer.
	RedisDialTimeout = 10 * time.Second
	// RedisClientMaxRetries is the maximum number of retries for the Redis client.
	RedisClientMaxRetries = 3
	// RedisClientReadTimeout is the read timeout for the Redis client.
	RedisClientReadTimeout = 30 * time.Second
)
