package businessflow

import "github.com/tourvanir/pricing-core/config"

// redisKey namespaces a cache key under the configured Redis prefix.
func redisKey(cfg config.CacheConfig, key string) string {
	return cfg.RedisPrefix + key
}
