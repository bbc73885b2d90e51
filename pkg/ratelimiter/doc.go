// Package ratelimiter is a token bucket limiter used to cap second-factor
// verification attempts per account.
//
// A Bucket holds the policy and delegates state to a Store. MemoryStore keeps
// buckets in process and runs a cleanup loop that must be stopped with Close.
// RedisStore keeps buckets in Redis and refills them inside a Lua script, so
// several service instances share one budget per key.
//
//	store := ratelimiter.NewMemoryStore()
//	defer store.Close()
//
//	limiter, err := ratelimiter.NewBucket(store, ratelimiter.Config{
//		Capacity:       5,
//		RefillRate:     1,
//		RefillInterval: time.Minute,
//	})
//
// A request that does not fit leaves the bucket untouched and reports a
// negative Remaining.
package ratelimiter
