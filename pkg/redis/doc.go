// Package redis connects to Redis with go-redis and exposes a readiness
// probe. The two-factor Redis record store and the distributed attempt
// limiter both take the *redis.Client returned by Connect.
//
//	client, err := redis.Connect(ctx, cfg)
//	if err != nil {
//		return err
//	}
//	defer client.Close()
package redis
