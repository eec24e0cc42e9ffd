// Package throttle implements per-key request limiting.
//
// A [Limiter] allows up to limit requests per key in each window. The
// decision is made by a [Store]: [Memory] keeps a token bucket per key in
// process, [Redis] counts fixed windows on a server shared by several
// instances.
//
//	limiter := throttle.New(throttle.NewRedis(client), 60, time.Minute)
//	res, err := limiter.Allow(ctx, "ip:"+addr)
//	if err != nil {
//		return err
//	}
//	if !res.Allowed {
//		// reject with 429, retry after res.RetryAfter
//	}
package throttle
