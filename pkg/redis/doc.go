// Package redis opens go-redis clients for the Redis-backed parts of an Anvil
// application, such as the shared throttle store.
//
// Settings come from [Config], whose env tags make it loadable with
// config.Load:
//
//	var cfg redis.Config
//	config.MustLoad(&cfg)
//	client, err := redis.Open(ctx, cfg)
//	if err != nil {
//		return err
//	}
//
//	app := anvil.New(
//		anvil.WithHealthChecks(anvil.WithReadinessCheck("redis", redis.Healthcheck(client))),
//	)
//	err = app.Run(":8080", anvil.ShutdownHook(redis.Shutdown(client)))
//
// Open fails with [ErrEmptyConnectionURL] or [ErrFailedToParseURL] for bad
// URLs, with [ErrConnectionFailed] when the server never answers and with
// [ErrUnsupportedServer] for servers older than 7.0. [Healthcheck] can also
// fail on latency, see [WithMaxLatency].
package redis
