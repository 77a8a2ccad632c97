// Package throttle limits sign-in attempts per client with an in-memory
// token bucket.
//
// Each client key starts with Burst tokens. Every attempt consumes one and
// Refill tokens come back each Interval. A request arriving with an empty
// bucket is answered with 429 Too Many Requests and a Retry-After header.
//
//	limiter, _ := throttle.New(throttle.Config{Burst: 20, Refill: 5, Interval: time.Minute})
//	defer limiter.Close()
//	r.With(throttle.Middleware(limiter, throttle.ByClientIP(false))).Get("/auth/vkontakte", h)
//
// State is per process. Deployments with several replicas get one budget per replica.
package throttle
