// Package httpserver runs an http.Handler until the context is cancelled or
// the process receives SIGINT/SIGTERM, then shuts it down gracefully.
//
//	srv := httpserver.New(cfg, httpserver.WithLogger(log))
//	if err := srv.Run(ctx, router); err != nil {
//		log.Error("server stopped", logger.Error(err))
//	}
//
// HealthCheckHandler serves liveness (no checks) and readiness (all checks
// pass) probes.
package httpserver
