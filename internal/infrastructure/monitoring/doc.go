/*
Package monitoring provides Prometheus metrics for the shelf.

Every collector owns a private registry, so several instances can coexist in
one process (tests, CLI plus embedded daemon). A nil *Metrics is a valid
no-op collector.

# Usage

	metrics := monitoring.NewMetrics()
	router.Use(monitoring.Middleware(metrics))
	router.GET("/metrics", gin.WrapH(metrics.Handler()))

	metrics.RecordLaunch("normal", true)
	timer := monitoring.NewTimer(metrics)
	// ... scan ...
	timer.Stop(len(candidates))
*/
package monitoring
