package telemetry

// SLI metric names used for instrumentation.
const (
	// Latency
	MetricAPILatencyP50 = "api.latency.p50"
	MetricAPILatencyP95 = "api.latency.p95"
	MetricAPILatencyP99 = "api.latency.p99"

	// Throughput
	MetricRequestsPerSec = "api.requests_per_second"

	// Walking mode
	MetricWalkStartLatency = "walk.session_start_latency"
	MetricPositionLatency  = "walk.position_latency"

	// Availability
	MetricUptime = "service.uptime_percentage"

	// Business
	MetricToursPublished = "business.tours_published"
	MetricWalksFinished  = "business.walks_finished"
)
