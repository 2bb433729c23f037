package lendcache

// Metric names for stats.Tracker.
const (
	// MetricHit is a counter of borrows served from resident entries.
	MetricHit = "cache_hit"

	// MetricMiss is a counter of borrows that had to fetch from the store.
	MetricMiss = "cache_miss"

	// MetricWrite is a counter of inserts.
	MetricWrite = "cache_write"

	// MetricEvict is a counter of entries dropped from memory.
	MetricEvict = "cache_evict"

	// MetricFlush is a counter of changed values written back to the store.
	MetricFlush = "cache_flush"

	// MetricConflict is a counter of operations rejected due to live references.
	MetricConflict = "cache_conflict"

	// MetricItems is a gauge with count of resident entries.
	MetricItems = "cache_items"

	// MetricBuild is a counter of value builds performed by Loader.
	MetricBuild = "cache_build"

	// MetricFailed is a counter of failed value builds.
	MetricFailed = "cache_failed_build"
)
