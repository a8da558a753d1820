package common

const (
	// RedisKeyInflight guards a single position evaluation across processes.
	RedisKeyInflight = "monitor:inflight:%d"

	CacheKeyQuote          = "quote:%s"
	CacheKeyMovingAverages = "ma:%s"
)
