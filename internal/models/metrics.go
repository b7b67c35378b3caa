package models

import "time"

// MetricsSnapshot is a lightweight in-process view of the Prometheus counters.
type MetricsSnapshot struct {
	RequestsTotal            uint64            `json:"requestsTotal"`
	AverageRequestDurationMs float64           `json:"averageRequestDurationMs"`
	CacheHits                uint64            `json:"cacheHits"`
	CacheMisses              uint64            `json:"cacheMisses"`
	CacheHitRatio            float64           `json:"cacheHitRatio"`
	ImportAnalyses           map[string]uint64 `json:"importAnalyses"`
	ImportFallbacks          map[string]uint64 `json:"importFallbacks"`
	ApprovalTransitions      map[string]uint64 `json:"approvalTransitions"`
	Goroutines               int               `json:"goroutines"`
	GeneratedAt              time.Time         `json:"generatedAt"`
}
