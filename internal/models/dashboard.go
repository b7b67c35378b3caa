package models

import "time"

// DashboardSummary aggregates per-tenant counts for the landing dashboard.
type DashboardSummary struct {
	TenantID                 string                 `json:"tenantId"`
	TotalUseCases            int                    `json:"totalUseCases"`
	UseCasesByStatus         map[UseCaseStatus]int  `json:"useCasesByStatus"`
	UseCasesByLifecycleStage map[LifecycleStage]int `json:"useCasesByLifecycleStage"`
	TotalTestCases           int                    `json:"totalTestCases"`
	TestCasesByStatus        map[TestCaseStatus]int `json:"testCasesByStatus"`
	PassRate                 float64                `json:"passRate"`
	PendingMyApproval        int                    `json:"pendingMyApproval"`
	GeneratedAt              time.Time              `json:"generatedAt"`
}

// StatusCount is a grouped count row.
type StatusCount struct {
	Key   string `db:"key"`
	Count int    `db:"count"`
}
