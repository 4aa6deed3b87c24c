package dto

// SyncRequest 同步请求，company_id 为空时使用调用者自己的公司
type SyncRequest struct {
	CompanyID *int64 `json:"company_id" form:"company_id"`
	Months    int    `json:"months" form:"months"`
	FullSync  bool   `json:"full_sync" form:"full_sync"`
	Since     string `json:"since" form:"since"` // RFC3339，full_sync 时忽略
}

// SnapshotDTO 月度快照
type SnapshotDTO struct {
	Date         string  `json:"date"`
	MRR          float64 `json:"mrr"`
	NewMRR       float64 `json:"new_mrr"`
	ExpansionMRR float64 `json:"expansion_mrr"`
	ChurnedMRR   float64 `json:"churned_mrr"`
	Source       string  `json:"source,omitempty"`
}

// SyncResponse 同步结果
type SyncResponse struct {
	Synced                 bool           `json:"synced"`
	CompanyID              string         `json:"company_id"`
	SyncMode               string         `json:"sync_mode"`
	Since                  *string        `json:"since"`
	MonthsSynced           int            `json:"months_synced"`
	SubscriptionsProcessed int            `json:"subscriptions_processed"`
	StatusBreakdown        map[string]int `json:"status_breakdown"`
	LatestSnapshot         *SnapshotDTO   `json:"latest_snapshot"`
	RunID                  string         `json:"run_id"`
}

// SnapshotListRequest 快照查询参数
type SnapshotListRequest struct {
	CompanyID *int64 `form:"company_id"`
	Months    int    `form:"months"`
}

// SnapshotListResponse 快照列表
type SnapshotListResponse struct {
	CompanyID int64          `json:"company_id"`
	Items     []*SnapshotDTO `json:"items"`
}

// SyncStatusResponse 同步状态
type SyncStatusResponse struct {
	CompanyID              int64          `json:"company_id"`
	Status                 string         `json:"status"`
	RunID                  string         `json:"run_id,omitempty"`
	StartedAt              *string        `json:"started_at"`
	FinishedAt             *string        `json:"finished_at"`
	LastSuccessAt          *string        `json:"last_success_at"`
	LastError              string         `json:"last_error,omitempty"`
	LastSyncMode           string         `json:"last_sync_mode,omitempty"`
	SubscriptionsProcessed int            `json:"subscriptions_processed"`
	StatusBreakdown        map[string]int `json:"status_breakdown"`
	StripeConnected        bool           `json:"stripe_connected"`
}

// SyncRunInfo 同步记录
type SyncRunInfo struct {
	RunID                  string  `json:"run_id"`
	Trigger                string  `json:"trigger"`
	SyncMode               string  `json:"sync_mode"`
	Months                 int     `json:"months"`
	Status                 string  `json:"status"`
	SubscriptionsProcessed int     `json:"subscriptions_processed"`
	Error                  string  `json:"error,omitempty"`
	StartedAt              string  `json:"started_at"`
	CompletedAt            *string `json:"completed_at"`
	ElapsedMillis          int64   `json:"elapsed_millis"`
}
