package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// 快照来源
const (
	SnapshotSourceStripe = "stripe"
	SnapshotSourceManual = "manual"
	SnapshotSourceCSV    = "csv"
)

// RevenueSnapshot 每个公司每月一行，Date 为当月 1 日
type RevenueSnapshot struct {
	ID           int64           `gorm:"primaryKey" json:"id"`
	CompanyID    int64           `gorm:"not null;uniqueIndex:idx_company_date,priority:1" json:"company_id"`
	Date         string          `gorm:"size:10;not null;uniqueIndex:idx_company_date,priority:2" json:"date"`
	MRR          decimal.Decimal `gorm:"column:mrr;type:decimal(14,2);not null" json:"mrr"`
	NewMRR       decimal.Decimal `gorm:"column:new_mrr;type:decimal(14,2);not null" json:"new_mrr"`
	ExpansionMRR decimal.Decimal `gorm:"column:expansion_mrr;type:decimal(14,2);not null" json:"expansion_mrr"`
	ChurnedMRR   decimal.Decimal `gorm:"column:churned_mrr;type:decimal(14,2);not null" json:"churned_mrr"`
	Source       string          `gorm:"size:20;not null;default:stripe" json:"source"`
	SyncRunID    string          `gorm:"size:36" json:"sync_run_id,omitempty"`
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`
}

func (RevenueSnapshot) TableName() string {
	return "revenue_snapshots"
}
