package repository

import (
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/qs3c/metrics_go_server/internal/model"
)

type SnapshotRepository struct {
	db *gorm.DB
}

func NewSnapshotRepository(db *gorm.DB) *SnapshotRepository {
	return &SnapshotRepository{db: db}
}

// UpsertBatch 在同一事务中按 (company_id, date) 写入全部月份
func (r *SnapshotRepository) UpsertBatch(rows []*model.RevenueSnapshot) error {
	if len(rows) == 0 {
		return nil
	}
	return r.db.Transaction(func(tx *gorm.DB) error {
		return tx.Clauses(clause.OnConflict{
			Columns: []clause.Column{
				{Name: "company_id"},
				{Name: "date"},
			},
			DoUpdates: clause.AssignmentColumns([]string{
				"mrr",
				"new_mrr",
				"expansion_mrr",
				"churned_mrr",
				"source",
				"sync_run_id",
				"updated_at",
			}),
		}).Create(&rows).Error
	})
}

// ListByCompany 返回 fromDate（含）之后的快照，按日期升序
func (r *SnapshotRepository) ListByCompany(companyID int64, fromDate string) ([]*model.RevenueSnapshot, error) {
	var snaps []*model.RevenueSnapshot
	query := r.db.Where("company_id = ?", companyID)
	if fromDate != "" {
		query = query.Where("date >= ?", fromDate)
	}
	err := query.Order("date ASC").Find(&snaps).Error
	return snaps, err
}

func (r *SnapshotRepository) Latest(companyID int64) (*model.RevenueSnapshot, error) {
	var snap model.RevenueSnapshot
	err := r.db.Where("company_id = ?", companyID).Order("date DESC").First(&snap).Error
	if err != nil {
		return nil, err
	}
	return &snap, nil
}

func (r *SnapshotRepository) CountByCompany(companyID int64) (int64, error) {
	var count int64
	err := r.db.Model(&model.RevenueSnapshot{}).Where("company_id = ?", companyID).Count(&count).Error
	return count, err
}
