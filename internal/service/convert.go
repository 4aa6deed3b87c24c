package service

import (
	"time"

	"github.com/qs3c/metrics_go_server/internal/model"
	"github.com/qs3c/metrics_go_server/internal/model/dto"
	"github.com/qs3c/metrics_go_server/internal/revenue"
)

func formatTime(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := t.UTC().Format(time.RFC3339)
	return &s
}

func bucketToDTO(b revenue.MonthBucket) *dto.SnapshotDTO {
	return &dto.SnapshotDTO{
		Date:         b.Date,
		MRR:          b.MRR.InexactFloat64(),
		NewMRR:       b.NewMRR.InexactFloat64(),
		ExpansionMRR: b.ExpansionMRR.InexactFloat64(),
		ChurnedMRR:   b.ChurnedMRR.InexactFloat64(),
	}
}

func snapshotToDTO(s *model.RevenueSnapshot) *dto.SnapshotDTO {
	return &dto.SnapshotDTO{
		Date:         s.Date,
		MRR:          s.MRR.InexactFloat64(),
		NewMRR:       s.NewMRR.InexactFloat64(),
		ExpansionMRR: s.ExpansionMRR.InexactFloat64(),
		ChurnedMRR:   s.ChurnedMRR.InexactFloat64(),
		Source:       s.Source,
	}
}

func bucketsToSnapshots(companyID int64, runID string, buckets []revenue.MonthBucket) []*model.RevenueSnapshot {
	rows := make([]*model.RevenueSnapshot, 0, len(buckets))
	for _, b := range buckets {
		rows = append(rows, &model.RevenueSnapshot{
			CompanyID:    companyID,
			Date:         b.Date,
			MRR:          b.MRR,
			NewMRR:       b.NewMRR,
			ExpansionMRR: b.ExpansionMRR,
			ChurnedMRR:   b.ChurnedMRR,
			Source:       model.SnapshotSourceStripe,
			SyncRunID:    runID,
		})
	}
	return rows
}

func runToDTO(r *model.SyncRun) *dto.SyncRunInfo {
	return &dto.SyncRunInfo{
		RunID:                  r.RunID,
		Trigger:                r.Trigger,
		SyncMode:               r.SyncMode,
		Months:                 r.Months,
		Status:                 r.Status,
		SubscriptionsProcessed: r.SubscriptionsProcessed,
		Error:                  r.ErrorMessage,
		StartedAt:              r.CreatedAt.UTC().Format(time.RFC3339),
		CompletedAt:            formatTime(r.CompletedAt),
		ElapsedMillis:          r.ElapsedMillis,
	}
}
