package repository

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/qs3c/metrics_go_server/internal/model"
	"github.com/qs3c/metrics_go_server/internal/testutil"
)

func TestPlanRepository_GetActive(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.CleanupTestDB(t, db)

	repo := NewPlanRepository(db)
	user := testutil.TestUser(t, db)
	now := time.Now()

	testutil.TestPlan(t, db, user.ID, testutil.WithPlanExpiresAt(now.Add(24*time.Hour)))
	later := testutil.TestPlan(t, db, user.ID,
		testutil.WithPlanStatus(model.PlanStatusTrialing),
		testutil.WithPlanExpiresAt(now.Add(72*time.Hour)))

	found, err := repo.GetActive(user.ID, now)
	require.NoError(t, err)
	assert.Equal(t, later.ID, found.ID)
}

func TestPlanRepository_GetActive_None(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.CleanupTestDB(t, db)

	repo := NewPlanRepository(db)
	user := testutil.TestUser(t, db)
	now := time.Now()

	testutil.TestPlan(t, db, user.ID, testutil.WithPlanExpiresAt(now.Add(-time.Minute)))
	testutil.TestPlan(t, db, user.ID, testutil.WithPlanStatus(model.PlanStatusCancelled))

	_, err := repo.GetActive(user.ID, now)
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestPlanRepository_ExpireOverdue(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.CleanupTestDB(t, db)

	repo := NewPlanRepository(db)
	user := testutil.TestUser(t, db)
	now := time.Now()

	overdue := testutil.TestPlan(t, db, user.ID, testutil.WithPlanExpiresAt(now.Add(-time.Hour)))
	valid := testutil.TestPlan(t, db, user.ID)

	n, err := repo.ExpireOverdue(now)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	plans, err := repo.ListByUser(user.ID)
	require.NoError(t, err)
	statuses := map[int64]string{}
	for _, p := range plans {
		statuses[p.ID] = p.Status
	}
	assert.Equal(t, model.PlanStatusExpired, statuses[overdue.ID])
	assert.Equal(t, model.PlanStatusActive, statuses[valid.ID])
}

func TestUserPlan_GrantsAccess(t *testing.T) {
	now := time.Now()
	tests := []struct {
		name   string
		status string
		expire time.Time
		want   bool
	}{
		{"active", model.PlanStatusActive, now.Add(time.Hour), true},
		{"trialing", model.PlanStatusTrialing, now.Add(time.Hour), true},
		{"trial expired", model.PlanStatusTrialing, now.Add(-time.Second), false},
		{"cancelled", model.PlanStatusCancelled, now.Add(time.Hour), false},
		{"expired", model.PlanStatusExpired, now.Add(time.Hour), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := &model.UserPlan{Status: tt.status, ExpiresAt: tt.expire}
			assert.Equal(t, tt.want, p.GrantsAccess(now))
		})
	}
}
