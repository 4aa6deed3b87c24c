package cron

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeJobs struct {
	enqueued  int32
	swept     int32
	expired   int32
	enqueueFn func() (int, error)
}

func (f *fakeJobs) EnqueueScheduledSyncs(ctx context.Context) (int, error) {
	atomic.AddInt32(&f.enqueued, 1)
	if f.enqueueFn != nil {
		return f.enqueueFn()
	}
	return 2, nil
}

func (f *fakeJobs) ExpireStaleLeases(ctx context.Context) (int64, error) {
	atomic.AddInt32(&f.swept, 1)
	return 1, nil
}

func (f *fakeJobs) ExpireOverduePlans(ctx context.Context) (int64, error) {
	atomic.AddInt32(&f.expired, 1)
	return 0, nil
}

func TestNextRun(t *testing.T) {
	tests := []struct {
		name string
		now  time.Time
		hour int
		want time.Time
	}{
		{
			name: "later today",
			now:  time.Date(2026, 10, 17, 1, 30, 0, 0, time.UTC),
			hour: 3,
			want: time.Date(2026, 10, 17, 3, 0, 0, 0, time.UTC),
		},
		{
			name: "already passed",
			now:  time.Date(2026, 10, 17, 5, 0, 0, 0, time.UTC),
			hour: 3,
			want: time.Date(2026, 10, 18, 3, 0, 0, 0, time.UTC),
		},
		{
			name: "exactly on the hour",
			now:  time.Date(2026, 10, 17, 3, 0, 0, 0, time.UTC),
			hour: 3,
			want: time.Date(2026, 10, 18, 3, 0, 0, 0, time.UTC),
		},
		{
			name: "month rollover",
			now:  time.Date(2026, 10, 31, 23, 0, 0, 0, time.UTC),
			hour: 0,
			want: time.Date(2026, 11, 1, 0, 0, 0, 0, time.UTC),
		},
		{
			name: "non utc input",
			now:  time.Date(2026, 10, 17, 10, 0, 0, 0, time.FixedZone("KST", 9*3600)),
			hour: 3,
			want: time.Date(2026, 10, 18, 3, 0, 0, 0, time.UTC),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NextRun(tt.now, tt.hour))
		})
	}
}

func TestService_RunNow(t *testing.T) {
	jobs := &fakeJobs{}
	svc := NewService(jobs, 3, time.Hour, zap.NewNop())

	n, err := svc.RunNow(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, int32(1), atomic.LoadInt32(&jobs.enqueued))
}

func TestService_RunNow_Error(t *testing.T) {
	jobs := &fakeJobs{enqueueFn: func() (int, error) { return 0, errors.New("db down") }}
	svc := NewService(jobs, 3, time.Hour, zap.NewNop())

	_, err := svc.RunNow(context.Background())
	assert.Error(t, err)
}

func TestService_SweepsLeases(t *testing.T) {
	jobs := &fakeJobs{}
	svc := NewService(jobs, 3, 20*time.Millisecond, zap.NewNop())

	svc.Start()
	defer svc.Stop()

	require.Eventually(t, func() bool {
		return atomic.LoadInt32(&jobs.swept) >= 2 && atomic.LoadInt32(&jobs.expired) >= 2
	}, time.Second, 10*time.Millisecond)
}

func TestService_StopBeforeStart(t *testing.T) {
	svc := NewService(&fakeJobs{}, 3, 0, zap.NewNop())
	assert.Equal(t, time.Hour, svc.sweepEvery)
	svc.Stop()
}
