package revenue

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClampMonths(t *testing.T) {
	assert.Equal(t, 3, ClampMonths(0))
	assert.Equal(t, 3, ClampMonths(-4))
	assert.Equal(t, 3, ClampMonths(3))
	assert.Equal(t, 12, ClampMonths(12))
	assert.Equal(t, 24, ClampMonths(24))
	assert.Equal(t, 24, ClampMonths(100))
}

func TestBuildMonthBuckets(t *testing.T) {
	buckets := BuildMonthBuckets(3, testNow)
	require.Len(t, buckets, 3)

	assert.Equal(t, "2026-08-01", buckets[0].Date)
	assert.Equal(t, "2026-09-01", buckets[1].Date)
	assert.Equal(t, "2026-10-01", buckets[2].Date)

	assert.Equal(t, ts(2026, time.August, 1), buckets[0].StartTs)
	assert.Equal(t, ts(2026, time.September, 1)-1, buckets[0].EndTs)
	assert.Equal(t, ts(2026, time.November, 1)-1, buckets[2].EndTs)

	for i := 1; i < len(buckets); i++ {
		assert.Equal(t, buckets[i-1].EndTs+1, buckets[i].StartTs, "buckets must be contiguous")
	}
}

func TestBuildMonthBuckets_CrossesYearBoundary(t *testing.T) {
	now := time.Date(2026, time.February, 10, 0, 0, 0, 0, time.UTC)
	buckets := BuildMonthBuckets(4, now)

	dates := make([]string, 0, len(buckets))
	for _, b := range buckets {
		dates = append(dates, b.Date)
	}
	assert.Equal(t, []string{"2025-11-01", "2025-12-01", "2026-01-01", "2026-02-01"}, dates)
	// 2026 年 2 月 28 天
	assert.Equal(t, int64(28*24*3600-1), buckets[3].EndTs-buckets[3].StartTs)
}

func TestBuildMonthBuckets_UsesUTC(t *testing.T) {
	loc := time.FixedZone("UTC+9", 9*3600)
	// 本地时间 11 月 1 日 02:00 仍是 UTC 的 10 月
	now := time.Date(2026, time.November, 1, 2, 0, 0, 0, loc)
	buckets := BuildMonthBuckets(3, now)
	assert.Equal(t, "2026-10-01", buckets[2].Date)
}

func TestBuildMonthBuckets_Clamped(t *testing.T) {
	assert.Len(t, BuildMonthBuckets(1, testNow), 3)
	assert.Len(t, BuildMonthBuckets(48, testNow), 24)
}

func TestMonthBucket_Contains(t *testing.T) {
	b := BuildMonthBuckets(3, testNow)[2]
	assert.True(t, b.Contains(b.StartTs))
	assert.True(t, b.Contains(b.EndTs))
	assert.False(t, b.Contains(b.StartTs-1))
	assert.False(t, b.Contains(b.EndTs+1))
}
