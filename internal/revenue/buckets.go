package revenue

import "time"

const (
	MinMonths = 3
	MaxMonths = 24
)

// ClampMonths 将月份数限制在 [3, 24]
func ClampMonths(n int) int {
	if n < MinMonths {
		return MinMonths
	}
	if n > MaxMonths {
		return MaxMonths
	}
	return n
}

// BuildMonthBuckets 生成截至 now 所在月（含）的连续自然月窗口，最早的在前
func BuildMonthBuckets(monthCount int, now time.Time) []MonthBucket {
	monthCount = ClampMonths(monthCount)
	now = now.UTC()
	current := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)

	buckets := make([]MonthBucket, 0, monthCount)
	for i := monthCount - 1; i >= 0; i-- {
		start := current.AddDate(0, -i, 0)
		next := start.AddDate(0, 1, 0)
		buckets = append(buckets, MonthBucket{
			Date:    start.Format("2006-01-02"),
			StartTs: start.Unix(),
			EndTs:   next.Unix() - 1,
		})
	}
	return buckets
}
