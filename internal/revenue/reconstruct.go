package revenue

import (
	"github.com/shopspring/decimal"
)

var (
	minorUnits   = decimal.NewFromInt(100)
	daysPerMonth = decimal.NewFromInt(30)
	weeksPerYear = decimal.NewFromInt(52)
	monthsInYear = decimal.NewFromInt(12)
)

// MonthlyAmount 将订阅所有周期性行项目折算为月度金额（主货币单位，保留两位小数）
func MonthlyAmount(sub Subscription) decimal.Decimal {
	total := decimal.Zero
	for _, item := range sub.Items {
		total = total.Add(itemMonthlyMinor(item))
	}
	return total.Div(minorUnits).Round(2)
}

func itemMonthlyMinor(item Item) decimal.Decimal {
	if item.Interval == "" || item.UnitAmount <= 0 {
		return decimal.Zero
	}

	quantity := item.Quantity
	if quantity <= 0 {
		quantity = 1
	}
	count := item.IntervalCount
	if count < 1 {
		count = 1
	}

	amount := decimal.NewFromInt(item.UnitAmount).Mul(decimal.NewFromInt(quantity))
	n := decimal.NewFromInt(count)

	switch item.Interval {
	case IntervalDay:
		return amount.Mul(daysPerMonth).Div(n)
	case IntervalWeek:
		return amount.Mul(weeksPerYear).Div(monthsInYear.Mul(n))
	case IntervalMonth:
		return amount.Div(n)
	case IntervalYear:
		return amount.Div(monthsInYear.Mul(n))
	default:
		return decimal.Zero
	}
}

// Lifetime 返回订阅开始时间以及（可能为空的）结束时间
func Lifetime(sub Subscription) (start int64, end *int64) {
	start = sub.StartDate
	if start == 0 {
		start = sub.Created
	}

	if ts, ok := earliestPresent(endCandidates(sub)); ok {
		return start, &ts
	}
	if sub.Status == StatusCanceled && sub.CurrentPeriodEnd > 0 {
		ts := sub.CurrentPeriodEnd
		return start, &ts
	}
	return start, nil
}

// endCandidates 所有可能表示结束的时间字段，按优先顺序排列
func endCandidates(sub Subscription) []int64 {
	candidates := []int64{sub.EndedAt, sub.CanceledAt, sub.CancelAt}
	if sub.CancelAtPeriodEnd {
		candidates = append(candidates, sub.CurrentPeriodEnd)
	}
	return candidates
}

func earliestPresent(candidates []int64) (int64, bool) {
	var (
		earliest int64
		found    bool
	)
	for _, ts := range candidates {
		if ts <= 0 {
			continue
		}
		if !found || ts < earliest {
			earliest = ts
			found = true
		}
	}
	return earliest, found
}

// IsActiveAtMonthEnd 订阅在月末时是否计入 MRR。
// 计费中的状态优先于过期或预定的结束标记。
func IsActiveAtMonthEnd(sub Subscription, bucketEnd, start int64, end *int64) bool {
	if start > bucketEnd {
		return false
	}
	if end != nil && *end <= bucketEnd {
		return sub.Status.IsBillable()
	}
	return true
}

// Reconstruct 将订阅累加进月度窗口并计算扩张 MRR，返回新的切片
func Reconstruct(subs []Subscription, buckets []MonthBucket) []MonthBucket {
	out := make([]MonthBucket, len(buckets))
	copy(out, buckets)
	for i := range out {
		out[i].MRR = decimal.Zero
		out[i].NewMRR = decimal.Zero
		out[i].ChurnedMRR = decimal.Zero
		out[i].ExpansionMRR = decimal.Zero
	}

	for _, sub := range subs {
		amount := MonthlyAmount(sub)
		if !amount.IsPositive() {
			continue
		}
		start, end := Lifetime(sub)

		for i := range out {
			b := &out[i]
			if IsActiveAtMonthEnd(sub, b.EndTs, start, end) {
				b.MRR = b.MRR.Add(amount)
			}
			if b.Contains(start) {
				b.NewMRR = b.NewMRR.Add(amount)
			}
			if end != nil && b.Contains(*end) {
				b.ChurnedMRR = b.ChurnedMRR.Add(amount)
			}
		}
	}

	for i := range out {
		out[i].MRR = out[i].MRR.Round(2)
		out[i].NewMRR = out[i].NewMRR.Round(2)
		out[i].ChurnedMRR = out[i].ChurnedMRR.Round(2)
	}
	applyExpansion(out)
	return out
}

// applyExpansion 扩张 = 环比增量 - 新增 + 流失，下限为 0；收缩不单独建模
func applyExpansion(buckets []MonthBucket) {
	for i := range buckets {
		if i == 0 {
			buckets[i].ExpansionMRR = decimal.Zero
			continue
		}
		delta := buckets[i].MRR.Sub(buckets[i-1].MRR)
		estimate := delta.Sub(buckets[i].NewMRR).Add(buckets[i].ChurnedMRR).Round(2)
		if estimate.IsNegative() {
			estimate = decimal.Zero
		}
		buckets[i].ExpansionMRR = estimate
	}
}
