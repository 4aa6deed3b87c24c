// Package revenue rebuilds a monthly MRR history from billing-provider subscriptions.
//
// The package is free of I/O except for the SubscriptionPager it is handed; everything
// else is a pure function of the fetched subscriptions and the month boundaries.
package revenue

import "github.com/shopspring/decimal"

// Status 订阅生命周期状态
type Status string

const (
	StatusActive            Status = "active"
	StatusTrialing          Status = "trialing"
	StatusPastDue           Status = "past_due"
	StatusUnpaid            Status = "unpaid"
	StatusCanceled          Status = "canceled"
	StatusIncomplete        Status = "incomplete"
	StatusIncompleteExpired Status = "incomplete_expired"
)

// AllStatuses Stripe 列表接口不支持一次查询全部状态，需逐个查询
var AllStatuses = []Status{
	StatusActive,
	StatusTrialing,
	StatusPastDue,
	StatusUnpaid,
	StatusCanceled,
	StatusIncomplete,
	StatusIncompleteExpired,
}

// IsTerminal 已终结的历史状态，增量同步时可以按创建时间过滤
func (s Status) IsTerminal() bool {
	switch s {
	case StatusCanceled, StatusIncomplete, StatusIncompleteExpired:
		return true
	}
	return false
}

// IsBillable 当前仍在计费的状态
func (s Status) IsBillable() bool {
	switch s {
	case StatusActive, StatusTrialing, StatusPastDue, StatusUnpaid:
		return true
	}
	return false
}

// Interval 计费周期单位
type Interval string

const (
	IntervalDay   Interval = "day"
	IntervalWeek  Interval = "week"
	IntervalMonth Interval = "month"
	IntervalYear  Interval = "year"
)

// Item 订阅行项目，金额为最小货币单位（分）
type Item struct {
	UnitAmount    int64
	Quantity      int64
	Interval      Interval // 为空表示非周期价格
	IntervalCount int64
}

// Subscription 与 SDK 解耦的订阅快照，时间戳均为 Unix 秒，0 表示缺失
type Subscription struct {
	ID                 string
	Status             Status
	Items              []Item
	StartDate          int64
	Created            int64
	EndedAt            int64
	CanceledAt         int64
	CancelAt           int64
	CancelAtPeriodEnd  bool
	CurrentPeriodStart int64
	CurrentPeriodEnd   int64
	Metadata           map[string]string
}

// MonthBucket 一个自然月的聚合窗口
type MonthBucket struct {
	Date         string // YYYY-MM-01
	StartTs      int64
	EndTs        int64 // 含当月最后一秒
	MRR          decimal.Decimal
	NewMRR       decimal.Decimal
	ChurnedMRR   decimal.Decimal
	ExpansionMRR decimal.Decimal
}

// Contains 时间戳是否落在当月窗口内（两端闭区间）
func (b MonthBucket) Contains(ts int64) bool {
	return ts >= b.StartTs && ts <= b.EndTs
}
