package revenue

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
)

// MaxPageSize Stripe 列表接口单页上限
const MaxPageSize = 100

var ErrPagerMissing = errors.New("subscription pager is nil")

// PageRequest 单页查询参数
type PageRequest struct {
	Status        Status
	CreatedGTE    int64 // 0 表示不过滤
	StartingAfter string
	Limit         int
}

// Page 单页结果
type Page struct {
	Subscriptions []Subscription
	HasMore       bool
}

// SubscriptionPager 计费服务商的分页列表接口
type SubscriptionPager interface {
	ListPage(ctx context.Context, req PageRequest) (*Page, error)
}

// Fetcher 拉取账户下所有状态的订阅
type Fetcher struct {
	pager    SubscriptionPager
	pageSize int
}

func NewFetcher(pager SubscriptionPager, pageSize int) *Fetcher {
	if pageSize <= 0 || pageSize > MaxPageSize {
		pageSize = MaxPageSize
	}
	return &Fetcher{pager: pager, pageSize: pageSize}
}

// FetchAll 并发查询每个状态并按 ID 合并；任一状态失败则整体失败。
// since 非空时仅对终结状态追加 created >= since 过滤，计费中的订阅始终全量扫描。
func (f *Fetcher) FetchAll(ctx context.Context, since *time.Time) ([]Subscription, error) {
	if f.pager == nil {
		return nil, ErrPagerMissing
	}

	var (
		mu     sync.Mutex
		merged = make(map[string]Subscription)
	)

	g, gctx := errgroup.WithContext(ctx)
	for _, status := range AllStatuses {
		status := status
		var createdGTE int64
		if since != nil && status.IsTerminal() {
			createdGTE = since.Unix()
		}

		g.Go(func() error {
			subs, err := f.fetchStatus(gctx, status, createdGTE)
			if err != nil {
				return fmt.Errorf("list %s subscriptions: %w", status, err)
			}
			mu.Lock()
			for _, sub := range subs {
				merged[sub.ID] = sub
			}
			mu.Unlock()
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := make([]Subscription, 0, len(merged))
	for _, sub := range merged {
		out = append(out, sub)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// fetchStatus 按游标顺序翻页直到没有更多数据
func (f *Fetcher) fetchStatus(ctx context.Context, status Status, createdGTE int64) ([]Subscription, error) {
	var (
		out    []Subscription
		cursor string
	)
	for {
		page, err := f.pager.ListPage(ctx, PageRequest{
			Status:        status,
			CreatedGTE:    createdGTE,
			StartingAfter: cursor,
			Limit:         f.pageSize,
		})
		if err != nil {
			return nil, err
		}
		out = append(out, page.Subscriptions...)

		if !page.HasMore || len(page.Subscriptions) == 0 {
			return out, nil
		}
		cursor = page.Subscriptions[len(page.Subscriptions)-1].ID
	}
}

// StatusBreakdown 按状态统计订阅数量
func StatusBreakdown(subs []Subscription) map[string]int {
	out := make(map[string]int)
	for _, sub := range subs {
		out[string(sub.Status)]++
	}
	return out
}
