// Package stripeapi adapts the stripe-go client to revenue.SubscriptionPager.
package stripeapi

import (
	"context"
	"errors"
	"fmt"

	"github.com/sony/gobreaker/v2"
	"github.com/stripe/stripe-go/v81"
	"github.com/stripe/stripe-go/v81/client"
	"go.uber.org/zap"

	"github.com/qs3c/metrics_go_server/config"
	"github.com/qs3c/metrics_go_server/internal/revenue"
)

// Factory 按公司密钥创建 Pager，所有 Pager 共享同一个熔断器
type Factory struct {
	backends *stripe.Backends
	breaker  *gobreaker.CircuitBreaker[*revenue.Page]
}

func NewFactory(cfg config.StripeConfig, logger *zap.Logger) *Factory {
	backendCfg := &stripe.BackendConfig{
		MaxNetworkRetries: stripe.Int64(int64(cfg.MaxNetworkRetries)),
		LeveledLogger:     logger.Named("stripe").Sugar(),
	}
	if cfg.APIURL != "" {
		backendCfg.URL = stripe.String(cfg.APIURL)
	}
	backend := stripe.GetBackendWithConfig(stripe.APIBackend, backendCfg)

	trips := cfg.BreakerTrips
	if trips == 0 {
		trips = 5
	}
	breaker := gobreaker.NewCircuitBreaker[*revenue.Page](gobreaker.Settings{
		Name:    "stripe-subscriptions",
		Timeout: cfg.BreakerTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= trips
		},
		IsSuccessful: isBreakerSuccess,
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("stripe circuit breaker state changed",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()))
		},
	})

	return &Factory{
		backends: &stripe.Backends{API: backend, Connect: backend, Uploads: backend},
		breaker:  breaker,
	}
}

// NewPager 为单个公司的 Stripe 密钥创建分页器
func (f *Factory) NewPager(secretKey string) revenue.SubscriptionPager {
	return &Pager{
		api:     client.New(secretKey, f.backends),
		breaker: f.breaker,
	}
}

// isBreakerSuccess 只有服务端故障和网络错误才计入熔断
func isBreakerSuccess(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) {
		return true
	}
	var stripeErr *stripe.Error
	if errors.As(err, &stripeErr) {
		return stripeErr.HTTPStatusCode > 0 && stripeErr.HTTPStatusCode < 500
	}
	return false
}

// Pager 使用 stripe-go 的单页迭代实现游标分页
type Pager struct {
	api     *client.API
	breaker *gobreaker.CircuitBreaker[*revenue.Page]
}

func (p *Pager) ListPage(ctx context.Context, req revenue.PageRequest) (*revenue.Page, error) {
	return p.breaker.Execute(func() (*revenue.Page, error) {
		return p.listPage(ctx, req)
	})
}

func (p *Pager) listPage(ctx context.Context, req revenue.PageRequest) (*revenue.Page, error) {
	params := &stripe.SubscriptionListParams{
		Status: stripe.String(string(req.Status)),
	}
	params.Context = ctx
	params.Single = true
	params.Limit = stripe.Int64(int64(req.Limit))
	if req.StartingAfter != "" {
		params.StartingAfter = stripe.String(req.StartingAfter)
	}
	if req.CreatedGTE > 0 {
		params.CreatedRange = &stripe.RangeQueryParams{GreaterThanOrEqual: req.CreatedGTE}
	}

	iter := p.api.Subscriptions.List(params)
	page := &revenue.Page{}
	for iter.Next() {
		sub := iter.Subscription()
		out := toSubscription(sub)
		// 内嵌的 items 最多 10 条，超出时单独分页拉取
		if sub.Items != nil && sub.Items.HasMore {
			items, err := p.listItems(ctx, sub.ID)
			if err != nil {
				return nil, fmt.Errorf("list items of %s: %w", sub.ID, err)
			}
			out.Items = items
		}
		page.Subscriptions = append(page.Subscriptions, out)
	}
	if err := iter.Err(); err != nil {
		return nil, err
	}
	if meta := iter.Meta(); meta != nil {
		page.HasMore = meta.HasMore
	}
	return page, nil
}

func (p *Pager) listItems(ctx context.Context, subscriptionID string) ([]revenue.Item, error) {
	params := &stripe.SubscriptionItemListParams{
		Subscription: stripe.String(subscriptionID),
	}
	params.Context = ctx
	params.Limit = stripe.Int64(100)

	var items []revenue.Item
	iter := p.api.SubscriptionItems.List(params)
	for iter.Next() {
		if item, ok := toItem(iter.SubscriptionItem()); ok {
			items = append(items, item)
		}
	}
	if err := iter.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

func toSubscription(s *stripe.Subscription) revenue.Subscription {
	out := revenue.Subscription{
		ID:                 s.ID,
		Status:             revenue.Status(s.Status),
		StartDate:          s.StartDate,
		Created:            s.Created,
		EndedAt:            s.EndedAt,
		CanceledAt:         s.CanceledAt,
		CancelAt:           s.CancelAt,
		CancelAtPeriodEnd:  s.CancelAtPeriodEnd,
		CurrentPeriodStart: s.CurrentPeriodStart,
		CurrentPeriodEnd:   s.CurrentPeriodEnd,
		Metadata:           s.Metadata,
	}
	if s.Items == nil {
		return out
	}

	for _, si := range s.Items.Data {
		if item, ok := toItem(si); ok {
			out.Items = append(out.Items, item)
		}
	}
	return out
}

func toItem(si *stripe.SubscriptionItem) (revenue.Item, bool) {
	if si == nil || si.Price == nil {
		return revenue.Item{}, false
	}
	item := revenue.Item{
		UnitAmount: si.Price.UnitAmount,
		Quantity:   si.Quantity,
	}
	if si.Price.Recurring != nil {
		item.Interval = revenue.Interval(si.Price.Recurring.Interval)
		item.IntervalCount = si.Price.Recurring.IntervalCount
	}
	return item, true
}
