package pubsub

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/go-redis/redis/v8"
)

const (
	ChannelSyncProgress = "revenue_sync_progress"
)

// ProgressMessage 同步进度消息
type ProgressMessage struct {
	Type      string `json:"type"`
	UserID    int64  `json:"user_id"`
	CompanyID int64  `json:"company_id"`
	RunID     string `json:"run_id"`
	SyncMode  string `json:"sync_mode,omitempty"`
	Step      string `json:"step"`
	Progress  int    `json:"progress"`
	Message   string `json:"message,omitempty"`
	Error     string `json:"error,omitempty"`
}

// 进度阶段常量
const (
	StepFetching       = "fetching"
	StepReconstructing = "reconstructing"
	StepPersisting     = "persisting"
	StepDone           = "done"
	StepFailed         = "failed"
)

// 阶段对应的进度百分比，失败不设进度
var StepProgress = map[string]int{
	StepFetching:       20,
	StepReconstructing: 60,
	StepPersisting:     80,
	StepDone:           100,
}

// 阶段对应的消息
var StepMessages = map[string]string{
	StepFetching:       "正在拉取 Stripe 订阅",
	StepReconstructing: "正在重建月度收入",
	StepPersisting:     "正在保存快照",
	StepDone:           "同步完成",
	StepFailed:         "同步失败",
}

// Publisher Redis 发布者
type Publisher struct {
	client *redis.Client
}

// NewPublisher 创建发布者
func NewPublisher(client *redis.Client) *Publisher {
	return &Publisher{client: client}
}

// Fill 自动填充类型、进度和消息
func (m *ProgressMessage) Fill() {
	m.Type = "sync_progress"
	if m.Progress == 0 && m.Step != "" {
		m.Progress = StepProgress[m.Step]
	}
	if m.Message == "" && m.Step != "" {
		m.Message = StepMessages[m.Step]
	}
}

// PublishProgress 发布进度消息
func (p *Publisher) PublishProgress(ctx context.Context, msg *ProgressMessage) error {
	msg.Fill()

	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to marshal progress message: %w", err)
	}

	return p.client.Publish(ctx, ChannelSyncProgress, data).Err()
}

// Subscriber Redis 订阅者
type Subscriber struct {
	client *redis.Client
}

// NewSubscriber 创建订阅者
func NewSubscriber(client *redis.Client) *Subscriber {
	return &Subscriber{client: client}
}

// Subscribe 订阅进度消息，阻塞直到 ctx 结束
func (s *Subscriber) Subscribe(ctx context.Context, handler func(*ProgressMessage)) error {
	pubsub := s.client.Subscribe(ctx, ChannelSyncProgress)
	defer pubsub.Close()

	// 等待订阅确认，避免丢失订阅建立前的消息
	if _, err := pubsub.Receive(ctx); err != nil {
		return fmt.Errorf("subscribe %s: %w", ChannelSyncProgress, err)
	}

	ch := pubsub.Channel()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-ch:
			if !ok {
				return nil
			}

			var progressMsg ProgressMessage
			if err := json.Unmarshal([]byte(msg.Payload), &progressMsg); err != nil {
				continue // 忽略解析错误
			}

			handler(&progressMsg)
		}
	}
}
