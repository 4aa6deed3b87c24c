package oauth

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

const (
	stateKeyPrefix = "stripe_connect:state:"
	stateTTL       = 10 * time.Minute
)

var ErrInvalidState = errors.New("invalid or expired state")

// StateStore 保存 OAuth state，回调时取回发起连接的用户与公司
type StateStore struct {
	rdb *redis.Client
}

func NewStateStore(rdb *redis.Client) *StateStore {
	return &StateStore{rdb: rdb}
}

type StateData struct {
	UserID    int64 `json:"user_id"`
	CompanyID int64 `json:"company_id"`
}

// GenerateState 生成 256 位随机 state 并写入 Redis
func (s *StateStore) GenerateState(ctx context.Context, data *StateData) (string, error) {
	bytes := make([]byte, 32)
	if _, err := rand.Read(bytes); err != nil {
		return "", fmt.Errorf("failed to generate random state: %w", err)
	}
	state := hex.EncodeToString(bytes)

	payload, err := json.Marshal(data)
	if err != nil {
		return "", err
	}
	if err := s.rdb.Set(ctx, stateKeyPrefix+state, payload, stateTTL).Err(); err != nil {
		return "", fmt.Errorf("failed to store state: %w", err)
	}
	return state, nil
}

// ConsumeState 校验并删除 state，同一 state 只能使用一次
func (s *StateStore) ConsumeState(ctx context.Context, state string) (*StateData, error) {
	if state == "" {
		return nil, ErrInvalidState
	}

	key := stateKeyPrefix + state

	var raw string
	err := s.rdb.Watch(ctx, func(tx *redis.Tx) error {
		val, err := tx.Get(ctx, key).Result()
		if err == redis.Nil {
			return ErrInvalidState
		}
		if err != nil {
			return fmt.Errorf("failed to get state: %w", err)
		}
		raw = val

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Del(ctx, key)
			return nil
		})
		return err
	}, key)
	if err != nil {
		return nil, err
	}

	var data StateData
	if err := json.Unmarshal([]byte(raw), &data); err != nil {
		return nil, fmt.Errorf("decode state: %w", err)
	}
	return &data, nil
}
