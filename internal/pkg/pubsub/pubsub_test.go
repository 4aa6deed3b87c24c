package pubsub

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStepProgress(t *testing.T) {
	steps := []string{StepFetching, StepReconstructing, StepPersisting, StepDone}

	for i, step := range steps {
		progress, ok := StepProgress[step]
		assert.True(t, ok, "Step %s should have progress value", step)
		assert.LessOrEqual(t, progress, 100)
		if i > 0 {
			assert.Less(t, StepProgress[steps[i-1]], progress)
		}
	}
	assert.Equal(t, 100, StepProgress[StepDone])
	assert.NotContains(t, StepProgress, StepFailed)
}

func TestStepMessages(t *testing.T) {
	for _, step := range []string{StepFetching, StepReconstructing, StepPersisting, StepDone, StepFailed} {
		assert.NotEmpty(t, StepMessages[step], "Message for %s should not be empty", step)
	}
}

func TestProgressMessage_Fill(t *testing.T) {
	msg := &ProgressMessage{CompanyID: 1, Step: StepReconstructing}
	msg.Fill()

	assert.Equal(t, "sync_progress", msg.Type)
	assert.Equal(t, 60, msg.Progress)
	assert.Equal(t, StepMessages[StepReconstructing], msg.Message)

	custom := &ProgressMessage{Step: StepFailed, Message: "Stripe 请求失败"}
	custom.Fill()
	assert.Equal(t, 0, custom.Progress)
	assert.Equal(t, "Stripe 请求失败", custom.Message)
}

func TestProgressMessage_OmitEmpty(t *testing.T) {
	data, err := json.Marshal(&ProgressMessage{UserID: 1, Step: StepDone})
	require.NoError(t, err)

	var raw map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &raw))

	assert.Contains(t, raw, "company_id")
	assert.Contains(t, raw, "run_id")
	assert.NotContains(t, raw, "message")
	assert.NotContains(t, raw, "error")
	assert.NotContains(t, raw, "sync_mode")
}

func TestPublisherSubscriber(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	received := make(chan *ProgressMessage, 1)
	go func() {
		_ = NewSubscriber(client).Subscribe(ctx, func(msg *ProgressMessage) {
			received <- msg
		})
	}()

	require.Eventually(t, func() bool {
		return mr.PubSubNumSub(ChannelSyncProgress)[ChannelSyncProgress] == 1
	}, 2*time.Second, 10*time.Millisecond)

	err = NewPublisher(client).PublishProgress(ctx, &ProgressMessage{
		UserID:    123,
		CompanyID: 456,
		RunID:     "run-1",
		Step:      StepPersisting,
	})
	require.NoError(t, err)

	select {
	case msg := <-received:
		assert.Equal(t, int64(123), msg.UserID)
		assert.Equal(t, int64(456), msg.CompanyID)
		assert.Equal(t, "run-1", msg.RunID)
		assert.Equal(t, "sync_progress", msg.Type)
		assert.Equal(t, 80, msg.Progress)
		assert.NotEmpty(t, msg.Message)
	case <-ctx.Done():
		t.Fatal("Timeout waiting for message")
	}
}
