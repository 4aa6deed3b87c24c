package worker

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/qs3c/metrics_go_server/internal/model/dto"
	"github.com/qs3c/metrics_go_server/internal/pkg/queue"
	"github.com/qs3c/metrics_go_server/internal/service"
)

type fakeRunner struct {
	mu   sync.Mutex
	seen []int64
	errs map[int64]error
}

func (r *fakeRunner) RunJob(ctx context.Context, msg *queue.SyncJobMessage) (*dto.SyncResponse, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seen = append(r.seen, msg.CompanyID)
	if err := r.errs[msg.CompanyID]; err != nil {
		return nil, err
	}
	return &dto.SyncResponse{Synced: true, RunID: "run", SubscriptionsProcessed: 1}, nil
}

func (r *fakeRunner) companies() []int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]int64(nil), r.seen...)
}

func TestProcessor_Process(t *testing.T) {
	boom := errors.New("boom")
	runner := &fakeRunner{errs: map[int64]error{
		2: service.ErrSyncInProgress,
		3: service.ErrPaymentRequired,
		4: service.ErrStripeNotConnected,
		5: boom,
	}}
	core, logs := observer.New(zapcore.InfoLevel)
	p := NewProcessor(runner, nil, zap.New(core))
	ctx := context.Background()

	assert.NoError(t, p.Process(ctx, &queue.SyncJobMessage{CompanyID: 1}))
	assert.NoError(t, p.Process(ctx, &queue.SyncJobMessage{CompanyID: 2}))
	assert.NoError(t, p.Process(ctx, &queue.SyncJobMessage{CompanyID: 3}))
	assert.NoError(t, p.Process(ctx, &queue.SyncJobMessage{CompanyID: 4}))
	assert.ErrorIs(t, p.Process(ctx, &queue.SyncJobMessage{CompanyID: 5}), boom)

	assert.Equal(t, 1, logs.FilterMessage("job completed").Len())
	assert.Equal(t, 1, logs.FilterMessage("job skipped, sync already running").Len())
	assert.Equal(t, 2, logs.FilterMessage("job skipped").Len())
}

func TestProcessor_Run(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	q := queue.NewQueue(client, "test_sync_queue")
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	for id := int64(1); id <= 5; id++ {
		require.NoError(t, q.Push(ctx, &queue.SyncJobMessage{CompanyID: id, Trigger: queue.TriggerSchedule}))
	}

	runner := &fakeRunner{}
	p := NewProcessor(runner, q, zap.NewNop())
	p.popTimeout = 100 * time.Millisecond

	done := make(chan struct{})
	go func() {
		p.Run(ctx, 2)
		close(done)
	}()

	require.Eventually(t, func() bool { return len(runner.companies()) == 5 }, 3*time.Second, 20*time.Millisecond)
	assert.ElementsMatch(t, []int64{1, 2, 3, 4, 5}, runner.companies())

	cancel()
	select {
	case <-done:
	case <-time.After(3 * time.Second):
		t.Fatal("processor did not stop")
	}
}
