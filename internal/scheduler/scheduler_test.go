package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"hyperliquid-agent-bot-go/internal/assessment"
	"hyperliquid-agent-bot-go/internal/config"
	"hyperliquid-agent-bot-go/internal/models"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// stubRunner records the agents it was asked to run and can fail selected
// ones.
type stubRunner struct {
	mu      sync.Mutex
	seen    []string
	failing map[string]bool

	inFlight    atomic.Int32
	maxInFlight atomic.Int32
}

func (r *stubRunner) Run(ctx context.Context, agentID string) (*assessment.RunResult, error) {
	current := r.inFlight.Add(1)
	defer r.inFlight.Add(-1)
	for {
		peak := r.maxInFlight.Load()
		if current <= peak || r.maxInFlight.CompareAndSwap(peak, current) {
			break
		}
	}
	time.Sleep(5 * time.Millisecond)

	r.mu.Lock()
	r.seen = append(r.seen, agentID)
	r.mu.Unlock()

	if r.failing[agentID] {
		return nil, errors.New("boom")
	}
	return &assessment.RunResult{Success: true}, nil
}

func setupSchedulerTest(t *testing.T, concurrency int, runner Runner) (*gorm.DB, *Scheduler) {
	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{})
	assert.NoError(t, err)
	assert.NoError(t, db.AutoMigrate(&models.Agent{}))

	cfg := &config.Scheduler{Concurrency: concurrency}
	return db, NewScheduler(db, runner, cfg, zap.NewNop())
}

func TestRunBatchProcessesAllActiveAgents(t *testing.T) {
	runner := &stubRunner{}
	db, sched := setupSchedulerTest(t, 50, runner)

	for i := 0; i < 5; i++ {
		db.Create(&models.Agent{ID: fmt.Sprintf("a%d", i), IsActive: true})
	}
	db.Create(&models.Agent{ID: "inactive", IsActive: false})

	result, err := sched.RunBatch(context.Background())

	assert.NoError(t, err)
	assert.Equal(t, 5, result.Total)
	assert.Equal(t, 5, result.Processed)
	assert.Equal(t, 50, result.Concurrency)
	assert.Len(t, runner.seen, 5)
	assert.NotContains(t, runner.seen, "inactive")
}

func TestRunBatchIsolatesFailures(t *testing.T) {
	runner := &stubRunner{failing: map[string]bool{"a1": true}}
	db, sched := setupSchedulerTest(t, 50, runner)

	db.Create(&models.Agent{ID: "a0", IsActive: true})
	db.Create(&models.Agent{ID: "a1", IsActive: true})
	db.Create(&models.Agent{ID: "a2", IsActive: true})

	result, err := sched.RunBatch(context.Background())

	// The failing agent still ran, but only the successes count.
	assert.NoError(t, err)
	assert.Equal(t, 3, result.Total)
	assert.Equal(t, 2, result.Processed)
	assert.Len(t, runner.seen, 3)
}

func TestRunBatchBoundsConcurrency(t *testing.T) {
	runner := &stubRunner{}
	db, sched := setupSchedulerTest(t, 2, runner)

	for i := 0; i < 10; i++ {
		db.Create(&models.Agent{ID: fmt.Sprintf("a%d", i), IsActive: true})
	}

	result, err := sched.RunBatch(context.Background())

	assert.NoError(t, err)
	assert.Equal(t, 10, result.Processed)
	assert.LessOrEqual(t, runner.maxInFlight.Load(), int32(2))
}

func TestRunBatchEmpty(t *testing.T) {
	runner := &stubRunner{}
	_, sched := setupSchedulerTest(t, 50, runner)

	result, err := sched.RunBatch(context.Background())

	assert.NoError(t, err)
	assert.Zero(t, result.Total)
	assert.Zero(t, result.Processed)
}
