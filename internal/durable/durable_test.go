package durable

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"

	"github.com/flowforge/orchestrator/internal/config"
	"github.com/flowforge/orchestrator/testutil"
)

// setupDB hands each test an isolated database cloned from the migrated template.
func setupDB(t *testing.T) *bun.DB {
	t.Helper()
	idb, _ := testutil.SetupTestTx(t)
	db, ok := idb.(*bun.DB)
	require.True(t, ok, "SetupTestTx must return a *bun.DB")
	return db
}

func testDurableConfig() config.DurableConfig {
	return config.DurableConfig{
		WorkerConcurrency:    2,
		QueueConcurrency:     10,
		ApplicationVersion:   "test",
		RecoveryScanInterval: time.Second,
		RecoveryMaxFailures:  5,
		RecoveryCronSpec:     "@every 1s",
	}
}

// newTestRuntime wires a store, queue (no Redis gate) and runtime over one test database.
func newTestRuntime(t *testing.T, db *bun.DB) (*WorkflowRuntime, *DurableQueue, *ExecutionStore) {
	t.Helper()
	cfg := testDurableConfig()
	store := NewExecutionStore(db, nil)
	queue := NewDurableQueue(db, nil, cfg, nil)
	rt := NewWorkflowRuntime(db, queue, store, cfg, nil, "worker-test")
	return rt, queue, store
}
