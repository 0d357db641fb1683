package engine

import (
	"context"

	"github.com/flowforge/orchestrator/internal/application/observer"
)

// mockExecutor is a simple mock pkg/executor.Executor shared across this package's test
// files.
type mockExecutor struct {
	validateFn func(config map[string]interface{}) error
	executeFn  func(ctx context.Context, config map[string]interface{}, input interface{}) (interface{}, error)
}

func (m *mockExecutor) Validate(config map[string]interface{}) error {
	if m.validateFn != nil {
		return m.validateFn(config)
	}
	return nil
}

func (m *mockExecutor) Execute(ctx context.Context, config map[string]interface{}, input interface{}) (interface{}, error) {
	if m.executeFn != nil {
		return m.executeFn(ctx, config, input)
	}
	return map[string]interface{}{"status": "ok"}, nil
}

// executeGraph drives a workflow through the concurrent scheduler, the one execution path
// the engine has; tests exercising node-level behavior all go through here.
func executeGraph(de *DAGExecutor, ctx context.Context, execState *ExecutionState, opts *ExecutionOptions) error {
	return NewGraphScheduler(de, nil).Execute(ctx, execState, opts)
}

// discardEmit swallows events for tests that call the transfer step directly.
func discardEmit(ctx context.Context, event observer.Event) {}
