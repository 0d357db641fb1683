package durable

import (
	"context"
	"sync"
	"time"

	"github.com/flowforge/orchestrator/internal/application/observer"
	"github.com/flowforge/orchestrator/internal/infrastructure/logger"
)

// eventsStreamKey is the fixed stream key every execution's engine events are written under,
// distinct from the control-command topic and from any node-authored streams.
const eventsStreamKey = "events"

// StreamEventPublisher adapts the engine's observer.Observer interface onto a single
// execution's event stream: every engine event (node/flow lifecycle, edge transfer,
// debugger) is appended as a stream row via RunContext.WriteStream, the one durable
// operation legal from inside a running step, and then Notify is fired best-effort so live
// subscribers wake immediately instead of waiting for their next poll tick.
type StreamEventPublisher struct {
	rc        *RunContext
	transport *StreamTransport
	log       *logger.Logger

	// The observer manager dispatches each event on its own goroutine; writes are
	// serialized here so two events never race on the stream's next offset.
	mu sync.Mutex
}

// NewStreamEventPublisher builds the publisher for one execution's atomic step.
func NewStreamEventPublisher(rc *RunContext, transport *StreamTransport, log *logger.Logger) *StreamEventPublisher {
	return &StreamEventPublisher{rc: rc, transport: transport, log: log}
}

// Name identifies this observer uniquely to the observer.ObserverManager it's registered
// with. The manager is shared across every concurrently running execution, so the name
// carries the execution ID to avoid collisions and to let executeFlow unregister exactly
// this run's publisher when it returns.
func (p *StreamEventPublisher) Name() string {
	return "durable-stream-publisher:" + p.rc.workflowID
}

// Filter restricts this publisher to its own execution's events, since the manager it
// registers with is shared by every execution currently running against this DAGExecutor.
func (p *StreamEventPublisher) Filter() observer.EventFilter {
	return observer.NewExecutionIDFilter(p.rc.workflowID)
}

// OnEvent persists one engine event into the execution's "events" stream. A write failure is
// logged but never returned to the engine: a lost observability event must not fail the flow.
func (p *StreamEventPublisher) OnEvent(ctx context.Context, event observer.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	value := eventToStreamValue(event)
	if err := p.rc.WriteStream(ctx, eventsStreamKey, value); err != nil {
		if p.log != nil {
			p.log.WarnContext(ctx, "durable: write event to stream failed", "execution_id", p.rc.workflowID, "error", err)
		}
		return nil
	}
	if p.transport != nil {
		if err := p.transport.Notify(ctx, p.rc.workflowID, eventsStreamKey); err != nil && p.log != nil {
			p.log.WarnContext(ctx, "durable: notify after event write failed", "execution_id", p.rc.workflowID, "error", err)
		}
	}
	return nil
}

// eventToStreamValue builds the wire envelope {type, timestamp, data}.
// index is assigned by the stream's own dense offset on write, not duplicated here; the engine's
// SequenceIndex is carried through as part of the data payload for callers that need the
// engine-local ordering independent of the stream's storage offset.
func eventToStreamValue(event observer.Event) map[string]interface{} {
	data := map[string]interface{}{
		"sequence_index": event.SequenceIndex,
		"status":         event.Status,
	}
	if event.NodeID != nil {
		data["node_id"] = *event.NodeID
	}
	if event.EdgeID != nil {
		data["edge_id"] = *event.EdgeID
	}
	if event.FromNodeID != nil {
		data["from_node_id"] = *event.FromNodeID
	}
	if event.ToNodeID != nil {
		data["to_node_id"] = *event.ToNodeID
	}
	if event.NodeName != nil {
		data["node_name"] = *event.NodeName
	}
	if event.NodeType != nil {
		data["node_type"] = *event.NodeType
	}
	if event.Message != nil {
		data["message"] = *event.Message
	}
	if event.Error != nil {
		data["error"] = event.Error.Error()
	}
	if event.Output != nil {
		data["output"] = event.Output
	}
	if event.DurationMs != nil {
		data["duration_ms"] = *event.DurationMs
	}

	return map[string]interface{}{
		"type":      string(event.Type),
		"timestamp": event.Timestamp.Format(time.RFC3339Nano),
		"data":      data,
	}
}
