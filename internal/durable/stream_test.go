package durable

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"

	durablemodels "github.com/flowforge/orchestrator/internal/durable/models"
)

func insertStreamRow(t *testing.T, db *bun.DB, workflowID, key string, offset int64, value map[string]interface{}) {
	t.Helper()
	row := &durablemodels.StreamModel{
		WorkflowID: workflowID,
		StreamKey:  key,
		Offset:     offset,
		Value:      value,
		CreatedAt:  time.Now(),
	}
	_, err := db.NewInsert().Model(row).Exec(context.Background())
	require.NoError(t, err)
}

func pollTransport(db *bun.DB) *StreamTransport {
	return NewStreamTransport(db, nil, StreamTransportConfig{
		MaxBatchSize: 10,
		BatchTimeout: 50 * time.Millisecond,
		PollInterval: 20 * time.Millisecond,
	}, nil)
}

func collectEvents(t *testing.T, ch <-chan StreamEvent, n int, timeout time.Duration) []StreamEvent {
	t.Helper()
	out := make([]StreamEvent, 0, n)
	deadline := time.After(timeout)
	for len(out) < n {
		select {
		case evt, ok := <-ch:
			if !ok {
				t.Fatalf("channel closed after %d events, wanted %d", len(out), n)
			}
			out = append(out, evt)
		case <-deadline:
			t.Fatalf("timed out after %d events, wanted %d", len(out), n)
		}
	}
	return out
}

func TestStreamTransport_CatchUpDeliversPersistedRows(t *testing.T) {
	db := setupDB(t)
	transport := pollTransport(db)
	ctx := context.Background()

	for i := int64(0); i < 3; i++ {
		insertStreamRow(t, db, "wf-1", "events", i, map[string]interface{}{"i": i})
	}

	ch, cancel, err := transport.Subscribe(ctx, "wf-1", "events", 0)
	require.NoError(t, err)
	defer cancel()

	events := collectEvents(t, ch, 3, 2*time.Second)
	for i, evt := range events {
		assert.EqualValues(t, i, evt.Offset, "offsets are delivered dense and in order")
		assert.Equal(t, "wf-1", evt.WorkflowID)
		assert.Equal(t, "events", evt.StreamKey)
	}
}

func TestStreamTransport_SubscribeFromOffsetSkipsHistory(t *testing.T) {
	db := setupDB(t)
	transport := pollTransport(db)
	ctx := context.Background()

	for i := int64(0); i < 4; i++ {
		insertStreamRow(t, db, "wf-1", "events", i, map[string]interface{}{"i": i})
	}

	ch, cancel, err := transport.Subscribe(ctx, "wf-1", "events", 2)
	require.NoError(t, err)
	defer cancel()

	events := collectEvents(t, ch, 2, 2*time.Second)
	assert.EqualValues(t, 2, events[0].Offset)
	assert.EqualValues(t, 3, events[1].Offset)
}

func TestStreamTransport_PollLoopPicksUpLiveAppends(t *testing.T) {
	db := setupDB(t)
	transport := pollTransport(db)
	ctx := context.Background()

	insertStreamRow(t, db, "wf-1", "events", 0, map[string]interface{}{"i": 0})

	ch, cancel, err := transport.Subscribe(ctx, "wf-1", "events", 0)
	require.NoError(t, err)
	defer cancel()

	_ = collectEvents(t, ch, 1, 2*time.Second)

	// Appended after the subscription is live; the poll loop must deliver it.
	insertStreamRow(t, db, "wf-1", "events", 1, map[string]interface{}{"i": 1})

	events := collectEvents(t, ch, 1, 2*time.Second)
	assert.EqualValues(t, 1, events[0].Offset)
}

func TestStreamTransport_SubscribersAreIsolatedByKey(t *testing.T) {
	db := setupDB(t)
	transport := pollTransport(db)
	ctx := context.Background()

	insertStreamRow(t, db, "wf-1", "events", 0, map[string]interface{}{"src": "wf-1"})
	insertStreamRow(t, db, "wf-2", "events", 0, map[string]interface{}{"src": "wf-2"})

	ch, cancel, err := transport.Subscribe(ctx, "wf-1", "events", 0)
	require.NoError(t, err)
	defer cancel()

	events := collectEvents(t, ch, 1, 2*time.Second)
	assert.Equal(t, "wf-1", events[0].Value["src"])

	select {
	case evt := <-ch:
		t.Fatalf("unexpected cross-stream delivery: %+v", evt)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestStreamTransport_CancelClosesChannel(t *testing.T) {
	db := setupDB(t)
	transport := pollTransport(db)

	ch, cancel, err := transport.Subscribe(context.Background(), "wf-1", "events", 0)
	require.NoError(t, err)

	cancel()

	select {
	case _, ok := <-ch:
		assert.False(t, ok, "channel must close after cancel")
	case <-time.After(2 * time.Second):
		t.Fatal("channel did not close after cancel")
	}
}

func TestStreamTransport_CloseStreamMarksRows(t *testing.T) {
	db := setupDB(t)
	transport := pollTransport(db)
	ctx := context.Background()

	insertStreamRow(t, db, "wf-1", "events", 0, map[string]interface{}{"i": 0})
	require.NoError(t, transport.CloseStream(ctx, "wf-1", "events"))

	// A subscriber arriving after the close still gets the history, flagged closed.
	ch, cancel, err := transport.Subscribe(ctx, "wf-1", "events", 0)
	require.NoError(t, err)
	defer cancel()

	events := collectEvents(t, ch, 1, 2*time.Second)
	assert.True(t, events[0].Closed)
}
