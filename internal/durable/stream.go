package durable

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/uptrace/bun"

	durablemodels "github.com/flowforge/orchestrator/internal/durable/models"
	"github.com/flowforge/orchestrator/internal/infrastructure/logger"
)

// StreamEvent is one delivered batch item: a stream row plus its source channel key.
type StreamEvent struct {
	WorkflowID string
	StreamKey  string
	Offset     int64
	Value      map[string]interface{}
	Closed     bool
	At         time.Time
}

// subscription is one live subscriber's mailbox and cursor.
type subscription struct {
	workflowID string
	streamKey  string
	ch         chan StreamEvent
	cursor     int64
	cancel     context.CancelFunc
}

// StreamTransportConfig tunes batching/fallback behavior.
type StreamTransportConfig struct {
	MaxBatchSize    int
	BatchTimeout    time.Duration
	PollInterval    time.Duration // used only when the pgx listener pool is unavailable
}

func (c StreamTransportConfig) withDefaults() StreamTransportConfig {
	if c.MaxBatchSize <= 0 {
		c.MaxBatchSize = 50
	}
	if c.BatchTimeout <= 0 {
		c.BatchTimeout = 200 * time.Millisecond
	}
	if c.PollInterval <= 0 {
		c.PollInterval = 500 * time.Millisecond
	}
	return c
}

// StreamTransport is the live-push half of the streams table. It maintains a dedicated
// pgx connection pool for LISTEN/NOTIFY (Bun's database/sql pool cannot surface raw
// notification frames) and falls back to ticker-based polling when no such pool is
// configured.
type StreamTransport struct {
	db   bun.IDB
	pool *pgxpool.Pool // nil => poll-only fallback mode
	cfg  StreamTransportConfig
	log  *logger.Logger

	mu   sync.Mutex
	subs map[string]map[*subscription]struct{} // channel key -> subscriber set
}

func channelKey(workflowID, streamKey string) string {
	return fmt.Sprintf("stream:%s:%s", workflowID, streamKey)
}

// NewStreamTransport builds a transport. pool may be nil to force polling-only mode.
func NewStreamTransport(db bun.IDB, pool *pgxpool.Pool, cfg StreamTransportConfig, log *logger.Logger) *StreamTransport {
	return &StreamTransport{
		db:   db,
		pool: pool,
		cfg:  cfg.withDefaults(),
		log:  log,
		subs: make(map[string]map[*subscription]struct{}),
	}
}

// Notify publishes a NOTIFY on the stream's channel, waking any LISTEN-based subscribers.
// Callers invoke this right after a RunContext.WriteStream commits, so the write and the
// notification are two independent, non-transactional steps; the catch-up query covers any
// missed notification.
func (t *StreamTransport) Notify(ctx context.Context, workflowID, streamKey string) error {
	if t.pool == nil {
		return nil // polling subscribers will observe the new row on their next tick
	}
	payload, err := json.Marshal(map[string]string{"workflow_id": workflowID, "stream_key": streamKey})
	if err != nil {
		return fmt.Errorf("durable: marshal notify payload: %w", err)
	}
	_, err = t.pool.Exec(ctx, "SELECT pg_notify($1, $2)", channelKey(workflowID, streamKey), string(payload))
	if err != nil {
		return fmt.Errorf("durable: notify %s/%s: %w", workflowID, streamKey, err)
	}
	return nil
}

// Subscribe returns a channel of batched StreamEvents for (workflowID, streamKey), starting
// at fromOffset. The catch-up query runs first so no rows persisted before subscription are
// missed, then the subscriber is registered for live push (or polling). Cancel the returned
// context.CancelFunc to detach.
func (t *StreamTransport) Subscribe(ctx context.Context, workflowID, streamKey string, fromOffset int64) (<-chan StreamEvent, context.CancelFunc, error) {
	subCtx, cancel := context.WithCancel(ctx)
	sub := &subscription{
		workflowID: workflowID,
		streamKey:  streamKey,
		ch:         make(chan StreamEvent, t.cfg.MaxBatchSize),
		cursor:     fromOffset,
		cancel:     cancel,
	}

	key := channelKey(workflowID, streamKey)
	t.mu.Lock()
	if t.subs[key] == nil {
		t.subs[key] = make(map[*subscription]struct{})
	}
	t.subs[key][sub] = struct{}{}
	t.mu.Unlock()

	if err := t.catchUp(ctx, sub); err != nil {
		t.detach(key, sub)
		cancel()
		return nil, nil, err
	}

	// The delivery loop owns the channel: it closes sub.ch only after it has stopped
	// sending, so a cancel can never race a close against an in-flight delivery.
	go func() {
		if t.pool != nil {
			t.listenLoop(subCtx, key, sub)
		} else {
			t.pollLoop(subCtx, sub)
		}
		t.detach(key, sub)
		close(sub.ch)
	}()

	return sub.ch, cancel, nil
}

func (t *StreamTransport) detach(key string, sub *subscription) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.subs[key], sub)
	if len(t.subs[key]) == 0 {
		delete(t.subs, key)
	}
}

// catchUp delivers every already-persisted row at or after the subscriber's cursor,
// batched up to MaxBatchSize per send.
func (t *StreamTransport) catchUp(ctx context.Context, sub *subscription) error {
	var rows []*durablemodels.StreamModel
	err := t.db.NewSelect().
		Model(&rows).
		Where("workflow_id = ?", sub.workflowID).
		Where("stream_key = ?", sub.streamKey).
		Where("\"offset\" >= ?", sub.cursor).
		OrderExpr("\"offset\" ASC").
		Scan(ctx)
	if err != nil {
		return fmt.Errorf("durable: stream catch-up %s/%s: %w", sub.workflowID, sub.streamKey, err)
	}
	for _, r := range rows {
		t.deliver(ctx, sub, r)
	}
	return nil
}

func (t *StreamTransport) deliver(ctx context.Context, sub *subscription, row *durablemodels.StreamModel) {
	if row.Offset < sub.cursor {
		return
	}
	select {
	case sub.ch <- StreamEvent{
		WorkflowID: row.WorkflowID,
		StreamKey:  row.StreamKey,
		Offset:     row.Offset,
		Value:      map[string]interface{}(row.Value),
		Closed:     row.Closed,
		At:         row.CreatedAt,
	}:
		sub.cursor = row.Offset + 1
	case <-ctx.Done():
	}
}

// listenLoop dedicates one pgx connection to LISTEN on the subscriber's channel and
// re-queries on every notification, batched by BatchTimeout.
func (t *StreamTransport) listenLoop(ctx context.Context, key string, sub *subscription) {
	conn, err := t.pool.Acquire(ctx)
	if err != nil {
		if t.log != nil {
			t.log.ErrorContext(ctx, "durable: acquire listen connection failed", "channel", key, "error", err)
		}
		return
	}
	defer conn.Release()

	if _, err := conn.Exec(ctx, fmt.Sprintf("LISTEN %q", key)); err != nil {
		if t.log != nil {
			t.log.ErrorContext(ctx, "durable: LISTEN failed", "channel", key, "error", err)
		}
		return
	}

	for {
		if _, err := conn.Conn().WaitForNotification(ctx); err != nil {
			if ctx.Err() != nil {
				return
			}
			if t.log != nil {
				t.log.WarnContext(ctx, "durable: wait for notification error", "channel", key, "error", err)
			}
			time.Sleep(t.cfg.PollInterval)
			continue
		}
		if err := t.catchUp(ctx, sub); err != nil {
			if t.log != nil {
				t.log.WarnContext(ctx, "durable: catch-up after notify failed", "channel", key, "error", err)
			}
		}
	}
}

// pollLoop is the fallback path when no pgx pool is configured.
func (t *StreamTransport) pollLoop(ctx context.Context, sub *subscription) {
	ticker := time.NewTicker(t.cfg.PollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := t.catchUp(ctx, sub); err != nil {
				if t.log != nil {
					t.log.WarnContext(ctx, "durable: stream poll failed", "workflow_id", sub.workflowID, "stream_key", sub.streamKey, "error", err)
				}
			}
		}
	}
}

// CloseStream marks a stream closed; subscribers observe Closed=true on their next delivered
// event and may stop polling for that key.
func (t *StreamTransport) CloseStream(ctx context.Context, workflowID, streamKey string) error {
	_, err := t.db.NewUpdate().
		Model((*durablemodels.StreamModel)(nil)).
		Set("closed = true").
		Where("workflow_id = ?", workflowID).
		Where("stream_key = ?", streamKey).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("durable: close stream %s/%s: %w", workflowID, streamKey, err)
	}
	return t.Notify(ctx, workflowID, streamKey)
}
