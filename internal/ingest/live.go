package ingest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/klinewatch/kline-data/internal/binance"
	"github.com/klinewatch/kline-data/internal/metrics"
	"github.com/klinewatch/kline-data/internal/normalize"
	"github.com/klinewatch/kline-data/internal/store"
)

// State is the live consumer lifecycle state.
type State int32

const (
	StateConnecting State = iota
	StateStreaming
	StateClosed
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateStreaming:
		return "streaming"
	case StateClosed:
		return "closed"
	case StateFailed:
		return "failed"
	default:
		return fmt.Sprintf("state(%d)", int32(s))
	}
}

// LiveConsumer ingests the unbounded push stream for one (instrument, kind)
// pair. Each inbound event is normalized and upserted individually with
// overwrite conflict resolution: live data is the most current known state
// of its row, including revisions to a still-open bar.
//
// The receive loop ends only on external cancellation (-> Closed) or a
// transport/persistence failure (-> Failed). Reconnecting is the caller's
// concern. On entering Streaming the consumer triggers the configured
// backfill exactly once, as an independent background task.
type LiveConsumer struct {
	symbol string
	kind   Kind
	dial   StreamDialer
	engine *store.Engine

	// backfill, when set, is launched once upon entering Streaming.
	backfill func(ctx context.Context)

	metrics *metrics.Metrics
	logger  *slog.Logger

	state  atomic.Int32
	cancel context.CancelFunc
	wg     sync.WaitGroup

	done    chan struct{}
	failure error // set before done closes
}

// NewLiveConsumer creates a consumer; Start begins ingestion.
func NewLiveConsumer(symbol string, kind Kind, dial StreamDialer, engine *store.Engine, backfill func(ctx context.Context), m *metrics.Metrics, logger *slog.Logger) *LiveConsumer {
	if logger == nil {
		logger = slog.Default()
	}
	return &LiveConsumer{
		symbol:   symbol,
		kind:     kind,
		dial:     dial,
		engine:   engine,
		backfill: backfill,
		metrics:  m,
		logger: logger.With(
			"entity", kind.Entity(symbol).Name,
			"kind", kind.String(),
			"task_id", uuid.NewString(),
		),
		done: make(chan struct{}),
	}
}

// Start dials the subscription and begins the receive loop. A dial failure
// moves the consumer to Failed and is returned; otherwise the consumer is
// Streaming and the backfill task has been launched.
func (c *LiveConsumer) Start(ctx context.Context) error {
	c.state.Store(int32(StateConnecting))
	c.logger.Info("connecting live stream", "symbol", c.symbol)

	stream, err := c.dial(ctx, c.kind.StreamName(c.symbol))
	if err != nil {
		c.state.Store(int32(StateFailed))
		c.failure = err
		close(c.done)
		return fmt.Errorf("connect %s: %w", c.kind.StreamName(c.symbol), err)
	}

	c.state.Store(int32(StateStreaming))
	c.logger.Info("live stream established")

	if c.backfill != nil {
		// The backfill must survive this consumer's cancellation; it is
		// expected to finish quickly relative to the stream's lifetime.
		bctx := context.WithoutCancel(ctx)
		c.wg.Add(1)
		go func() {
			defer c.wg.Done()
			c.backfill(bctx)
		}()
	}

	runCtx, cancel := context.WithCancel(ctx)
	c.cancel = cancel

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		c.run(runCtx, stream)
	}()

	return nil
}

// run is the unbounded receive loop.
func (c *LiveConsumer) run(ctx context.Context, stream EventStream) {
	defer close(c.done)
	defer stream.Close()

	for {
		select {
		case <-ctx.Done():
			c.state.Store(int32(StateClosed))
			c.logger.Info("live stream closed")
			return

		case err := <-stream.Errors():
			c.fail(fmt.Errorf("transport failure: %w", err))
			return

		case msg := <-stream.Messages():
			if err := c.handle(ctx, msg); err != nil {
				c.fail(err)
				return
			}
		}
	}
}

// handle normalizes and upserts one event. Malformed events are dropped and
// the stream continues; persistence errors terminate the task.
func (c *LiveConsumer) handle(ctx context.Context, msg binance.Message) error {
	ent := c.kind.Entity(c.symbol)
	c.metrics.ObserveStreamEvent(ent.Name)

	row, err := c.normalizeEvent(msg.Data)
	if err != nil {
		var merr *normalize.MalformedRecordError
		if errors.As(err, &merr) {
			c.metrics.ObserveMalformed(merr.Origin)
		}
		c.logger.Warn("dropping malformed event", "error", err)
		return nil
	}

	if err := c.engine.UpsertOne(ctx, ent, row, store.Overwrite); err != nil {
		return err
	}
	return nil
}

// normalizeEvent decodes the raw push payload into a canonical record row.
func (c *LiveConsumer) normalizeEvent(data []byte) ([]any, error) {
	if c.kind.IsKline() {
		var ev binance.KlineEvent
		if err := json.Unmarshal(data, &ev); err != nil {
			return nil, &normalize.MalformedRecordError{Origin: normalize.OriginLiveBar, Field: "payload", Err: err}
		}
		bar, err := normalize.BarFromEvent(ev)
		if err != nil {
			return nil, err
		}
		return bar.Row(), nil
	}

	var ev binance.TradeEvent
	if err := json.Unmarshal(data, &ev); err != nil {
		return nil, &normalize.MalformedRecordError{Origin: normalize.OriginLiveTrade, Field: "payload", Err: err}
	}
	trade, err := normalize.TradeFromEvent(ev)
	if err != nil {
		return nil, err
	}
	return trade.Row(), nil
}

func (c *LiveConsumer) fail(err error) {
	c.failure = err
	c.state.Store(int32(StateFailed))
	c.logger.Error("live consumer failed", "error", err)
}

// Stop cancels the receive loop and waits for shutdown, bounded by ctx.
// Writes already applied are durable; no in-flight record is lost between
// events.
func (c *LiveConsumer) Stop(ctx context.Context) error {
	if c.cancel != nil {
		c.cancel()
	}

	finished := make(chan struct{})
	go func() {
		c.wg.Wait()
		close(finished)
	}()

	select {
	case <-finished:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// State returns the consumer's current lifecycle state.
func (c *LiveConsumer) State() State {
	return State(c.state.Load())
}

// Done closes when the receive loop has ended.
func (c *LiveConsumer) Done() <-chan struct{} {
	return c.done
}

// Err returns the terminal failure, if any, once Done is closed.
func (c *LiveConsumer) Err() error {
	select {
	case <-c.done:
		return c.failure
	default:
		return nil
	}
}
