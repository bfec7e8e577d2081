package core

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"sync"
	"time"

	"junotreasury/core/events"
	"junotreasury/core/state"
	"junotreasury/crypto"
	"junotreasury/native/treasury"
	"junotreasury/services/outbox"
	"junotreasury/storage"
)

// MessageSink persists outbound messages for relayers. Append stages a batch
// that relayers cannot see; Promote releases it after the state change
// commits and Void cancels it otherwise.
type MessageSink interface {
	Append(ctx context.Context, height uint64, operation string, msgs []treasury.Message) (string, error)
	Promote(ctx context.Context, batchID string) error
	Void(ctx context.Context, batchID string) error
}

// OutboxReconciler settles batches left staged by an interrupted call.
type OutboxReconciler interface {
	Reconcile(ctx context.Context, committed func(batchID string, height uint64) (bool, error)) (promoted, voided int, err error)
}

// Recorder receives per-call outcomes.
type Recorder interface {
	ObserveOperation(operation, outcome string, elapsed time.Duration)
	SetPendingFee(amount *big.Int)
}

type noopRecorder struct{}

func (noopRecorder) ObserveOperation(string, string, time.Duration) {}
func (noopRecorder) SetPendingFee(*big.Int)                          {}

// Result describes a committed call.
type Result struct {
	Response *treasury.Response
	BatchID  string
	Height   uint64
}

// Node serializes every treasury call. Each call runs against a fresh overlay
// and either commits its writes, its outbox batch and its events together or
// leaves no trace.
type Node struct {
	mu      sync.Mutex
	db      storage.Database
	sink    MessageSink
	emitter events.Emitter
	metrics Recorder
	logger  *slog.Logger
	clock   func() time.Time
	denom   string

	// committed batches whose promotion failed; retried on the next call.
	unpromoted []string
}

// NewNode wires a node over db. The stored schema version is checked and
// stamped on first use.
func NewNode(db storage.Database, sink MessageSink) (*Node, error) {
	if db == nil {
		return nil, fmt.Errorf("core: database required")
	}
	if err := state.EnsureStateVersion(db, false); err != nil {
		return nil, err
	}
	return &Node{
		db:      db,
		sink:    sink,
		emitter: events.NoopEmitter{},
		metrics: noopRecorder{},
		logger:  slog.Default(),
		clock:   time.Now,
		denom:   treasury.DefaultDenom,
	}, nil
}

// SetEmitter configures where committed events are published.
func (n *Node) SetEmitter(emitter events.Emitter) {
	if emitter == nil {
		emitter = events.NoopEmitter{}
	}
	n.emitter = emitter
}

// SetRecorder configures the metrics recorder.
func (n *Node) SetRecorder(rec Recorder) {
	if rec == nil {
		rec = noopRecorder{}
	}
	n.metrics = rec
}

// SetLogger configures the structured logger.
func (n *Node) SetLogger(logger *slog.Logger) {
	if logger == nil {
		logger = slog.Default()
	}
	n.logger = logger
}

// SetClock overrides the block time source.
func (n *Node) SetClock(clock func() time.Time) {
	if clock == nil {
		clock = time.Now
	}
	n.clock = clock
}

// SetDenom overrides the native denomination.
func (n *Node) SetDenom(denom string) { n.denom = denom }

func blockTime(now time.Time) uint64 {
	nanos := now.UnixNano()
	if nanos < 0 {
		return 0
	}
	return uint64(nanos)
}

func (n *Node) engine(manager *state.Manager, emitter events.Emitter) *treasury.Engine {
	engine := treasury.NewEngine()
	engine.SetState(manager)
	engine.SetEmitter(emitter)
	engine.SetDenom(n.denom)
	return engine
}

// Instantiate creates the treasury with sender as owner.
func (n *Node) Instantiate(ctx context.Context, sender crypto.Address) (*Result, error) {
	return n.run(ctx, "instantiate", sender, func(engine *treasury.Engine, env treasury.Env) (*treasury.Response, error) {
		return engine.Instantiate(env, sender)
	})
}

// Execute runs one execute message on behalf of sender.
func (n *Node) Execute(ctx context.Context, sender crypto.Address, msg *treasury.ExecuteMsg) (*Result, error) {
	if err := msg.Validate(); err != nil {
		n.metrics.ObserveOperation("unknown", treasury.Code(err), 0)
		return nil, err
	}
	return n.run(ctx, msg.Name(), sender, func(engine *treasury.Engine, env treasury.Env) (*treasury.Response, error) {
		return engine.Execute(env, sender, msg)
	})
}

func (n *Node) run(ctx context.Context, operation string, sender crypto.Address, call func(*treasury.Engine, treasury.Env) (*treasury.Response, error)) (*Result, error) {
	n.mu.Lock()
	defer n.mu.Unlock()

	start := time.Now()
	res, err := n.apply(ctx, operation, n.clock(), call)
	elapsed := time.Since(start)
	outcome := treasury.Code(err)
	n.metrics.ObserveOperation(operation, outcome, elapsed)
	if err != nil {
		n.logger.Warn("treasury call rejected",
			slog.String("operation", operation),
			slog.String("sender", sender.String()),
			slog.String("outcome", outcome),
			slog.Any("error", err))
		return nil, err
	}
	n.logger.Info("treasury call committed",
		slog.String("operation", operation),
		slog.String("sender", sender.String()),
		slog.Uint64("height", res.Height),
		slog.Int("messages", len(res.Response.Messages)),
		slog.String("batch", res.BatchID))
	return res, nil
}

func (n *Node) apply(ctx context.Context, operation string, now time.Time, call func(*treasury.Engine, treasury.Env) (*treasury.Response, error)) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	n.retryPromotions(ctx)
	overlay := state.NewOverlay(n.db)
	manager := state.NewManager(overlay)
	buffer := &events.Buffer{}

	height, err := manager.TreasuryHeight()
	if err != nil {
		overlay.Discard()
		return nil, fmt.Errorf("%w: %w", treasury.ErrStorageFailure, err)
	}
	height++
	env := treasury.Env{BlockHeight: height, BlockTime: blockTime(now)}

	resp, err := call(n.engine(manager, buffer), env)
	if err != nil {
		overlay.Discard()
		return nil, err
	}
	if err := manager.SetTreasuryHeight(height); err != nil {
		overlay.Discard()
		return nil, fmt.Errorf("%w: %w", treasury.ErrStorageFailure, err)
	}

	var batchID string
	if len(resp.Messages) > 0 && n.sink != nil {
		batchID, err = n.sink.Append(ctx, height, operation, resp.Messages)
		if err != nil {
			overlay.Discard()
			return nil, fmt.Errorf("%w: outbox: %w", treasury.ErrStorageFailure, err)
		}
		if err := manager.TreasuryBatchPut(height, batchID); err != nil {
			overlay.Discard()
			n.voidBatch(ctx, batchID)
			return nil, fmt.Errorf("%w: %w", treasury.ErrStorageFailure, err)
		}
	}
	if err := overlay.Commit(); err != nil {
		if batchID != "" {
			n.voidBatch(ctx, batchID)
		}
		return nil, fmt.Errorf("%w: %w", treasury.ErrStorageFailure, err)
	}
	if batchID != "" {
		n.promoteBatch(ctx, batchID)
	}
	buffer.Flush(n.emitter)
	if cfg, ok, err := state.NewManager(n.db).TreasuryConfigGet(); err == nil && ok {
		n.metrics.SetPendingFee(cfg.PendingPlatformFee.Big())
	}
	return &Result{Response: resp, BatchID: batchID, Height: height}, nil
}

// voidBatch cancels a staged batch whose state change was dropped. A batch
// that cannot be voided stays staged and is voided by ReconcileOutbox, since
// no committed height records it.
func (n *Node) voidBatch(ctx context.Context, batchID string) {
	if err := n.sink.Void(context.WithoutCancel(ctx), batchID); err != nil {
		n.logger.Error("failed to void outbox batch", slog.String("batch", batchID), slog.Any("error", err))
	}
}

// promoteBatch releases a committed batch. The state change is already
// durable, so a failure here does not fail the call.
func (n *Node) promoteBatch(ctx context.Context, batchID string) {
	if err := n.sink.Promote(context.WithoutCancel(ctx), batchID); err != nil {
		n.logger.Error("failed to promote outbox batch", slog.String("batch", batchID), slog.Any("error", err))
		n.unpromoted = append(n.unpromoted, batchID)
	}
}

func (n *Node) retryPromotions(ctx context.Context) {
	if len(n.unpromoted) == 0 {
		return
	}
	remaining := n.unpromoted[:0]
	for _, batchID := range n.unpromoted {
		if err := n.sink.Promote(context.WithoutCancel(ctx), batchID); err != nil && !errors.Is(err, outbox.ErrNotStaged) {
			remaining = append(remaining, batchID)
		}
	}
	n.unpromoted = remaining
}

// ReconcileOutbox promotes staged batches whose call committed and voids the
// rest. It runs at startup, before any call is served.
func (n *Node) ReconcileOutbox(ctx context.Context) (promoted, voided int, err error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	reconciler, ok := n.sink.(OutboxReconciler)
	if !ok {
		return 0, 0, nil
	}
	manager := state.NewManager(n.db)
	return reconciler.Reconcile(ctx, func(batchID string, height uint64) (bool, error) {
		recorded, found, err := manager.TreasuryBatchGet(height)
		if err != nil || !found {
			return false, err
		}
		return recorded == batchID, nil
	})
}

// QueryConfig returns the committed configuration stamped with the current
// time.
func (n *Node) QueryConfig() (*treasury.ConfigResponse, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	engine := n.engine(state.NewManager(n.db), nil)
	return engine.QueryConfig(treasury.Env{BlockTime: blockTime(n.clock())})
}

// QueryBotRole returns the committed role status of addr.
func (n *Node) QueryBotRole(addr crypto.Address) (*treasury.BotRoleResponse, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.engine(state.NewManager(n.db), nil).QueryBotRole(addr)
}

// Instantiated reports whether the treasury configuration exists.
func (n *Node) Instantiated() (bool, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	_, ok, err := state.NewManager(n.db).TreasuryConfigGet()
	return ok, err
}

// Height returns the number of committed calls.
func (n *Node) Height() (uint64, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	return state.NewManager(n.db).TreasuryHeight()
}
