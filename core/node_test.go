package core

import (
	"context"
	"errors"
	"math/big"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"junotreasury/core/events"
	"junotreasury/crypto"
	"junotreasury/native/treasury"
	"junotreasury/services/outbox"
	"junotreasury/storage"
)

type fakeSink struct {
	appended  map[string][]treasury.Message
	promoted  []string
	voided    []string
	appendErr error
	next      int
}

func newFakeSink() *fakeSink { return &fakeSink{appended: make(map[string][]treasury.Message)} }

func (f *fakeSink) Append(_ context.Context, _ uint64, _ string, msgs []treasury.Message) (string, error) {
	if f.appendErr != nil {
		return "", f.appendErr
	}
	f.next++
	id := string(rune('a' + f.next))
	f.appended[id] = msgs
	return id, nil
}

func (f *fakeSink) Promote(_ context.Context, id string) error {
	f.promoted = append(f.promoted, id)
	return nil
}

func (f *fakeSink) Void(_ context.Context, id string) error {
	f.voided = append(f.voided, id)
	delete(f.appended, id)
	return nil
}

type failingWriteDB struct {
	*storage.MemDB
	fail bool
}

func (f *failingWriteDB) Write(batch *storage.Batch) error {
	if f.fail {
		return errors.New("disk full")
	}
	return f.MemDB.Write(batch)
}

type countingEmitter struct{ types []string }

func (c *countingEmitter) Emit(evt events.Event) { c.types = append(c.types, evt.EventType()) }

type recordingRecorder struct {
	outcomes []string
	pending  *big.Int
}

func (r *recordingRecorder) ObserveOperation(op, outcome string, _ time.Duration) {
	r.outcomes = append(r.outcomes, op+":"+outcome)
}

func (r *recordingRecorder) SetPendingFee(amount *big.Int) { r.pending = amount }

var (
	owner     = crypto.DeriveAddress(crypto.JunoPrefix, []byte("owner"))
	bot       = crypto.DeriveAddress(crypto.JunoPrefix, []byte("bot"))
	recipient = crypto.DeriveAddress(crypto.JunoPrefix, []byte("recipient"))
	pool      = crypto.DeriveAddress(crypto.JunoPrefix, []byte("pool"))
)

func buyMsg(deadline time.Time) *treasury.ExecuteMsg {
	return &treasury.ExecuteMsg{BuyToken: &treasury.BuyTokenMsg{
		JunoAmount:           treasury.NewUint128(1_000_000),
		TokenAmountPerNative: treasury.NewUint128(2),
		SlippageBips:         treasury.NewUint128(100),
		PlatformFeeBips:      treasury.NewUint128(50),
		GasEstimate:          treasury.NewUint128(10_000),
		To:                   recipient,
		Router:               pool,
		Deadline:             uint64(deadline.UnixNano()),
	}}
}

func newTestNode(t *testing.T, db storage.Database, sink MessageSink) (*Node, *countingEmitter, *recordingRecorder) {
	t.Helper()
	node, err := NewNode(db, sink)
	require.NoError(t, err)
	now := time.Unix(1_700_000_000, 0)
	node.SetClock(func() time.Time { return now })
	emitter := &countingEmitter{}
	node.SetEmitter(emitter)
	rec := &recordingRecorder{}
	node.SetRecorder(rec)

	_, err = node.Instantiate(context.Background(), owner)
	require.NoError(t, err)
	_, err = node.Execute(context.Background(), owner, &treasury.ExecuteMsg{SetBotRole: &treasury.SetBotRoleMsg{NewBot: bot, Enabled: true}})
	require.NoError(t, err)
	return node, emitter, rec
}

func TestNodeBuyTokenCommitsEverything(t *testing.T) {
	sink := newFakeSink()
	node, emitter, rec := newTestNode(t, storage.NewMemDB(), sink)

	res, err := node.Execute(context.Background(), bot, buyMsg(time.Unix(1_700_000_060, 0)))
	require.NoError(t, err)
	require.Equal(t, uint64(3), res.Height)
	require.NotEmpty(t, res.BatchID)
	require.Len(t, sink.appended[res.BatchID], 1)
	require.Equal(t, []string{res.BatchID}, sink.promoted)
	require.Equal(t, "985000", sink.appended[res.BatchID][0].Swap.Offer.Amount.String())

	cfg, err := node.QueryConfig()
	require.NoError(t, err)
	require.Equal(t, "5000", cfg.PendingPlatformFee.String())
	require.Equal(t, uint64(time.Unix(1_700_000_000, 0).UnixNano()), cfg.Time)

	require.Equal(t, []string{treasury.EventTypeInstantiated, treasury.EventTypeBotRoleSet, treasury.EventTypeSwapRequested}, emitter.types)
	require.Equal(t, "buy_token:ok", rec.outcomes[len(rec.outcomes)-1])
	require.Equal(t, int64(5000), rec.pending.Int64())
}

func TestNodeRejectedCallLeavesNoTrace(t *testing.T) {
	sink := newFakeSink()
	node, emitter, rec := newTestNode(t, storage.NewMemDB(), sink)
	before := len(emitter.types)

	_, err := node.Execute(context.Background(), bot, buyMsg(time.Unix(1_699_999_999, 0)))
	require.ErrorIs(t, err, treasury.ErrExpired)

	height, err := node.Height()
	require.NoError(t, err)
	require.Equal(t, uint64(2), height)
	require.Empty(t, sink.appended)
	require.Len(t, emitter.types, before)
	require.Equal(t, "buy_token:expired", rec.outcomes[len(rec.outcomes)-1])
}

func TestNodeOutboxFailureDiscardsState(t *testing.T) {
	sink := newFakeSink()
	node, _, _ := newTestNode(t, storage.NewMemDB(), sink)
	sink.appendErr = errors.New("outbox offline")

	_, err := node.Execute(context.Background(), bot, buyMsg(time.Unix(1_700_000_060, 0)))
	require.ErrorIs(t, err, treasury.ErrStorageFailure)

	cfg, err := node.QueryConfig()
	require.NoError(t, err)
	require.True(t, cfg.PendingPlatformFee.IsZero())
}

func TestNodeCommitFailureVoidsOutbox(t *testing.T) {
	sink := newFakeSink()
	db := &failingWriteDB{MemDB: storage.NewMemDB()}
	node, emitter, _ := newTestNode(t, db, sink)
	before := len(emitter.types)
	db.fail = true

	_, err := node.Execute(context.Background(), bot, buyMsg(time.Unix(1_700_000_060, 0)))
	require.ErrorIs(t, err, treasury.ErrStorageFailure)
	require.Len(t, sink.voided, 1)
	require.Empty(t, sink.appended)
	require.Empty(t, sink.promoted)
	require.Len(t, emitter.types, before)

	db.fail = false
	cfg, err := node.QueryConfig()
	require.NoError(t, err)
	require.True(t, cfg.PendingPlatformFee.IsZero())
}

func TestNodeRejectsInvalidMessage(t *testing.T) {
	node, _, rec := newTestNode(t, storage.NewMemDB(), newFakeSink())
	_, err := node.Execute(context.Background(), owner, &treasury.ExecuteMsg{})
	require.ErrorIs(t, err, treasury.ErrInvalidMessage)
	require.Equal(t, "unknown:invalid_message", rec.outcomes[len(rec.outcomes)-1])

	ok, err := node.Instantiated()
	require.NoError(t, err)
	require.True(t, ok)

	role, err := node.QueryBotRole(recipient)
	require.NoError(t, err)
	require.Equal(t, treasury.RoleNone, role.Status)
}

// relayingSink stores batches in a real outbox and lets a relayer drain it
// right after each append, before the node commits state.
type relayingSink struct {
	*outbox.Store
	t          *testing.T
	relayed    int
	voidErr    error
	promoteErr error
}

func (r *relayingSink) Append(ctx context.Context, height uint64, operation string, msgs []treasury.Message) (string, error) {
	batchID, err := r.Store.Append(ctx, height, operation, msgs)
	if err != nil {
		return "", err
	}
	pending, err := r.Store.Pending(ctx, 0)
	require.NoError(r.t, err)
	for _, rec := range pending {
		require.NoError(r.t, r.Store.MarkDelivered(ctx, rec.ID))
		r.relayed++
	}
	return batchID, nil
}

func (r *relayingSink) Promote(ctx context.Context, batchID string) error {
	if r.promoteErr != nil {
		err := r.promoteErr
		r.promoteErr = nil
		return err
	}
	return r.Store.Promote(ctx, batchID)
}

func (r *relayingSink) Void(ctx context.Context, batchID string) error {
	if r.voidErr != nil {
		return r.voidErr
	}
	return r.Store.Void(ctx, batchID)
}

func openRelayingSink(t *testing.T) *relayingSink {
	t.Helper()
	dsn, err := outbox.FileDSN(filepath.Join(t.TempDir(), "outbox.db"))
	require.NoError(t, err)
	store, err := outbox.Open(dsn)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return &relayingSink{Store: store, t: t}
}

func withdrawMsg(amount uint64) *treasury.ExecuteMsg {
	return &treasury.ExecuteMsg{WithdrawFee: &treasury.WithdrawFeeMsg{To: owner, Amount: treasury.NewUint128(amount)}}
}

func TestNodeUncommittedWithdrawIsNeverRelayed(t *testing.T) {
	ctx := context.Background()
	sink := openRelayingSink(t)
	db := &failingWriteDB{MemDB: storage.NewMemDB()}
	node, _, _ := newTestNode(t, db, sink)

	_, err := node.Execute(ctx, bot, buyMsg(time.Unix(1_700_000_060, 0)))
	require.NoError(t, err)
	require.Equal(t, 0, sink.relayed)

	pending, err := sink.Pending(ctx, 0)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	require.NoError(t, sink.MarkDelivered(ctx, pending[0].ID))

	db.fail = true
	_, err = node.Execute(ctx, owner, withdrawMsg(5000))
	require.ErrorIs(t, err, treasury.ErrStorageFailure)
	require.Equal(t, 0, sink.relayed)

	counts, err := sink.Counts(ctx)
	require.NoError(t, err)
	require.Equal(t, map[outbox.Status]int{outbox.StatusDelivered: 1, outbox.StatusVoid: 1}, counts)

	db.fail = false
	cfg, err := node.QueryConfig()
	require.NoError(t, err)
	require.Equal(t, "5000", cfg.PendingPlatformFee.String())
}

func TestNodeReconcileVoidsBatchOfFailedCall(t *testing.T) {
	ctx := context.Background()
	sink := openRelayingSink(t)
	db := &failingWriteDB{MemDB: storage.NewMemDB()}
	node, _, _ := newTestNode(t, db, sink)
	_, err := node.Execute(ctx, bot, buyMsg(time.Unix(1_700_000_060, 0)))
	require.NoError(t, err)

	db.fail = true
	sink.voidErr = errors.New("outbox locked")
	_, err = node.Execute(ctx, owner, withdrawMsg(5000))
	require.ErrorIs(t, err, treasury.ErrStorageFailure)

	db.fail = false
	sink.voidErr = nil
	res, err := node.Execute(ctx, owner, withdrawMsg(1000))
	require.NoError(t, err)
	require.Equal(t, uint64(4), res.Height)

	counts, err := sink.Counts(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, counts[outbox.StatusStaged])

	promoted, voided, err := node.ReconcileOutbox(ctx)
	require.NoError(t, err)
	require.Equal(t, 0, promoted)
	require.Equal(t, 1, voided)

	pending, err := sink.Pending(ctx, 0)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	require.Equal(t, res.BatchID, pending[0].BatchID)
	require.Contains(t, string(pending[0].Payload), `"1000"`)
}

func TestNodeFailedPromotionIsRetried(t *testing.T) {
	ctx := context.Background()
	sink := openRelayingSink(t)
	node, _, _ := newTestNode(t, storage.NewMemDB(), sink)

	sink.promoteErr = errors.New("outbox locked")
	res, err := node.Execute(ctx, bot, buyMsg(time.Unix(1_700_000_060, 0)))
	require.NoError(t, err)

	pending, err := sink.Pending(ctx, 0)
	require.NoError(t, err)
	require.Empty(t, pending)

	promoted, voided, err := node.ReconcileOutbox(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, promoted)
	require.Equal(t, 0, voided)

	pending, err = sink.Pending(ctx, 0)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	require.Equal(t, res.BatchID, pending[0].BatchID)

	// the queued retry finds the batch already promoted and drops it
	_, err = node.Execute(ctx, owner, withdrawMsg(1000))
	require.NoError(t, err)
	require.Empty(t, node.unpromoted)
}

func TestNodeCanceledContextIsNotInternal(t *testing.T) {
	node, _, rec := newTestNode(t, storage.NewMemDB(), newFakeSink())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := node.Execute(ctx, bot, buyMsg(time.Unix(1_700_000_060, 0)))
	require.ErrorIs(t, err, context.Canceled)
	require.Equal(t, "canceled", treasury.Code(err))
	require.Equal(t, "buy_token:canceled", rec.outcomes[len(rec.outcomes)-1])
}
