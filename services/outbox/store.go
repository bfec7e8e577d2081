package outbox

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "github.com/glebarez/sqlite"
	"github.com/google/uuid"

	"junotreasury/native/treasury"
)

// Status tracks the delivery state of an outbound message.
type Status string

const (
	// StatusStaged marks rows whose state change is not yet committed.
	// Relayers never see them.
	StatusStaged    Status = "staged"
	StatusPending   Status = "pending"
	StatusDelivered Status = "delivered"
	StatusVoid      Status = "void"
)

var (
	// ErrPathRequired is returned when the backing store path is missing.
	ErrPathRequired = errors.New("outbox path must be configured")
	// ErrNotPending is returned when a record cannot change state because it
	// is no longer pending.
	ErrNotPending = errors.New("outbox: record not pending")
	// ErrNotStaged is returned when a batch has already been promoted or
	// voided.
	ErrNotStaged = errors.New("outbox: batch not staged")
)

// Store persists outbound treasury messages until a relayer delivers them.
type Store struct {
	db  *sql.DB
	now func() time.Time
}

// Record is one stored message.
type Record struct {
	ID           int64                `json:"id"`
	BatchID      string               `json:"batch_id"`
	Sequence     int                  `json:"sequence"`
	Height       uint64               `json:"height"`
	Operation    string               `json:"operation"`
	Kind         treasury.MessageKind `json:"kind"`
	Payload      json.RawMessage      `json:"payload"`
	ContractCall json.RawMessage      `json:"contract_call,omitempty"`
	Status       Status               `json:"status"`
	CreatedAt    time.Time            `json:"created_at"`
}

// Open initialises the backing store using a sqlite-compatible DSN.
func Open(dsn string) (*Store, error) {
	trimmed := strings.TrimSpace(dsn)
	if trimmed == "" {
		return nil, ErrPathRequired
	}
	db, err := sql.Open("sqlite", trimmed)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	return &Store{db: db, now: time.Now}, nil
}

// Close releases database resources.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Append stores msgs as one staged batch and returns its identifier. The
// batch becomes visible to relayers once Promote succeeds.
func (s *Store) Append(ctx context.Context, height uint64, operation string, msgs []treasury.Message) (string, error) {
	if s == nil {
		return "", fmt.Errorf("outbox not configured")
	}
	batchID := uuid.NewString()
	createdAt := s.now().UTC().UnixNano()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("begin append: %w", err)
	}
	defer tx.Rollback()

	for i, msg := range msgs {
		payload, err := json.Marshal(msg)
		if err != nil {
			return "", fmt.Errorf("encode message %d: %w", i, err)
		}
		var call []byte
		if msg.Swap != nil {
			exec, err := msg.Swap.WasmExecute()
			if err != nil {
				return "", fmt.Errorf("render swap %d: %w", i, err)
			}
			if call, err = json.Marshal(exec); err != nil {
				return "", fmt.Errorf("encode swap %d: %w", i, err)
			}
		}
		_, err = tx.ExecContext(ctx, `
            INSERT INTO outbox_messages(batch_id, sequence, height, operation, kind, payload, contract_call, status, created_at)
            VALUES(?, ?, ?, ?, ?, ?, ?, ?, ?)
        `, batchID, i, int64(height), operation, string(msg.Kind()), string(payload), string(call), string(StatusStaged), createdAt)
		if err != nil {
			return "", fmt.Errorf("insert message %d: %w", i, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("commit append: %w", err)
	}
	return batchID, nil
}

// Promote releases a staged batch to relayers once its state change has
// committed.
func (s *Store) Promote(ctx context.Context, batchID string) error {
	if s == nil {
		return fmt.Errorf("outbox not configured")
	}
	return s.transition(ctx, batchID, StatusStaged, StatusPending)
}

// Void cancels a staged batch whose state change was not committed.
func (s *Store) Void(ctx context.Context, batchID string) error {
	if s == nil {
		return fmt.Errorf("outbox not configured")
	}
	return s.transition(ctx, batchID, StatusStaged, StatusVoid)
}

func (s *Store) transition(ctx context.Context, batchID string, from, to Status) error {
	res, err := s.db.ExecContext(ctx, `
        UPDATE outbox_messages SET status = ? WHERE batch_id = ? AND status = ?
    `, string(to), batchID, string(from))
	if err != nil {
		return fmt.Errorf("%s batch: %w", to, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s batch: %w", to, err)
	}
	if affected == 0 {
		return fmt.Errorf("%w: batch %s", ErrNotStaged, batchID)
	}
	return nil
}

// Reconcile settles batches left staged by an interrupted call. committed
// reports whether the state change that produced a batch was persisted;
// those batches are promoted and the rest voided.
func (s *Store) Reconcile(ctx context.Context, committed func(batchID string, height uint64) (bool, error)) (promoted, voided int, err error) {
	if s == nil {
		return 0, 0, fmt.Errorf("outbox not configured")
	}
	rows, err := s.db.QueryContext(ctx, `
        SELECT DISTINCT batch_id, height FROM outbox_messages WHERE status = ? ORDER BY height ASC
    `, string(StatusStaged))
	if err != nil {
		return 0, 0, fmt.Errorf("query staged: %w", err)
	}
	type staged struct {
		id     string
		height uint64
	}
	var batches []staged
	for rows.Next() {
		var (
			b      staged
			height int64
		)
		if err := rows.Scan(&b.id, &height); err != nil {
			rows.Close()
			return 0, 0, fmt.Errorf("scan staged: %w", err)
		}
		b.height = uint64(height)
		batches = append(batches, b)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return 0, 0, fmt.Errorf("query staged: %w", err)
	}

	for _, b := range batches {
		ok, err := committed(b.id, b.height)
		if err != nil {
			return promoted, voided, fmt.Errorf("check batch %s: %w", b.id, err)
		}
		if ok {
			if err := s.Promote(ctx, b.id); err != nil {
				return promoted, voided, err
			}
			promoted++
			continue
		}
		if err := s.Void(ctx, b.id); err != nil {
			return promoted, voided, err
		}
		voided++
	}
	return promoted, voided, nil
}

// Pending returns up to limit pending messages in insertion order.
func (s *Store) Pending(ctx context.Context, limit int) ([]Record, error) {
	if s == nil {
		return nil, fmt.Errorf("outbox not configured")
	}
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.db.QueryContext(ctx, `
        SELECT id, batch_id, sequence, height, operation, kind, payload, contract_call, status, created_at
        FROM outbox_messages
        WHERE status = ?
        ORDER BY id ASC
        LIMIT ?
    `, string(StatusPending), limit)
	if err != nil {
		return nil, fmt.Errorf("query pending: %w", err)
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		var (
			rec       Record
			height    int64
			kind      string
			payload   string
			call      string
			status    string
			createdAt int64
		)
		if err := rows.Scan(&rec.ID, &rec.BatchID, &rec.Sequence, &height, &rec.Operation, &kind, &payload, &call, &status, &createdAt); err != nil {
			return nil, fmt.Errorf("scan pending: %w", err)
		}
		rec.Height = uint64(height)
		rec.Kind = treasury.MessageKind(kind)
		rec.Payload = json.RawMessage(payload)
		if call != "" {
			rec.ContractCall = json.RawMessage(call)
		}
		rec.Status = Status(status)
		rec.CreatedAt = time.Unix(0, createdAt).UTC()
		out = append(out, rec)
	}
	return out, rows.Err()
}

// MarkDelivered records that a relayer submitted the message.
func (s *Store) MarkDelivered(ctx context.Context, id int64) error {
	if s == nil {
		return fmt.Errorf("outbox not configured")
	}
	res, err := s.db.ExecContext(ctx, `
        UPDATE outbox_messages SET status = ?, delivered_at = ? WHERE id = ? AND status = ?
    `, string(StatusDelivered), s.now().UTC().UnixNano(), id, string(StatusPending))
	if err != nil {
		return fmt.Errorf("mark delivered: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("mark delivered: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("%w: id %d", ErrNotPending, id)
	}
	return nil
}

// Counts returns the number of messages per status.
func (s *Store) Counts(ctx context.Context) (map[Status]int, error) {
	if s == nil {
		return nil, fmt.Errorf("outbox not configured")
	}
	rows, err := s.db.QueryContext(ctx, `SELECT status, COUNT(*) FROM outbox_messages GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("query counts: %w", err)
	}
	defer rows.Close()
	counts := make(map[Status]int)
	for rows.Next() {
		var (
			status string
			n      int
		)
		if err := rows.Scan(&status, &n); err != nil {
			return nil, fmt.Errorf("scan counts: %w", err)
		}
		counts[Status(status)] = n
	}
	return counts, rows.Err()
}

const schema = `
CREATE TABLE IF NOT EXISTS outbox_messages (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    batch_id TEXT NOT NULL,
    sequence INTEGER NOT NULL,
    height INTEGER NOT NULL,
    operation TEXT NOT NULL,
    kind TEXT NOT NULL,
    payload TEXT NOT NULL,
    contract_call TEXT NOT NULL DEFAULT '',
    status TEXT NOT NULL,
    created_at INTEGER NOT NULL,
    delivered_at INTEGER,
    UNIQUE(batch_id, sequence)
);
CREATE INDEX IF NOT EXISTS idx_outbox_messages_status ON outbox_messages(status, id);
`
