package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"rehaulx/internal/model"

	"github.com/jackc/pgx/v5/pgxpool"
)

// LedgerRepository provides append-only access to the minutes ledger.
// Entries are never updated or deleted; balances are always derived sums.
type LedgerRepository interface {
	// Insert appends a credit or debit row.
	Insert(ctx context.Context, entry *model.LedgerEntry) error
	// InsertOnceByReason appends a row unless the user already has one with
	// the same reason. Used for the one-time signup bonus.
	InsertOnceByReason(ctx context.Context, entry *model.LedgerEntry) (bool, error)
	// ActiveSums returns total credited and debited minutes for rows whose
	// cycle window contains now, or whose window is unbounded, together with
	// the latest bounded cycle end.
	ActiveSums(ctx context.Context, userID string, now time.Time) (allocated, used int, cycleEnd *time.Time, err error)
	// History lists ledger rows newest first with pagination.
	History(ctx context.Context, userID string, limit, offset int) ([]model.LedgerEntry, error)
}

type ledgerRepo struct {
	pool *pgxpool.Pool
}

// NewLedgerRepo creates a new LedgerRepository.
func NewLedgerRepo(pool *pgxpool.Pool) LedgerRepository {
	return &ledgerRepo{pool: pool}
}

func (r *ledgerRepo) Insert(ctx context.Context, entry *model.LedgerEntry) error {
	meta, err := marshalMeta(entry.Meta)
	if err != nil {
		return err
	}
	const q = `
		INSERT INTO minutes_ledger (user_id, minutes, entry_type, reason, currency, cycle_start, cycle_end, meta)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, created_at
	`
	err = r.pool.QueryRow(ctx, q,
		entry.UserID,
		entry.Minutes,
		entry.EntryType,
		entry.Reason,
		entry.Currency,
		entry.CycleStart,
		entry.CycleEnd,
		meta,
	).Scan(&entry.ID, &entry.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert ledger %s for user %s: %w", entry.EntryType, entry.UserID, err)
	}
	return nil
}

func (r *ledgerRepo) InsertOnceByReason(ctx context.Context, entry *model.LedgerEntry) (bool, error) {
	meta, err := marshalMeta(entry.Meta)
	if err != nil {
		return false, err
	}
	// Relies on the partial unique index on (user_id, reason) for
	// bootstrap-style reasons.
	const q = `
		INSERT INTO minutes_ledger (user_id, minutes, entry_type, reason, currency, cycle_start, cycle_end, meta)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (user_id, reason) WHERE reason = 'free_signup' DO NOTHING
		RETURNING id, created_at
	`
	rows, err := r.pool.Query(ctx, q,
		entry.UserID,
		entry.Minutes,
		entry.EntryType,
		entry.Reason,
		entry.Currency,
		entry.CycleStart,
		entry.CycleEnd,
		meta,
	)
	if err != nil {
		return false, fmt.Errorf("insert once ledger %s for user %s: %w", entry.Reason, entry.UserID, err)
	}
	defer rows.Close()

	inserted := false
	if rows.Next() {
		if err := rows.Scan(&entry.ID, &entry.CreatedAt); err != nil {
			return false, fmt.Errorf("scan inserted ledger row: %w", err)
		}
		inserted = true
	}
	if err := rows.Err(); err != nil {
		return false, fmt.Errorf("insert once ledger rows: %w", err)
	}
	return inserted, nil
}

func (r *ledgerRepo) ActiveSums(ctx context.Context, userID string, now time.Time) (int, int, *time.Time, error) {
	const q = `
		SELECT
			COALESCE(SUM(minutes) FILTER (WHERE entry_type = 'credit'), 0),
			COALESCE(SUM(minutes) FILTER (WHERE entry_type = 'debit'), 0),
			MAX(cycle_end)
		FROM minutes_ledger
		WHERE user_id = $1
		  AND ((cycle_start <= $2 AND cycle_end >= $2) OR (cycle_start IS NULL AND cycle_end IS NULL))
	`
	var allocated, used int
	var cycleEnd *time.Time
	if err := r.pool.QueryRow(ctx, q, userID, now).Scan(&allocated, &used, &cycleEnd); err != nil {
		return 0, 0, nil, fmt.Errorf("sum ledger for user %s: %w", userID, err)
	}
	return allocated, used, cycleEnd, nil
}

func (r *ledgerRepo) History(ctx context.Context, userID string, limit, offset int) ([]model.LedgerEntry, error) {
	const q = `
		SELECT id, user_id, minutes, entry_type, reason, COALESCE(currency, ''), cycle_start, cycle_end, meta, created_at
		FROM minutes_ledger
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`
	rows, err := r.pool.Query(ctx, q, userID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("query ledger history for user %s: %w", userID, err)
	}
	defer rows.Close()

	entries := []model.LedgerEntry{}
	for rows.Next() {
		var e model.LedgerEntry
		var rawMeta []byte
		if err := rows.Scan(&e.ID, &e.UserID, &e.Minutes, &e.EntryType, &e.Reason, &e.Currency, &e.CycleStart, &e.CycleEnd, &rawMeta, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan ledger entry: %w", err)
		}
		if len(rawMeta) > 0 {
			if err := json.Unmarshal(rawMeta, &e.Meta); err != nil {
				return nil, fmt.Errorf("unmarshal meta for ledger entry %d: %w", e.ID, err)
			}
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ledger history rows: %w", err)
	}
	return entries, nil
}

func marshalMeta(meta map[string]any) ([]byte, error) {
	if meta == nil {
		return []byte("{}"), nil
	}
	raw, err := json.Marshal(meta)
	if err != nil {
		return nil, fmt.Errorf("marshal ledger meta: %w", err)
	}
	return raw, nil
}
