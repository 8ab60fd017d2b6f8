package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/vladislavdragonenkov/stocks/internal/domain"
)

type batchRepository struct {
	db *sql.DB
}

// NewBatchRepository создаёт PostgreSQL-реализацию BatchRepository.
func NewBatchRepository(store *Store) domain.BatchRepository {
	return &batchRepository{db: store.DB()}
}

func (r *batchRepository) Add(batch *domain.Batch) error {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	state := batch.State()
	now := time.Now().UTC()

	return withTx(ctx, r.db, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO batches (reference, sku, purchased_qty, eta, version, created_at, updated_at)
			VALUES ($1,$2,$3,$4,0,$5,$5)
		`, state.Reference, state.SKU, state.PurchasedQty, nullDate(state.ETA), now)
		if err != nil {
			if isUniqueViolation(err) {
				return domain.ErrBatchAlreadyExists
			}
			return fmt.Errorf("insert batch: %w", err)
		}

		return insertAllocations(ctx, tx, state.Reference, state.Allocations)
	})
}

func (r *batchRepository) Get(reference string) (*domain.Batch, error) {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	var (
		state domain.BatchState
		eta   sql.NullTime
	)
	err := r.db.QueryRowContext(ctx, `
		SELECT reference, sku, purchased_qty, eta, version
		FROM batches
		WHERE reference = $1
	`, reference).Scan(&state.Reference, &state.SKU, &state.PurchasedQty, &eta, &state.Version)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrBatchNotFound
		}
		return nil, fmt.Errorf("select batch: %w", err)
	}
	state.ETA = timeFromNull(eta)

	rows, err := r.db.QueryContext(ctx, `
		SELECT order_id, sku, qty
		FROM allocations
		WHERE batch_reference = $1
		ORDER BY order_id, sku, qty
	`, reference)
	if err != nil {
		return nil, fmt.Errorf("select allocations: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var line domain.OrderLine
		if err := rows.Scan(&line.OrderID, &line.SKU, &line.Qty); err != nil {
			return nil, fmt.Errorf("scan allocation: %w", err)
		}
		state.Allocations = append(state.Allocations, line)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate allocations: %w", err)
	}

	return domain.RestoreBatch(state), nil
}

func (r *batchRepository) ListBySKU(sku string) ([]*domain.Batch, error) {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	// LEFT JOIN вытаскивает партии вместе с размещениями одним запросом.
	rows, err := r.db.QueryContext(ctx, `
		SELECT b.reference, b.sku, b.purchased_qty, b.eta, b.version,
		       a.order_id, a.sku, a.qty
		FROM batches b
		LEFT JOIN allocations a ON a.batch_reference = b.reference
		WHERE b.sku = $1
		ORDER BY b.eta NULLS FIRST, b.reference, a.order_id, a.sku, a.qty
	`, sku)
	if err != nil {
		return nil, fmt.Errorf("select batches by sku: %w", err)
	}
	defer rows.Close()

	var (
		states []*domain.BatchState
		byRef  = make(map[string]*domain.BatchState)
	)
	for rows.Next() {
		var (
			state   domain.BatchState
			eta     sql.NullTime
			orderID sql.NullString
			lineSKU sql.NullString
			lineQty sql.NullInt32
		)
		if err := rows.Scan(
			&state.Reference, &state.SKU, &state.PurchasedQty, &eta, &state.Version,
			&orderID, &lineSKU, &lineQty,
		); err != nil {
			return nil, fmt.Errorf("scan batch row: %w", err)
		}

		current, ok := byRef[state.Reference]
		if !ok {
			state.ETA = timeFromNull(eta)
			current = &state
			byRef[state.Reference] = current
			states = append(states, current)
		}
		if orderID.Valid {
			current.Allocations = append(current.Allocations, domain.OrderLine{
				OrderID: orderID.String,
				SKU:     lineSKU.String,
				Qty:     lineQty.Int32,
			})
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate batch rows: %w", err)
	}

	result := make([]*domain.Batch, 0, len(states))
	for _, state := range states {
		result = append(result, domain.RestoreBatch(*state))
	}
	return result, nil
}

func (r *batchRepository) Save(batch *domain.Batch) error {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	state := batch.State()

	return withTx(ctx, r.db, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `
			UPDATE batches
			SET version = version + 1,
			    updated_at = $3
			WHERE reference = $1 AND version = $2
		`, state.Reference, state.Version, time.Now().UTC())
		if err != nil {
			return fmt.Errorf("update batch version: %w", err)
		}

		affected, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("rows affected for batch update: %w", err)
		}
		if affected == 0 {
			var exists bool
			if err := tx.QueryRowContext(ctx,
				`SELECT EXISTS (SELECT 1 FROM batches WHERE reference = $1)`, state.Reference,
			).Scan(&exists); err != nil {
				return fmt.Errorf("check batch existence: %w", err)
			}
			if !exists {
				return domain.ErrBatchNotFound
			}
			return domain.ErrBatchVersionConflict
		}

		if _, err := tx.ExecContext(ctx,
			`DELETE FROM allocations WHERE batch_reference = $1`, state.Reference,
		); err != nil {
			return fmt.Errorf("delete allocations: %w", err)
		}

		return insertAllocations(ctx, tx, state.Reference, state.Allocations)
	})
}

func insertAllocations(ctx context.Context, tx *sql.Tx, reference string, lines []domain.OrderLine) error {
	for _, line := range lines {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO allocations (batch_reference, order_id, sku, qty)
			VALUES ($1,$2,$3,$4)
		`, reference, line.OrderID, line.SKU, line.Qty); err != nil {
			return fmt.Errorf("insert allocation: %w", err)
		}
	}
	return nil
}

// nullDate приводит ETA к дате в UTC; nil сохраняется как NULL (товар на складе).
func nullDate(eta *time.Time) any {
	if eta == nil {
		return nil
	}
	y, m, d := eta.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func timeFromNull(v sql.NullTime) *time.Time {
	if !v.Valid {
		return nil
	}
	t := v.Time.UTC()
	return &t
}

var _ domain.BatchRepository = (*batchRepository)(nil)
