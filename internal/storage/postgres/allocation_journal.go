package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/vladislavdragonenkov/stocks/internal/domain"
)

type allocationJournal struct {
	db *sql.DB
}

// NewAllocationJournal создаёт PostgreSQL-реализацию AllocationJournal.
func NewAllocationJournal(store *Store) domain.AllocationJournal {
	return &allocationJournal{db: store.DB()}
}

func (j *allocationJournal) Append(record domain.AllocationRecord) error {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	if record.ID == "" {
		record.ID = uuid.NewString()
	}
	if record.OccurredAt.IsZero() {
		record.OccurredAt = time.Now().UTC()
	}

	_, err := j.db.ExecContext(ctx, `
		INSERT INTO allocation_journal (id, order_id, sku, qty, batch_ref, action, occurred_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7)
	`,
		record.ID, record.OrderID, record.SKU, record.Qty, record.BatchRef,
		string(record.Action), record.OccurredAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("insert allocation record: %w", err)
	}
	return nil
}

func (j *allocationJournal) ListByOrder(orderID string) ([]domain.AllocationRecord, error) {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	rows, err := j.db.QueryContext(ctx, `
		SELECT id, order_id, sku, qty, batch_ref, action, occurred_at
		FROM allocation_journal
		WHERE order_id = $1
		ORDER BY occurred_at, id
	`, orderID)
	if err != nil {
		return nil, fmt.Errorf("select allocation records: %w", err)
	}
	defer rows.Close()

	var result []domain.AllocationRecord
	for rows.Next() {
		var (
			rec    domain.AllocationRecord
			action string
		)
		if err := rows.Scan(
			&rec.ID, &rec.OrderID, &rec.SKU, &rec.Qty, &rec.BatchRef, &action, &rec.OccurredAt,
		); err != nil {
			return nil, fmt.Errorf("scan allocation record: %w", err)
		}
		rec.Action = domain.AllocationAction(action)
		rec.OccurredAt = rec.OccurredAt.UTC()
		result = append(result, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate allocation records: %w", err)
	}

	return result, nil
}

var _ domain.AllocationJournal = (*allocationJournal)(nil)
