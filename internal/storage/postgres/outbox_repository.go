package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/vladislavdragonenkov/stocks/internal/domain"
)

const defaultOutboxPullLimit = 100

type outboxStatus string

const (
	outboxPending outboxStatus = "pending"
	outboxSent    outboxStatus = "sent"
	outboxFailed  outboxStatus = "failed"
)

// seq задаёт порядок выдачи: события одной партии уходят в том порядке,
// в котором сервис их записал, даже при совпадающих created_at.
const (
	insertOutboxSQL = `
		INSERT INTO outbox_messages (id, aggregate_type, aggregate_id, event_type, payload, created_at, updated_at)
		VALUES ($1, COALESCE(NULLIF($2, ''), 'batch'), $3, $4, $5, $6, $6)
		RETURNING aggregate_type`

	pullPendingSQL = `
		SELECT id, aggregate_type, aggregate_id, event_type, payload
		FROM outbox_messages
		WHERE status = $1
		ORDER BY seq
		LIMIT $2`

	backlogSQL = `
		SELECT COUNT(*), MIN(created_at)
		FROM outbox_messages
		WHERE status = $1`

	markOutboxSQL = `
		UPDATE outbox_messages
		SET status = $2, attempt_count = attempt_count + 1, updated_at = $3
		WHERE id = $1`

	purgeSentSQL = `
		DELETE FROM outbox_messages
		WHERE seq IN (
			SELECT seq FROM outbox_messages
			WHERE status = $1 AND updated_at <= $2
			ORDER BY seq
			LIMIT $3
		)`
)

type outboxRepository struct {
	db  *sql.DB
	now func() time.Time
}

// NewOutboxRepository создаёт PostgreSQL-реализацию outbox событий партий.
func NewOutboxRepository(store *Store) domain.OutboxRepository {
	return &outboxRepository{
		db:  store.DB(),
		now: func() time.Time { return time.Now().UTC() },
	}
}

// Enqueue сохраняет событие в статусе pending. Пустой тип агрегата считается партией.
func (r *outboxRepository) Enqueue(msg domain.OutboxMessage) (domain.OutboxMessage, error) {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	if msg.ID == "" {
		msg.ID = uuid.NewString()
	}

	err := r.db.QueryRowContext(ctx, insertOutboxSQL,
		msg.ID, msg.AggregateType, msg.AggregateID, msg.EventType, msg.Payload, r.now(),
	).Scan(&msg.AggregateType)
	if err != nil {
		return domain.OutboxMessage{}, fmt.Errorf("enqueue %s event for %s: %w", msg.EventType, msg.AggregateID, err)
	}
	return msg, nil
}

func (r *outboxRepository) PullPending(limit int) ([]domain.OutboxMessage, error) {
	if limit <= 0 {
		limit = defaultOutboxPullLimit
	}

	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	rows, err := r.db.QueryContext(ctx, pullPendingSQL, string(outboxPending), limit)
	if err != nil {
		return nil, fmt.Errorf("pull pending outbox events: %w", err)
	}
	defer rows.Close()

	var result []domain.OutboxMessage
	for rows.Next() {
		var msg domain.OutboxMessage
		if err := rows.Scan(&msg.ID, &msg.AggregateType, &msg.AggregateID, &msg.EventType, &msg.Payload); err != nil {
			return nil, fmt.Errorf("scan outbox event: %w", err)
		}
		result = append(result, msg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate outbox events: %w", err)
	}
	return result, nil
}

func (r *outboxRepository) Stats() (domain.OutboxStats, error) {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	var (
		stats  domain.OutboxStats
		oldest sql.NullTime
	)
	if err := r.db.QueryRowContext(ctx, backlogSQL, string(outboxPending)).Scan(&stats.PendingCount, &oldest); err != nil {
		return domain.OutboxStats{}, fmt.Errorf("query outbox backlog: %w", err)
	}
	if oldest.Valid {
		stats.OldestPendingAt = oldest.Time.UTC()
	}
	return stats, nil
}

func (r *outboxRepository) MarkSent(id string) error {
	return r.mark(id, outboxSent)
}

func (r *outboxRepository) MarkFailed(id string) error {
	return r.mark(id, outboxFailed)
}

func (r *outboxRepository) mark(id string, status outboxStatus) error {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	res, err := r.db.ExecContext(ctx, markOutboxSQL, id, string(status), r.now())
	if err != nil {
		return fmt.Errorf("mark outbox event %s as %s: %w", id, status, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("mark outbox event %s: %w", id, err)
	}
	if affected == 0 {
		return domain.ErrOutboxPublish
	}
	return nil
}

// PurgeSent удаляет до limit доставленных событий, обновлённых не позже before,
// начиная с самых ранних.
func (r *outboxRepository) PurgeSent(before time.Time, limit int) (int, error) {
	if limit <= 0 {
		return 0, nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	res, err := r.db.ExecContext(ctx, purgeSentSQL, string(outboxSent), before.UTC(), limit)
	if err != nil {
		return 0, fmt.Errorf("purge sent outbox events: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("purge sent outbox events: %w", err)
	}
	return int(affected), nil
}

var (
	_ domain.OutboxRepository = (*outboxRepository)(nil)
	_ domain.OutboxPurger     = (*outboxRepository)(nil)
)
