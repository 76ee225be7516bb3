package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/ignite/notify-engine/internal/domain"
)

// HistoryRepo implements the append-only message-history store against
// PostgreSQL.
type HistoryRepo struct{ db *sql.DB }

// NewHistoryRepo creates a Postgres-backed message-history repository.
func NewHistoryRepo(db *sql.DB) *HistoryRepo { return &HistoryRepo{db: db} }

const historyColumns = `
	id, tenant_id, contact_id, channel, status,
	COALESCE(campaign_id,''), COALESCE(step_id,''),
	COALESCE(subject,''), COALESCE(body,''), COALESCE(error_message,''),
	sent_at, opened_at, clicked_at, created_at`

// ListRecent returns up to limit records for the contact/channel pair,
// newest first.
func (r *HistoryRepo) ListRecent(ctx context.Context, contactID string, ch domain.Channel, limit int) ([]domain.MessageRecord, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+historyColumns+`
		FROM notify_message_history
		WHERE contact_id = $1 AND channel = $2
		ORDER BY created_at DESC
		LIMIT $3
	`, contactID, ch, limit)
	if err != nil {
		return nil, fmt.Errorf("list history: %w", err)
	}
	defer rows.Close()
	return scanRecords(rows)
}

// ListEngaged returns up to limit records carrying an open or click
// timestamp, newest first.
func (r *HistoryRepo) ListEngaged(ctx context.Context, contactID string, ch domain.Channel, limit int) ([]domain.MessageRecord, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+historyColumns+`
		FROM notify_message_history
		WHERE contact_id = $1 AND channel = $2
		  AND (opened_at IS NOT NULL OR clicked_at IS NOT NULL)
		ORDER BY created_at DESC
		LIMIT $3
	`, contactID, ch, limit)
	if err != nil {
		return nil, fmt.Errorf("list engaged history: %w", err)
	}
	defer rows.Close()
	return scanRecords(rows)
}

// Append writes one history row. The record's ID is assigned when empty.
func (r *HistoryRepo) Append(ctx context.Context, rec *domain.MessageRecord) error {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now()
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO notify_message_history
			(id, tenant_id, contact_id, channel, status, campaign_id, step_id,
			 subject, body, error_message, sent_at, opened_at, clicked_at, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14)
	`, rec.ID, rec.TenantID, rec.ContactID, rec.Channel, rec.Status,
		nullStr(rec.CampaignID), nullStr(rec.StepID),
		nullStr(rec.Subject), nullStr(rec.Body), nullStr(rec.ErrorMsg),
		rec.SentAt, rec.OpenedAt, rec.ClickedAt, rec.CreatedAt)
	if err != nil {
		return fmt.Errorf("append history: %w", err)
	}
	return nil
}

// ChannelStats returns tenant-wide per-channel aggregate counters.
func (r *HistoryRepo) ChannelStats(ctx context.Context, tenantID string) (map[domain.Channel]domain.ChannelTotals, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT channel,
		       COUNT(*) AS sent,
		       COUNT(*) FILTER (WHERE status IN ('delivered','sent')) AS delivered,
		       COUNT(opened_at) AS opened,
		       COUNT(clicked_at) AS clicked
		FROM notify_message_history
		WHERE tenant_id = $1
		GROUP BY channel
	`, tenantID)
	if err != nil {
		return nil, fmt.Errorf("channel stats: %w", err)
	}
	defer rows.Close()

	out := make(map[domain.Channel]domain.ChannelTotals)
	for rows.Next() {
		var ch domain.Channel
		var t domain.ChannelTotals
		if err := rows.Scan(&ch, &t.Sent, &t.Delivered, &t.Opened, &t.Clicked); err != nil {
			return nil, fmt.Errorf("scan channel stats: %w", err)
		}
		out[ch] = t
	}
	return out, rows.Err()
}

func scanRecords(rows *sql.Rows) ([]domain.MessageRecord, error) {
	var out []domain.MessageRecord
	for rows.Next() {
		var m domain.MessageRecord
		if err := rows.Scan(
			&m.ID, &m.TenantID, &m.ContactID, &m.Channel, &m.Status,
			&m.CampaignID, &m.StepID,
			&m.Subject, &m.Body, &m.ErrorMsg,
			&m.SentAt, &m.OpenedAt, &m.ClickedAt, &m.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan history row: %w", err)
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

func nullStr(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
