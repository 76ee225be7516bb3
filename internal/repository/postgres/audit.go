package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/ignite/notify-engine/internal/domain"
)

// AuditRepo persists fallback-usage audit entries.
type AuditRepo struct{ db *sql.DB }

// NewAuditRepo creates a Postgres-backed fallback audit repository.
func NewAuditRepo(db *sql.DB) *AuditRepo { return &AuditRepo{db: db} }

// Append writes one fallback audit row. The attempt trail is stored as
// JSONB.
func (r *AuditRepo) Append(ctx context.Context, audit *domain.FallbackAudit) error {
	if audit.ID == "" {
		audit.ID = uuid.NewString()
	}
	if audit.CreatedAt.IsZero() {
		audit.CreatedAt = time.Now()
	}
	attempts, err := json.Marshal(audit.Attempts)
	if err != nil {
		return fmt.Errorf("marshal attempts: %w", err)
	}
	_, err = r.db.ExecContext(ctx, `
		INSERT INTO notify_fallback_audit
			(id, tenant_id, contact_id, original_channel, final_channel, attempts, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7)
	`, audit.ID, audit.TenantID, audit.ContactID,
		audit.OriginalChannel, audit.FinalChannel, attempts, audit.CreatedAt)
	if err != nil {
		return fmt.Errorf("append fallback audit: %w", err)
	}
	return nil
}

// ListByContact returns the contact's fallback audit entries, newest
// first.
func (r *AuditRepo) ListByContact(ctx context.Context, contactID string, limit int) ([]domain.FallbackAudit, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, tenant_id, contact_id, original_channel, final_channel, attempts, created_at
		FROM notify_fallback_audit
		WHERE contact_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`, contactID, limit)
	if err != nil {
		return nil, fmt.Errorf("list fallback audit: %w", err)
	}
	defer rows.Close()

	var out []domain.FallbackAudit
	for rows.Next() {
		var a domain.FallbackAudit
		var attempts []byte
		if err := rows.Scan(&a.ID, &a.TenantID, &a.ContactID,
			&a.OriginalChannel, &a.FinalChannel, &attempts, &a.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan fallback audit: %w", err)
		}
		if len(attempts) > 0 {
			if err := json.Unmarshal(attempts, &a.Attempts); err != nil {
				return nil, fmt.Errorf("decode attempts: %w", err)
			}
		}
		out = append(out, a)
	}
	return out, rows.Err()
}
