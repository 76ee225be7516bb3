// Package postgres holds the PostgreSQL-backed stores for contacts,
// message history and fallback audit entries.
package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/ignite/notify-engine/internal/domain"
)

// ContactRepo implements the contact store against PostgreSQL.
type ContactRepo struct{ db *sql.DB }

// NewContactRepo creates a Postgres-backed contact repository.
func NewContactRepo(db *sql.DB) *ContactRepo { return &ContactRepo{db: db} }

func (r *ContactRepo) GetContact(ctx context.Context, id string) (*domain.Contact, error) {
	c := &domain.Contact{}
	err := r.db.QueryRowContext(ctx, `
		SELECT id, tenant_id, COALESCE(name,''),
		       COALESCE(email,''), COALESCE(phone,''),
		       COALESCE(chat_user_id,''), COALESCE(business_number,''),
		       email_opt_in, sms_opt_in, chat_opt_in, business_opt_in
		FROM notify_contacts
		WHERE id = $1
	`, id).Scan(
		&c.ID, &c.TenantID, &c.Name,
		&c.Email, &c.Phone,
		&c.ChatUserID, &c.BusinessNumber,
		&c.EmailOptIn, &c.SMSOptIn, &c.ChatOptIn, &c.BusinessOptIn,
	)
	if err == sql.ErrNoRows {
		return nil, domain.ErrContactNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get contact: %w", err)
	}
	return c, nil
}
