package postgres

import (
	"context"
	"database/sql"
	stderrors "errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/frahmantamala/resto-order/internal/user"
)

func NewPostgresRepo(db *sqlx.DB) user.Repository {
	return &pgRepo{db: db}
}

type pgRepo struct {
	db *sqlx.DB
}

const profileQuery = `
SELECT u.id, u.tenant_id, t.name AS tenant_name, t.slug AS tenant_slug,
       u.email, u.name, u.role, u.is_active, u.created_at
FROM staff_users u
LEFT JOIN tenants t ON t.id = u.tenant_id
WHERE u.id = $1
`

func (p *pgRepo) GetProfile(ctx context.Context, userID int64) (*user.ProfileRow, error) {
	var row user.ProfileRow
	if err := p.db.GetContext(ctx, &row, profileQuery, userID); err != nil {
		if stderrors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get profile query: %w", err)
	}
	return &row, nil
}
