package postgres

import (
	"context"
	stderrors "errors"

	"gorm.io/gorm"

	"github.com/frahmantamala/resto-order/internal/auth"
	userDatamodel "github.com/frahmantamala/resto-order/internal/core/datamodel/user"
)

type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) auth.RepositoryAPI {
	return &Repository{db: db}
}

func (r *Repository) GetByEmail(ctx context.Context, email string) (*userDatamodel.StaffUser, error) {
	return r.first(ctx, "LOWER(email) = ?", email)
}

func (r *Repository) GetByID(ctx context.Context, id int64) (*userDatamodel.StaffUser, error) {
	return r.first(ctx, "id = ?", id)
}

func (r *Repository) first(ctx context.Context, query string, args ...interface{}) (*userDatamodel.StaffUser, error) {
	var u userDatamodel.StaffUser
	if err := r.db.WithContext(ctx).Where(query, args...).First(&u).Error; err != nil {
		if stderrors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &u, nil
}
