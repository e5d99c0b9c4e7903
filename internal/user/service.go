package user

import (
	"context"
	"log/slog"

	errors "github.com/frahmantamala/resto-order/internal"
	"github.com/frahmantamala/resto-order/internal/auth"
)

// Repository returns nil, nil when the account does not exist.
type Repository interface {
	GetProfile(ctx context.Context, userID int64) (*ProfileRow, error)
}

type Service struct {
	repo   Repository
	logger *slog.Logger
}

func NewService(repo Repository, logger *slog.Logger) *Service {
	return &Service{
		repo:   repo,
		logger: logger,
	}
}

func (s *Service) GetProfile(ctx context.Context, userID int64) (*Profile, error) {
	row, err := s.repo.GetProfile(ctx, userID)
	if err != nil {
		s.logger.Error("failed to load staff profile", "error", err, "user_id", userID)
		return nil, errors.NewInternalError("failed to load profile", err)
	}
	if row == nil {
		return nil, errors.NewNotFoundError("user not found", errors.ErrCodeInvalidToken)
	}
	return FromRow(row, auth.PermissionsForRole(row.Role)), nil
}
