package auth

import (
	"context"
	"log/slog"
	"strings"

	errors "github.com/frahmantamala/resto-order/internal"
	userDatamodel "github.com/frahmantamala/resto-order/internal/core/datamodel/user"
)

// RepositoryAPI returns nil, nil when no account matches.
type RepositoryAPI interface {
	GetByEmail(ctx context.Context, email string) (*userDatamodel.StaffUser, error)
	GetByID(ctx context.Context, id int64) (*userDatamodel.StaffUser, error)
}

type ServiceAPI interface {
	Authenticate(ctx context.Context, dto LoginDTO) (AuthTokens, error)
	RefreshTokens(ctx context.Context, refreshToken string) (AuthTokens, error)
	ValidateAccessToken(tokenString string) (*Claims, error)
	GetUser(ctx context.Context, userID int64) (*User, error)
}

type Service struct {
	repo           RepositoryAPI
	tokenGenerator TokenGeneratorAPI
	logger         *slog.Logger
}

func NewService(repo RepositoryAPI, tokenGen TokenGeneratorAPI, logger *slog.Logger) *Service {
	return &Service{
		repo:           repo,
		tokenGenerator: tokenGen,
		logger:         logger,
	}
}

func (s *Service) Authenticate(ctx context.Context, dto LoginDTO) (AuthTokens, error) {
	if err := dto.Validate(); err != nil {
		return AuthTokens{}, err
	}

	email := strings.ToLower(strings.TrimSpace(dto.Email))
	row, err := s.repo.GetByEmail(ctx, email)
	if err != nil {
		s.logger.Error("failed to load staff user", "error", err)
		return AuthTokens{}, errors.NewInternalError("failed to authenticate", err)
	}
	if row == nil {
		s.logger.Warn("login attempt for unknown email")
		return AuthTokens{}, errors.ErrInvalidCredentials
	}

	if err := VerifyPassword(row.PasswordHash, dto.Password); err != nil {
		s.logger.Warn("login attempt with wrong password", "user_id", row.ID)
		return AuthTokens{}, errors.ErrInvalidCredentials
	}
	if !row.IsActive {
		return AuthTokens{}, errors.ErrUserInactive
	}

	return s.issueTokens(userFromRow(row))
}

func (s *Service) RefreshTokens(ctx context.Context, refreshToken string) (AuthTokens, error) {
	if err := (RefreshTokenDTO{RefreshToken: refreshToken}).Validate(); err != nil {
		return AuthTokens{}, err
	}

	claims, err := s.tokenGenerator.ValidateRefreshToken(refreshToken)
	if err != nil {
		return AuthTokens{}, err
	}

	// role or tenant may have changed since the refresh token was issued
	u, err := s.GetUser(ctx, claims.UserID)
	if err != nil {
		return AuthTokens{}, err
	}
	return s.issueTokens(u)
}

func (s *Service) ValidateAccessToken(tokenString string) (*Claims, error) {
	return s.tokenGenerator.ValidateAccessToken(tokenString)
}

func (s *Service) GetUser(ctx context.Context, userID int64) (*User, error) {
	row, err := s.repo.GetByID(ctx, userID)
	if err != nil {
		s.logger.Error("failed to load staff user", "error", err, "user_id", userID)
		return nil, errors.NewInternalError("failed to load user", err)
	}
	if row == nil {
		return nil, errors.ErrInvalidToken
	}
	if !row.IsActive {
		return nil, errors.ErrUserInactive
	}
	return userFromRow(row), nil
}

func (s *Service) RBACAuthorization() *RBACAuthorization {
	return NewRBACAuthorization(NewPermissionChecker(), s.logger)
}

func (s *Service) issueTokens(u *User) (AuthTokens, error) {
	accessToken, err := s.tokenGenerator.GenerateAccessToken(u)
	if err != nil {
		return AuthTokens{}, errors.NewInternalError("failed to issue token", err)
	}
	refreshToken, err := s.tokenGenerator.GenerateRefreshToken(u)
	if err != nil {
		return AuthTokens{}, errors.NewInternalError("failed to issue token", err)
	}

	s.logger.Info("tokens issued", "user_id", u.ID, "role", u.Role)
	return AuthTokens{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		ExpiresIn:    int64(s.tokenGenerator.AccessTTL().Seconds()),
	}, nil
}

func userFromRow(row *userDatamodel.StaffUser) *User {
	return &User{
		ID:          row.ID,
		TenantID:    row.TenantID,
		Email:       row.Email,
		Name:        row.Name,
		Role:        row.Role,
		Permissions: PermissionsForRole(row.Role),
	}
}
