package tenant

import (
	"context"
	"log/slog"
	"strings"

	errors "github.com/frahmantamala/resto-order/internal"
	tenantDatamodel "github.com/frahmantamala/resto-order/internal/core/datamodel/tenant"
)

// RepositoryAPI returns nil, nil when a row does not exist.
type RepositoryAPI interface {
	GetBySlug(ctx context.Context, slug string) (*tenantDatamodel.Tenant, error)
	GetByID(ctx context.Context, id int64) (*tenantDatamodel.Tenant, error)
	GetTableByQRToken(ctx context.Context, tenantID int64, qrToken string) (*tenantDatamodel.Table, error)
	GetTableByID(ctx context.Context, tenantID, tableID int64) (*tenantDatamodel.Table, error)
}

type ServiceAPI interface {
	ResolveBySlug(ctx context.Context, slug string) (*Tenant, error)
	ResolveByID(ctx context.Context, id int64) (*Tenant, error)
	ResolveForStaff(ctx context.Context, tenantID *int64) (*Tenant, error)
	ResolveTable(ctx context.Context, t *Tenant, qrToken string) (*Table, error)
	GetTable(ctx context.Context, t *Tenant, tableID int64) (*Table, error)
}

type Service struct {
	repo   RepositoryAPI
	logger *slog.Logger
}

func NewService(repo RepositoryAPI, logger *slog.Logger) *Service {
	return &Service{
		repo:   repo,
		logger: logger,
	}
}

func (s *Service) ResolveBySlug(ctx context.Context, slug string) (*Tenant, error) {
	slug = strings.ToLower(strings.TrimSpace(slug))
	if slug == "" {
		return nil, errors.ErrTenantNotFound
	}

	row, err := s.repo.GetBySlug(ctx, slug)
	if err != nil {
		s.logger.Error("failed to load tenant", "error", err, "slug", slug)
		return nil, errors.NewInternalError("failed to resolve tenant", err)
	}
	if row == nil || !row.IsActive {
		s.logger.Warn("tenant not found or inactive", "slug", slug)
		return nil, errors.ErrTenantNotFound
	}

	return FromDataModel(row), nil
}

func (s *Service) ResolveByID(ctx context.Context, id int64) (*Tenant, error) {
	row, err := s.repo.GetByID(ctx, id)
	if err != nil {
		s.logger.Error("failed to load tenant", "error", err, "tenant_id", id)
		return nil, errors.NewInternalError("failed to resolve tenant", err)
	}
	if row == nil || !row.IsActive {
		return nil, errors.ErrTenantNotFound
	}
	return FromDataModel(row), nil
}

// ResolveForStaff resolves the tenant a staff account is bound to. Accounts
// without a tenant cannot act on tenant data.
func (s *Service) ResolveForStaff(ctx context.Context, tenantID *int64) (*Tenant, error) {
	if tenantID == nil {
		return nil, errors.NewForbiddenError("staff account is not bound to a tenant", errors.ErrCodeInsufficientAccess)
	}
	return s.ResolveByID(ctx, *tenantID)
}

// ResolveTable maps a QR token to an active table of the given tenant.
func (s *Service) ResolveTable(ctx context.Context, t *Tenant, qrToken string) (*Table, error) {
	qrToken = strings.TrimSpace(qrToken)
	if qrToken == "" {
		return nil, errors.NewValidationFieldError("qr_token", "qr_token is required", errors.ErrCodeValidationFailed)
	}

	row, err := s.repo.GetTableByQRToken(ctx, t.ID, qrToken)
	if err != nil {
		s.logger.Error("failed to load table", "error", err, "tenant_id", t.ID)
		return nil, errors.NewInternalError("failed to resolve table", err)
	}
	if row == nil || !row.IsActive {
		s.logger.Warn("qr token does not map to an active table", "tenant_id", t.ID)
		return nil, errors.ErrTableNotFound
	}

	return TableFromDataModel(row), nil
}

func (s *Service) GetTable(ctx context.Context, t *Tenant, tableID int64) (*Table, error) {
	row, err := s.repo.GetTableByID(ctx, t.ID, tableID)
	if err != nil {
		return nil, errors.NewInternalError("failed to load table", err)
	}
	if row == nil {
		return nil, errors.ErrTableNotFound
	}
	return TableFromDataModel(row), nil
}
