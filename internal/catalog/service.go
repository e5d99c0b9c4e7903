package catalog

import (
	"context"
	"log/slog"

	catalogDatamodel "github.com/frahmantamala/resto-order/internal/core/datamodel/catalog"
)

type RepositoryAPI interface {
	// FindAvailableMenus returns the menus among ids that belong to the
	// tenant and are available. Missing ids are simply absent.
	FindAvailableMenus(ctx context.Context, tenantID int64, ids []int64) ([]*catalogDatamodel.Menu, error)
	// FindSelectableOptions returns the active option items among ids whose
	// group is active, owned by the tenant and attached to the menu.
	FindSelectableOptions(ctx context.Context, tenantID, menuID int64, optionItemIDs []int64) ([]*catalogDatamodel.SelectableOption, error)
}

type ServiceAPI interface {
	AvailableMenus(ctx context.Context, tenantID int64, ids []int64) (map[int64]*Menu, error)
	SelectableOptions(ctx context.Context, tenantID, menuID int64, optionItemIDs []int64) (map[int64]*Option, error)
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

func (s *Service) AvailableMenus(ctx context.Context, tenantID int64, ids []int64) (map[int64]*Menu, error) {
	menus := make(map[int64]*Menu, len(ids))
	if len(ids) == 0 {
		return menus, nil
	}

	rows, err := s.repo.FindAvailableMenus(ctx, tenantID, ids)
	if err != nil {
		s.logger.Error("failed to load menus", "error", err, "tenant_id", tenantID)
		return nil, err
	}
	for _, row := range rows {
		menus[row.ID] = MenuFromDataModel(row)
	}
	return menus, nil
}

func (s *Service) SelectableOptions(ctx context.Context, tenantID, menuID int64, optionItemIDs []int64) (map[int64]*Option, error) {
	options := make(map[int64]*Option, len(optionItemIDs))
	if len(optionItemIDs) == 0 {
		return options, nil
	}

	rows, err := s.repo.FindSelectableOptions(ctx, tenantID, menuID, optionItemIDs)
	if err != nil {
		s.logger.Error("failed to load option items", "error", err, "tenant_id", tenantID, "menu_id", menuID)
		return nil, err
	}
	for _, row := range rows {
		options[row.OptionItemID] = OptionFromDataModel(row)
	}
	return options, nil
}
