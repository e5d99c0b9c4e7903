package postgres

import (
	"context"
	stderrors "errors"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"

	orderDatamodel "github.com/frahmantamala/resto-order/internal/core/datamodel/order"
	"github.com/frahmantamala/resto-order/internal/order"
)

const uniqueViolation = "23505"

type OrderRepository struct {
	db *gorm.DB
}

func NewOrderRepository(db *gorm.DB) order.RepositoryAPI {
	return &OrderRepository{db: db}
}

func (r *OrderRepository) Create(ctx context.Context, row *orderDatamodel.Order, createdLog *orderDatamodel.OrderLog) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		items := row.Items
		row.Items = nil
		defer func() { row.Items = items }()

		if err := tx.Omit("Items").Create(row).Error; err != nil {
			return err
		}

		for i := range items {
			items[i].OrderID = row.ID
			options := items[i].Options
			items[i].Options = nil
			if err := tx.Omit("Options").Create(&items[i]).Error; err != nil {
				items[i].Options = options
				return err
			}
			for j := range options {
				options[j].OrderItemID = items[i].ID
			}
			if len(options) > 0 {
				if err := tx.Create(&options).Error; err != nil {
					items[i].Options = options
					return err
				}
			}
			items[i].Options = options
		}

		createdLog.OrderID = row.ID
		return tx.Create(createdLog).Error
	})
	if isUniqueViolation(err) {
		return order.ErrDuplicateCode
	}
	return err
}

func (r *OrderRepository) CodeExists(ctx context.Context, tenantID int64, code string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&orderDatamodel.Order{}).
		Where("tenant_id = ? AND order_code = ?", tenantID, code).
		Count(&count).Error
	return count > 0, err
}

func (r *OrderRepository) GetByCode(ctx context.Context, tenantID int64, code string) (*orderDatamodel.Order, error) {
	return r.first(ctx, "tenant_id = ? AND order_code = ?", tenantID, code)
}

func (r *OrderRepository) GetByID(ctx context.Context, tenantID, orderID int64) (*orderDatamodel.Order, error) {
	return r.first(ctx, "tenant_id = ? AND id = ?", tenantID, orderID)
}

func (r *OrderRepository) first(ctx context.Context, query string, args ...interface{}) (*orderDatamodel.Order, error) {
	var row orderDatamodel.Order
	err := r.db.WithContext(ctx).
		Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("order_items.id") }).
		Preload("Items.Options", func(db *gorm.DB) *gorm.DB { return db.Order("order_item_options.id") }).
		Where(query, args...).
		First(&row).Error
	if err != nil {
		if stderrors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &row, nil
}

func (r *OrderRepository) UpdateStatus(ctx context.Context, tenantID, orderID int64, from, to order.Status, log *orderDatamodel.OrderLog) (bool, error) {
	changed := false
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&orderDatamodel.Order{}).
			Where("id = ? AND tenant_id = ? AND order_status = ?", orderID, tenantID, string(from)).
			Updates(map[string]interface{}{
				"order_status": string(to),
				"updated_at":   time.Now(),
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return nil
		}
		changed = true
		return tx.Create(log).Error
	})
	if err != nil {
		return false, err
	}
	return changed, nil
}

func (r *OrderRepository) MarkInvoicePrinted(ctx context.Context, tenantID, orderID int64, at time.Time) error {
	return r.db.WithContext(ctx).
		Model(&orderDatamodel.Order{}).
		Where("id = ? AND tenant_id = ? AND invoice_printed_at IS NULL", orderID, tenantID).
		Updates(map[string]interface{}{
			"invoice_printed_at": at,
			"updated_at":         time.Now(),
		}).Error
}

func (r *OrderRepository) ListLogs(ctx context.Context, orderID int64) ([]*orderDatamodel.OrderLog, error) {
	var logs []*orderDatamodel.OrderLog
	err := r.db.WithContext(ctx).
		Where("order_id = ?", orderID).
		Order("created_at ASC, id ASC").
		Find(&logs).Error
	return logs, err
}

func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	if stderrors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var pgErr *pgconn.PgError
	return stderrors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}
