package postgres

import (
	"context"
	stderrors "errors"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	orderDatamodel "github.com/frahmantamala/resto-order/internal/core/datamodel/order"
	paymentDatamodel "github.com/frahmantamala/resto-order/internal/core/datamodel/payment"
	"github.com/frahmantamala/resto-order/internal/order"
	paymentpkg "github.com/frahmantamala/resto-order/internal/payment"
)

type PaymentRepository struct {
	db *gorm.DB
}

func NewPaymentRepository(db *gorm.DB) paymentpkg.RepositoryAPI {
	return &PaymentRepository{
		db: db,
	}
}

func (r *PaymentRepository) Create(ctx context.Context, row *paymentDatamodel.Payment) error {
	return r.db.WithContext(ctx).Create(row).Error
}

func (r *PaymentRepository) ListByOrder(ctx context.Context, orderID int64) ([]*paymentDatamodel.Payment, error) {
	var rows []*paymentDatamodel.Payment
	err := r.db.WithContext(ctx).
		Where("order_id = ?", orderID).
		Order("created_at ASC, id ASC").
		Find(&rows).Error
	return rows, err
}

// FindOrdersByCode matches across tenants. At most two rows are read, enough
// to tell a unique match from an ambiguous one.
func (r *PaymentRepository) FindOrdersByCode(ctx context.Context, code string) ([]*orderDatamodel.Order, error) {
	var rows []*orderDatamodel.Order
	err := r.db.WithContext(ctx).
		Where("order_code = ?", code).
		Order("id ASC").
		Limit(2).
		Find(&rows).Error
	return rows, err
}

func (r *PaymentRepository) Verify(ctx context.Context, orderID, paymentID int64, verifiedBy *int64, at time.Time, note string) (*paymentDatamodel.Payment, error) {
	var p paymentDatamodel.Payment
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		ord, err := lockOrder(tx, orderID)
		if err != nil {
			return err
		}

		err = tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("id = ? AND order_id = ?", paymentID, orderID).
			First(&p).Error
		if stderrors.Is(err, gorm.ErrRecordNotFound) {
			return paymentpkg.ErrNotOnOrder
		}
		if err != nil {
			return err
		}
		if p.VerifiedAt != nil {
			return paymentpkg.ErrAlreadyVerified
		}

		return markVerified(tx, ord, &p, verifiedBy, at, note)
	})
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *PaymentRepository) ApplyGatewayPaid(ctx context.Context, orderID int64, gp paymentpkg.GatewayPayment, at time.Time, note string) (*paymentDatamodel.Payment, bool, error) {
	var (
		p       paymentDatamodel.Payment
		applied bool
	)
	method := string(order.PaymentMethodQRIS)

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		ord, err := lockOrder(tx, orderID)
		if err != nil {
			return err
		}

		var verified []paymentDatamodel.Payment
		if err := tx.Where("order_id = ? AND method = ? AND verified_at IS NOT NULL", orderID, method).
			Limit(1).
			Find(&verified).Error; err != nil {
			return err
		}
		if len(verified) > 0 {
			p = verified[0]
			return nil
		}

		var pending []paymentDatamodel.Payment
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("order_id = ? AND method = ? AND verified_at IS NULL", orderID, method).
			Order("id DESC").
			Limit(1).
			Find(&pending).Error; err != nil {
			return err
		}

		if len(pending) > 0 {
			p = pending[0]
			// the signed callback amount wins over what the customer typed
			p.Amount = gp.Amount
			if p.BankName == nil {
				p.BankName = gp.BankName
			}
		} else {
			p = paymentDatamodel.Payment{
				OrderID:  orderID,
				Amount:   gp.Amount,
				Method:   method,
				BankName: gp.BankName,
			}
			if err := tx.Create(&p).Error; err != nil {
				return mapUniqueViolation(err)
			}
		}

		applied = true
		return markVerified(tx, ord, &p, nil, at, note)
	})
	if err != nil {
		return nil, false, err
	}
	return &p, applied, nil
}

func (r *PaymentRepository) SetPaymentStatus(ctx context.Context, orderID int64, status order.PaymentStatus, note string) (bool, error) {
	changed := false
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		ord, err := lockOrder(tx, orderID)
		if err != nil {
			return err
		}
		current := order.PaymentStatus(ord.PaymentStatus)
		if current == status || current == order.PaymentStatusPaid {
			return nil
		}

		if err := updatePaymentStatus(tx, orderID, status); err != nil {
			return err
		}
		changed = true
		return tx.Create(paymentLog(ord, note, nil)).Error
	})
	if err != nil {
		return false, err
	}
	return changed, nil
}

func (r *PaymentRepository) RecordCallback(ctx context.Context, row *paymentDatamodel.GatewayCallback) error {
	return r.db.WithContext(ctx).Create(row).Error
}

func lockOrder(tx *gorm.DB, orderID int64) (*orderDatamodel.Order, error) {
	var ord orderDatamodel.Order
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", orderID).
		First(&ord).Error
	if stderrors.Is(err, gorm.ErrRecordNotFound) {
		return nil, paymentpkg.ErrOrderGone
	}
	if err != nil {
		return nil, err
	}
	return &ord, nil
}

// markVerified stamps the payment, sets the order paid and appends a log
// that leaves order_status as it is.
func markVerified(tx *gorm.DB, ord *orderDatamodel.Order, p *paymentDatamodel.Payment, verifiedBy *int64, at time.Time, note string) error {
	res := tx.Model(&paymentDatamodel.Payment{}).
		Where("id = ? AND verified_at IS NULL", p.ID).
		Updates(map[string]interface{}{
			"verified_at": at,
			"verified_by": verifiedBy,
			"amount":      p.Amount,
			"bank_name":   p.BankName,
			"updated_at":  time.Now(),
		})
	if res.Error != nil {
		return mapUniqueViolation(res.Error)
	}
	if res.RowsAffected == 0 {
		return paymentpkg.ErrAlreadyVerified
	}
	p.VerifiedAt = &at
	p.VerifiedBy = verifiedBy

	if err := updatePaymentStatus(tx, ord.ID, order.PaymentStatusPaid); err != nil {
		return err
	}
	return tx.Create(paymentLog(ord, note, verifiedBy)).Error
}

func updatePaymentStatus(tx *gorm.DB, orderID int64, status order.PaymentStatus) error {
	return tx.Model(&orderDatamodel.Order{}).
		Where("id = ?", orderID).
		Updates(map[string]interface{}{
			"payment_status": string(status),
			"updated_at":     time.Now(),
		}).Error
}

func paymentLog(ord *orderDatamodel.Order, note string, userID *int64) *orderDatamodel.OrderLog {
	current := order.Status(ord.OrderStatus)
	return order.NewLogRow(ord.ID, &current, current, note, userID)
}

func mapUniqueViolation(err error) error {
	if stderrors.Is(err, gorm.ErrDuplicatedKey) {
		return paymentpkg.ErrAlreadyVerified
	}
	var pgErr *pgconn.PgError
	if stderrors.As(err, &pgErr) && pgErr.Code == "23505" {
		return paymentpkg.ErrAlreadyVerified
	}
	return err
}
