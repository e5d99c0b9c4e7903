package payment

import (
	"context"
	stderrors "errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	errors "github.com/frahmantamala/resto-order/internal"
	orderDatamodel "github.com/frahmantamala/resto-order/internal/core/datamodel/order"
	paymentDatamodel "github.com/frahmantamala/resto-order/internal/core/datamodel/payment"
	"github.com/frahmantamala/resto-order/internal/core/events"
	"github.com/frahmantamala/resto-order/internal/order"
	"github.com/frahmantamala/resto-order/internal/storage"
	"github.com/frahmantamala/resto-order/internal/tenant"
)

var (
	// ErrNotOnOrder means the payment row does not exist for that order.
	ErrNotOnOrder = stderrors.New("payment does not belong to order")
	// ErrAlreadyVerified is returned when the row, or another verified row
	// of the same method, is already verified.
	ErrAlreadyVerified = stderrors.New("payment already verified")
	// ErrOrderGone means the order row vanished inside the transaction.
	ErrOrderGone = stderrors.New("order not found")
)

const (
	NoteStaffVerified  = "payment verified by staff"
	NoteGatewayPaid    = "verified via gateway"
	NoteGatewayExpired = "payment expired via gateway"
	NoteGatewayFailed  = "payment failed via gateway"

	SourceStaff   = "staff"
	SourceGateway = "gateway"
)

// GatewayStatus is the status a gateway callback reports.
type GatewayStatus string

const (
	GatewayStatusPaid    GatewayStatus = "PAID"
	GatewayStatusExpired GatewayStatus = "EXPIRED"
	GatewayStatusFailed  GatewayStatus = "FAILED"
)

func ParseGatewayStatus(s string) GatewayStatus {
	return GatewayStatus(strings.ToUpper(strings.TrimSpace(s)))
}

// GatewayPayment carries the callback values used when a qris payment row
// has to be created.
type GatewayPayment struct {
	Amount   decimal.Decimal
	BankName *string
}

// RepositoryAPI returns nil, nil when a row does not exist. The Verify,
// ApplyGatewayPaid and SetPaymentStatus methods lock the order row and
// commit the payment, order and log writes together.
type RepositoryAPI interface {
	Create(ctx context.Context, row *paymentDatamodel.Payment) error
	ListByOrder(ctx context.Context, orderID int64) ([]*paymentDatamodel.Payment, error)
	FindOrdersByCode(ctx context.Context, code string) ([]*orderDatamodel.Order, error)
	Verify(ctx context.Context, orderID, paymentID int64, verifiedBy *int64, at time.Time, note string) (*paymentDatamodel.Payment, error)
	// ApplyGatewayPaid reports false when a verified qris payment already
	// existed and nothing was written.
	ApplyGatewayPaid(ctx context.Context, orderID int64, p GatewayPayment, at time.Time, note string) (*paymentDatamodel.Payment, bool, error)
	// SetPaymentStatus reports false when the order is already paid or
	// already in status.
	SetPaymentStatus(ctx context.Context, orderID int64, status order.PaymentStatus, note string) (bool, error)
	RecordCallback(ctx context.Context, row *paymentDatamodel.GatewayCallback) error
}

type ServiceAPI interface {
	Submit(ctx context.Context, t *tenant.Tenant, o *order.Order, dto *SubmitPaymentDTO, proof *ProofFile) (*Payment, error)
	MarkAsPaid(ctx context.Context, t *tenant.Tenant, o *order.Order, paymentID, verifiedBy int64) (*Payment, error)
	ListByOrder(ctx context.Context, o *order.Order) ([]*Payment, error)
	ApplyGatewayCallback(ctx context.Context, cb *Callback) (*CallbackResult, error)
	RecordCallback(ctx context.Context, row *paymentDatamodel.GatewayCallback)
}

// Callback is a verified gateway notification.
type Callback struct {
	MerchantRef string
	Status      GatewayStatus
	Amount      string
	BankName    *string
}

type Outcome string

const (
	OutcomePaid        Outcome = "paid"
	OutcomeAlreadyPaid Outcome = "already_paid"
	OutcomeExpired     Outcome = "expired"
	OutcomeFailed      Outcome = "failed"
	OutcomeUnchanged   Outcome = "unchanged"
	OutcomeIgnored     Outcome = "ignored"

	OutcomeInvalidSignature Outcome = "invalid_signature"
	OutcomeOrderNotFound    Outcome = "order_not_found"
	OutcomeError            Outcome = "error"
)

type CallbackResult struct {
	OrderID   int64
	OrderCode string
	TenantID  int64
	Outcome   Outcome
	Payment   *Payment
}

type Service struct {
	repo          RepositoryAPI
	store         storage.Store
	publisher     order.EventPublisher
	cache         order.SummaryCache
	proofMaxBytes int64
	now           func() time.Time
	logger        *slog.Logger
}

type Option func(*Service)

func WithSummaryCache(c order.SummaryCache) Option {
	return func(s *Service) {
		if c != nil {
			s.cache = c
		}
	}
}

func WithProofMaxBytes(n int64) Option {
	return func(s *Service) {
		if n > 0 {
			s.proofMaxBytes = n
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

func NewService(repo RepositoryAPI, store storage.Store, publisher order.EventPublisher, logger *slog.Logger, opts ...Option) *Service {
	s := &Service{
		repo:          repo,
		store:         store,
		publisher:     publisher,
		cache:         order.NoopSummaryCache(),
		proofMaxBytes: DefaultProofMaxBytes,
		now:           time.Now,
		logger:        logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) ProofMaxBytes() int64 {
	return s.proofMaxBytes
}

// Submit records a payment attempt, storing the proof file when given.
func (s *Service) Submit(ctx context.Context, t *tenant.Tenant, o *order.Order, dto *SubmitPaymentDTO, proof *ProofFile) (*Payment, error) {
	if err := s.ownedBy(t, o); err != nil {
		return nil, err
	}
	if err := dto.Validate(); err != nil {
		return nil, err
	}

	p := &Payment{
		OrderID:       o.ID,
		Amount:        o.TotalAmount,
		Method:        dto.MethodFor(o),
		BankName:      trimmed(dto.BankName),
		AccountNumber: trimmed(dto.AccountNumber),
		Note:          trimmed(dto.Note),
	}
	if dto.Amount != nil {
		p.Amount = dto.Amount.Round(2)
	}
	if !p.Amount.IsPositive() {
		return nil, errors.NewValidationFieldError("amount", "amount must be greater than zero", errors.ErrCodeInvalidAmount)
	}

	var storedKey string
	if proof != nil {
		if err := ValidateProof(proof, s.proofMaxBytes); err != nil {
			return nil, err
		}
		key, url, err := s.store.Save(ctx, proof.Extension(), &boundedReader{r: proof.Content, max: s.proofMaxBytes})
		if stderrors.Is(err, errProofTooLarge) {
			return nil, errors.NewValidationFieldError("proof",
				fmt.Sprintf("proof must not exceed %d bytes", s.proofMaxBytes), errors.ErrCodeInvalidProofFile)
		}
		if err != nil {
			s.logger.Error("failed to store payment proof", "error", err, "order_id", o.ID)
			return nil, errors.NewInternalError("failed to store payment proof", err)
		}
		storedKey = key
		p.ProofURL = &url
	}

	row := p.ToDataModel()
	if err := s.repo.Create(ctx, row); err != nil {
		s.logger.Error("failed to create payment", "error", err, "order_id", o.ID)
		if storedKey != "" {
			if rmErr := s.store.Remove(ctx, storedKey); rmErr != nil {
				s.logger.Warn("failed to remove orphaned proof", "error", rmErr, "key", storedKey)
			}
		}
		return nil, errors.NewInternalError("failed to record payment", err)
	}

	created := FromDataModel(row)
	s.logger.Info("payment submitted",
		"payment_id", created.ID,
		"order_id", o.ID,
		"order_code", o.Code,
		"method", created.Method,
		"amount", created.Amount.StringFixed(2),
		"has_proof", created.ProofURL != nil)

	s.cache.Invalidate(ctx, t.ID, o.Code)
	s.publish(ctx, events.NewPaymentSubmittedEvent(t.ID, o.ID, o.Code, created.ID, string(created.Method), created.Amount.StringFixed(2)))
	return created, nil
}

// MarkAsPaid verifies a payment on behalf of a staff member. A payment is
// verified at most once.
func (s *Service) MarkAsPaid(ctx context.Context, t *tenant.Tenant, o *order.Order, paymentID, verifiedBy int64) (*Payment, error) {
	if err := s.ownedBy(t, o); err != nil {
		return nil, err
	}

	actor := verifiedBy
	row, err := s.repo.Verify(ctx, o.ID, paymentID, &actor, s.now(), NoteStaffVerified)
	switch {
	case stderrors.Is(err, ErrNotOnOrder):
		return nil, errors.ErrPaymentNotFound
	case stderrors.Is(err, ErrOrderGone):
		return nil, errors.ErrOrderNotFound
	case stderrors.Is(err, ErrAlreadyVerified):
		s.logger.Warn("payment already verified", "payment_id", paymentID, "order_id", o.ID, "user_id", verifiedBy)
		return nil, errors.ErrPaymentAlreadyVerified
	case err != nil:
		s.logger.Error("failed to verify payment", "error", err, "payment_id", paymentID, "order_id", o.ID)
		return nil, errors.NewInternalError("failed to verify payment", err)
	}

	verified := FromDataModel(row)
	s.logger.Info("payment verified by staff",
		"payment_id", verified.ID,
		"order_id", o.ID,
		"order_code", o.Code,
		"user_id", verifiedBy)

	o.PaymentStatus = order.PaymentStatusPaid
	s.cache.Invalidate(ctx, t.ID, o.Code)
	s.publish(ctx, events.NewPaymentStatusChangedEvent(t.ID, o.ID, o.Code, string(order.PaymentStatusPaid), SourceStaff))
	return verified, nil
}

func (s *Service) ListByOrder(ctx context.Context, o *order.Order) ([]*Payment, error) {
	rows, err := s.repo.ListByOrder(ctx, o.ID)
	if err != nil {
		s.logger.Error("failed to list payments", "error", err, "order_id", o.ID)
		return nil, errors.NewInternalError("failed to list payments", err)
	}
	payments := make([]*Payment, 0, len(rows))
	for _, row := range rows {
		payments = append(payments, FromDataModel(row))
	}
	return payments, nil
}

// ApplyGatewayCallback applies an authenticated callback. The order is
// selected by order code only.
func (s *Service) ApplyGatewayCallback(ctx context.Context, cb *Callback) (*CallbackResult, error) {
	orders, err := s.repo.FindOrdersByCode(ctx, cb.MerchantRef)
	if err != nil {
		s.logger.Error("failed to look up callback order", "error", err, "merchant_ref", cb.MerchantRef)
		return nil, errors.NewInternalError("failed to look up order", err)
	}
	switch len(orders) {
	case 0:
		return nil, errors.ErrOrderNotFound
	case 1:
	default:
		s.logger.Warn("callback reference matches several tenants", "merchant_ref", cb.MerchantRef, "matches", len(orders))
		return nil, errors.NewNotFoundError("ambiguous reference", errors.ErrCodeOrderNotFound)
	}

	ord := orders[0]
	result := &CallbackResult{OrderID: ord.ID, OrderCode: ord.OrderCode, TenantID: ord.TenantID}

	switch cb.Status {
	case GatewayStatusPaid:
		amount := s.callbackAmount(cb, ord)
		row, applied, err := s.repo.ApplyGatewayPaid(ctx, ord.ID, GatewayPayment{Amount: amount, BankName: trimmed(cb.BankName)}, s.now(), NoteGatewayPaid)
		if stderrors.Is(err, ErrAlreadyVerified) {
			// a concurrent callback committed first
			result.Outcome = OutcomeAlreadyPaid
			return result, nil
		}
		if err != nil {
			return nil, s.callbackFailure(err, cb)
		}
		if row != nil {
			result.Payment = FromDataModel(row)
		}
		if !applied {
			result.Outcome = OutcomeAlreadyPaid
			return result, nil
		}
		result.Outcome = OutcomePaid
		s.afterGatewayChange(ctx, ord, order.PaymentStatusPaid)

	case GatewayStatusExpired, GatewayStatusFailed:
		status, note, outcome := order.PaymentStatusExpired, NoteGatewayExpired, OutcomeExpired
		if cb.Status == GatewayStatusFailed {
			status, note, outcome = order.PaymentStatusFailed, NoteGatewayFailed, OutcomeFailed
		}
		changed, err := s.repo.SetPaymentStatus(ctx, ord.ID, status, note)
		if err != nil {
			return nil, s.callbackFailure(err, cb)
		}
		if !changed {
			result.Outcome = OutcomeUnchanged
			return result, nil
		}
		result.Outcome = outcome
		s.afterGatewayChange(ctx, ord, status)

	default:
		s.logger.Info("ignoring callback status", "merchant_ref", cb.MerchantRef, "status", cb.Status)
		result.Outcome = OutcomeIgnored
	}

	return result, nil
}

// RecordCallback appends to the callback journal. Failures are logged only.
func (s *Service) RecordCallback(ctx context.Context, row *paymentDatamodel.GatewayCallback) {
	if err := s.repo.RecordCallback(ctx, row); err != nil {
		s.logger.Error("failed to record gateway callback", "error", err, "merchant_ref", row.MerchantRef)
	}
}

func (s *Service) callbackAmount(cb *Callback, ord *orderDatamodel.Order) decimal.Decimal {
	amount, err := decimal.NewFromString(cb.Amount)
	if err != nil {
		s.logger.Warn("callback amount is not numeric, using order total",
			"merchant_ref", cb.MerchantRef, "amount", cb.Amount)
		return ord.TotalAmount
	}
	if !amount.IsPositive() {
		s.logger.Warn("callback amount is not positive, using order total",
			"merchant_ref", cb.MerchantRef, "amount", cb.Amount)
		return ord.TotalAmount
	}
	if !amount.Equal(ord.TotalAmount) {
		s.logger.Warn("callback amount differs from order total",
			"merchant_ref", cb.MerchantRef,
			"amount", amount.StringFixed(2),
			"total_amount", ord.TotalAmount.StringFixed(2))
	}
	return amount.Round(2)
}

func (s *Service) callbackFailure(err error, cb *Callback) error {
	s.logger.Error("failed to apply gateway callback",
		"error", err,
		"merchant_ref", cb.MerchantRef,
		"status", cb.Status)
	return errors.NewInternalError("failed to apply callback", err)
}

func (s *Service) afterGatewayChange(ctx context.Context, ord *orderDatamodel.Order, status order.PaymentStatus) {
	s.logger.Info("payment status changed by gateway",
		"order_id", ord.ID,
		"order_code", ord.OrderCode,
		"tenant_id", ord.TenantID,
		"payment_status", status)
	s.cache.Invalidate(ctx, ord.TenantID, ord.OrderCode)
	s.publish(ctx, events.NewPaymentStatusChangedEvent(ord.TenantID, ord.ID, ord.OrderCode, string(status), SourceGateway))
}

func (s *Service) ownedBy(t *tenant.Tenant, o *order.Order) error {
	if t == nil || o == nil || o.TenantID != t.ID {
		return errors.ErrOrderNotFound
	}
	return nil
}

func (s *Service) publish(ctx context.Context, event events.Event) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.Publish(ctx, event); err != nil {
		s.logger.Error("failed to publish event", "error", err, "event_type", event.EventType())
	}
}

func trimmed(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	if v == "" {
		return nil
	}
	return &v
}
