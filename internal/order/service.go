package order

import (
	"context"
	stderrors "errors"
	"fmt"
	"log/slog"
	"time"

	errors "github.com/frahmantamala/resto-order/internal"
	"github.com/frahmantamala/resto-order/internal/catalog"
	orderDatamodel "github.com/frahmantamala/resto-order/internal/core/datamodel/order"
	"github.com/frahmantamala/resto-order/internal/core/events"
	"github.com/frahmantamala/resto-order/internal/tenant"
)

// ErrDuplicateCode is returned by Create when the (tenant_id, order_code)
// unique index rejects the insert.
var ErrDuplicateCode = stderrors.New("order code already exists")

// RepositoryAPI returns nil, nil when a row does not exist.
type RepositoryAPI interface {
	// Create inserts the order with its items, options and createdLog in one
	// transaction. IDs are written back into row.
	Create(ctx context.Context, row *orderDatamodel.Order, createdLog *orderDatamodel.OrderLog) error
	CodeExists(ctx context.Context, tenantID int64, code string) (bool, error)
	GetByCode(ctx context.Context, tenantID int64, code string) (*orderDatamodel.Order, error)
	GetByID(ctx context.Context, tenantID, orderID int64) (*orderDatamodel.Order, error)
	// UpdateStatus moves the order from -> to only if it is still in from,
	// appending log in the same transaction. It reports whether a row changed.
	UpdateStatus(ctx context.Context, tenantID, orderID int64, from, to Status, log *orderDatamodel.OrderLog) (bool, error)
	MarkInvoicePrinted(ctx context.Context, tenantID, orderID int64, at time.Time) error
	ListLogs(ctx context.Context, orderID int64) ([]*orderDatamodel.OrderLog, error)
}

type EventPublisher interface {
	Publish(ctx context.Context, event events.Event) error
}

type ServiceAPI interface {
	PlaceOrder(ctx context.Context, t *tenant.Tenant, table *tenant.Table, dto *PlaceOrderDTO) (*Order, error)
	GetByCode(ctx context.Context, t *tenant.Tenant, code string) (*Order, error)
	GetSummary(ctx context.Context, t *tenant.Tenant, code string) (*Summary, error)
	GetByID(ctx context.Context, t *tenant.Tenant, orderID int64) (*Order, error)
	Logs(ctx context.Context, t *tenant.Tenant, orderID int64) ([]*Log, error)
	Transition(ctx context.Context, t *tenant.Tenant, orderID int64, target Status, actorID *int64, note string) (*Order, error)
	MarkInvoicePrinted(ctx context.Context, t *tenant.Tenant, orderID int64) (*Order, error)
}

type Service struct {
	repo      RepositoryAPI
	builder   *Builder
	publisher EventPublisher
	cache     SummaryCache
	codes     *CodeGenerator
	logger    *slog.Logger
}

type Option func(*Service)

func WithSummaryCache(c SummaryCache) Option {
	return func(s *Service) {
		if c != nil {
			s.cache = c
		}
	}
}

func WithCodeGenerator(g *CodeGenerator) Option {
	return func(s *Service) {
		if g != nil {
			s.codes = g
		}
	}
}

func NewService(repo RepositoryAPI, catalogService catalog.ServiceAPI, publisher EventPublisher, logger *slog.Logger, opts ...Option) *Service {
	s := &Service{
		repo:      repo,
		builder:   NewBuilder(catalogService),
		publisher: publisher,
		cache:     NoopSummaryCache(),
		codes:     NewCodeGenerator(),
		logger:    logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) PlaceOrder(ctx context.Context, t *tenant.Tenant, table *tenant.Table, dto *PlaceOrderDTO) (*Order, error) {
	ord, err := s.builder.Build(ctx, t, table, dto)
	if err != nil {
		s.logger.Warn("order rejected", "error", err, "tenant_id", t.ID)
		return nil, err
	}

	for attempt := 1; attempt <= MaxCodeAttempts; attempt++ {
		code := s.codes.Next()

		taken, err := s.repo.CodeExists(ctx, t.ID, code)
		if err != nil {
			s.logger.Error("failed to check order code", "error", err, "tenant_id", t.ID)
			return nil, errors.NewInternalError("failed to place order", err)
		}
		if taken {
			s.logger.Debug("order code collision", "tenant_id", t.ID, "attempt", attempt)
			continue
		}

		ord.Code = code
		row := ord.ToDataModel()
		createdLog := NewLogRow(0, nil, StatusPending, "order created", nil)
		err = s.repo.Create(ctx, row, createdLog)
		if stderrors.Is(err, ErrDuplicateCode) {
			s.logger.Debug("order code taken on insert", "tenant_id", t.ID, "attempt", attempt)
			continue
		}
		if err != nil {
			s.logger.Error("failed to create order", "error", err, "tenant_id", t.ID)
			return nil, errors.NewInternalError("failed to place order", err)
		}

		created := FromDataModel(row)
		s.logger.Info("order placed",
			"order_id", created.ID,
			"order_code", created.Code,
			"tenant_id", t.ID,
			"table_id", created.TableID,
			"total_amount", created.TotalAmount.StringFixed(2))

		s.publish(ctx, events.NewOrderCreatedEvent(t.ID, created.ID, created.Code, created.TableID,
			created.TotalAmount.StringFixed(2), string(created.PaymentMethod)))
		return created, nil
	}

	s.logger.Error("order code space exhausted", "tenant_id", t.ID, "attempts", MaxCodeAttempts)
	return nil, errors.ErrOrderCodeExhausted
}

func (s *Service) GetByCode(ctx context.Context, t *tenant.Tenant, code string) (*Order, error) {
	row, err := s.repo.GetByCode(ctx, t.ID, code)
	if err != nil {
		s.logger.Error("failed to load order", "error", err, "tenant_id", t.ID, "order_code", code)
		return nil, errors.NewInternalError("failed to load order", err)
	}
	if row == nil {
		return nil, errors.ErrOrderNotFound
	}
	return FromDataModel(row), nil
}

func (s *Service) GetSummary(ctx context.Context, t *tenant.Tenant, code string) (*Summary, error) {
	cached, generation, ok := s.cache.Get(ctx, t.ID, code)
	if ok {
		return cached, nil
	}

	ord, err := s.GetByCode(ctx, t, code)
	if err != nil {
		return nil, err
	}

	summary := NewSummary(ord)
	s.cache.Set(ctx, t.ID, code, generation, summary)
	return summary, nil
}

func (s *Service) GetByID(ctx context.Context, t *tenant.Tenant, orderID int64) (*Order, error) {
	row, err := s.repo.GetByID(ctx, t.ID, orderID)
	if err != nil {
		s.logger.Error("failed to load order", "error", err, "tenant_id", t.ID, "order_id", orderID)
		return nil, errors.NewInternalError("failed to load order", err)
	}
	if row == nil {
		return nil, errors.ErrOrderNotFound
	}
	return FromDataModel(row), nil
}

func (s *Service) Logs(ctx context.Context, t *tenant.Tenant, orderID int64) ([]*Log, error) {
	if _, err := s.GetByID(ctx, t, orderID); err != nil {
		return nil, err
	}

	rows, err := s.repo.ListLogs(ctx, orderID)
	if err != nil {
		s.logger.Error("failed to load order logs", "error", err, "order_id", orderID)
		return nil, errors.NewInternalError("failed to load order logs", err)
	}

	logs := make([]*Log, 0, len(rows))
	for _, row := range rows {
		logs = append(logs, LogFromDataModel(row))
	}
	return logs, nil
}

// Transition applies one step of the order lifecycle. Rejected moves leave
// both the order and its log untouched.
func (s *Service) Transition(ctx context.Context, t *tenant.Tenant, orderID int64, target Status, actorID *int64, note string) (*Order, error) {
	ord, err := s.GetByID(ctx, t, orderID)
	if err != nil {
		return nil, err
	}

	from := ord.Status
	if !from.CanTransitionTo(target) {
		s.logger.Warn("invalid order status transition",
			"order_id", orderID,
			"tenant_id", t.ID,
			"from", from,
			"to", target)
		return nil, errors.NewValidationFieldError("status",
			fmt.Sprintf("cannot transition order from %s to %s", from, target),
			errors.ErrCodeInvalidStatusTransition)
	}

	if note == "" {
		note = fmt.Sprintf("status changed from %s to %s", from, target)
	}

	changed, err := s.repo.UpdateStatus(ctx, t.ID, orderID, from, target, NewLogRow(orderID, &from, target, note, actorID))
	if err != nil {
		s.logger.Error("failed to update order status", "error", err, "order_id", orderID)
		return nil, errors.NewInternalError("failed to update order status", err)
	}
	if !changed {
		s.logger.Warn("order status changed concurrently", "order_id", orderID, "expected", from)
		return nil, errors.ErrOrderStatusChanged
	}

	ord.Status = target
	s.cache.Invalidate(ctx, t.ID, ord.Code)

	s.logger.Info("order status changed",
		"order_id", orderID,
		"order_code", ord.Code,
		"from", from,
		"to", target)

	s.publish(ctx, events.NewOrderStatusChangedEvent(t.ID, orderID, ord.Code, string(from), string(target), actorID))
	return ord, nil
}

// MarkInvoicePrinted stamps the first print time. Reprints keep it.
func (s *Service) MarkInvoicePrinted(ctx context.Context, t *tenant.Tenant, orderID int64) (*Order, error) {
	ord, err := s.GetByID(ctx, t, orderID)
	if err != nil {
		return nil, err
	}
	if ord.InvoicePrintedAt != nil {
		return ord, nil
	}

	now := time.Now()
	if err := s.repo.MarkInvoicePrinted(ctx, t.ID, orderID, now); err != nil {
		s.logger.Error("failed to mark invoice printed", "error", err, "order_id", orderID)
		return nil, errors.NewInternalError("failed to mark invoice printed", err)
	}

	ord.InvoicePrintedAt = &now
	s.cache.Invalidate(ctx, t.ID, ord.Code)
	return ord, nil
}

func (s *Service) publish(ctx context.Context, event events.Event) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.Publish(ctx, event); err != nil {
		s.logger.Error("failed to publish event", "error", err, "event_type", event.EventType())
	}
}
