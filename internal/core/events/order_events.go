package events

import (
	"time"

	"github.com/google/uuid"
)

const (
	EventTypeOrderCreated         = "order.created"
	EventTypeOrderStatusChanged   = "order.status_changed"
	EventTypePaymentSubmitted     = "payment.submitted"
	EventTypePaymentStatusChanged = "payment.status_changed"
)

// EventTypes lists every event the service publishes.
var EventTypes = []string{
	EventTypeOrderCreated,
	EventTypeOrderStatusChanged,
	EventTypePaymentSubmitted,
	EventTypePaymentStatusChanged,
}

func newBase(eventType string, data map[string]interface{}) BaseEvent {
	return BaseEvent{
		ID:        uuid.New().String(),
		Type:      eventType,
		Timestamp: time.Now(),
		Data:      data,
	}
}

type OrderCreatedEvent struct {
	BaseEvent
	TenantID      int64  `json:"tenant_id"`
	OrderID       int64  `json:"order_id"`
	OrderCode     string `json:"order_code"`
	TableID       int64  `json:"table_id"`
	TotalAmount   string `json:"total_amount"`
	PaymentMethod string `json:"payment_method"`
}

func NewOrderCreatedEvent(tenantID, orderID int64, orderCode string, tableID int64, totalAmount, paymentMethod string) *OrderCreatedEvent {
	return &OrderCreatedEvent{
		BaseEvent: newBase(EventTypeOrderCreated, map[string]interface{}{
			"tenant_id":      tenantID,
			"order_id":       orderID,
			"order_code":     orderCode,
			"table_id":       tableID,
			"total_amount":   totalAmount,
			"payment_method": paymentMethod,
		}),
		TenantID:      tenantID,
		OrderID:       orderID,
		OrderCode:     orderCode,
		TableID:       tableID,
		TotalAmount:   totalAmount,
		PaymentMethod: paymentMethod,
	}
}

type OrderStatusChangedEvent struct {
	BaseEvent
	TenantID   int64  `json:"tenant_id"`
	OrderID    int64  `json:"order_id"`
	OrderCode  string `json:"order_code"`
	FromStatus string `json:"from_status"`
	ToStatus   string `json:"to_status"`
	ActorID    *int64 `json:"actor_id,omitempty"`
}

func NewOrderStatusChangedEvent(tenantID, orderID int64, orderCode, from, to string, actorID *int64) *OrderStatusChangedEvent {
	return &OrderStatusChangedEvent{
		BaseEvent: newBase(EventTypeOrderStatusChanged, map[string]interface{}{
			"tenant_id":   tenantID,
			"order_id":    orderID,
			"order_code":  orderCode,
			"from_status": from,
			"to_status":   to,
			"actor_id":    actorID,
		}),
		TenantID:   tenantID,
		OrderID:    orderID,
		OrderCode:  orderCode,
		FromStatus: from,
		ToStatus:   to,
		ActorID:    actorID,
	}
}

type PaymentSubmittedEvent struct {
	BaseEvent
	TenantID  int64  `json:"tenant_id"`
	OrderID   int64  `json:"order_id"`
	OrderCode string `json:"order_code"`
	PaymentID int64  `json:"payment_id"`
	Method    string `json:"method"`
	Amount    string `json:"amount"`
}

func NewPaymentSubmittedEvent(tenantID, orderID int64, orderCode string, paymentID int64, method, amount string) *PaymentSubmittedEvent {
	return &PaymentSubmittedEvent{
		BaseEvent: newBase(EventTypePaymentSubmitted, map[string]interface{}{
			"tenant_id":  tenantID,
			"order_id":   orderID,
			"order_code": orderCode,
			"payment_id": paymentID,
			"method":     method,
			"amount":     amount,
		}),
		TenantID:  tenantID,
		OrderID:   orderID,
		OrderCode: orderCode,
		PaymentID: paymentID,
		Method:    method,
		Amount:    amount,
	}
}

// PaymentStatusChangedEvent covers staff verification and gateway callbacks.
// Source is "staff" or "gateway".
type PaymentStatusChangedEvent struct {
	BaseEvent
	TenantID      int64  `json:"tenant_id"`
	OrderID       int64  `json:"order_id"`
	OrderCode     string `json:"order_code"`
	PaymentStatus string `json:"payment_status"`
	Source        string `json:"source"`
}

func NewPaymentStatusChangedEvent(tenantID, orderID int64, orderCode, paymentStatus, source string) *PaymentStatusChangedEvent {
	return &PaymentStatusChangedEvent{
		BaseEvent: newBase(EventTypePaymentStatusChanged, map[string]interface{}{
			"tenant_id":      tenantID,
			"order_id":       orderID,
			"order_code":     orderCode,
			"payment_status": paymentStatus,
			"source":         source,
		}),
		TenantID:      tenantID,
		OrderID:       orderID,
		OrderCode:     orderCode,
		PaymentStatus: paymentStatus,
		Source:        source,
	}
}
