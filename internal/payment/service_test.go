package payment_test

import (
	"bytes"
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/shopspring/decimal"

	errors "github.com/frahmantamala/resto-order/internal"
	orderDatamodel "github.com/frahmantamala/resto-order/internal/core/datamodel/order"
	paymentDatamodel "github.com/frahmantamala/resto-order/internal/core/datamodel/payment"
	"github.com/frahmantamala/resto-order/internal/core/events"
	"github.com/frahmantamala/resto-order/internal/order"
	"github.com/frahmantamala/resto-order/internal/payment"
	"github.com/frahmantamala/resto-order/internal/tenant"
)

type mockRepository struct {
	mu        sync.Mutex
	created   []*paymentDatamodel.Payment
	createErr error
	orders    []*orderDatamodel.Order
	findErr   error

	verifyErr   error
	verifyCalls int

	gatewayApplied bool
	gatewayErr     error
	gatewayCalls   []payment.GatewayPayment

	statusChanged bool
	statusErr     error
	statusCalls   []order.PaymentStatus

	callbacks []*paymentDatamodel.GatewayCallback
}

func (m *mockRepository) Create(_ context.Context, row *paymentDatamodel.Payment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.createErr != nil {
		return m.createErr
	}
	row.ID = int64(len(m.created) + 1)
	row.CreatedAt = time.Now()
	m.created = append(m.created, row)
	return nil
}

func (m *mockRepository) ListByOrder(_ context.Context, orderID int64) ([]*paymentDatamodel.Payment, error) {
	var rows []*paymentDatamodel.Payment
	for _, p := range m.created {
		if p.OrderID == orderID {
			rows = append(rows, p)
		}
	}
	return rows, nil
}

func (m *mockRepository) FindOrdersByCode(_ context.Context, code string) ([]*orderDatamodel.Order, error) {
	if m.findErr != nil {
		return nil, m.findErr
	}
	var rows []*orderDatamodel.Order
	for _, o := range m.orders {
		if o.OrderCode == code {
			rows = append(rows, o)
		}
	}
	return rows, nil
}

func (m *mockRepository) Verify(_ context.Context, orderID, paymentID int64, verifiedBy *int64, at time.Time, _ string) (*paymentDatamodel.Payment, error) {
	m.verifyCalls++
	if m.verifyErr != nil {
		return nil, m.verifyErr
	}
	return &paymentDatamodel.Payment{ID: paymentID, OrderID: orderID, Method: "transfer", VerifiedAt: &at, VerifiedBy: verifiedBy}, nil
}

func (m *mockRepository) ApplyGatewayPaid(_ context.Context, orderID int64, gp payment.GatewayPayment, at time.Time, _ string) (*paymentDatamodel.Payment, bool, error) {
	m.gatewayCalls = append(m.gatewayCalls, gp)
	if m.gatewayErr != nil {
		return nil, false, m.gatewayErr
	}
	return &paymentDatamodel.Payment{ID: 9, OrderID: orderID, Method: "qris", Amount: gp.Amount, VerifiedAt: &at}, m.gatewayApplied, nil
}

func (m *mockRepository) SetPaymentStatus(_ context.Context, _ int64, status order.PaymentStatus, _ string) (bool, error) {
	m.statusCalls = append(m.statusCalls, status)
	if m.statusErr != nil {
		return false, m.statusErr
	}
	return m.statusChanged, nil
}

func (m *mockRepository) RecordCallback(_ context.Context, row *paymentDatamodel.GatewayCallback) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.callbacks = append(m.callbacks, row)
	return nil
}

type memoryStore struct {
	files   map[string][]byte
	saveErr error
	removed []string
}

func newMemoryStore() *memoryStore {
	return &memoryStore{files: map[string][]byte{}}
}

func (s *memoryStore) Save(_ context.Context, ext string, content io.Reader) (string, string, error) {
	if s.saveErr != nil {
		return "", "", s.saveErr
	}
	b, err := io.ReadAll(content)
	if err != nil {
		return "", "", err
	}
	key := fmt.Sprintf("proof-%d.%s", len(s.files)+1, ext)
	s.files[key] = b
	return key, "/uploads/" + key, nil
}

func (s *memoryStore) Remove(_ context.Context, key string) error {
	delete(s.files, key)
	s.removed = append(s.removed, key)
	return nil
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []events.Event
}

func (p *recordingPublisher) Publish(_ context.Context, e events.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
	return nil
}

func (p *recordingPublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, 0, len(p.events))
	for _, e := range p.events {
		out = append(out, e.EventType())
	}
	return out
}

type invalidationRecorder struct {
	keys []string
}

func (c *invalidationRecorder) Get(context.Context, int64, string) (*order.Summary, int64, bool) {
	return nil, 0, false
}
func (c *invalidationRecorder) Set(context.Context, int64, string, int64, *order.Summary) {}
func (c *invalidationRecorder) Invalidate(_ context.Context, tenantID int64, code string) {
	c.keys = append(c.keys, fmt.Sprintf("%d:%s", tenantID, code))
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
}

func proofOf(name string, size int) *payment.ProofFile {
	return &payment.ProofFile{
		Filename: name,
		Size:     int64(size),
		Content:  bytes.NewReader(bytes.Repeat([]byte("x"), size)),
	}
}

func fieldCode(err error) string {
	appErr, ok := errors.IsAppError(err)
	Expect(ok).To(BeTrue())
	details, ok := appErr.Details.(errors.ValidationErrors)
	Expect(ok).To(BeTrue())
	return details.Errors[0].Field + ":" + details.Errors[0].Code
}

var _ = Describe("Payment Service", func() {
	var (
		ctx       context.Context
		repo      *mockRepository
		store     *memoryStore
		publisher *recordingPublisher
		cache     *invalidationRecorder
		service   *payment.Service
		t         *tenant.Tenant
		ord       *order.Order
	)

	BeforeEach(func() {
		ctx = context.Background()
		repo = &mockRepository{}
		store = newMemoryStore()
		publisher = &recordingPublisher{}
		cache = &invalidationRecorder{}
		service = payment.NewService(repo, store, publisher, testLogger(), payment.WithSummaryCache(cache))

		t = &tenant.Tenant{ID: 1, Slug: "kopi-senja", IsActive: true}
		ord = &order.Order{
			ID:            10,
			TenantID:      1,
			Code:          "1234140325",
			PaymentMethod: order.PaymentMethodTransfer,
			PaymentStatus: order.PaymentStatusWaitingVerification,
			Status:        order.StatusPending,
			TotalAmount:   decimal.RequireFromString("55000"),
		}
	})

	Describe("Submit", func() {
		It("defaults method and amount from the order", func() {
			p, err := service.Submit(ctx, t, ord, &payment.SubmitPaymentDTO{}, nil)
			Expect(err).NotTo(HaveOccurred())
			Expect(p.Method).To(Equal(order.PaymentMethodTransfer))
			Expect(p.Amount.Equal(decimal.RequireFromString("55000"))).To(BeTrue())
			Expect(p.ProofURL).To(BeNil())
			Expect(p.IsVerified()).To(BeFalse())
		})

		It("stores the proof and records its URL", func() {
			bank := "  BCA "
			p, err := service.Submit(ctx, t, ord, &payment.SubmitPaymentDTO{Method: "QRIS", BankName: &bank}, proofOf("receipt.PDF", 1024))
			Expect(err).NotTo(HaveOccurred())
			Expect(p.Method).To(Equal(order.PaymentMethodQRIS))
			Expect(*p.BankName).To(Equal("BCA"))
			Expect(p.ProofURL).NotTo(BeNil())
			Expect(*p.ProofURL).To(HavePrefix("/uploads/proof-1.pdf"))
			Expect(store.files).To(HaveLen(1))

			Expect(publisher.types()).To(ConsistOf(events.EventTypePaymentSubmitted))
			Expect(cache.keys).To(ConsistOf("1:1234140325"))
		})

		DescribeTable("proof extensions",
			func(name string, ok bool) {
				_, err := service.Submit(ctx, t, ord, &payment.SubmitPaymentDTO{}, proofOf(name, 10))
				if ok {
					Expect(err).NotTo(HaveOccurred())
					return
				}
				Expect(fieldCode(err)).To(Equal("proof:" + string(errors.ErrCodeInvalidProofFile)))
				Expect(store.files).To(BeEmpty())
				Expect(repo.created).To(BeEmpty())
			},
			Entry("png", "a.png", true),
			Entry("jpg", "a.jpg", true),
			Entry("jpeg upper case", "a.JPEG", true),
			Entry("webp", "a.webp", true),
			Entry("pdf", "a.pdf", true),
			Entry("gif", "a.gif", false),
			Entry("no extension", "receipt", false),
			Entry("double extension", "a.png.exe", false),
		)

		It("accepts a proof of exactly 2 MiB and rejects one byte more", func() {
			_, err := service.Submit(ctx, t, ord, &payment.SubmitPaymentDTO{}, proofOf("a.png", 2*1024*1024))
			Expect(err).NotTo(HaveOccurred())

			_, err = service.Submit(ctx, t, ord, &payment.SubmitPaymentDTO{}, proofOf("b.png", 2*1024*1024+1))
			Expect(fieldCode(err)).To(Equal("proof:" + string(errors.ErrCodeInvalidProofFile)))
			Expect(repo.created).To(HaveLen(1))
		})

		It("rejects content larger than its declared size", func() {
			proof := &payment.ProofFile{
				Filename: "a.png",
				Size:     10,
				Content:  strings.NewReader(strings.Repeat("x", 2*1024*1024+10)),
			}
			_, err := service.Submit(ctx, t, ord, &payment.SubmitPaymentDTO{}, proof)
			Expect(fieldCode(err)).To(Equal("proof:" + string(errors.ErrCodeInvalidProofFile)))
			Expect(repo.created).To(BeEmpty())
		})

		It("rejects an unsupported method", func() {
			_, err := service.Submit(ctx, t, ord, &payment.SubmitPaymentDTO{Method: "crypto"}, nil)
			Expect(fieldCode(err)).To(Equal("method:" + string(errors.ErrCodeInvalidPaymentMethod)))
		})

		It("rejects a non-positive amount", func() {
			zero := decimal.Zero
			_, err := service.Submit(ctx, t, ord, &payment.SubmitPaymentDTO{Amount: &zero}, nil)
			Expect(fieldCode(err)).To(Equal("amount:" + string(errors.ErrCodeInvalidAmount)))
		})

		It("rejects a defaulted amount when the order total is zero", func() {
			ord.TotalAmount = decimal.Zero
			_, err := service.Submit(ctx, t, ord, &payment.SubmitPaymentDTO{}, proofOf("a.png", 10))
			Expect(fieldCode(err)).To(Equal("amount:" + string(errors.ErrCodeInvalidAmount)))
			Expect(repo.created).To(BeEmpty())
			Expect(store.files).To(BeEmpty())
		})

		It("does not accept payments for another tenant's order", func() {
			other := &tenant.Tenant{ID: 2}
			_, err := service.Submit(ctx, other, ord, &payment.SubmitPaymentDTO{}, nil)
			Expect(stderrors.Is(err, errors.ErrOrderNotFound)).To(BeTrue())
		})

		It("removes the stored proof when the row cannot be written", func() {
			repo.createErr = stderrors.New("database down")
			_, err := service.Submit(ctx, t, ord, &payment.SubmitPaymentDTO{}, proofOf("a.png", 10))
			appErr, ok := errors.IsAppError(err)
			Expect(ok).To(BeTrue())
			Expect(appErr.StatusCode).To(Equal(500))
			Expect(store.files).To(BeEmpty())
			Expect(store.removed).To(HaveLen(1))
			Expect(publisher.types()).To(BeEmpty())
		})
	})

	Describe("MarkAsPaid", func() {
		It("verifies the payment and marks the order paid", func() {
			p, err := service.MarkAsPaid(ctx, t, ord, 5, 42)
			Expect(err).NotTo(HaveOccurred())
			Expect(p.IsVerified()).To(BeTrue())
			Expect(*p.VerifiedBy).To(Equal(int64(42)))
			Expect(ord.PaymentStatus).To(Equal(order.PaymentStatusPaid))
			Expect(publisher.types()).To(ConsistOf(events.EventTypePaymentStatusChanged))
			Expect(publisher.events[0].(*events.PaymentStatusChangedEvent).Source).To(Equal(payment.SourceStaff))
			Expect(cache.keys).To(ConsistOf("1:1234140325"))
		})

		It("reports a second verification as a conflict", func() {
			repo.verifyErr = payment.ErrAlreadyVerified
			_, err := service.MarkAsPaid(ctx, t, ord, 5, 42)
			Expect(stderrors.Is(err, errors.ErrPaymentAlreadyVerified)).To(BeTrue())
			Expect(ord.PaymentStatus).To(Equal(order.PaymentStatusWaitingVerification))
			Expect(publisher.types()).To(BeEmpty())
		})

		It("reports a payment of another order as not found", func() {
			repo.verifyErr = payment.ErrNotOnOrder
			_, err := service.MarkAsPaid(ctx, t, ord, 5, 42)
			Expect(stderrors.Is(err, errors.ErrPaymentNotFound)).To(BeTrue())
		})

		It("never reaches the repository across tenants", func() {
			_, err := service.MarkAsPaid(ctx, &tenant.Tenant{ID: 2}, ord, 5, 42)
			Expect(stderrors.Is(err, errors.ErrOrderNotFound)).To(BeTrue())
			Expect(repo.verifyCalls).To(BeZero())
		})
	})

	Describe("ApplyGatewayCallback", func() {
		BeforeEach(func() {
			repo.orders = []*orderDatamodel.Order{
				{ID: 10, TenantID: 1, OrderCode: "1234140325", TotalAmount: decimal.RequireFromString("55000")},
			}
		})

		It("returns not found for unknown references", func() {
			_, err := service.ApplyGatewayCallback(ctx, &payment.Callback{MerchantRef: "nope", Status: payment.GatewayStatusPaid, Amount: "1"})
			Expect(stderrors.Is(err, errors.ErrOrderNotFound)).To(BeTrue())
			Expect(repo.gatewayCalls).To(BeEmpty())
		})

		It("refuses a reference shared by two tenants", func() {
			repo.orders = append(repo.orders, &orderDatamodel.Order{ID: 11, TenantID: 2, OrderCode: "1234140325"})
			_, err := service.ApplyGatewayCallback(ctx, &payment.Callback{MerchantRef: "1234140325", Status: payment.GatewayStatusPaid, Amount: "55000"})
			appErr, ok := errors.IsAppError(err)
			Expect(ok).To(BeTrue())
			Expect(appErr.Type).To(Equal(errors.ErrorTypeNotFound))
			Expect(appErr.Message).To(Equal("ambiguous reference"))
			Expect(repo.gatewayCalls).To(BeEmpty())
		})

		It("falls back to the order total for a zero callback amount", func() {
			repo.gatewayApplied = true
			res, err := service.ApplyGatewayCallback(ctx, &payment.Callback{MerchantRef: "1234140325", Status: payment.GatewayStatusPaid, Amount: "0"})
			Expect(err).NotTo(HaveOccurred())
			Expect(res.Outcome).To(Equal(payment.OutcomePaid))
			Expect(repo.gatewayCalls).To(HaveLen(1))
			Expect(repo.gatewayCalls[0].Amount.Equal(decimal.RequireFromString("55000"))).To(BeTrue())
		})

		It("applies PAID using the callback amount", func() {
			repo.gatewayApplied = true
			bank := "BRI"
			res, err := service.ApplyGatewayCallback(ctx, &payment.Callback{MerchantRef: "1234140325", Status: payment.GatewayStatusPaid, Amount: "55000.00", BankName: &bank})
			Expect(err).NotTo(HaveOccurred())
			Expect(res.Outcome).To(Equal(payment.OutcomePaid))
			Expect(res.Payment.VerifiedByGateway()).To(BeTrue())
			Expect(repo.gatewayCalls).To(HaveLen(1))
			Expect(repo.gatewayCalls[0].Amount.Equal(decimal.RequireFromString("55000"))).To(BeTrue())
			Expect(*repo.gatewayCalls[0].BankName).To(Equal("BRI"))

			Expect(publisher.types()).To(ConsistOf(events.EventTypePaymentStatusChanged))
			Expect(publisher.events[0].(*events.PaymentStatusChangedEvent).Source).To(Equal(payment.SourceGateway))
			Expect(cache.keys).To(ConsistOf("1:1234140325"))
		})

		It("falls back to the order total for a non-numeric amount", func() {
			repo.gatewayApplied = true
			_, err := service.ApplyGatewayCallback(ctx, &payment.Callback{MerchantRef: "1234140325", Status: payment.GatewayStatusPaid, Amount: "abc"})
			Expect(err).NotTo(HaveOccurred())
			Expect(repo.gatewayCalls[0].Amount.Equal(decimal.RequireFromString("55000"))).To(BeTrue())
		})

		It("treats a repeated PAID as already recorded", func() {
			repo.gatewayApplied = false
			res, err := service.ApplyGatewayCallback(ctx, &payment.Callback{MerchantRef: "1234140325", Status: payment.GatewayStatusPaid, Amount: "55000"})
			Expect(err).NotTo(HaveOccurred())
			Expect(res.Outcome).To(Equal(payment.OutcomeAlreadyPaid))
			Expect(publisher.types()).To(BeEmpty())
		})

		It("treats a lost unique-index race as already recorded", func() {
			repo.gatewayErr = payment.ErrAlreadyVerified
			res, err := service.ApplyGatewayCallback(ctx, &payment.Callback{MerchantRef: "1234140325", Status: payment.GatewayStatusPaid, Amount: "55000"})
			Expect(err).NotTo(HaveOccurred())
			Expect(res.Outcome).To(Equal(payment.OutcomeAlreadyPaid))
		})

		DescribeTable("terminal gateway statuses",
			func(status payment.GatewayStatus, want order.PaymentStatus, outcome payment.Outcome) {
				repo.statusChanged = true
				res, err := service.ApplyGatewayCallback(ctx, &payment.Callback{MerchantRef: "1234140325", Status: status, Amount: "55000"})
				Expect(err).NotTo(HaveOccurred())
				Expect(res.Outcome).To(Equal(outcome))
				Expect(repo.statusCalls).To(Equal([]order.PaymentStatus{want}))
				Expect(publisher.types()).To(ConsistOf(events.EventTypePaymentStatusChanged))
			},
			Entry("expired", payment.GatewayStatusExpired, order.PaymentStatusExpired, payment.OutcomeExpired),
			Entry("failed", payment.GatewayStatusFailed, order.PaymentStatusFailed, payment.OutcomeFailed),
		)

		It("ignores unrecognised statuses without touching state", func() {
			res, err := service.ApplyGatewayCallback(ctx, &payment.Callback{MerchantRef: "1234140325", Status: payment.ParseGatewayStatus("pending"), Amount: "55000"})
			Expect(err).NotTo(HaveOccurred())
			Expect(res.Outcome).To(Equal(payment.OutcomeIgnored))
			Expect(repo.gatewayCalls).To(BeEmpty())
			Expect(repo.statusCalls).To(BeEmpty())
			Expect(publisher.types()).To(BeEmpty())
		})

		It("reports mutation failures as internal errors", func() {
			repo.gatewayErr = stderrors.New("deadlock detected")
			_, err := service.ApplyGatewayCallback(ctx, &payment.Callback{MerchantRef: "1234140325", Status: payment.GatewayStatusPaid, Amount: "55000"})
			appErr, ok := errors.IsAppError(err)
			Expect(ok).To(BeTrue())
			Expect(appErr.StatusCode).To(Equal(500))
			Expect(publisher.types()).To(BeEmpty())
		})
	})
})
