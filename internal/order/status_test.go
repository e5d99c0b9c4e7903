package order_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/frahmantamala/resto-order/internal/order"
)

var _ = Describe("Status", func() {
	It("defines the transition set of every status", func() {
		for _, s := range order.Statuses {
			Expect(s.Valid()).To(BeTrue(), string(s))
		}
	})

	DescribeTable("CanTransitionTo",
		func(from, to order.Status, allowed bool) {
			Expect(from.CanTransitionTo(to)).To(Equal(allowed))
		},
		Entry("pending to accepted", order.StatusPending, order.StatusAccepted, true),
		Entry("pending to canceled", order.StatusPending, order.StatusCanceled, true),
		Entry("pending to ready", order.StatusPending, order.StatusReady, false),
		Entry("pending to completed", order.StatusPending, order.StatusCompleted, false),
		Entry("accepted to preparing", order.StatusAccepted, order.StatusPreparing, true),
		Entry("accepted to canceled", order.StatusAccepted, order.StatusCanceled, true),
		Entry("accepted to pending", order.StatusAccepted, order.StatusPending, false),
		Entry("preparing to ready", order.StatusPreparing, order.StatusReady, true),
		Entry("preparing to canceled", order.StatusPreparing, order.StatusCanceled, true),
		Entry("ready to completed", order.StatusReady, order.StatusCompleted, true),
		Entry("ready to canceled", order.StatusReady, order.StatusCanceled, false),
		Entry("completed to pending", order.StatusCompleted, order.StatusPending, false),
		Entry("canceled to accepted", order.StatusCanceled, order.StatusAccepted, false),
		Entry("pending to unknown", order.StatusPending, order.Status("served"), false),
	)

	It("treats completed and canceled as terminal", func() {
		Expect(order.StatusCompleted.IsTerminal()).To(BeTrue())
		Expect(order.StatusCanceled.IsTerminal()).To(BeTrue())
		Expect(order.StatusReady.IsTerminal()).To(BeFalse())
	})

	It("returns a copy of the allowed transitions", func() {
		next := order.AllowedTransitions(order.StatusPending)
		Expect(next).To(ConsistOf(order.StatusAccepted, order.StatusCanceled))

		next[0] = order.StatusCompleted
		Expect(order.AllowedTransitions(order.StatusPending)).To(ConsistOf(order.StatusAccepted, order.StatusCanceled))
	})

	It("parses known statuses only", func() {
		s, ok := order.ParseStatus("ready")
		Expect(ok).To(BeTrue())
		Expect(s).To(Equal(order.StatusReady))

		_, ok = order.ParseStatus("served")
		Expect(ok).To(BeFalse())
	})
})

var _ = Describe("PaymentMethod", func() {
	It("seeds cash orders as unpaid and others as waiting verification", func() {
		Expect(order.PaymentMethodCash.InitialPaymentStatus()).To(Equal(order.PaymentStatusUnpaid))
		Expect(order.PaymentMethodTransfer.InitialPaymentStatus()).To(Equal(order.PaymentStatusWaitingVerification))
		Expect(order.PaymentMethodQRIS.InitialPaymentStatus()).To(Equal(order.PaymentStatusWaitingVerification))
	})
})
