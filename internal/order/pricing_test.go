package order_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/shopspring/decimal"

	"github.com/frahmantamala/resto-order/internal/order"
)

var _ = Describe("Pricing", func() {
	d := decimal.RequireFromString

	It("multiplies price plus extras by qty", func() {
		sub := order.ItemSubtotal(d("20000"), []decimal.Decimal{d("5000")}, 2)
		Expect(sub.Equal(d("50000"))).To(BeTrue())
	})

	It("applies the tenant tax percentage", func() {
		subtotal, tax, total := order.Totals([]decimal.Decimal{d("50000")}, d("10"))
		Expect(subtotal.Equal(d("50000"))).To(BeTrue())
		Expect(tax.Equal(d("5000"))).To(BeTrue())
		Expect(total.Equal(d("55000"))).To(BeTrue())
	})

	It("skips tax when no percentage is configured", func() {
		_, tax, total := order.Totals([]decimal.Decimal{d("12000"), d("3000")}, decimal.Zero)
		Expect(tax.IsZero()).To(BeTrue())
		Expect(total.Equal(d("15000"))).To(BeTrue())
	})

	It("rounds tax to two places", func() {
		_, tax, total := order.Totals([]decimal.Decimal{d("10.01")}, d("11"))
		Expect(tax.String()).To(Equal("1.1"))
		Expect(total.String()).To(Equal("11.11"))
	})
})
