package order_test

import (
	"math/rand"
	"regexp"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/frahmantamala/resto-order/internal/order"
)

var _ = Describe("CodeGenerator", func() {
	day := time.Date(2025, 3, 7, 12, 0, 0, 0, time.UTC)

	It("formats a leading digit, three digits and the order date", func() {
		gen := order.NewCodeGeneratorWith(func(n int) int { return n - 1 }, func() time.Time { return day })
		Expect(gen.Next()).To(Equal("9999070325"))

		gen = order.NewCodeGeneratorWith(func(int) int { return 0 }, func() time.Time { return day })
		Expect(gen.Next()).To(Equal("1000070325"))
	})

	It("always produces ten digits", func() {
		gen := order.NewCodeGenerator()
		pattern := regexp.MustCompile(`^[1-9][0-9]{3}[0-9]{6}$`)
		for i := 0; i < 100; i++ {
			Expect(gen.Next()).To(MatchRegexp(pattern.String()))
		}
	})

	It("uses the random source for the first four digits", func() {
		r := rand.New(rand.NewSource(1))
		gen := order.NewCodeGeneratorWith(r.Intn, func() time.Time { return day })
		seen := map[string]bool{}
		for i := 0; i < 50; i++ {
			seen[gen.Next()] = true
		}
		Expect(len(seen)).To(BeNumerically(">", 40))
	})
})
