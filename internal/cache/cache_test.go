package cache_test

import (
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/go-redis/redis/v8"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/frahmantamala/resto-order/internal/cache"
	"github.com/frahmantamala/resto-order/internal/order"
)

// unreachable points at a port nothing listens on.
func unreachable() *cache.Client {
	return cache.NewClient(redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 100 * time.Millisecond,
		MaxRetries:  -1,
	}))
}

var _ = Describe("Redis cache", func() {
	var ctx context.Context

	BeforeEach(func() {
		ctx = context.Background()
	})

	It("rejects malformed URLs", func() {
		_, err := cache.Initialize(ctx, "not-a-url")
		Expect(err).To(HaveOccurred())
	})

	It("fails to initialize when the server is down", func() {
		_, err := cache.Initialize(ctx, "redis://127.0.0.1:1/0")
		Expect(err).To(HaveOccurred())
	})

	It("keys summaries by tenant, code and generation", func() {
		Expect(cache.SummaryKey(3, "1234140325", 2)).To(Equal("order:summary:3:1234140325:g2"))
		Expect(cache.GenerationKey(3, "1234140325")).To(Equal("order:summary:3:1234140325:gen"))
	})

	It("degrades to a miss when redis is unavailable", func() {
		lg := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
		c := cache.NewSummaryCache(unreachable(), time.Minute, lg)

		_, gen, ok := c.Get(ctx, 1, "1234140325")
		Expect(ok).To(BeFalse())
		Expect(gen).To(BeNumerically("<", 0))
		c.Set(ctx, 1, "1234140325", gen, &order.Summary{OrderCode: "1234140325"})
		c.Invalidate(ctx, 1, "1234140325")
	})

	It("surfaces counter errors", func() {
		_, err := unreachable().Counter(ctx, "order:summary:1:1234140325:gen")
		Expect(err).To(HaveOccurred())
		Expect(unreachable().Bump(ctx, "order:summary:1:1234140325:gen", time.Hour)).NotTo(Succeed())
	})

	It("reports limiter errors so callers can fail open", func() {
		_, err := unreachable().Allow(ctx, "callback:10.0.0.1", 5, time.Minute)
		Expect(err).To(HaveOccurred())
	})
})
