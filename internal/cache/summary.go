package cache

import (
	"context"
	stderrors "errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/frahmantamala/resto-order/internal/order"
)

// generationTTL outlives every summary entry by a wide margin.
const generationTTL = 24 * time.Hour

// unknownGeneration tells Set not to store anything.
const unknownGeneration int64 = -1

type summaryCache struct {
	client *Client
	ttl    time.Duration
	logger *slog.Logger
}

// NewSummaryCache stores order summaries under
// order:summary:{tenant}:{code}:g{generation}.
func NewSummaryCache(client *Client, ttl time.Duration, logger *slog.Logger) order.SummaryCache {
	return &summaryCache{client: client, ttl: ttl, logger: logger}
}

func GenerationKey(tenantID int64, code string) string {
	return fmt.Sprintf("order:summary:%d:%s:gen", tenantID, code)
}

func SummaryKey(tenantID int64, code string, generation int64) string {
	return fmt.Sprintf("order:summary:%d:%s:g%d", tenantID, code, generation)
}

func (c *summaryCache) Get(ctx context.Context, tenantID int64, code string) (*order.Summary, int64, bool) {
	gen, err := c.client.Counter(ctx, GenerationKey(tenantID, code))
	if err != nil {
		c.logger.Warn("summary cache generation read failed", "error", err, "tenant_id", tenantID, "order_code", code)
		return nil, unknownGeneration, false
	}

	var s order.Summary
	if err := c.client.GetJSON(ctx, SummaryKey(tenantID, code, gen), &s); err != nil {
		if !stderrors.Is(err, ErrMiss) {
			c.logger.Warn("summary cache read failed", "error", err, "tenant_id", tenantID, "order_code", code)
		}
		return nil, gen, false
	}
	return &s, gen, true
}

func (c *summaryCache) Set(ctx context.Context, tenantID int64, code string, generation int64, s *order.Summary) {
	if generation == unknownGeneration {
		return
	}
	if err := c.client.SetJSON(ctx, SummaryKey(tenantID, code, generation), s, c.ttl); err != nil {
		c.logger.Warn("summary cache write failed", "error", err, "tenant_id", tenantID, "order_code", code)
	}
}

func (c *summaryCache) Invalidate(ctx context.Context, tenantID int64, code string) {
	if err := c.client.Bump(ctx, GenerationKey(tenantID, code), generationTTL); err != nil {
		c.logger.Warn("summary cache invalidation failed", "error", err, "tenant_id", tenantID, "order_code", code)
	}
}
