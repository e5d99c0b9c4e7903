package order

import "context"

// SummaryCache keeps customer summaries for polling clients. Implementations
// log their own failures; a miss always falls back to the database.
//
// A miss returns the generation observed before the database read, and Set
// stores under that generation. Invalidate moves the order to a new
// generation, so a reader that loaded a row before a concurrent mutation
// committed can only write an entry nobody reads again.
type SummaryCache interface {
	Get(ctx context.Context, tenantID int64, orderCode string) (summary *Summary, generation int64, ok bool)
	Set(ctx context.Context, tenantID int64, orderCode string, generation int64, summary *Summary)
	Invalidate(ctx context.Context, tenantID int64, orderCode string)
}

type noopSummaryCache struct{}

func NoopSummaryCache() SummaryCache {
	return noopSummaryCache{}
}

func (noopSummaryCache) Get(context.Context, int64, string) (*Summary, int64, bool) { return nil, 0, false }
func (noopSummaryCache) Set(context.Context, int64, string, int64, *Summary)       {}
func (noopSummaryCache) Invalidate(context.Context, int64, string)                 {}
