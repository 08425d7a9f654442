package memory

import (
	"context"
	"log"

	"github.com/claimlens/claimlens/pkg/models"
)

// Manager coordinates the two cache tiers. Reads try the hot tier
// first, then the durable tier with a hot-tier backfill; writes go
// through to both.
type Manager struct {
	short *ShortTermStore
	long  *LongTermStore
}

// NewManager wires the two tiers together.
func NewManager(short *ShortTermStore, long *LongTermStore) *Manager {
	return &Manager{short: short, long: long}
}

// Get looks a claim up in both tiers. Cache errors are logged and
// treated as misses so a degraded tier never blocks verification.
func (m *Manager) Get(ctx context.Context, claim string) (*models.VerificationResult, bool) {
	if result, ok, err := m.short.GetResult(ctx, claim); err != nil {
		log.Printf("[memory] short-term lookup failed: %v", err)
	} else if ok {
		return result, true
	}

	result, ok, err := m.long.Get(ctx, claim)
	if err != nil {
		log.Printf("[memory] long-term lookup failed: %v", err)
		return nil, false
	}
	if !ok {
		return nil, false
	}

	if err := m.short.PutResult(ctx, claim, result); err != nil {
		log.Printf("[memory] hot-tier backfill failed: %v", err)
	}
	return result, true
}

// Put writes a fresh result through both tiers. Failures are logged,
// not returned: a missed cache write costs a recomputation later, not
// the request.
func (m *Manager) Put(ctx context.Context, claim string, result *models.VerificationResult) {
	if err := m.short.PutResult(ctx, claim, result); err != nil {
		log.Printf("[memory] short-term store failed: %v", err)
	}
	if err := m.long.Put(ctx, claim, result); err != nil {
		log.Printf("[memory] long-term store failed: %v", err)
	}
}

// RecentByVerdict proxies the durable tier's recent listing.
func (m *Manager) RecentByVerdict(ctx context.Context, verdict string, limit int) ([]RecentClaim, error) {
	return m.long.RecentByVerdict(ctx, verdict, limit)
}

// Health reports both tiers' backing store status.
func (m *Manager) Health(ctx context.Context) map[string]string {
	return map[string]string{
		"short_term": m.short.Health(ctx),
		"long_term":  m.long.Health(ctx),
	}
}

// Stats proxies the durable tier's aggregate view.
func (m *Manager) Stats(ctx context.Context) (*Stats, error) {
	return m.long.Stats(ctx)
}
