package repository

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/iconidentify/vidgrab/internal/domain"
)

type delivery struct {
	result    *domain.DownloadResult
	expiresAt time.Time
}

// InMemoryDeliveryRepository implements DeliveryRepository with a TTL-bounded
// map. Expired entries are swept on every write and read, and by Sweep.
type InMemoryDeliveryRepository struct {
	mu    sync.Mutex
	items map[string]*delivery
	ttl   time.Duration
	now   func() time.Time
}

// NewInMemoryDeliveryRepository creates a delivery store whose entries live
// for ttl. A non-positive ttl keeps entries until taken.
func NewInMemoryDeliveryRepository(ttl time.Duration) *InMemoryDeliveryRepository {
	return &InMemoryDeliveryRepository{
		items: make(map[string]*delivery),
		ttl:   ttl,
		now:   time.Now,
	}
}

// Put stores a result under a fresh random token.
func (r *InMemoryDeliveryRepository) Put(ctx context.Context, result *domain.DownloadResult) (string, error) {
	token := uuid.New().String()

	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	r.sweepLocked(now)

	d := &delivery{result: result}
	if r.ttl > 0 {
		d.expiresAt = now.Add(r.ttl)
	}
	r.items[token] = d

	return token, nil
}

// Take returns and removes the result stored under token.
func (r *InMemoryDeliveryRepository) Take(ctx context.Context, token string) (*domain.DownloadResult, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.sweepLocked(r.now())

	d, ok := r.items[token]
	if !ok {
		return nil, domain.ErrDeliveryNotFound
	}
	delete(r.items, token)

	return d.result, nil
}

// Stats returns the number and total size of pending results.
func (r *InMemoryDeliveryRepository) Stats(ctx context.Context) (*DeliveryStats, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.sweepLocked(r.now())

	stats := &DeliveryStats{Pending: len(r.items)}
	for _, d := range r.items {
		stats.Bytes += int64(d.result.Size())
	}
	return stats, nil
}

// Sweep removes expired entries.
func (r *InMemoryDeliveryRepository) Sweep(ctx context.Context) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.sweepLocked(r.now()), nil
}

func (r *InMemoryDeliveryRepository) sweepLocked(now time.Time) int {
	removed := 0
	for token, d := range r.items {
		if !d.expiresAt.IsZero() && !now.Before(d.expiresAt) {
			delete(r.items, token)
			removed++
		}
	}
	return removed
}
