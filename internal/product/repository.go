package product

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/wichananm65/coffee-shop-backend/internal/apperror"
)

var (
	ErrNotFound   = apperror.NotFound("product")
	ErrSlugExists = fmt.Errorf("%w: slug already exists", apperror.ErrConflict)
)

type Repository interface {
	List(ctx context.Context) ([]Product, error)
	GetByID(ctx context.Context, id string) (Product, error)
	GetBySlug(ctx context.Context, slug string) (Product, error)
	// ListByIDs returns the products whose id is in ids; unknown ids are
	// skipped. An empty slice returns without a query.
	ListByIDs(ctx context.Context, ids []string) ([]Product, error)
	Create(ctx context.Context, p Product) (Product, error)
	Update(ctx context.Context, p Product) (Product, error)
	Delete(ctx context.Context, id string) error
}

// InMemoryRepository is a simple in-memory implementation useful for tests and
// seeding local data.
type InMemoryRepository struct {
	mu      sync.RWMutex
	storage map[string]Product
}

func NewInMemoryRepository(seed []Product) *InMemoryRepository {
	r := &InMemoryRepository{storage: make(map[string]Product, len(seed))}
	for _, p := range seed {
		if p.ID == "" {
			p.ID = uuid.NewString()
		}
		r.storage[p.ID] = p
	}
	return r
}

func (r *InMemoryRepository) List(_ context.Context) ([]Product, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Product, 0, len(r.storage))
	for _, p := range r.storage {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Title < out[j].Title })
	return out, nil
}

func (r *InMemoryRepository) GetByID(_ context.Context, id string) (Product, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.storage[id]
	if !ok {
		return Product{}, ErrNotFound
	}
	return p, nil
}

func (r *InMemoryRepository) GetBySlug(_ context.Context, slug string) (Product, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, p := range r.storage {
		if p.Slug == slug {
			return p, nil
		}
	}
	return Product{}, ErrNotFound
}

func (r *InMemoryRepository) ListByIDs(_ context.Context, ids []string) ([]Product, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Product, 0, len(ids))
	for _, id := range ids {
		if p, ok := r.storage[id]; ok {
			out = append(out, p)
		}
	}
	return out, nil
}

func (r *InMemoryRepository) Create(_ context.Context, p Product) (Product, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.slugTaken(p.Slug, "") {
		return Product{}, ErrSlugExists
	}
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	p.CreatedAt, p.UpdatedAt = now, now
	r.storage[p.ID] = p
	return p, nil
}

func (r *InMemoryRepository) Update(_ context.Context, p Product) (Product, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	existing, ok := r.storage[p.ID]
	if !ok {
		return Product{}, ErrNotFound
	}
	if r.slugTaken(p.Slug, p.ID) {
		return Product{}, ErrSlugExists
	}
	p.CreatedAt = existing.CreatedAt
	p.UpdatedAt = time.Now().UTC()
	r.storage[p.ID] = p
	return p, nil
}

func (r *InMemoryRepository) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.storage[id]; !ok {
		return ErrNotFound
	}
	delete(r.storage, id)
	return nil
}

func (r *InMemoryRepository) slugTaken(slug, exceptID string) bool {
	for id, p := range r.storage {
		if p.Slug == slug && id != exceptID {
			return true
		}
	}
	return false
}
