package product

import (
	"context"
	"sort"
	"strings"

	"github.com/wichananm65/coffee-shop-backend/internal/apperror"
)

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (s *Service) List(ctx context.Context) ([]Product, error) {
	return s.repo.List(ctx)
}

func (s *Service) GetByID(ctx context.Context, id string) (Product, error) {
	return s.repo.GetByID(ctx, id)
}

// Lookup resolves a product by slug first and falls back to its id, so old
// links that carry ids keep working.
func (s *Service) Lookup(ctx context.Context, slugOrID string) (Product, error) {
	p, err := s.repo.GetBySlug(ctx, slugOrID)
	if err == nil {
		return p, nil
	}
	if err != ErrNotFound {
		return Product{}, err
	}
	return s.repo.GetByID(ctx, slugOrID)
}

func (s *Service) ListByIDs(ctx context.Context, ids []string) ([]Product, error) {
	return s.repo.ListByIDs(ctx, ids)
}

func (s *Service) Create(ctx context.Context, p Product) (Product, error) {
	p.Slug = strings.TrimSpace(p.Slug)
	if p.Slug == "" {
		p.Slug = Slugify(p.Title)
	}
	if err := firstValidationError(validateProductPayload(&p)); err != nil {
		return Product{}, err
	}
	return s.repo.Create(ctx, p)
}

func (s *Service) Update(ctx context.Context, id string, patch Patch) (Product, error) {
	existing, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return Product{}, err
	}
	patch.apply(&existing)
	if err := firstValidationError(validateProductPayload(&existing)); err != nil {
		return Product{}, err
	}
	return s.repo.Update(ctx, existing)
}

func (s *Service) Delete(ctx context.Context, id string) error {
	return s.repo.Delete(ctx, id)
}

// firstValidationError picks a deterministic field so repeated calls report
// the same error.
func firstValidationError(errs map[string]string) error {
	if len(errs) == 0 {
		return nil
	}
	fields := make([]string, 0, len(errs))
	for f := range errs {
		fields = append(fields, f)
	}
	sort.Strings(fields)
	return apperror.Validation(fields[0], errs[fields[0]])
}
