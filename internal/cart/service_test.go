package cart

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wichananm65/coffee-shop-backend/internal/apperror"
	"github.com/wichananm65/coffee-shop-backend/internal/product"
)

func newTestService() *Service {
	catalog := testCatalog()
	return NewService(NewInMemoryRepository(catalog), product.NewService(catalog))
}

func TestAdd_IncrementsSingleEntry(t *testing.T) {
	s := newTestService()
	ctx := context.Background()

	first, err := s.Add(ctx, "sess", "p1", 1)
	require.NoError(t, err)
	second, err := s.Add(ctx, "sess", "p1", 1)
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
	lines, err := s.List(ctx, "sess")
	require.NoError(t, err)
	require.Len(t, lines, 1)
	assert.Equal(t, 2, lines[0].Quantity)
	assert.Equal(t, "50", lines[0].Subtotal().String())
}

func TestSetQuantity_Floor(t *testing.T) {
	s := newTestService()
	ctx := context.Background()

	e, err := s.Add(ctx, "sess", "p2", 4)
	require.NoError(t, err)

	_, err = s.SetQuantity(ctx, "sess", e.ID, 0)
	var ve *apperror.ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "quantity", ve.Field)

	lines, err := s.List(ctx, "sess")
	require.NoError(t, err)
	assert.Equal(t, 4, lines[0].Quantity)

	_, err = s.SetQuantity(ctx, "sess", "missing", 2)
	assert.True(t, errors.Is(err, apperror.ErrNotFound))
}

func TestAdd_UnknownProduct(t *testing.T) {
	s := newTestService()
	_, err := s.Add(context.Background(), "sess", "ghost", 1)
	assert.ErrorIs(t, err, apperror.ErrNotFound)

	lines, err := s.List(context.Background(), "sess")
	require.NoError(t, err)
	assert.Empty(t, lines)
}

func TestCartIsolation_Concurrent(t *testing.T) {
	s := newTestService()
	ctx := context.Background()

	const sessions, adds = 8, 25
	var wg sync.WaitGroup
	for i := 0; i < sessions; i++ {
		sid := fmt.Sprintf("sess-%d", i)
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < adds; j++ {
				_, err := s.Add(ctx, sid, "p1", 1)
				assert.NoError(t, err)
			}
		}()
	}
	wg.Wait()

	for i := 0; i < sessions; i++ {
		lines, err := s.List(ctx, fmt.Sprintf("sess-%d", i))
		require.NoError(t, err)
		require.Len(t, lines, 1)
		assert.Equal(t, adds, lines[0].Quantity)
	}
}

func TestRemoveAndClear_Idempotent(t *testing.T) {
	s := newTestService()
	ctx := context.Background()

	e, err := s.Add(ctx, "sess", "p1", 1)
	require.NoError(t, err)
	require.NoError(t, s.Remove(ctx, "sess", e.ID))
	require.NoError(t, s.Remove(ctx, "sess", e.ID))
	require.NoError(t, s.Clear(ctx, "sess"))
	require.NoError(t, s.Clear(ctx, "sess"))

	_, err = s.List(ctx, "")
	assert.ErrorIs(t, err, apperror.ErrUnauthorized)
}

func TestQuantity_Ceiling(t *testing.T) {
	s := newTestService()
	ctx := context.Background()

	_, err := s.Add(ctx, "sess", "p1", 3_000_000_000)
	assert.ErrorIs(t, err, ErrQuantityTooLarge)
	_, err = s.Add(ctx, "sess", "p1", MaxQuantity+1)
	var ve *apperror.ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "quantity", ve.Field)

	e, err := s.Add(ctx, "sess", "p1", MaxQuantity-1)
	require.NoError(t, err)
	// the increment would pass the cap, so the entry keeps its quantity
	_, err = s.Add(ctx, "sess", "p1", 2)
	assert.ErrorIs(t, err, apperror.ErrValidation)
	e, err = s.Add(ctx, "sess", "p1", 1)
	require.NoError(t, err)
	assert.Equal(t, MaxQuantity, e.Quantity)

	_, err = s.SetQuantity(ctx, "sess", e.ID, MaxQuantity+1)
	assert.ErrorIs(t, err, ErrQuantityTooLarge)
	lines, err := s.List(ctx, "sess")
	require.NoError(t, err)
	assert.Equal(t, MaxQuantity, lines[0].Quantity)
}
