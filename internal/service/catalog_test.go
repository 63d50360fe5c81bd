package service

import (
	"context"
	"sync"
	"testing"

	"lottery-server/internal/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAddPrizeCapacity(t *testing.T) {
	tests := []struct {
		name     string
		existing []int
		add      int
		wantErr  error
	}{
		{"empty catalog full prize", nil, 100, nil},
		{"exactly 100", []int{30, 50}, 20, nil},
		{"one over", []int{30, 50}, 21, ErrCapacityExceeded},
		{"already full", []int{100}, 1, ErrCapacityExceeded},
		{"zero on full", []int{100}, 0, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			svc := NewCatalogService(store.NewMemory())
			seedPrizes(t, svc, tt.existing...)

			p, err := svc.AddPrize(ctx, "new", tt.add)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				list, lerr := svc.ListPrizes(ctx)
				require.NoError(t, lerr)
				assert.Len(t, list, len(tt.existing))
				return
			}
			require.NoError(t, err)
			assert.NotZero(t, p.ID)
			assert.Equal(t, tt.add, p.Probability)
		})
	}
}

func TestAddPrizeValidation(t *testing.T) {
	svc := NewCatalogService(store.NewMemory())
	ctx := context.Background()

	for _, tc := range []struct {
		name string
		prob int
	}{
		{"", 10},
		{"   ", 10},
		{"ok", -1},
		{"ok", 101},
	} {
		_, err := svc.AddPrize(ctx, tc.name, tc.prob)
		assert.ErrorIs(t, err, ErrValidation, "name=%q prob=%d", tc.name, tc.prob)
	}
	list, err := svc.ListPrizes(ctx)
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestAddPrizeConcurrentNeverExceeds(t *testing.T) {
	ctx := context.Background()
	svc := NewCatalogService(store.NewMemory())

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = svc.AddPrize(ctx, "p", 15)
		}()
	}
	wg.Wait()

	list, err := svc.ListPrizes(ctx)
	require.NoError(t, err)
	sum := 0
	for _, p := range list {
		sum += p.Probability
	}
	assert.Equal(t, 90, sum)
	assert.Len(t, list, 6)
}

func TestDeletePrize(t *testing.T) {
	ctx := context.Background()
	svc := NewCatalogService(store.NewMemory())
	ps := seedPrizes(t, svc, 30, 50)

	assert.ErrorIs(t, svc.DeletePrize(ctx, 999), ErrPrizeNotFound)
	assert.ErrorIs(t, svc.DeletePrize(ctx, 0), ErrPrizeNotFound)
	list, err := svc.ListPrizes(ctx)
	require.NoError(t, err)
	assert.Len(t, list, 2)

	require.NoError(t, svc.DeletePrize(ctx, ps[0].ID))
	list, err = svc.ListPrizes(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, ps[1].ID, list[0].ID)

	assert.ErrorIs(t, svc.DeletePrize(ctx, ps[0].ID), ErrPrizeNotFound)
}

func TestListPrizesOrderedByID(t *testing.T) {
	ctx := context.Background()
	svc := NewCatalogService(store.NewMemory())
	seedPrizes(t, svc, 10, 20, 30)

	list, err := svc.ListPrizes(ctx)
	require.NoError(t, err)
	require.Len(t, list, 3)
	for i := 1; i < len(list); i++ {
		assert.Less(t, list[i-1].ID, list[i].ID)
	}
}
