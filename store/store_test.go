package store

import (
	"context"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ibogihq/payments-service/models"
)

func newTestStore(t *testing.T) *PaymentStore {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "payments.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestInsertAndFindByReference(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	p := &models.Payment{
		Amount:         5000,
		Email:          "a@b.com",
		TransactionRef: "ref_123",
		Status:         "success",
	}
	require.NoError(t, s.Insert(ctx, p))
	require.NotEmpty(t, p.ID)
	require.False(t, p.CreatedAt.IsZero())

	got, err := s.FindByReference(ctx, "ref_123")
	require.NoError(t, err)
	require.NotNil(t, got)
	require.Equal(t, p.ID, got.ID)
	require.Equal(t, int64(5000), got.Amount)
	require.Equal(t, "a@b.com", got.Email)
	require.Equal(t, "success", got.Status)
}

func TestFindByReference_NotFound(t *testing.T) {
	s := newTestStore(t)

	got, err := s.FindByReference(context.Background(), "missing")
	require.NoError(t, err)
	require.Nil(t, got)
}

func TestInsert_DuplicateReference(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	first := &models.Payment{Amount: 5000, Email: "a@b.com", TransactionRef: "ref_dup", Status: "success"}
	require.NoError(t, s.Insert(ctx, first))

	second := &models.Payment{Amount: 5000, Email: "a@b.com", TransactionRef: "ref_dup", Status: "success"}
	err := s.Insert(ctx, second)
	require.ErrorIs(t, err, ErrDuplicateReference)

	all, err := s.ListAll(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)
}

func TestInsert_ConcurrentSameReference(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	const racers = 8
	errs := make([]error, racers)
	var wg sync.WaitGroup
	for i := 0; i < racers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs[i] = s.Insert(ctx, &models.Payment{
				Amount:         5000,
				Email:          "a@b.com",
				TransactionRef: "ref_race",
				Status:         "success",
			})
		}(i)
	}
	wg.Wait()

	var wins int
	for _, err := range errs {
		if err == nil {
			wins++
		} else {
			require.ErrorIs(t, err, ErrDuplicateReference)
		}
	}
	require.Equal(t, 1, wins)

	all, err := s.ListAll(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)
}

func TestListAll(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	all, err := s.ListAll(ctx)
	require.NoError(t, err)
	require.Empty(t, all)

	require.NoError(t, s.Insert(ctx, &models.Payment{Amount: 100, Email: "a@b.com", TransactionRef: "ref_1", Status: "success"}))
	require.NoError(t, s.Insert(ctx, &models.Payment{Amount: 200, Email: "c@d.com", TransactionRef: "ref_2", Status: "success"}))

	all, err = s.ListAll(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)
}
