package memory

import (
	"context"
	"testing"
	"time"

	"github.com/rovshanmuradov/burn-portal/internal/amount"
	"github.com/rovshanmuradov/burn-portal/internal/storage"
	"github.com/rovshanmuradov/burn-portal/internal/storage/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func burn(sig string, n uint64, at time.Time) *models.Burn {
	return &models.Burn{
		ID:        "id-" + sig,
		Signature: sig,
		Account:   "owner",
		Amount:    amount.Whole(n, 9),
		BurnedAt:  at,
	}
}

func TestStoreRecordAndList(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	base := time.Unix(1_700_000_000, 0)

	require.NoError(t, s.Record(ctx, burn("a", 1, base)))
	require.NoError(t, s.Record(ctx, burn("b", 2, base.Add(time.Hour))))
	require.NoError(t, s.Record(ctx, burn("c", 3, base.Add(2*time.Hour))))

	all, err := s.List(ctx, 0)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "c", all[0].Signature, "newest first")

	top, err := s.List(ctx, 2)
	require.NoError(t, err)
	assert.Len(t, top, 2)

	top[0].Signature = "mutated"
	again, _ := s.List(ctx, 1)
	assert.Equal(t, "c", again[0].Signature, "List returns copies")
}

func TestStoreRejectsDuplicatesAndInvalidInput(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	now := time.Now()

	require.NoError(t, s.Record(ctx, burn("a", 1, now)))
	assert.ErrorIs(t, s.Record(ctx, burn("a", 5, now)), storage.ErrDuplicateKey)
	assert.ErrorIs(t, s.Record(ctx, nil), storage.ErrInvalidInput)
	assert.ErrorIs(t, s.Record(ctx, &models.Burn{Signature: "x"}), storage.ErrInvalidInput)
}

func TestStoreBurnedSince(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	now := time.Unix(1_700_000_000, 0)

	require.NoError(t, s.Record(ctx, burn("old", 100, now.Add(-25*time.Hour))))
	require.NoError(t, s.Record(ctx, burn("edge", 10, now.Add(-24*time.Hour))))
	require.NoError(t, s.Record(ctx, burn("new", 1, now.Add(-time.Minute))))

	got, err := s.BurnedSince(ctx, now.Add(-24*time.Hour))
	require.NoError(t, err)
	assert.True(t, got.Equal(amount.Whole(11, 9)), "got %s", got)

	empty, err := NewStore().BurnedSince(ctx, now)
	require.NoError(t, err)
	assert.True(t, empty.IsZero())
}
