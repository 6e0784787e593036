package repository

import (
	"context"
	"testing"
	"time"

	"github.com/JaroldEnderez/Vanity/internal/dto"
	"github.com/JaroldEnderez/Vanity/internal/model"
	"github.com/JaroldEnderez/Vanity/internal/testutil"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newDraft(t *testing.T, repo SessionRepository, f *testutil.Fixture) *model.Sale {
	t.Helper()
	s := &model.Sale{BranchID: f.Branch.ID, StaffID: f.Staff.ID, Status: model.SaleStatusDraft}
	require.NoError(t, repo.Create(context.Background(), nil, s))
	return s
}

func TestTouchDraftChecksBranchAndStatus(t *testing.T) {
	db := testutil.NewDB(t)
	f := testutil.Seed(t, db)
	repo := NewSessionRepository(db)
	ctx := context.Background()
	s := newDraft(t, repo, f)

	ok, err := repo.TouchDraft(ctx, nil, s.ID, f.Branch.ID)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = repo.TouchDraft(ctx, nil, s.ID, f.OtherBranch.ID)
	require.NoError(t, err)
	assert.False(t, ok, "other branch")

	ok, err = repo.Finalize(ctx, nil, s.ID, model.SaleStatusCancelled, time.Now(), nil)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = repo.TouchDraft(ctx, nil, s.ID, f.Branch.ID)
	require.NoError(t, err)
	assert.False(t, ok, "no longer a draft")
}

func TestFinalizeFlipsOnlyOnce(t *testing.T) {
	db := testutil.NewDB(t)
	f := testutil.Seed(t, db)
	repo := NewSessionRepository(db)
	ctx := context.Background()
	s := newDraft(t, repo, f)

	ok, err := repo.Finalize(ctx, nil, s.ID, model.SaleStatusCompleted, time.Now(), map[string]interface{}{"total": testutil.Dec("250")})
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = repo.Finalize(ctx, nil, s.ID, model.SaleStatusCancelled, time.Now(), nil)
	require.NoError(t, err)
	assert.False(t, ok)

	got, err := repo.FindHeader(ctx, nil, s.ID)
	require.NoError(t, err)
	assert.Equal(t, model.SaleStatusCompleted, got.Status)
	assert.NotNil(t, got.EndedAt)
	assert.Equal(t, "250", got.Total.String())

	ok, err = repo.DeleteDraft(ctx, nil, s.ID)
	require.NoError(t, err)
	assert.False(t, ok, "completed sessions are not deleted")
}

func TestListFinalizedFilters(t *testing.T) {
	db := testutil.NewDB(t)
	f := testutil.Seed(t, db)
	repo := NewSessionRepository(db)
	ctx := context.Background()

	day := time.Date(2026, 3, 10, 15, 0, 0, 0, time.Local)
	done := newDraft(t, repo, f)
	_, err := repo.Finalize(ctx, nil, done.ID, model.SaleStatusCompleted, day, nil)
	require.NoError(t, err)
	cancelled := newDraft(t, repo, f)
	_, err = repo.Finalize(ctx, nil, cancelled.ID, model.SaleStatusCancelled, day.AddDate(0, 0, 1), nil)
	require.NoError(t, err)
	newDraft(t, repo, f)

	cases := []struct {
		name   string
		filter dto.SaleFilter
		want   int64
	}{
		{"default completed", dto.SaleFilter{}, 1},
		{"cancelled", dto.SaleFilter{Status: "CANCELLED"}, 1},
		{"all finalized", dto.SaleFilter{Status: "all"}, 2},
		{"inclusive to", dto.SaleFilter{Status: "all", To: "2026-03-10"}, 1},
		{"from", dto.SaleFilter{Status: "all", From: "2026-03-11"}, 1},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rows, total, err := repo.ListFinalized(ctx, f.Branch.ID, tc.filter)
			require.NoError(t, err)
			assert.Equal(t, tc.want, total)
			assert.Len(t, rows, int(tc.want))
		})
	}

	_, total, err := repo.ListFinalized(ctx, f.OtherBranch.ID, dto.SaleFilter{Status: "all"})
	require.NoError(t, err)
	assert.Zero(t, total)
}

func TestAddStockIsRelative(t *testing.T) {
	db := testutil.NewDB(t)
	f := testutil.Seed(t, db)
	repo := NewMaterialRepository(db)
	ctx := context.Background()

	ok, err := repo.AddStockTx(ctx, nil, f.Cream.ID, testutil.Dec("-50"))
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = repo.AddStockTx(ctx, nil, f.Cream.ID, testutil.Dec("-8"))
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "4942", testutil.Stock(t, db, f.Cream).String())

	ok, err = repo.AddStockTx(ctx, nil, uuid.New(), testutil.Dec("1"))
	require.NoError(t, err)
	assert.False(t, ok)

	low, err := repo.LowStock(ctx, testutil.Dec("3000"))
	require.NoError(t, err)
	require.Len(t, low, 1)
	assert.Equal(t, f.Neutralizer.ID, low[0].ID)
}

func TestMaterialIDsForBranchIncludesSharedServices(t *testing.T) {
	db := testutil.NewDB(t)
	f := testutil.Seed(t, db)
	repo := NewCatalogRepository(db)

	ids, err := repo.MaterialIDsForBranch(context.Background(), f.OtherBranch.ID)
	require.NoError(t, err)
	assert.ElementsMatch(t, []uuid.UUID{f.Cream.ID, f.Neutralizer.ID}, ids)
}
