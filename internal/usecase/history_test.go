package usecase

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/V4T54L/service-portal/internal/adapter/pii"
	"github.com/V4T54L/service-portal/internal/domain"
	"github.com/V4T54L/service-portal/internal/domain/mocks"
)

func seededHistory(n int) *mocks.MockHistoryRepository {
	repo := &mocks.MockHistoryRepository{}
	for i := 0; i < n; i++ {
		phone := fmt.Sprintf("05%08d", i)
		_ = repo.Append(context.Background(), &domain.LookupHistoryEntry{
			Kind:       domain.KindPhone,
			QueryValue: phone,
			Snapshot:   domain.Identifiers{domain.FieldPhone: phone, domain.FieldNationalID: "1122334455"},
			Action:     domain.ActionLookup,
		})
	}
	return repo
}

func TestHistoryUseCase_Paging(t *testing.T) {
	uc := NewHistoryUseCase(seededHistory(45), pii.NewDefaultMasker())
	ctx := context.Background()

	page, err := uc.Query(ctx, HistoryQuery{}, false)
	require.NoError(t, err)
	assert.Equal(t, 1, page.Page)
	assert.Equal(t, 3, page.Pages)
	assert.Equal(t, 45, page.Total)
	assert.Len(t, page.Items, domain.HistoryPageSize)
	assert.False(t, page.HasPrev)
	assert.True(t, page.HasNext)
	assert.Equal(t, int64(45), page.Items[0].ID)

	page, err = uc.Query(ctx, HistoryQuery{Page: "99"}, false)
	require.NoError(t, err)
	assert.Equal(t, 3, page.Page)
	assert.Len(t, page.Items, 5)
	assert.True(t, page.HasPrev)
	assert.False(t, page.HasNext)

	for _, bad := range []string{"0", "-2", "abc"} {
		page, err = uc.Query(ctx, HistoryQuery{Page: bad}, false)
		require.NoError(t, err)
		assert.Equal(t, 1, page.Page, bad)
	}
}

func TestHistoryUseCase_EmptyLog(t *testing.T) {
	uc := NewHistoryUseCase(&mocks.MockHistoryRepository{}, pii.NewDefaultMasker())

	page, err := uc.Query(context.Background(), HistoryQuery{Page: "4"}, false)
	require.NoError(t, err)
	assert.Equal(t, 1, page.Page)
	assert.Equal(t, 1, page.Pages)
	assert.Empty(t, page.Items)
}

func TestHistoryUseCase_Filters(t *testing.T) {
	repo := seededHistory(1)
	uc := NewHistoryUseCase(repo, pii.NewDefaultMasker())

	_, err := uc.Query(context.Background(), HistoryQuery{Q: " 0500 ", Type: "phone", Found: "0"}, false)
	require.NoError(t, err)
	assert.Equal(t, "0500", repo.LastQuery.Query)
	assert.Equal(t, domain.KindPhone, repo.LastQuery.Kind)
	require.NotNil(t, repo.LastQuery.Found)
	assert.False(t, *repo.LastQuery.Found)

	_, err = uc.Query(context.Background(), HistoryQuery{Found: "maybe"}, false)
	require.NoError(t, err)
	assert.Nil(t, repo.LastQuery.Found)
	assert.Empty(t, repo.LastQuery.Kind)
}

func TestHistoryUseCase_UnknownType(t *testing.T) {
	repo := seededHistory(3)
	uc := NewHistoryUseCase(repo, pii.NewDefaultMasker())

	page, err := uc.Query(context.Background(), HistoryQuery{Type: "passport"}, false)
	require.NoError(t, err)
	assert.Empty(t, page.Items)
	assert.Zero(t, page.Total)
	assert.Equal(t, "passport", page.Type)
	assert.Equal(t, domain.HistoryFilter{}, repo.LastQuery)
}

func TestHistoryUseCase_Masking(t *testing.T) {
	uc := NewHistoryUseCase(seededHistory(1), pii.NewDefaultMasker())
	ctx := context.Background()

	page, err := uc.Query(ctx, HistoryQuery{}, true)
	require.NoError(t, err)
	item := page.Items[0]
	assert.Equal(t, "0500000000", item.QueryValue)
	assert.Equal(t, "050***000", item.MaskedValue)
	assert.Equal(t, "050***000", item.Snapshot.Get(domain.FieldPhone))
	assert.Equal(t, "112***455", item.Snapshot.Get(domain.FieldNationalID))

	page, err = uc.Query(ctx, HistoryQuery{}, false)
	require.NoError(t, err)
	assert.Equal(t, "0500000000", page.Items[0].Snapshot.Get(domain.FieldPhone))
	assert.Equal(t, "050***000", page.Items[0].MaskedValue)
}

func TestHistoryUseCase_StoreError(t *testing.T) {
	uc := NewHistoryUseCase(&mocks.MockHistoryRepository{QueryErr: errors.New("db down")}, pii.NewDefaultMasker())
	_, err := uc.Query(context.Background(), HistoryQuery{}, false)
	assert.Error(t, err)
}
