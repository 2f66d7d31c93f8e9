package catalog

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/spec-kit/certification-service/internal/domain"
)

func seedCatalog() *MemoryCatalog {
	return NewMemoryCatalog(
		domain.Standard{ID: "s1", Iso: "ISO 9001:2015", Category: "Quality", Description: "Quality management systems", ICS: []int{3, 120}, IsActive: true},
		domain.Standard{ID: "s2", Iso: "ISO 14001:2015", Category: "Environment", Description: "Environmental management", ICS: []int{13}, IsActive: true},
		domain.Standard{ID: "s3", Iso: "ISO 27001:2013", Category: "Security", Description: "Information security", Stage: "95.99", IsActive: false},
	)
}

func TestMemorySearch(t *testing.T) {
	ctx := context.Background()
	c := seedCatalog()

	t.Run("keyword is case insensitive", func(t *testing.T) {
		page, err := c.Search(ctx, Filter{Keyword: "MANAGEMENT"})
		require.NoError(t, err)
		require.Equal(t, 2, page.Total)
		require.Equal(t, "ISO 14001:2015", page.Items[0].Iso)
	})

	t.Run("retired records are hidden by default", func(t *testing.T) {
		page, err := c.Search(ctx, Filter{Keyword: "security"})
		require.NoError(t, err)
		require.Zero(t, page.Total)

		page, err = c.Search(ctx, Filter{Keyword: "security", IncludeRetired: true})
		require.NoError(t, err)
		require.Equal(t, 1, page.Total)
	})

	t.Run("ics matches any code", func(t *testing.T) {
		page, err := c.Search(ctx, Filter{ICS: []int{120, 999}})
		require.NoError(t, err)
		require.Equal(t, 1, page.Total)
		require.Equal(t, "s1", page.Items[0].ID)
	})

	t.Run("paging", func(t *testing.T) {
		page, err := c.Search(ctx, Filter{Page: 2, PageSize: 1})
		require.NoError(t, err)
		require.Equal(t, 2, page.Total)
		require.Len(t, page.Items, 1)
		require.Equal(t, "ISO 9001:2015", page.Items[0].Iso)

		page, err = c.Search(ctx, Filter{PageSize: 1000})
		require.NoError(t, err)
		require.Equal(t, MaxPageSize, page.PageSize)
	})
}

func TestMemoryInsertAndRetire(t *testing.T) {
	ctx := context.Background()
	c := seedCatalog()

	s := &domain.Standard{Iso: "ISO 50001:2018", IsActive: true}
	require.NoError(t, c.Insert(ctx, s))
	require.NotEmpty(t, s.ID)

	require.ErrorIs(t, c.Insert(ctx, &domain.Standard{Iso: "ISO 50001:2018"}), ErrDuplicateIso)

	retired, err := c.Retire(ctx, "ISO 50001:2018")
	require.NoError(t, err)
	require.False(t, retired.IsActive)

	_, err = c.Retire(ctx, "ISO 0000")
	require.ErrorIs(t, err, ErrNotFound)

	many, err := c.GetMany(ctx, []string{"s2", "missing", "s1"})
	require.NoError(t, err)
	require.Len(t, many, 2)
	require.Equal(t, "s2", many[0].ID)
}
