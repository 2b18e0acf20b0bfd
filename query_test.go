/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package doccontext

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/suparena/doccontext/filter"
	"github.com/suparena/doccontext/storagemodels"
)

func TestQueryComposition(t *testing.T) {
	ctx := context.Background()
	c, _ := openCatalog(t)
	require.NoError(t, c.Widgets.SaveRange(ctx, widgets(7)))

	base := c.Widgets.Where(filter.Gte("Size", 2))
	ordered := base.OrderByDescending("Size")

	t.Run("chains do not mutate the receiver", func(t *testing.T) {
		items, err := base.ToList(ctx)
		require.NoError(t, err)
		assert.Equal(t, []int{2, 3, 4, 5, 6}, sizes(items))

		items, err = ordered.Take(2).ToList(ctx)
		require.NoError(t, err)
		assert.Equal(t, []int{6, 5}, sizes(items))
	})

	t.Run("skip and take", func(t *testing.T) {
		items, err := base.Skip(1).Skip(1).Take(2).ToList(ctx)
		require.NoError(t, err)
		assert.Equal(t, []int{4, 5}, sizes(items))

		n, err := base.Skip(3).Take(5).Count(ctx)
		require.NoError(t, err)
		assert.Equal(t, int64(2), n)

		// Take then Skip past the window leaves nothing.
		exhausted := base.Take(2).Skip(3)
		items, err = exhausted.ToList(ctx)
		require.NoError(t, err)
		assert.Empty(t, items)
		n, err = exhausted.Count(ctx)
		require.NoError(t, err)
		assert.Zero(t, n)
	})

	t.Run("first and any", func(t *testing.T) {
		w, err := ordered.First(ctx)
		require.NoError(t, err)
		require.NotNil(t, w)
		assert.Equal(t, 6, w.Size)

		w, err = base.Where(filter.Gt("Size", 100)).FirstAsync(ctx).Await()
		require.NoError(t, err)
		assert.Nil(t, w)

		ok, err := base.Where(filter.Eq("Name", "c")).Any(ctx)
		require.NoError(t, err)
		assert.True(t, ok)
	})

	t.Run("filter includes every clause", func(t *testing.T) {
		rendered := base.Where(filter.Lt("Size", 5)).Filter().Render()
		require.Len(t, rendered, 1)
		assert.Equal(t, "$and", rendered[0].Key)
	})
}

func TestQueryStream(t *testing.T) {
	ctx := context.Background()
	c, _ := openCatalog(t)
	require.NoError(t, c.Widgets.SaveRange(ctx, widgets(7)))

	var progress []storagemodels.StreamProgress
	var got []int
	var pages []int
	for res := range c.Widgets.Where(filter.All()).Stream(ctx,
		storagemodels.WithPageSize(3),
		storagemodels.WithProgressHandler(func(p storagemodels.StreamProgress) { progress = append(progress, p) }),
	) {
		require.NoError(t, res.Error)
		require.NotNil(t, res.Raw)
		assert.Equal(t, res.Item.Name, res.Raw.Lookup("Name").StringValue())
		got = append(got, res.Item.Size)
		pages = append(pages, res.Meta.PageNumber)
	}

	assert.Equal(t, []int{0, 1, 2, 3, 4, 5, 6}, got)
	assert.Equal(t, []int{1, 1, 1, 2, 2, 2, 3}, pages)
	require.NotEmpty(t, progress)
	last := progress[len(progress)-1]
	assert.Equal(t, int64(7), last.ItemsProcessed)
	assert.Equal(t, 3, last.PagesProcessed)

	t.Run("honors take", func(t *testing.T) {
		var n int
		for res := range c.Widgets.Where(filter.All()).Skip(2).Take(4).Stream(ctx, storagemodels.WithPageSize(3)) {
			require.NoError(t, res.Error)
			n++
		}
		assert.Equal(t, 4, n)
	})

	t.Run("reports a failed page and stops", func(t *testing.T) {
		c, db := openCatalog(t)
		db.WithFindError(errors.New("find rejected"))

		var results []storagemodels.StreamResult[Widget]
		for res := range c.Widgets.Where(filter.All()).Stream(ctx, storagemodels.WithRetryBackoff(time.Millisecond)) {
			results = append(results, res)
		}
		require.Len(t, results, 1)
		assert.ErrorContains(t, results[0].Error, "find rejected")
	})
}
