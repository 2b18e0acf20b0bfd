/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package storagemodels

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestSkip(t *testing.T) {
	tests := []struct {
		page, size int
		want       int64
	}{
		{page: 1, size: 3, want: 0},
		{page: 0, size: 3, want: 0},
		{page: -4, size: 3, want: 0},
		{page: 2, size: 3, want: 3},
		{page: 5, size: 10, want: 40},
		{page: 3, size: 0, want: 0},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Skip(tt.page, tt.size), "page %d size %d", tt.page, tt.size)
	}
}

func TestPage(t *testing.T) {
	t.Run("middle page", func(t *testing.T) {
		p := NewPage([]int{4, 5, 6}, 2, 3, 7)
		assert.Equal(t, 3, p.TotalPages())
		assert.True(t, p.HasNext())
		assert.True(t, p.HasPrevious())
	})

	t.Run("last page", func(t *testing.T) {
		p := NewPage([]int{7}, 3, 3, 7)
		assert.False(t, p.HasNext())
	})

	t.Run("unpaged", func(t *testing.T) {
		p := NewPage([]int{1, 2}, 0, 0, 2)
		assert.Equal(t, 1, p.Page)
		assert.Equal(t, 1, p.TotalPages())
		assert.False(t, p.HasNext())
		assert.False(t, p.HasPrevious())
	})

	t.Run("empty", func(t *testing.T) {
		p := NewPage[int](nil, 1, 10, 0)
		assert.Equal(t, 0, p.TotalPages())
		assert.False(t, p.HasNext())
	})
}

func TestStreamOptions(t *testing.T) {
	opts := DefaultStreamOptions()
	for _, o := range []StreamOption{
		WithBufferSize(5),
		WithPageSize(2),
		WithMaxRetries(1),
		WithRetryBackoff(time.Millisecond),
	} {
		o(&opts)
	}
	assert.Equal(t, 5, opts.BufferSize)
	assert.Equal(t, int32(2), opts.PageSize)
	assert.Equal(t, 1, opts.MaxRetries)
	assert.Equal(t, time.Millisecond, opts.RetryBackoff)
}
