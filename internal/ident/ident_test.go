package ident

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestAllocateDistinct(t *testing.T) {
	ctx := context.Background()
	alloc := NewAllocator(DefaultAlphabet, 5)

	live := map[string]bool{}
	exists := func(_ context.Context, id string) (bool, error) {
		return live[id], nil
	}

	for i := 0; i < 500; i++ {
		id, err := alloc.Allocate(ctx, exists)
		require.NoError(t, err)
		require.Len(t, id, 5)
		require.False(t, live[id], "allocator returned a live id")
		for _, c := range id {
			require.True(t, strings.ContainsRune(DefaultAlphabet, c))
		}
		live[id] = true
	}
}

func TestAllocateWidensOnCollision(t *testing.T) {
	ctx := context.Background()
	alloc := NewAllocator("ab", 1)

	// every length-1 and length-2 candidate collides, so the allocator
	// must widen to 3 characters
	exists := func(_ context.Context, id string) (bool, error) {
		return len(id) < 3, nil
	}

	id, err := alloc.Allocate(ctx, exists)
	require.NoError(t, err)
	require.Len(t, id, 3)
}

func TestAllocateGivesUpEventually(t *testing.T) {
	ctx := context.Background()
	alloc := NewAllocator("ab", 1)

	exists := func(context.Context, string) (bool, error) { return true, nil }

	_, err := alloc.Allocate(ctx, exists)
	require.Error(t, err)
	require.True(t, ErrSpaceExhausted.Has(err))
}

func TestTokens(t *testing.T) {
	hex1, err := HexToken(16)
	require.NoError(t, err)
	hex2, err := HexToken(16)
	require.NoError(t, err)
	require.Len(t, hex1, 32)
	require.NotEqual(t, hex1, hex2)

	url, err := URLToken(18)
	require.NoError(t, err)
	require.Len(t, url, 24)
	require.NotContains(t, url, "=")
	require.NotContains(t, url, "/")
	require.NotContains(t, url, "+")
}
