package admin

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseSize(t *testing.T) {
	cases := []struct {
		in   string
		want int64
	}{
		{"0", 0},
		{"1234", 1234},
		{"5K", 5_000},
		{"10M", 10_000_000},
		{"2G", 2_000_000_000},
		{"1T", 1_000_000_000_000},
		{" 42M ", 42_000_000},
	}
	for _, tc := range cases {
		got, err := ParseSize(tc.in)
		require.NoError(t, err, tc.in)
		require.Equal(t, tc.want, got, tc.in)
	}
}

func TestParseSizeRejects(t *testing.T) {
	for _, in := range []string{"", "abc", "M", "10X", "-5", "-5M", "1.5G"} {
		_, err := ParseSize(in)
		require.Error(t, err, in)
		require.True(t, ErrInvalidSize.Has(err), in)
	}
}
