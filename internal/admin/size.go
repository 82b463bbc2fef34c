package admin

import (
	"strconv"
	"strings"
)

// magnitude suffixes accepted by ParseSize, each one a factor of 1000 over
// the previous.
const magnitudes = "KMGT"

// ParseSize converts a size string with an optional K/M/G/T suffix into a
// byte count. Magnitudes are decimal: "10M" is 10_000_000.
func ParseSize(value string) (int64, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0, ErrInvalidSize.New("empty value")
	}

	factor := int64(1)
	if idx := strings.IndexByte(magnitudes, value[len(value)-1]); idx >= 0 {
		for i := 0; i <= idx; i++ {
			factor *= 1000
		}
		value = value[:len(value)-1]
	}

	n, err := strconv.ParseInt(value, 10, 64)
	if err != nil || n < 0 {
		return 0, ErrInvalidSize.New("%q", value)
	}
	return n * factor, nil
}
