package redissink

import (
	"fmt"
	"strconv"
	"time"
)

func parseMillis(s string) (time.Time, error) {
	ms, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return time.Time{}, fmt.Errorf("redissink: invalid timestamp %q: %w", s, err)
	}
	return time.UnixMilli(ms).UTC(), nil
}
