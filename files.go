/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package main

import (
	"fmt"
)

// humanReadableSize formats a byte count using SI units, for log lines.
func humanReadableSize(bytes int64) string {
	const (
		unit     int64 = 1000
		prefixes       = "kMGTPE"
	)

	if bytes < unit {
		return fmt.Sprintf("%d B", bytes)
	}

	exp := 0
	value := float64(bytes) / float64(unit)
	for value >= float64(unit) && exp < len(prefixes)-1 {
		value /= float64(unit)
		exp++
	}

	return fmt.Sprintf("%.1f %cB", value, prefixes[exp])
}
