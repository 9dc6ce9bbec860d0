/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package main

import (
	"fmt"
)

// readableSize formats a byte count with SI units for log lines.
func readableSize(bytes int64) string {
	if bytes < 1000 {
		return fmt.Sprintf("%d B", bytes)
	}
	size := float64(bytes)
	for _, suffix := range []string{"kB", "MB", "GB", "TB", "PB"} {
		size /= 1000
		if size < 1000 {
			return fmt.Sprintf("%.1f %s", size, suffix)
		}
	}
	return fmt.Sprintf("%.1f EB", size/1000)
}
