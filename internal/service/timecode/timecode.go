// Package timecode converts transcript elapsed-time codes into second offsets.
package timecode

import (
	"strconv"
	"strings"
	"time"
)

// Parse converts "H:MM:SS", "MM:SS" or bare seconds into a second offset.
// Malformed parts count as zero and any other shape yields zero, so a bad
// timestamp never stops a replay; the record is simply delivered without waiting.
func Parse(code string) int {
	parts := strings.Split(code, ":")
	switch len(parts) {
	case 3:
		return part(parts[0])*3600 + part(parts[1])*60 + part(parts[2])
	case 2:
		return part(parts[0])*60 + part(parts[1])
	case 1:
		return part(parts[0])
	default:
		return 0
	}
}

// Seconds is Parse expressed as a duration.
func Seconds(code string) time.Duration {
	return time.Duration(Parse(code)) * time.Second
}

func part(s string) int {
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0
	}
	return n
}
