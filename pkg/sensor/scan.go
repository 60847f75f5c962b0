package sensor

import (
	"fmt"
	"strconv"
	"strings"
)

// ParseScan parses an ADC bridge line into a scan.
// Format: r0,r1,r2,r3,r4,r5,r6,r7
// Example: 412,398,405,3610,3580,420,401,399
func ParseScan(line string) ([Channels]uint16, error) {
	var scan [Channels]uint16

	parts := strings.Split(line, ",")
	if len(parts) != Channels {
		return scan, fmt.Errorf("invalid line format: expected %d comma-separated values, got %d", Channels, len(parts))
	}

	for i, p := range parts {
		v, err := strconv.ParseUint(strings.TrimSpace(p), 10, 16)
		if err != nil {
			return scan, fmt.Errorf("invalid reading on channel %d: %w", i, err)
		}
		if v > MaxRaw {
			return scan, fmt.Errorf("reading on channel %d out of range: %d (max %d)", i, v, MaxRaw)
		}
		scan[i] = uint16(v)
	}

	return scan, nil
}

// AppendScan appends the bridge line form of scan, without the trailing newline, to dst.
func AppendScan(dst []byte, scan [Channels]uint16) []byte {
	for i, v := range scan {
		if i > 0 {
			dst = append(dst, ',')
		}
		dst = strconv.AppendUint(dst, uint64(v), 10)
	}
	return dst
}

// FormatScan renders a scan in the bridge line format.
func FormatScan(scan [Channels]uint16) string {
	return string(AppendScan(make([]byte, 0, 40), scan))
}
